package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/antiforge/internal/cache/memory"
	healthctrl "github.com/dropDatabas3/antiforge/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/antiforge/internal/http/controllers/oauth"
	sectrl "github.com/dropDatabas3/antiforge/internal/http/controllers/security"
	sessctrl "github.com/dropDatabas3/antiforge/internal/http/controllers/session"
	securitydto "github.com/dropDatabas3/antiforge/internal/http/dto/security"
	sessiondto "github.com/dropDatabas3/antiforge/internal/http/dto/session"
	"github.com/dropDatabas3/antiforge/internal/http/helpers"
	mw "github.com/dropDatabas3/antiforge/internal/http/middlewares"
	oauthsvc "github.com/dropDatabas3/antiforge/internal/http/services/oauth"
	secsvc "github.com/dropDatabas3/antiforge/internal/http/services/security"
	sesssvc "github.com/dropDatabas3/antiforge/internal/http/services/session"
	"github.com/dropDatabas3/antiforge/internal/jwt"
	"github.com/dropDatabas3/antiforge/internal/security/password"
	tokens "github.com/dropDatabas3/antiforge/internal/security/token"
	"github.com/dropDatabas3/antiforge/internal/store"
)

// ───────────────────────── fixture ─────────────────────────

type fakeRepo struct {
	users map[string]*store.User
}

func (f *fakeRepo) FindByEmail(ctx context.Context, email string) (*store.User, error) {
	if u, ok := f.users[email]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}
func (f *fakeRepo) Create(ctx context.Context, u *store.User) error {
	f.users[u.Email] = u
	return nil
}
func (f *fakeRepo) Close() {}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cacheClient := memory.New("test", time.Minute)

	phc, err := password.Hash(password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}, "correcta")
	require.NoError(t, err)
	repo := &fakeRepo{users: map[string]*store.User{
		"ana@example.com": {ID: "user-ana", Email: "ana@example.com", PasswordHash: phc},
	}}

	xsrfService := secsvc.NewXSRFService(secsvc.Deps{
		Cache:  cacheClient,
		Config: securitydto.XSRFConfig{TTL: time.Minute},
	})
	sessionService := sesssvc.NewService(sesssvc.Deps{
		Cache:    cacheClient,
		Users:    repo,
		Config:   sessiondto.SessionConfig{TTL: time.Minute},
		OnLogout: xsrfService.Invalidate,
	})
	issuer, err := jwt.NewIssuer("antiforge-test", "una-clave-de-al-menos-32-bytes!!", 15*time.Minute)
	require.NoError(t, err)
	pkceService := oauthsvc.NewPKCEService(oauthsvc.Deps{
		Cache:     cacheClient,
		Issuer:    issuer,
		CodeTTL:   time.Minute,
		AccessTTL: 15 * time.Minute,
	})

	sessionCookie := helpers.CookiePolicy{Name: "sid", SameSite: "lax", TTL: time.Minute}
	xsrfCookie := helpers.CookiePolicy{Name: "XSRF-TOKEN", SameSite: "lax", TTL: time.Minute}

	r := New(Deps{
		XSRF:    sectrl.NewXSRFController(xsrfService, xsrfCookie),
		Session: sessctrl.NewController(sessionService, sessionCookie, xsrfCookie),
		OAuth:   oauthctrl.NewController(pkceService),
		Health:  healthctrl.NewController(cacheClient),

		SessionAuth: mw.WithSessionAuth(mw.SessionAuthConfig{
			CookieName:  "sid",
			AllowBearer: true,
			Sessions:    sessionService,
			Bearer:      issuer,
		}),
		XSRFGuard: mw.WithXSRFGuard(mw.XSRFConfig{
			HeaderName: "X-XSRF-TOKEN",
			Validator:  xsrfService,
		}),

		// Endpoint de negocio de prueba dentro del grupo protegido.
		ProtectedRoutes: func(r chi.Router) {
			r.Post("/v1/widgets", func(w http.ResponseWriter, req *http.Request) {
				w.WriteHeader(http.StatusCreated)
			})
			r.Get("/v1/widgets", func(w http.ResponseWriter, req *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
		},
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

// browser simula un frontend: jar de cookies + lectura de la cookie del token.
type browser struct {
	t   *testing.T
	srv *httptest.Server
	cl  *http.Client
}

func newBrowser(t *testing.T, srv *httptest.Server) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &browser{t: t, srv: srv, cl: &http.Client{Jar: jar}}
}

func (b *browser) do(method, path string, body any, headers map[string]string) *http.Response {
	b.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, b.srv.URL+path, rd)
	if err != nil {
		b.t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := b.cl.Do(req)
	if err != nil {
		b.t.Fatal(err)
	}
	return resp
}

func (b *browser) login() {
	b.t.Helper()
	resp := b.do(http.MethodPost, "/v1/session/login", map[string]string{
		"email": "ana@example.com", "password": "correcta",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		b.t.Fatalf("login: want 204, got %d", resp.StatusCode)
	}
}

// initToken corre el init y devuelve el token leído de la cookie, como haría
// el script del frontend.
func (b *browser) initToken() string {
	b.t.Helper()
	resp := b.do(http.MethodGet, "/v1/xsrf/init", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		b.t.Fatalf("init: want 204, got %d", resp.StatusCode)
	}
	return b.cookieValue("XSRF-TOKEN")
}

func (b *browser) cookieValue(name string) string {
	b.t.Helper()
	u, _ := url.Parse(b.srv.URL)
	for _, c := range b.cl.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	return body.Code
}

// ───────────────────────── tests ─────────────────────────

func TestProtocol_HappyPath(t *testing.T) {
	srv := newTestServer(t)
	b := newBrowser(t, srv)

	b.login()
	token := b.initToken()
	if token == "" {
		t.Fatal("init did not deliver a token cookie")
	}

	resp := b.do(http.MethodPost, "/v1/widgets", map[string]string{"name": "w"}, map[string]string{
		"X-XSRF-TOKEN": token,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("mutating request with valid token: want 201, got %d", resp.StatusCode)
	}
}

// La emisión entrega el token exclusivamente por cookie: 204 sin body, y la
// cookie es legible por script (no HttpOnly).
func TestInit_DeliveryViaCookieOnly(t *testing.T) {
	srv := newTestServer(t)
	b := newBrowser(t, srv)
	b.login()

	resp := b.do(http.MethodGet, "/v1/xsrf/init", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("want 204, got %d", resp.StatusCode)
	}
	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == "XSRF-TOKEN" {
			found = true
			if c.HttpOnly {
				t.Fatal("token cookie must be readable by script (HttpOnly=false)")
			}
			if c.Value == "" {
				t.Fatal("empty token cookie")
			}
		}
	}
	if !found {
		t.Fatal("no XSRF-TOKEN cookie in response")
	}
	if resp.Header.Get("Cache-Control") == "" {
		t.Fatal("init response should carry no-store cache headers")
	}
}

func TestInit_HeadAlsoIssues(t *testing.T) {
	srv := newTestServer(t)
	b := newBrowser(t, srv)
	b.login()

	resp := b.do(http.MethodHead, "/v1/xsrf/init", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("HEAD init: want 204, got %d", resp.StatusCode)
	}
	if b.cookieValue("XSRF-TOKEN") == "" {
		t.Fatal("HEAD init should set the token cookie")
	}
}

func TestInit_RequiresSession(t *testing.T) {
	srv := newTestServer(t)
	b := newBrowser(t, srv)

	resp := b.do(http.MethodGet, "/v1/xsrf/init", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("init without session: want 401, got %d", resp.StatusCode)
	}
}

func TestGuard_MissingHeader(t *testing.T) {
	srv := newTestServer(t)
	b := newBrowser(t, srv)
	b.login()
	b.initToken()

	// Cookie presente (viaja sola en el jar), header ausente: el caso forjado.
	resp := b.do(http.MethodPost, "/v1/widgets", map[string]string{"name": "w"}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("want 403, got %d", resp.StatusCode)
	}
	if code := errorCode(t, resp); code != "XSRF_TOKEN_INVALID" {
		t.Fatalf("want XSRF_TOKEN_INVALID, got %q", code)
	}
}

func TestGuard_WrongToken(t *testing.T) {
	srv := newTestServer(t)
	b := newBrowser(t, srv)
	b.login()
	b.initToken()

	resp := b.do(http.MethodPost, "/v1/widgets", map[string]string{"name": "w"}, map[string]string{
		"X-XSRF-TOKEN": "token-inventado",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("want 403, got %d", resp.StatusCode)
	}
}

func TestGuard_SafeMethodsUncovered(t *testing.T) {
	srv := newTestServer(t)
	b := newBrowser(t, srv)
	b.login()

	// GET protegido por sesión pero sin chequeo de token.
	resp := b.do(http.MethodGet, "/v1/widgets", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("safe method: want 200, got %d", resp.StatusCode)
	}
}

// Re-correr init rota el token: el viejo deja de servir, el nuevo sirve.
func TestRotation_LatestTokenWins(t *testing.T) {
	srv := newTestServer(t)
	b := newBrowser(t, srv)
	b.login()

	first := b.initToken()
	second := b.initToken()
	if first == second {
		t.Fatal("rotation produced identical tokens")
	}

	resp := b.do(http.MethodPost, "/v1/widgets", map[string]string{}, map[string]string{"X-XSRF-TOKEN": first})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("stale token: want 403, got %d", resp.StatusCode)
	}

	resp = b.do(http.MethodPost, "/v1/widgets", map[string]string{}, map[string]string{"X-XSRF-TOKEN": second})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("latest token: want 201, got %d", resp.StatusCode)
	}
}

// El token de una sesión no sirve para otra (atacante autenticado con su
// propia cuenta no puede forjar contra la víctima).
func TestGuard_CrossSessionTokenRejected(t *testing.T) {
	srv := newTestServer(t)

	victim := newBrowser(t, srv)
	victim.login()
	victim.initToken()

	attacker := newBrowser(t, srv)
	attacker.login()
	attackerToken := attacker.initToken()

	// Header del atacante + cookies (sesión) de la víctima.
	resp := victim.do(http.MethodPost, "/v1/widgets", map[string]string{}, map[string]string{
		"X-XSRF-TOKEN": attackerToken,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("cross-session token: want 403, got %d", resp.StatusCode)
	}
}

func TestLogout_InvalidatesSessionAndToken(t *testing.T) {
	srv := newTestServer(t)
	b := newBrowser(t, srv)
	b.login()
	token := b.initToken()

	resp := b.do(http.MethodPost, "/v1/session/logout", nil, map[string]string{"X-XSRF-TOKEN": token})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout: want 204, got %d", resp.StatusCode)
	}

	// El jar procesó las cookies de borrado: sesión y token fuera.
	if b.cookieValue("sid") != "" || b.cookieValue("XSRF-TOKEN") != "" {
		t.Fatal("deletion cookies not honored")
	}

	// Sin sesión, el request mutante muere en auth aunque reenvíe el token.
	resp = b.do(http.MethodPost, "/v1/widgets", map[string]string{}, map[string]string{"X-XSRF-TOKEN": token})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("after logout: want 401, got %d", resp.StatusCode)
	}
}

// Flujo Bearer: credencial explícita, sin cookie; el guard no aplica.
func TestBearer_SkipsGuard(t *testing.T) {
	srv := newTestServer(t)
	b := newBrowser(t, srv)
	b.login()
	token := b.initToken()

	// PKCE: authorize (protegido) -> code -> exchange (público) -> Bearer.
	verifier := "verifier-e2e-0123456789abcdefghijklmnopqrst"
	resp := b.do(http.MethodPost, "/v1/oauth/authorize", map[string]string{
		"client_id":             "spa",
		"code_challenge":        tokens.SHA256Base64URL(verifier),
		"code_challenge_method": "S256",
	}, map[string]string{"X-XSRF-TOKEN": token})
	require.Equal(t, http.StatusOK, resp.StatusCode, "authorize")
	var auth struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&auth))
	resp.Body.Close()
	require.NotEmpty(t, auth.Code)

	// Exchange sin cookies: cliente fresco.
	fresh := newBrowser(t, srv)
	resp = fresh.do(http.MethodPost, "/v1/oauth/token", map[string]string{
		"grant_type":    "authorization_code",
		"code":          auth.Code,
		"code_verifier": verifier,
		"client_id":     "spa",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "token exchange")
	var tk struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tk))
	resp.Body.Close()
	require.Equal(t, "Bearer", tk.TokenType)
	require.NotEmpty(t, tk.AccessToken)

	// POST mutante con Bearer y sin header anti-forgery: pasa.
	resp = fresh.do(http.MethodPost, "/v1/widgets", map[string]string{}, map[string]string{
		"Authorization": "Bearer " + tk.AccessToken,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("bearer mutating request: want 201, got %d", resp.StatusCode)
	}
}

// El authorize registrado detrás del guard exige token también.
func TestAuthorize_CoveredByGuard(t *testing.T) {
	srv := newTestServer(t)
	b := newBrowser(t, srv)
	b.login()
	b.initToken()

	resp := b.do(http.MethodPost, "/v1/oauth/authorize", map[string]string{
		"client_id":             "spa",
		"code_challenge":        tokens.SHA256Base64URL("v"),
		"code_challenge_method": "S256",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("authorize without header: want 403, got %d", resp.StatusCode)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	b := newBrowser(t, srv)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp := b.do(http.MethodGet, path, nil, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: want 200, got %d", path, resp.StatusCode)
		}
	}
}
