package middlewares

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeValidator acepta un único par sesión/token.
type fakeValidator struct {
	sessionID string
	token     string
	err       error
}

func (f *fakeValidator) Validate(ctx context.Context, sessionID, headerToken string) error {
	if f.err != nil {
		return f.err
	}
	if sessionID == f.sessionID && headerToken == f.token {
		return nil
	}
	return errFakeMismatch
}

var errFakeMismatch = stderrors.New("token mismatch")

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func guardRequest(t *testing.T, guard Middleware, method, token string, principal *Principal) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/v1/mutate", nil)
	if token != "" {
		req.Header.Set("X-XSRF-TOKEN", token)
	}
	if principal != nil {
		req = req.WithContext(WithPrincipal(req.Context(), *principal))
	}
	rec := httptest.NewRecorder()
	guard(okHandler()).ServeHTTP(rec, req)
	return rec
}

func TestXSRFGuard_SafeMethodsPass(t *testing.T) {
	guard := WithXSRFGuard(XSRFConfig{Validator: &fakeValidator{}})
	for _, m := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		rec := guardRequest(t, guard, m, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s should bypass the guard, got %d", m, rec.Code)
		}
	}
}

func TestXSRFGuard_ValidTokenPasses(t *testing.T) {
	guard := WithXSRFGuard(XSRFConfig{Validator: &fakeValidator{sessionID: "s1", token: "tok"}})
	p := &Principal{UserID: "u1", SessionID: "s1", CookieSession: true}
	rec := guardRequest(t, guard, http.MethodPost, "tok", p)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token should pass, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestXSRFGuard_Rejections(t *testing.T) {
	guard := WithXSRFGuard(XSRFConfig{Validator: &fakeValidator{sessionID: "s1", token: "tok"}})
	cookieP := &Principal{UserID: "u1", SessionID: "s1", CookieSession: true}

	cases := []struct {
		name      string
		method    string
		token     string
		principal *Principal
	}{
		{"no principal", http.MethodPost, "tok", nil},
		{"missing header", http.MethodPost, "", cookieP},
		{"wrong token", http.MethodPost, "otro", cookieP},
		{"wrong session", http.MethodDelete, "tok", &Principal{UserID: "u2", SessionID: "s2", CookieSession: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := guardRequest(t, guard, tc.method, tc.token, tc.principal)
			if rec.Code != http.StatusForbidden {
				t.Fatalf("want 403, got %d", rec.Code)
			}
			// Un único error kind para todos los rechazos: no filtrar la causa.
			var body struct {
				Code string `json:"code"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid error body: %v", err)
			}
			if body.Code != "XSRF_TOKEN_INVALID" {
				t.Fatalf("want code XSRF_TOKEN_INVALID, got %q", body.Code)
			}
		})
	}
}

// Flujo Bearer: sin cookie no hay credencial ambiente, el guard no aplica.
func TestXSRFGuard_BearerSkips(t *testing.T) {
	guard := WithXSRFGuard(XSRFConfig{Validator: &fakeValidator{sessionID: "s1", token: "tok"}})
	p := &Principal{UserID: "u1", CookieSession: false}
	rec := guardRequest(t, guard, http.MethodPost, "", p)
	if rec.Code != http.StatusOK {
		t.Fatalf("bearer flow should bypass the guard, got %d", rec.Code)
	}
}

func TestXSRFGuard_CustomHeaderName(t *testing.T) {
	guard := WithXSRFGuard(XSRFConfig{
		HeaderName: "X-CSRF-Custom",
		Validator:  &fakeValidator{sessionID: "s1", token: "tok"},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/mutate", nil)
	req.Header.Set("X-CSRF-Custom", "tok")
	req = req.WithContext(WithPrincipal(req.Context(), Principal{SessionID: "s1", CookieSession: true}))
	rec := httptest.NewRecorder()
	guard(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("custom header should be honored, got %d", rec.Code)
	}
}
