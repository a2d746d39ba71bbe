package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/dropDatabas3/antiforge/internal/http/errors"
)

// SessionResolver resuelve un session ID (crudo, de la cookie) a un usuario.
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (userID string, err error)
}

// BearerVerifier valida un access token Bearer y devuelve el subject.
type BearerVerifier interface {
	Verify(token string) (subject string, err error)
}

// SessionAuthConfig configura el middleware de autenticación de sesión.
type SessionAuthConfig struct {
	CookieName  string
	AllowBearer bool
	Sessions    SessionResolver
	Bearer      BearerVerifier
}

// bearerToken extrae el token de un header Authorization: Bearer.
func bearerToken(r *http.Request) string {
	ah := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(ah) > 7 && strings.EqualFold(ah[:7], "bearer ") {
		return strings.TrimSpace(ah[7:])
	}
	return ""
}

// WithSessionAuth exige una sesión autenticada e inyecta el Principal.
//
// Dos flujos:
//   - Cookie de sesión (browser): se resuelve contra el session store. El
//     Principal queda marcado CookieSession=true y pasa por el guard
//     anti-forgery aguas abajo.
//   - Authorization: Bearer (API): credencial explícita, no ambiente; el
//     guard anti-forgery no aplica.
func WithSessionAuth(cfg SessionAuthConfig) Middleware {
	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = "sid"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if cfg.AllowBearer && cfg.Bearer != nil {
				if tok := bearerToken(r); tok != "" {
					sub, err := cfg.Bearer.Verify(tok)
					if err != nil {
						errors.WriteError(w, errors.ErrUnauthorized.WithCause(err))
						return
					}
					ctx = WithPrincipal(ctx, Principal{UserID: sub, CookieSession: false})
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			ck, err := r.Cookie(cookieName)
			if err != nil || strings.TrimSpace(ck.Value) == "" {
				errors.WriteError(w, errors.ErrUnauthorized)
				return
			}

			userID, err := cfg.Sessions.Resolve(ctx, ck.Value)
			if err != nil {
				errors.WriteError(w, errors.ErrSessionExpired)
				return
			}

			ctx = WithPrincipal(ctx, Principal{
				UserID:        userID,
				SessionID:     ck.Value,
				CookieSession: true,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
