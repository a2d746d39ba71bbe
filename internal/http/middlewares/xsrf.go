package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/dropDatabas3/antiforge/internal/http/errors"
	"github.com/dropDatabas3/antiforge/internal/metrics"
	"github.com/dropDatabas3/antiforge/internal/observability/logger"
)

// TokenValidator valida el token del header contra el valor vinculado a la sesión.
type TokenValidator interface {
	Validate(ctx context.Context, sessionID, headerToken string) error
}

// XSRFConfig configura el guard anti-forgery.
type XSRFConfig struct {
	HeaderName string // Default: "X-XSRF-TOKEN"
	Validator  TokenValidator
}

// isUnsafeMethod: métodos que mutan estado del servidor.
func isUnsafeMethod(m string) bool {
	switch strings.ToUpper(m) {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// WithXSRFGuard aplica el chequeo synchronizer-token a todo request mutante.
//
// Se monta una sola vez sobre el router protegido, nunca por endpoint: la
// cobertura es uniforme o no sirve. Reglas:
//   - Métodos seguros (GET/HEAD/OPTIONS) pasan sin chequeo.
//   - Flujo Bearer (Principal sin cookie) se saltea: no hay credencial ambiente.
//   - Para el resto, el header debe matchear el valor vinculado a la sesión.
//     Header ausente, vinculación ausente o mismatch => 403 antes de llegar a
//     la lógica de negocio.
func WithXSRFGuard(cfg XSRFConfig) Middleware {
	headerName := strings.TrimSpace(cfg.HeaderName)
	if headerName == "" {
		headerName = "X-XSRF-TOKEN"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isUnsafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			p, ok := GetPrincipal(ctx)
			if !ok {
				// El guard corre después de session auth; sin Principal no hay
				// sesión contra la cual validar.
				metrics.XSRFRejects.WithLabelValues("no_session").Inc()
				errors.WriteError(w, errors.ErrXSRFTokenInvalid)
				return
			}
			if !p.CookieSession {
				next.ServeHTTP(w, r)
				return
			}

			hdr := strings.TrimSpace(r.Header.Get(headerName))
			if hdr == "" {
				metrics.XSRFRejects.WithLabelValues("missing_header").Inc()
				errors.WriteError(w, errors.ErrXSRFTokenInvalid)
				return
			}

			if err := cfg.Validator.Validate(ctx, p.SessionID, hdr); err != nil {
				logger.From(ctx).Debug("xsrf token rejected",
					logger.Op("WithXSRFGuard"),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
				)
				metrics.XSRFRejects.WithLabelValues("mismatch").Inc()
				errors.WriteError(w, errors.ErrXSRFTokenInvalid)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
