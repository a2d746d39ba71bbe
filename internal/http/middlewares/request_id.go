package middlewares

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/antiforge/internal/observability/logger"
	"github.com/google/uuid"
)

// WithRequestID asigna un request ID (o respeta el entrante), lo expone en el
// header de respuesta y scopea el logger del contexto con ese campo.
func WithRequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
			if rid == "" {
				rid = uuid.NewString()
			}

			ctx := setRequestID(r.Context(), rid)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.RequestID(rid)))

			w.Header().Set("X-Request-ID", rid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
