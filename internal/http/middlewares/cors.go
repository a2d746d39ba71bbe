package middlewares

import (
	"net/http"
	"strings"
)

// CORSConfig configura el middleware CORS.
// El flujo anti-forgery es credenciado: el browser manda cookies cross-origin y
// el frontend necesita poder enviar el header del token, así que ambos van en
// la allowlist explícita (no sirve "*" con credentials).
type CORSConfig struct {
	AllowedOrigins []string
	XSRFHeaderName string // se agrega a Access-Control-Allow-Headers
}

// WithCORS crea un middleware que maneja CORS para los orígenes permitidos.
// Soporta "*" para permitir cualquier origen (solo dev).
func WithCORS(cfg CORSConfig) Middleware {
	trim := func(s string) string { return strings.TrimRight(strings.TrimSpace(s), "/") }

	alist := make([]string, len(cfg.AllowedOrigins))
	for i, v := range cfg.AllowedOrigins {
		alist[i] = trim(v)
	}

	allowHeaders := "Content-Type, Authorization, X-Request-ID"
	if cfg.XSRFHeaderName != "" {
		allowHeaders += ", " + cfg.XSRFHeaderName
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := trim(r.Header.Get("Origin"))
			allowedOrigin := ""

			for _, a := range alist {
				if a == "*" || (origin != "" && strings.EqualFold(origin, a)) {
					allowedOrigin = origin
					break
				}
			}

			// Vary headers para caches/proxies
			w.Header().Add("Vary", "Origin")
			w.Header().Add("Vary", "Access-Control-Request-Method")
			w.Header().Add("Vary", "Access-Control-Request-Headers")

			if allowedOrigin != "" {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", allowedOrigin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,HEAD,OPTIONS")
				h.Set("Access-Control-Allow-Headers", allowHeaders)
				h.Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After, X-RateLimit-Remaining, X-RateLimit-Reset")
				h.Set("Access-Control-Max-Age", "600") // preflight cache 10 min
			}

			// Preflight request
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
