// Package router arma el árbol de rutas y la cadena de middlewares.
package router

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	healthctrl "github.com/dropDatabas3/antiforge/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/antiforge/internal/http/controllers/oauth"
	sectrl "github.com/dropDatabas3/antiforge/internal/http/controllers/security"
	sessctrl "github.com/dropDatabas3/antiforge/internal/http/controllers/session"
	mw "github.com/dropDatabas3/antiforge/internal/http/middlewares"
	"github.com/dropDatabas3/antiforge/internal/metrics"
)

// Deps contiene todo lo necesario para armar el router.
type Deps struct {
	// Controllers
	XSRF    *sectrl.XSRFController
	Session *sessctrl.Controller
	OAuth   *oauthctrl.Controller
	Health  *healthctrl.Controller

	// Middlewares
	SessionAuth mw.Middleware // autenticación de sesión/Bearer
	XSRFGuard   mw.Middleware // guard anti-forgery (cross-cutting)
	CORS        mw.Middleware

	// Rate limiters opcionales (nil => sin límite)
	LoginLimiter mw.RateLimiter
	InitLimiter  mw.RateLimiter

	// MetricsHandler sirve /metrics (nil => no se monta)
	MetricsHandler http.Handler

	// ProtectedRoutes registra los endpoints de negocio dentro del grupo
	// protegido (session auth + guard). Acá NO hay opt-in por endpoint: todo
	// lo que se monte en este grupo queda cubierto uniformemente.
	ProtectedRoutes func(r chi.Router)
}

// New construye el router del servicio.
func New(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Cadena global: orden importa. RequestID primero para que todo lo demás
	// loguee scoped; recover lo más afuera posible después de eso.
	r.Use(mw.WithRequestID())
	r.Use(mw.WithRecover())
	r.Use(withRouteMetrics)
	r.Use(mw.WithSecurityHeaders())
	if d.CORS != nil {
		r.Use(d.CORS)
	}

	// Operacional
	r.Get("/healthz", d.Health.Health)
	r.Get("/readyz", d.Health.Ready)
	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	// Login: pre-sesión, sin guard (no hay vinculación todavía).
	r.Group(func(r chi.Router) {
		r.Use(mw.WithNoStore())
		r.Use(mw.WithRateLimit(d.LoginLimiter, mw.IPPathRateKey))
		r.Post("/v1/session/login", d.Session.Login)
	})

	// Token exchange PKCE: público, la prueba es code+verifier.
	r.Group(func(r chi.Router) {
		r.Use(mw.WithNoStore())
		r.Post("/v1/oauth/token", d.OAuth.Token)
	})

	// Emisión del token anti-forgery: requiere sesión, no muta negocio.
	r.Group(func(r chi.Router) {
		r.Use(mw.WithNoStore())
		r.Use(mw.WithRateLimit(d.InitLimiter, mw.IPPathRateKey))
		r.Use(d.SessionAuth)
		r.Get("/v1/xsrf/init", d.XSRF.Init)
		r.Head("/v1/xsrf/init", d.XSRF.Init)
	})

	// Grupo protegido: session auth + guard anti-forgery para TODO lo mutante.
	r.Group(func(r chi.Router) {
		r.Use(d.SessionAuth)
		r.Use(d.XSRFGuard)

		r.Post("/v1/session/logout", d.Session.Logout)
		r.Post("/v1/oauth/authorize", d.OAuth.Authorize)

		if d.ProtectedRoutes != nil {
			d.ProtectedRoutes(r)
		}
	})

	return r
}

// withRouteMetrics instrumenta requests con el patrón de ruta de chi
// (cardinalidad acotada, no el path crudo).
func withRouteMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
