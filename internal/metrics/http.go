package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Métricas del servicio. Definidas en un package standalone para evitar ciclos
// de import entre middlewares y router.

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Número total de requests procesadas",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia de los requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	XSRFTokensIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xsrf_tokens_issued_total",
		Help: "Tokens anti-forgery emitidos",
	})

	XSRFRejects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xsrf_rejects_total",
		Help: "Requests mutantes rechazados por el guard anti-forgery",
	}, []string{"reason"}) // reason: no_session|missing_header|mismatch

	PKCEExchangeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pkce_exchange_failures_total",
		Help: "Intercambios de authorization code rechazados (verifier inválido o code reusado)",
	})
)

// Register registra las métricas en el registry dado (o el default si es nil)
// y devuelve el handler para /metrics. El handler sirve el mismo registry en
// el que se registró, no siempre el default.
func Register(reg prometheus.Registerer) (http.Handler, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		HTTPRequestsTotal,
		HTTPRequestDuration,
		XSRFTokensIssued,
		XSRFRejects,
		PKCEExchangeFailures,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	if r, ok := reg.(*prometheus.Registry); ok {
		return promhttp.HandlerFor(r, promhttp.HandlerOpts{}), nil
	}
	return promhttp.Handler(), nil
}
