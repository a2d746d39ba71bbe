package middlewares

import "net/http"

// Middleware es un decorador de http.Handler. El router (chi) los compone
// con Use; el orden de montaje define el orden de intercepción.
type Middleware func(http.Handler) http.Handler
