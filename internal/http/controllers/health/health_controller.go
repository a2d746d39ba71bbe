package health

import (
	"net/http"

	"github.com/dropDatabas3/antiforge/internal/cache"
	"github.com/dropDatabas3/antiforge/internal/http/helpers"
)

// Controller maneja /healthz y /readyz.
type Controller struct {
	cache cache.Client
}

func NewController(c cache.Client) *Controller {
	return &Controller{cache: c}
}

// Health es liveness: responde mientras el proceso esté vivo.
func (c *Controller) Health(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready es readiness: verifica el backend de cache (el session store es la
// única dependencia dura del protocolo).
func (c *Controller) Ready(w http.ResponseWriter, r *http.Request) {
	if err := c.cache.Ping(r.Context()); err != nil {
		helpers.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"cache":  err.Error(),
		})
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
