package security

import (
	"net/http"

	httperrors "github.com/dropDatabas3/antiforge/internal/http/errors"
	"github.com/dropDatabas3/antiforge/internal/http/helpers"
	"github.com/dropDatabas3/antiforge/internal/http/middlewares"
	svc "github.com/dropDatabas3/antiforge/internal/http/services/security"
	"github.com/dropDatabas3/antiforge/internal/observability/logger"
)

// XSRFController maneja GET|HEAD /v1/xsrf/init.
type XSRFController struct {
	service svc.XSRFService
	cookie  helpers.CookiePolicy
}

// NewXSRFController crea el controller.
// La cookie NO es HttpOnly a propósito: el frontend la lee para reenviar el
// token en el header (double-submit). La política la fija el wiring.
func NewXSRFController(service svc.XSRFService, cookie helpers.CookiePolicy) *XSRFController {
	cookie.HTTPOnly = false
	return &XSRFController{service: service, cookie: cookie}
}

// Init emite el token de la sesión y lo entrega exclusivamente vía cookie.
// Sin body: 204. El endpoint no ejecuta ninguna otra lógica de negocio.
// Se llama una vez por carga de la aplicación, después de autenticar; llamarlo
// de nuevo rota el token (el último emitido es el válido).
func (c *XSRFController) Init(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("XSRFController.Init"))

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return
	}

	p, ok := middlewares.GetPrincipal(ctx)
	if !ok {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	if !p.CookieSession {
		// Flujo Bearer: no hay cookie de sesión, el token no tiene a qué atarse.
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("xsrf init requiere sesión por cookie"))
		return
	}

	result, err := c.service.Issue(ctx, p.SessionID)
	if err != nil {
		log.Error("failed to issue xsrf token", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}

	http.SetCookie(w, c.cookie.Build(result.Token))
	w.WriteHeader(http.StatusNoContent)

	log.Debug("xsrf token issued")
}
