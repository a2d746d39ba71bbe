package session

import (
	"net/http"

	dto "github.com/dropDatabas3/antiforge/internal/http/dto/session"
	httperrors "github.com/dropDatabas3/antiforge/internal/http/errors"
	"github.com/dropDatabas3/antiforge/internal/http/helpers"
	"github.com/dropDatabas3/antiforge/internal/http/middlewares"
	svc "github.com/dropDatabas3/antiforge/internal/http/services/session"
	"github.com/dropDatabas3/antiforge/internal/observability/logger"
)

// Controller maneja POST /v1/session/login y POST /v1/session/logout.
type Controller struct {
	service       svc.Service
	sessionCookie helpers.CookiePolicy
	xsrfCookie    helpers.CookiePolicy
}

// NewController crea el controller. xsrfCookie se necesita para mandar la
// cookie de borrado del token junto con la de sesión en el logout.
func NewController(service svc.Service, sessionCookie, xsrfCookie helpers.CookiePolicy) *Controller {
	sessionCookie.HTTPOnly = true
	return &Controller{service: service, sessionCookie: sessionCookie, xsrfCookie: xsrfCookie}
}

// Login autentica y setea la cookie de sesión (HttpOnly).
func (c *Controller) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("SessionController.Login"))

	var req dto.LoginRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	sid, err := c.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		if err == svc.ErrInvalidCredentials {
			httperrors.WriteError(w, httperrors.ErrInvalidCredentials)
			return
		}
		log.Error("login failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}

	http.SetCookie(w, c.sessionCookie.Build(sid))
	w.WriteHeader(http.StatusNoContent)
}

// Logout elimina la sesión y manda cookies de borrado (sesión + token).
func (c *Controller) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("SessionController.Logout"))

	p, ok := middlewares.GetPrincipal(ctx)
	if !ok || !p.CookieSession {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	if err := c.service.Logout(ctx, p.SessionID); err != nil {
		// Best-effort: las cookies de borrado salen igual.
		log.Debug("logout cleanup failed", logger.Err(err))
	}

	http.SetCookie(w, c.sessionCookie.BuildDeletion())
	http.SetCookie(w, c.xsrfCookie.BuildDeletion())
	w.WriteHeader(http.StatusNoContent)
}
