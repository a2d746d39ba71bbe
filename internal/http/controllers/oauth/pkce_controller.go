package oauth

import (
	"net/http"
	"strings"

	dto "github.com/dropDatabas3/antiforge/internal/http/dto/oauth"
	httperrors "github.com/dropDatabas3/antiforge/internal/http/errors"
	"github.com/dropDatabas3/antiforge/internal/http/helpers"
	"github.com/dropDatabas3/antiforge/internal/http/middlewares"
	svc "github.com/dropDatabas3/antiforge/internal/http/services/oauth"
	"github.com/dropDatabas3/antiforge/internal/observability/logger"
)

// Controller maneja los endpoints PKCE.
type Controller struct {
	service svc.PKCEService
}

func NewController(service svc.PKCEService) *Controller {
	return &Controller{service: service}
}

// Authorize registra un code challenge y devuelve el authorization code.
// Corre detrás de session auth + guard anti-forgery (es un POST de sesión).
func (c *Controller) Authorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("PKCEController.Authorize"))

	p, ok := middlewares.GetPrincipal(ctx)
	if !ok {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	var req dto.AuthorizeRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ClientID) == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("client_id requerido"))
		return
	}

	code, expiresIn, err := c.service.Authorize(ctx, p.UserID, svc.AuthorizeInput{
		ClientID:            req.ClientID,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
	})
	if err != nil {
		if err == svc.ErrInvalidChallenge {
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("code_challenge inválido (solo S256)"))
			return
		}
		log.Error("authorize failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.AuthorizeResponse{Code: code, ExpiresIn: expiresIn})
}

// Token intercambia code + code_verifier por un access token.
// Endpoint público (el code y el verifier son la prueba), sin cookie de por medio.
func (c *Controller) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("PKCEController.Token"))

	var req dto.TokenRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.GrantType != "authorization_code" {
		httperrors.WriteError(w, httperrors.ErrInvalidGrant.WithDetail("grant_type no soportado"))
		return
	}

	access, expiresIn, err := c.service.Exchange(ctx, svc.ExchangeInput{
		Code:         req.Code,
		CodeVerifier: req.CodeVerifier,
		ClientID:     req.ClientID,
	})
	if err != nil {
		if err == svc.ErrInvalidGrant {
			httperrors.WriteError(w, httperrors.ErrInvalidGrant)
			return
		}
		log.Error("token exchange failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.TokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
	})
}
