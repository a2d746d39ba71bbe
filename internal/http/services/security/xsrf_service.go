package security

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/antiforge/internal/cache"
	dto "github.com/dropDatabas3/antiforge/internal/http/dto/security"
	"github.com/dropDatabas3/antiforge/internal/metrics"
	"github.com/dropDatabas3/antiforge/internal/observability/logger"
	tokens "github.com/dropDatabas3/antiforge/internal/security/token"
)

// XSRFService maneja el ciclo de vida del token anti-forgery (synchronizer).
//
// El token se vincula a la sesión en el session store; la cookie es solo el
// canal de entrega hacia el script del frontend. La validación compara el
// header contra el valor vinculado, nunca contra la cookie: la cookie viaja
// también en requests forjados, el header no.
type XSRFService interface {
	// Issue genera un token nuevo y lo vincula a la sesión, pisando el
	// anterior: el último emitido es el único válido.
	Issue(ctx context.Context, sessionID string) (*IssueResult, error)

	// Validate compara el token del header contra la vinculación de la sesión.
	Validate(ctx context.Context, sessionID, headerToken string) error

	// Invalidate elimina la vinculación (logout / expiración de sesión).
	Invalidate(ctx context.Context, sessionID string) error
}

// IssueResult contiene el token generado y su expiración.
type IssueResult struct {
	Token     string
	ExpiresAt time.Time
}

// Deps contiene las dependencias del service.
type Deps struct {
	Cache  cache.Client
	Config dto.XSRFConfig
}

// Service errors
var (
	ErrTokenGeneration = fmt.Errorf("xsrf: failed to generate token")
	ErrTokenMismatch   = fmt.Errorf("xsrf: token missing or mismatch")
)

type xsrfService struct {
	cache  cache.Client
	config dto.XSRFConfig
}

// NewXSRFService crea el service con defaults aplicados.
func NewXSRFService(d Deps) XSRFService {
	cfg := d.Config
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	return &xsrfService{cache: d.Cache, config: cfg}
}

// bindingKey deriva la clave de cache de una sesión.
// Se guarda el hash del session ID, nunca el ID crudo.
func bindingKey(sessionID string) string {
	return "xsrf:" + tokens.SHA256Base64URL(sessionID)
}

func (s *xsrfService) Issue(ctx context.Context, sessionID string) (*IssueResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("security.xsrf"),
		logger.Op("Issue"),
	)

	tok, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		// Fail-closed: sin entropía no se emite nada.
		log.Error("failed to generate random token", logger.Err(err))
		return nil, ErrTokenGeneration
	}

	if err := s.cache.Set(ctx, bindingKey(sessionID), tok, s.config.TTL); err != nil {
		log.Error("failed to store token binding", logger.Err(err))
		return nil, err
	}

	metrics.XSRFTokensIssued.Inc()
	log.Debug("xsrf token issued")

	return &IssueResult{
		Token:     tok,
		ExpiresAt: time.Now().Add(s.config.TTL).UTC(),
	}, nil
}

func (s *xsrfService) Validate(ctx context.Context, sessionID, headerToken string) error {
	bound, err := s.cache.Get(ctx, bindingKey(sessionID))
	if err != nil {
		if cache.IsNotFound(err) {
			return ErrTokenMismatch
		}
		return err
	}
	if !tokens.ConstantTimeEqual(headerToken, bound) {
		return ErrTokenMismatch
	}
	return nil
}

func (s *xsrfService) Invalidate(ctx context.Context, sessionID string) error {
	return s.cache.Delete(ctx, bindingKey(sessionID))
}
