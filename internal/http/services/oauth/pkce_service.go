package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/antiforge/internal/cache"
	"github.com/dropDatabas3/antiforge/internal/jwt"
	"github.com/dropDatabas3/antiforge/internal/metrics"
	"github.com/dropDatabas3/antiforge/internal/observability/logger"
	tokens "github.com/dropDatabas3/antiforge/internal/security/token"
	"github.com/google/uuid"
)

// PKCEService implementa la alternativa PKCE (S256): el authorization code
// queda atado al code_challenge generado por el cliente; el intercambio se
// rechaza si el code_verifier no reproduce el challenge almacenado.
type PKCEService interface {
	// Authorize registra el challenge y devuelve un code de un solo uso.
	Authorize(ctx context.Context, userID string, req AuthorizeInput) (code string, expiresIn int64, err error)

	// Exchange canjea code + verifier por un access token.
	Exchange(ctx context.Context, req ExchangeInput) (accessToken string, expiresIn int64, err error)
}

// AuthorizeInput son los parámetros del registro de challenge.
type AuthorizeInput struct {
	ClientID            string
	CodeChallenge       string
	CodeChallengeMethod string
}

// ExchangeInput son los parámetros del intercambio.
type ExchangeInput struct {
	Code         string
	CodeVerifier string
	ClientID     string
}

// Deps contiene las dependencias del service.
type Deps struct {
	Cache     cache.Client
	Issuer    *jwt.Issuer
	CodeTTL   time.Duration
	AccessTTL time.Duration
}

// Service errors
var (
	ErrInvalidChallenge = fmt.Errorf("pkce: invalid code challenge")
	ErrInvalidGrant     = fmt.Errorf("pkce: invalid grant")
)

// grant es lo que se persiste hasta el intercambio.
type grant struct {
	Challenge string `json:"challenge"`
	UserID    string `json:"user_id"`
	ClientID  string `json:"client_id"`
}

type pkceService struct {
	deps Deps
}

// NewPKCEService crea el service con defaults aplicados.
func NewPKCEService(d Deps) PKCEService {
	if d.CodeTTL <= 0 {
		d.CodeTTL = 60 * time.Second
	}
	if d.AccessTTL <= 0 {
		d.AccessTTL = 15 * time.Minute
	}
	return &pkceService{deps: d}
}

func grantKey(code string) string {
	return "pkce:" + tokens.SHA256Base64URL(code)
}

func (s *pkceService) Authorize(ctx context.Context, userID string, req AuthorizeInput) (string, int64, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("oauth.pkce"),
		logger.Op("Authorize"),
	)

	// Solo S256: plain permite que un code interceptado se canjee con el
	// challenge mismo.
	if !strings.EqualFold(req.CodeChallengeMethod, "S256") {
		return "", 0, ErrInvalidChallenge
	}
	// base64url(sha256) son 43 chars sin padding.
	if len(req.CodeChallenge) != 43 {
		return "", 0, ErrInvalidChallenge
	}

	code := uuid.NewString()
	b, _ := json.Marshal(grant{
		Challenge: req.CodeChallenge,
		UserID:    userID,
		ClientID:  req.ClientID,
	})
	if err := s.deps.Cache.Set(ctx, grantKey(code), string(b), s.deps.CodeTTL); err != nil {
		log.Error("failed to store grant", logger.Err(err))
		return "", 0, err
	}

	log.Debug("authorization code issued", logger.ClientID(req.ClientID))
	return code, int64(s.deps.CodeTTL.Seconds()), nil
}

func (s *pkceService) Exchange(ctx context.Context, req ExchangeInput) (string, int64, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("oauth.pkce"),
		logger.Op("Exchange"),
	)

	key := grantKey(req.Code)
	raw, err := s.deps.Cache.Get(ctx, key)
	if err != nil {
		if cache.IsNotFound(err) {
			metrics.PKCEExchangeFailures.Inc()
			return "", 0, ErrInvalidGrant
		}
		return "", 0, err
	}

	// Single-use: el code se consume antes de validar, un segundo intento con
	// el mismo code falla aunque el primero haya sido rechazado.
	_ = s.deps.Cache.Delete(ctx, key)

	var g grant
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return "", 0, fmt.Errorf("pkce: corrupt grant: %w", err)
	}

	if g.ClientID != req.ClientID {
		metrics.PKCEExchangeFailures.Inc()
		return "", 0, ErrInvalidGrant
	}

	// PKCE S256: challenge == base64url(sha256(verifier))
	verifierHash := tokens.SHA256Base64URL(req.CodeVerifier)
	if !tokens.ConstantTimeEqual(verifierHash, g.Challenge) {
		metrics.PKCEExchangeFailures.Inc()
		log.Debug("verifier mismatch", logger.ClientID(req.ClientID))
		return "", 0, ErrInvalidGrant
	}

	access, err := s.deps.Issuer.IssueAccessToken(g.UserID, g.ClientID)
	if err != nil {
		log.Error("failed to sign access token", logger.Err(err))
		return "", 0, err
	}

	log.Debug("code exchanged", logger.ClientID(req.ClientID))
	return access, int64(s.deps.AccessTTL.Seconds()), nil
}
