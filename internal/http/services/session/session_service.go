package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/antiforge/internal/cache"
	dto "github.com/dropDatabas3/antiforge/internal/http/dto/session"
	"github.com/dropDatabas3/antiforge/internal/observability/logger"
	"github.com/dropDatabas3/antiforge/internal/security/password"
	tokens "github.com/dropDatabas3/antiforge/internal/security/token"
	"github.com/dropDatabas3/antiforge/internal/store"
)

// Service maneja login, resolución y logout de sesiones.
type Service interface {
	// Login autentica email+password y crea la sesión. Devuelve el session ID
	// crudo que va en la cookie HttpOnly.
	Login(ctx context.Context, email, plainPassword string) (sessionID string, err error)

	// Resolve traduce un session ID a un user ID. Implementa
	// middlewares.SessionResolver.
	Resolve(ctx context.Context, sessionID string) (userID string, err error)

	// Logout elimina la sesión. Best-effort: un sid inexistente no es error.
	Logout(ctx context.Context, sessionID string) error
}

// Deps contiene las dependencias del service.
type Deps struct {
	Cache  cache.Client
	Users  store.UserRepository
	Config dto.SessionConfig

	// OnLogout se invoca con el session ID al cerrar sesión; lo usa el wiring
	// para invalidar la vinculación anti-forgery junto con la sesión.
	OnLogout func(ctx context.Context, sessionID string) error
}

// Service errors
var (
	ErrInvalidCredentials = fmt.Errorf("session: invalid credentials")
	ErrNotFound           = fmt.Errorf("session: not found or expired")
)

// record es lo que se persiste en el session store.
type record struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type service struct {
	deps Deps
}

// NewService crea el service con defaults aplicados.
func NewService(d Deps) Service {
	if d.Config.TTL <= 0 {
		d.Config.TTL = 12 * time.Hour
	}
	return &service{deps: d}
}

// sessionKey deriva la clave de cache de una sesión (hash, nunca el ID crudo).
func sessionKey(sessionID string) string {
	return "sid:" + tokens.SHA256Base64URL(sessionID)
}

func (s *service) Login(ctx context.Context, email, plainPassword string) (string, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("session"),
		logger.Op("Login"),
	)

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || plainPassword == "" {
		return "", ErrInvalidCredentials
	}

	u, err := s.deps.Users.FindByEmail(ctx, email)
	if err != nil {
		if store.IsNotFound(err) {
			// Mismo error que password inválida: no filtrar existencia de cuentas.
			return "", ErrInvalidCredentials
		}
		log.Error("user lookup failed", logger.Err(err))
		return "", err
	}

	if !password.Verify(plainPassword, u.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	sid, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		log.Error("failed to generate session id", logger.Err(err))
		return "", err
	}

	b, _ := json.Marshal(record{UserID: u.ID, CreatedAt: time.Now().UTC()})
	if err := s.deps.Cache.Set(ctx, sessionKey(sid), string(b), s.deps.Config.TTL); err != nil {
		log.Error("failed to store session", logger.Err(err))
		return "", err
	}

	log.Info("session created", logger.UserID(u.ID))
	return sid, nil
}

func (s *service) Resolve(ctx context.Context, sessionID string) (string, error) {
	raw, err := s.deps.Cache.Get(ctx, sessionKey(sessionID))
	if err != nil {
		if cache.IsNotFound(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return "", fmt.Errorf("session: corrupt record: %w", err)
	}
	return rec.UserID, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("session"),
		logger.Op("Logout"),
	)

	if sessionID == "" {
		return nil
	}

	if err := s.deps.Cache.Delete(ctx, sessionKey(sessionID)); err != nil {
		// Logout es best-effort, pero se loguea.
		log.Debug("failed to delete session from cache", logger.Err(err))
	}

	// La vinculación anti-forgery muere con la sesión.
	if s.deps.OnLogout != nil {
		if err := s.deps.OnLogout(ctx, sessionID); err != nil {
			log.Debug("failed to invalidate xsrf binding", logger.Err(err))
		}
	}

	log.Debug("session deleted")
	return nil
}
