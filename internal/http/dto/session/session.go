package session

import "time"

// SessionConfig describe la política de la cookie de sesión.
type SessionConfig struct {
	CookieName string
	Domain     string
	SameSite   string
	Secure     bool
	TTL        time.Duration
}

// LoginRequest es el body de POST /v1/session/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
