package middlewares

import (
	"context"
)

// =================================================================================
// CONTEXT KEYS
// =================================================================================

type ctxKey string

const (
	// ctxPrincipalKey guarda el Principal autenticado
	ctxPrincipalKey ctxKey = "principal"
	// ctxRequestIDKey guarda el request ID
	ctxRequestIDKey ctxKey = "request_id"
)

// Principal describe la identidad autenticada del request.
// CookieSession indica si vino por cookie de sesión (flujo browser) o por
// Bearer token (flujo API, sin credencial ambiente: no aplica anti-forgery).
type Principal struct {
	UserID        string
	SessionID     string
	CookieSession bool
}

// =================================================================================
// CONTEXT SETTERS (internos, usados por middlewares)
// =================================================================================

// WithPrincipal inyecta el Principal en el contexto.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey, p)
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// =================================================================================
// CONTEXT GETTERS (públicos, usados por controllers/services)
// =================================================================================

// GetPrincipal obtiene el Principal del contexto.
// Retorna false si el middleware de auth no se aplicó o rechazó el request.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	if v := ctx.Value(ctxPrincipalKey); v != nil {
		if p, ok := v.(Principal); ok {
			return p, true
		}
	}
	return Principal{}, false
}

// GetRequestID obtiene el request ID del contexto.
// Retorna cadena vacía si no hay request ID.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(ctxRequestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
