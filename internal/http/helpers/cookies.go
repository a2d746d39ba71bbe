package helpers

import (
	"net/http"
	"strings"
	"time"
)

// CookiePolicy centraliza los atributos de una cookie del servicio.
// Login/logout e issuance deben usar exactamente la misma política: la cookie
// de borrado tiene que matchear Name/Domain/Path para que el browser la elimine.
type CookiePolicy struct {
	Name     string
	Domain   string
	SameSite string // "", "lax", "strict", "none" (case-insensitive)
	Secure   bool
	HTTPOnly bool
	TTL      time.Duration
}

// ParseSameSite convierte el string de config a http.SameSite. Default: Lax.
func ParseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		// SameSite=None requiere Secure=true en navegadores modernos;
		// la validación de config lo exige en prod.
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// Build construye la cookie con los flags de la política.
func (p CookiePolicy) Build(value string) *http.Cookie {
	now := time.Now().UTC()
	c := &http.Cookie{
		Name:     p.Name,
		Value:    value,
		Path:     "/",
		Expires:  now.Add(p.TTL),
		MaxAge:   int(p.TTL.Seconds()),
		Secure:   p.Secure,
		HttpOnly: p.HTTPOnly,
		SameSite: ParseSameSite(p.SameSite),
	}
	if p.Domain != "" {
		c.Domain = p.Domain
	}
	return c
}

// BuildDeletion devuelve una cookie que "borra" la original del browser.
// Usa mismo name/domain/samesite/secure para que el user-agent la sobreescriba.
func (p CookiePolicy) BuildDeletion() *http.Cookie {
	c := &http.Cookie{
		Name:     p.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		Secure:   p.Secure,
		HttpOnly: p.HTTPOnly,
		SameSite: ParseSameSite(p.SameSite),
	}
	if p.Domain != "" {
		c.Domain = p.Domain
	}
	return c
}
