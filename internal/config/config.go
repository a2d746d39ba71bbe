package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
		ReadTimeout        string   `yaml:"read_timeout"`
		WriteTimeout       string   `yaml:"write_timeout"`
	} `yaml:"server"`

	Storage struct {
		// DSN de Postgres para el repositorio de usuarios. Requerido.
		DSN string `yaml:"dsn"`
	} `yaml:"storage"`

	Cache struct {
		Driver string `yaml:"driver"` // memory | redis
		Redis  struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Session struct {
		CookieName string `yaml:"cookie_name"`
		Domain     string `yaml:"domain"`
		SameSite   string `yaml:"samesite"` // lax | strict | none
		Secure     bool   `yaml:"secure"`
		TTL        string `yaml:"ttl"`
		// AllowBearer permite saltear el flujo de cookies con Authorization: Bearer.
		AllowBearer bool `yaml:"allow_bearer"`
	} `yaml:"session"`

	XSRF struct {
		CookieName string `yaml:"cookie_name"`
		HeaderName string `yaml:"header_name"`
		Domain     string `yaml:"domain"` // si vacío, usa session.domain
		SameSite   string `yaml:"samesite"`
		Secure     bool   `yaml:"secure"`
		TTL        string `yaml:"ttl"` // si vacío, usa session.ttl
	} `yaml:"xsrf"`

	JWT struct {
		Issuer    string `yaml:"issuer"`
		Secret    string `yaml:"secret"` // HS256; >= 32 bytes en prod
		AccessTTL string `yaml:"access_ttl"`
	} `yaml:"jwt"`

	OAuth struct {
		CodeTTL string `yaml:"code_ttl"` // TTL del authorization code PKCE
	} `yaml:"oauth"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Login   struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"login"`
		Init struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"init"`
	} `yaml:"rate"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// applyDefaults completa los campos opcionales con valores sanos.
func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "10s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "30s"
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	// Session defaults
	if c.Session.CookieName == "" {
		c.Session.CookieName = "sid"
	}
	if c.Session.SameSite == "" {
		c.Session.SameSite = "lax"
	}
	if c.Session.TTL == "" {
		c.Session.TTL = "12h"
	}
	// XSRF defaults: la cookie hereda domain/secure/ttl de la sesión salvo override
	if c.XSRF.CookieName == "" {
		c.XSRF.CookieName = "XSRF-TOKEN"
	}
	if c.XSRF.HeaderName == "" {
		c.XSRF.HeaderName = "X-XSRF-TOKEN"
	}
	if c.XSRF.Domain == "" {
		c.XSRF.Domain = c.Session.Domain
	}
	if c.XSRF.SameSite == "" {
		c.XSRF.SameSite = c.Session.SameSite
	}
	if c.XSRF.TTL == "" {
		c.XSRF.TTL = c.Session.TTL
	}
	if !c.XSRF.Secure {
		c.XSRF.Secure = c.Session.Secure
	}
	// JWT defaults
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "antiforge"
	}
	if c.JWT.AccessTTL == "" {
		c.JWT.AccessTTL = "15m"
	}
	if c.OAuth.CodeTTL == "" {
		c.OAuth.CodeTTL = "60s"
	}
	// Rate limit defaults por endpoint
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 10
	}
	if c.Rate.Login.Window == "" {
		c.Rate.Login.Window = "1m"
	}
	if c.Rate.Init.Limit == 0 {
		c.Rate.Init.Limit = 30
	}
	if c.Rate.Init.Window == "" {
		c.Rate.Init.Window = "1m"
	}
}

// validate chequea duraciones y combinaciones que rompen en browsers.
func (c *Config) validate() error {
	for name, v := range map[string]string{
		"server.read_timeout":      c.Server.ReadTimeout,
		"server.write_timeout":     c.Server.WriteTimeout,
		"cache.memory.default_ttl": c.Cache.Memory.DefaultTTL,
		"session.ttl":              c.Session.TTL,
		"xsrf.ttl":                 c.XSRF.TTL,
		"jwt.access_ttl":           c.JWT.AccessTTL,
		"oauth.code_ttl":           c.OAuth.CodeTTL,
		"rate.login.window":        c.Rate.Login.Window,
		"rate.init.window":         c.Rate.Init.Window,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	if c.App.Env == "prod" {
		// En prod las cookies viajan solo por transporte seguro, sin excepción.
		// Esto cubre también SameSite=None, que sin Secure los browsers rechazan.
		if !c.Session.Secure {
			return fmt.Errorf("config: session.secure debe ser true en prod")
		}
		if !c.XSRF.Secure {
			return fmt.Errorf("config: xsrf.secure debe ser true en prod")
		}
		if len(c.JWT.Secret) > 0 && len(c.JWT.Secret) < 32 {
			return fmt.Errorf("config: jwt.secret debe tener al menos 32 bytes en prod")
		}
	}
	return nil
}

// MustDuration parsea una duración ya validada por Load.
func MustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
