// Package client provee el cliente Go del servicio: un http.Client con cookie
// jar y el RoundTripper que adjunta el token anti-forgery a los requests
// mutantes hacia el origin protegido.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// Config configura el cliente.
type Config struct {
	// BaseURL es el origin protegido, e.g. "https://api.example.com".
	BaseURL string

	// CookieName y HeaderName deben coincidir con la config del servidor.
	// Defaults: "XSRF-TOKEN" / "X-XSRF-TOKEN".
	CookieName string
	HeaderName string

	// Timeout del http.Client. Default: 30s.
	Timeout time.Duration
}

// Client envuelve http.Client con jar + Transport configurados.
type Client struct {
	HTTP    *http.Client
	baseURL string
}

// New crea el cliente. El jar compartido entre http.Client y Transport es lo
// que hace que los requests viajen credenciados (cookies) y que el Transport
// pueda leer la cookie del token.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("client: BaseURL requerido")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("client: cookie jar: %w", err)
	}

	return &Client{
		HTTP: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
			Transport: &Transport{
				Jar:        jar,
				Origin:     base,
				CookieName: cfg.CookieName,
				HeaderName: cfg.HeaderName,
			},
		},
		baseURL: base,
	}, nil
}

// Login autentica la sesión. La cookie de sesión queda en el jar.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/session/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("client: login failed: status %d", resp.StatusCode)
	}
	return nil
}

// Init corre el paso de inicialización: el servidor setea la cookie del token
// anti-forgery en el jar. Se llama una vez por "carga" de la aplicación,
// después de Login. No hay auto-recovery a mitad de un request: si el server
// rechaza por token, el caller re-corre Init.
func (c *Client) Init(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/v1/xsrf/init", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("client: xsrf init failed: status %d", resp.StatusCode)
	}
	return nil
}

// Do despacha un request a través del transport configurado.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.HTTP.Do(req)
}
