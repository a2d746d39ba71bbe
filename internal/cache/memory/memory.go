package memory

import (
	"context"
	"time"

	"github.com/dropDatabas3/antiforge/internal/cache"
	gocache "github.com/patrickmn/go-cache"
)

// Client implementa cache.Client en memoria (go-cache).
// Útil para desarrollo y testing; no sirve para despliegues multi-instancia.
type Client struct {
	c      *gocache.Cache
	prefix string
}

// New crea un cliente de cache en memoria.
func New(prefix string, defaultTTL time.Duration) *Client {
	if defaultTTL <= 0 {
		defaultTTL = 2 * time.Minute
	}
	return &Client{
		c:      gocache.New(defaultTTL, time.Minute),
		prefix: prefix,
	}
}

func (m *Client) key(k string) string {
	if m.prefix == "" {
		return k
	}
	return m.prefix + ":" + k
}

func (m *Client) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.c.Get(m.key(key))
	if !ok {
		return "", cache.ErrNotFound
	}
	s, _ := v.(string)
	return s, nil
}

func (m *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.c.Set(m.key(key), value, ttl)
	return nil
}

func (m *Client) Delete(ctx context.Context, key string) error {
	m.c.Delete(m.key(key))
	return nil
}

func (m *Client) Ping(ctx context.Context) error { return nil }

func (m *Client) Close() error { return nil }
