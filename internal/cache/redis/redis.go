package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/antiforge/internal/cache"
	rdb "github.com/redis/go-redis/v9"
)

// Client implementa cache.Client usando Redis.
type Client struct {
	client *rdb.Client
	prefix string
}

// New crea un cliente de cache Redis y verifica la conexión.
func New(cfg cache.Config) (*Client, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}

	c := rdb.NewClient(&rdb.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}

	return &Client{client: c, prefix: cfg.Prefix}, nil
}

// Raw expone el cliente subyacente (lo usa el rate limiter).
func (c *Client) Raw() *rdb.Client { return c.client }

func (c *Client) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, c.key(key)).Result()
	if err == rdb.Nil {
		return "", cache.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

func (c *Client) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.client.Close()
}
