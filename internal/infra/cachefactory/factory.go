// Package cachefactory resuelve el backend de cache según configuración.
// Vive separado de internal/cache para que los backends puedan importar la
// interfaz sin ciclos.
package cachefactory

import (
	"time"

	"github.com/dropDatabas3/antiforge/internal/cache"
	"github.com/dropDatabas3/antiforge/internal/cache/memory"
	"github.com/dropDatabas3/antiforge/internal/cache/redis"
)

// New crea un cliente de cache según cfg.Driver ("memory" | "redis").
// Driver vacío o desconocido cae a memory.
func New(cfg cache.Config, memoryDefaultTTL time.Duration) (cache.Client, error) {
	switch cfg.Driver {
	case "redis":
		return redis.New(cfg)
	default:
		return memory.New(cfg.Prefix, memoryDefaultTTL), nil
	}
}
