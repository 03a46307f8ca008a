package cache

import (
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Backend         string
	Prefix          string
	CleanupInterval time.Duration
}

// New returns the backend selected by cfg.Backend. redisClient is only used for "redis".
func New(cfg Config, redisClient *redis.Client) Cache {
	switch cfg.Backend {
	case "redis":
		return NewRedisCache(redisClient, RedisConfig{
			Prefix: cfg.Prefix,
		})
	default:
		return NewMemoryCache(cfg.CleanupInterval)
	}
}
