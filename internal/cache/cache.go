package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented TTL store.
// Implemented by the in-memory cache (dev) and Redis (prod).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
