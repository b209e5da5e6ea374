package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Cache stores raw upstream response bodies.
type Cache interface {
	// Get returns the cached value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// New returns the cache for backend. Redis connects to redisURL and namespaces
// keys with prefix.
func New(backend, redisURL, prefix string) (Cache, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryCache(), nil
	case BackendRedis:
		rc, err := NewRedisClient(redisURL, prefix)
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
