package cache

import (
	"context"
	"fmt"
)

// Config holds configuration for cache creation.
type Config struct {
	// RedisURL is the Redis connection URL. When set, a Redis cache is
	// created; otherwise an in-memory cache is used.
	// Example: redis://localhost:6379/0
	RedisURL string

	// Prefix is the key prefix applied by the Redis backend.
	Prefix string
}

// New creates a cache based on the provided configuration.
func New(ctx context.Context, cfg Config) (Cache, error) {
	if cfg.RedisURL != "" {
		c, err := NewRedis(ctx, cfg.RedisURL, cfg.Prefix)
		if err != nil {
			return nil, fmt.Errorf("creating redis cache: %w", err)
		}
		return c, nil
	}
	return NewMemory(), nil
}
