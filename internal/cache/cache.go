// Package cache provides a small byte-value cache with in-memory and Redis
// backends, used for hot read paths like the event type list.
package cache

import (
	"context"
	"time"
)

// Cache is the interface shared by all backends. Implementations must be
// safe for concurrent use. Values are []byte so memory and Redis behave the
// same.
type Cache interface {
	// Get retrieves a value. Returns ErrCacheMiss if absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// Error is the error type for cache operations.
type Error string

func (e Error) Error() string { return string(e) }

// ErrCacheMiss indicates the key was not found or has expired.
const ErrCacheMiss Error = "cache miss"
