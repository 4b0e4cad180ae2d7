// Package cache provides the recipe result cache.
//
// Cache failures never surface to callers: a backend that is down or erroring
// behaves as a cache that always misses, so the search path degrades to a
// forced upstream fetch instead of failing.
package cache

import (
	"context"
	"time"
)

// Cache is the interface for recipe result caching.
type Cache interface {
	// Get retrieves a cached value by key. A backend error reads as a miss.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores a value with the given TTL, overwriting any prior entry.
	// Backend errors are absorbed.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)
	// Delete removes a cached value.
	Delete(ctx context.Context, key string)
	// Purge removes all cached values.
	Purge(ctx context.Context)
}
