// Package cache implements a TTL cache with a fast in-memory layer mirrored
// into a slower persistent backend.
//
// Reads are memory-first: a valid entry in memory is returned without
// touching the backend; otherwise the backend is consulted and a valid hit
// is promoted back into memory. An entry is valid while
// now - writtenAt < ttl. Expired entries are never swept; they stay until
// overwritten or invalidated.
//
// Persistence is best effort. Every backend failure is logged and counted,
// and the store carries on in memory; no operation returns a persistence
// error to its caller.
package cache

import (
	"context"
	"time"
)

// DefaultTTL applies when Set is called with a non-positive ttl.
const DefaultTTL = 5 * time.Minute

// DefaultNamespace prefixes every key written to the backend.
const DefaultNamespace = "cache_"

// Cache is the caller contract shared by the local [Store] and remote
// implementations such as the gRPC client. Values are JSON documents.
type Cache interface {
	// Get returns the value stored under key. The boolean reports a hit;
	// an expired entry is a miss.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores val under key for ttl. A non-positive ttl selects the
	// implementation's default.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)

	// Invalidate removes key.
	Invalidate(ctx context.Context, key string)

	// InvalidatePattern removes every key containing pattern as a substring.
	InvalidatePattern(ctx context.Context, pattern string)

	// ClearAll removes every key.
	ClearAll(ctx context.Context)
}

// Loader produces the value for a missing key.
type Loader func(ctx context.Context) ([]byte, error)

// loadingCache is implemented by caches that deduplicate concurrent loads.
type loadingCache interface {
	GetOrSet(ctx context.Context, key string, ttl time.Duration, loader Loader) ([]byte, error)
}

// GetOrSet returns the cached value for key. On a miss it calls loader,
// stores the result and returns it. When c deduplicates loads itself (as
// [Store] does) its implementation is used.
func GetOrSet(ctx context.Context, c Cache, key string, ttl time.Duration, loader Loader) ([]byte, error) {
	if lc, ok := c.(loadingCache); ok {
		return lc.GetOrSet(ctx, key, ttl, loader)
	}
	if v, ok := c.Get(ctx, key); ok {
		return v, nil
	}
	v, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	c.Set(ctx, key, v, ttl)
	return v, nil
}
