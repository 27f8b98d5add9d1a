// Package storage defines the persistent key-value facility the cache
// mirrors its entries into, together with a handful of implementations:
// an in-process map, a bbolt file, Redis and MinIO/S3.
//
// Every operation is independently fallible and no atomicity is promised
// across calls. Callers that cannot tolerate a failing backend wrap it in
// [Guarded].
package storage

import "context"

// Backend is the minimal storage contract consumed by the cache.
// Implementations must be safe for concurrent use by multiple goroutines.
type Backend interface {
	// Get returns the value stored under key. The boolean reports whether the
	// key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores val under key, replacing any previous value.
	Set(ctx context.Context, key string, val []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// ListKeys returns every key currently stored.
	ListKeys(ctx context.Context) ([]string, error)

	// RemoveMany deletes all given keys. Missing keys are ignored.
	RemoveMany(ctx context.Context, keys []string) error
}
