// Package cache stores aggregated models, layouts and rendered artifacts
// keyed by content hash.
//
// # Backends
//
//   - [FileCache]: one JSON envelope per key under a local directory (CLI)
//   - [RedisCache]: shared cache for several `flowscope serve` instances
//   - [MongoCache]: documents in a MongoDB collection
//   - [NullCache]: disables caching
//
// [Open] picks a backend from a [Config].
//
// # Keys
//
// A [Keyer] derives keys from the SHA-256 of the packet list and the
// options that influence the cached value, so a changed capture or changed
// simulation parameters never hit a stale entry.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key-value store with optional expiry.
type Cache interface {
	// Get returns the value for key. The bool is false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
