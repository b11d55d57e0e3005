// Package cache provides pluggable byte-oriented caching backends.
//
// The feed metadata cache keeps registry responses (version indexes, package
// metadata) between runs so repeated generations of the same package avoid
// redundant network calls. Three backends are provided:
//   - FileCache: per-user file cache for CLI usage (default)
//   - RedisCache: shared cache for CI farms running many generations
//   - NullCache: caching disabled
//
// Backends store opaque bytes; see the httputil package for a typed JSON
// wrapper with key namespacing.
package cache

import (
	"context"
	"time"
)

// Cache is the interface implemented by all cache backends.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value by key. The second return value reports whether
	// the key was found and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value under key with the given TTL. A TTL of 0 means the
	// entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the backend.
	Close() error
}
