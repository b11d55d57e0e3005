package httputil

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rulesmith/rulesmith/pkg/cache"
	"github.com/rulesmith/rulesmith/pkg/observability"
)

// Cache provides typed JSON caching of feed responses over a cache backend.
//
// Values are marshaled with encoding/json before storage, so any backend
// (file, redis, null) can hold them. Keys are namespaced with a prefix to
// avoid collisions between different endpoints of the same feed:
//
//	c := httputil.NewCache(backend, 24*time.Hour)
//	versions := c.Namespace("versions:")
//	metadata := c.Namespace("nuspec:")
//
// A TTL of 0 means entries never expire. Expiration is enforced by the
// backend, not by this wrapper.
type Cache struct {
	backend cache.Cache
	ttl     time.Duration
	prefix  string
}

// NewCache creates a typed cache view over the given backend.
// If backend is nil, a NullCache is used (caching disabled).
func NewCache(backend cache.Cache, ttl time.Duration) *Cache {
	if backend == nil {
		backend = cache.NewNullCache()
	}
	return &Cache{backend: backend, ttl: ttl}
}

// TTL returns the time-to-live duration for cache entries.
// A TTL of 0 means cache entries never expire.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get retrieves a cached value by key and unmarshals it into v.
//
// Return values indicate three outcomes:
//   - (true, nil): cache hit; the value was unmarshaled into v
//   - (false, nil): cache miss; v is unchanged
//   - (false, err): backend or unmarshal error
//
// The value v must be a pointer to a type compatible with json.Unmarshal.
func (c *Cache) Get(ctx context.Context, key string, v any) (bool, error) {
	data, ok, err := c.backend.Get(ctx, c.prefix+key)
	if err != nil || !ok {
		observability.Cache().OnCacheMiss(ctx, c.prefix)
		return false, err
	}
	observability.Cache().OnCacheHit(ctx, c.prefix)
	return true, json.Unmarshal(data, v)
}

// Set stores a value in the cache under the given key.
// The value v is marshaled to JSON; marshal errors are returned unwrapped.
// Set overwrites any existing entry for key, refreshing its TTL.
func (c *Cache) Set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, c.prefix, len(data))
	return c.backend.Set(ctx, c.prefix+key, data, c.ttl)
}

// Namespace returns a new Cache that automatically prefixes all keys with
// prefix. The returned Cache shares the same backend and TTL as the parent.
// Namespace calls can be chained to create hierarchical key spaces.
func (c *Cache) Namespace(prefix string) *Cache {
	return &Cache{
		backend: c.backend,
		ttl:     c.ttl,
		prefix:  c.prefix + prefix,
	}
}
