// Package cache provides the key-value cache port shared by the mapping
// service, vendor token stores, and result caches, plus a single generic
// cache-aside helper so the get/generate/set pattern is written once.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Cache is the narrow key-value interface the core consumes. Implementations
// must treat an unparseable stored value as their own concern; readers treat
// any decode failure as a miss.
type Cache interface {
	// Get returns the raw value and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores a value with a TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Del removes keys. Implementations batch the deletion.
	Del(ctx context.Context, keys ...string) error

	// KeysByPrefix enumerates all keys under a prefix.
	KeysByPrefix(ctx context.Context, prefix string) ([]string, error)
}

// Through is the generic cache-aside read: check the cache, decode on hit,
// otherwise run gen, store its value under the returned TTL, and return it.
// gen returns its own TTL so call sites can negative-cache failures with a
// shorter lifetime than successes. A corrupt cached value counts as a miss.
// The second return reports whether the value came from cache.
func Through[T any](ctx context.Context, c Cache, key string, gen func(context.Context) (T, time.Duration, error)) (T, bool, error) {
	var zero T

	if raw, ok, err := c.Get(ctx, key); err == nil && ok {
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			return v, true, nil
		}
		// Unparseable cached value: drop it and fall through to gen.
		_ = c.Del(ctx, key)
	}

	v, ttl, err := gen(ctx)
	if err != nil {
		return zero, false, err
	}

	if raw, err := json.Marshal(v); err == nil {
		_ = c.Set(ctx, key, string(raw), ttl)
	}
	return v, false, nil
}
