package courier

import (
	"context"
	"sync"
	"time"
)

// TokenCache is the subset of the key-value cache the token source needs.
// The application's cache implementation satisfies it implicitly.
type TokenCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// TokenSource is the shared cache-aside token acquisition strategy: check
// the cache, on miss run the vendor-specific generator, store the token
// with a bounded TTL, return it. Each adapter owns one TokenSource with its
// own Generate; a static-key vendor just returns the configured key.
type TokenSource struct {
	// CacheKey is the cache key for this vendor's token.
	CacheKey string
	// Cache may be nil, in which case every call generates.
	Cache TokenCache
	// Generate calls the vendor's auth endpoint. The returned TTL bounds
	// how long the token is cached; a token near vendor expiry should be
	// cached for less than its full lifetime.
	Generate func(ctx context.Context) (token string, ttl time.Duration, err error)

	mu sync.Mutex
}

// Token returns a usable auth token. An empty token with nil error never
// happens: failure to obtain a token is reported as an error and callers
// degrade to "not serviceable".
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	if t.Cache != nil {
		if tok, ok, err := t.Cache.Get(ctx, t.CacheKey); err == nil && ok && tok != "" {
			return tok, nil
		}
	}

	// Serialize generation so concurrent misses hit the vendor once.
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Cache != nil {
		if tok, ok, err := t.Cache.Get(ctx, t.CacheKey); err == nil && ok && tok != "" {
			return tok, nil
		}
	}

	tok, ttl, err := t.Generate(ctx)
	if err != nil {
		return "", err
	}
	if tok == "" {
		return "", ErrAuthTokenUnavailable
	}
	if t.Cache != nil {
		_ = t.Cache.Set(ctx, t.CacheKey, tok, ttl)
	}
	return tok, nil
}
