package data

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutline/scout-api/internal/core"
)

func rateLimitParamsFor(key string, limit int, window time.Duration) core.RateLimitParams {
	return core.RateLimitParams{Key: key, Limit: limit, Window: window}
}

// stubCache is an in-memory CacheRepository for limiter tests.
type stubCache struct {
	counters map[string]int64
	ttls     map[string]time.Duration
	incrErr  error
}

func newStubCache() *stubCache {
	return &stubCache{
		counters: make(map[string]int64),
		ttls:     make(map[string]time.Duration),
	}
}

func (s *stubCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (s *stubCache) Get(_ context.Context, _ string) ([]byte, error)                  { return nil, nil }
func (s *stubCache) Delete(_ context.Context, _ string) (bool, error)                 { return false, nil }
func (s *stubCache) Exists(_ context.Context, _ string) (bool, error)                 { return false, nil }
func (s *stubCache) Health(_ context.Context) error                                   { return nil }

func (s *stubCache) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	if s.incrErr != nil {
		return 0, s.incrErr
	}
	s.counters[key]++
	if _, seen := s.ttls[key]; !seen {
		s.ttls[key] = ttl
	}
	return s.counters[key], nil
}

func TestFixedWindowLimiter_Allow(t *testing.T) {
	ctx := context.Background()

	t.Run("allows up to the limit then rejects", func(t *testing.T) {
		cache := newStubCache()
		limiter := NewFixedWindowLimiter(cache, nil)

		for i := 0; i < 5; i++ {
			allowed, err := limiter.Allow(ctx, rateLimitParamsFor("exec:owner-1", 5, time.Hour))
			require.NoError(t, err)
			assert.True(t, allowed, "request %d should be allowed", i+1)
		}

		allowed, err := limiter.Allow(ctx, rateLimitParamsFor("exec:owner-1", 5, time.Hour))
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("keys are independent", func(t *testing.T) {
		cache := newStubCache()
		limiter := NewFixedWindowLimiter(cache, nil)

		allowed, err := limiter.Allow(ctx, rateLimitParamsFor("exec:owner-1", 1, time.Hour))
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = limiter.Allow(ctx, rateLimitParamsFor("exec:owner-1", 1, time.Hour))
		require.NoError(t, err)
		assert.False(t, allowed)

		allowed, err = limiter.Allow(ctx, rateLimitParamsFor("exec:owner-2", 1, time.Hour))
		require.NoError(t, err)
		assert.True(t, allowed, "a different owner has a fresh window")
	})

	t.Run("counter key is namespaced with window TTL", func(t *testing.T) {
		cache := newStubCache()
		limiter := NewFixedWindowLimiter(cache, nil)

		_, err := limiter.Allow(ctx, rateLimitParamsFor("reads:owner-1", 60, time.Hour))
		require.NoError(t, err)

		assert.Contains(t, cache.counters, "ratelimit:reads:owner-1")
		assert.Equal(t, time.Hour, cache.ttls["ratelimit:reads:owner-1"])
	})

	t.Run("non-positive limit disables limiting", func(t *testing.T) {
		cache := newStubCache()
		limiter := NewFixedWindowLimiter(cache, nil)

		allowed, err := limiter.Allow(ctx, rateLimitParamsFor("exec:owner-1", 0, time.Hour))
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Empty(t, cache.counters, "disabled limiter must not touch the cache")
	})

	t.Run("fails open when the cache is down", func(t *testing.T) {
		cache := newStubCache()
		cache.incrErr = errors.New("connection refused")
		limiter := NewFixedWindowLimiter(cache, nil)

		allowed, err := limiter.Allow(ctx, rateLimitParamsFor("exec:owner-1", 1, time.Hour))
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}
