package data

import (
	"context"
	"log/slog"

	"github.com/scoutline/scout-api/internal/core"
)

// FixedWindowLimiter implements core.RateLimiter with a fixed-window counter
// per key. The counter lives in the cache under "ratelimit:<key>" and expires
// with the window, so each window starts fresh.
type FixedWindowLimiter struct {
	cache  core.CacheRepository
	logger *slog.Logger
}

// NewFixedWindowLimiter creates a FixedWindowLimiter backed by the given cache.
func NewFixedWindowLimiter(cache core.CacheRepository, logger *slog.Logger) *FixedWindowLimiter {
	return &FixedWindowLimiter{cache: cache, logger: logger}
}

// Allow consumes one slot from the current window for params.Key. When the
// cache is unreachable the limiter fails open: blocking every caller on a
// cache outage is worse than briefly not enforcing limits.
func (l *FixedWindowLimiter) Allow(ctx context.Context, params core.RateLimitParams) (bool, error) {
	if params.Limit <= 0 {
		return true, nil
	}

	count, err := l.cache.Increment(ctx, "ratelimit:"+params.Key, params.Window)
	if err != nil {
		if l.logger != nil {
			l.logger.WarnContext(ctx, "rate limiter unavailable, allowing request",
				"key", params.Key,
				"error", err,
			)
		}
		return true, nil
	}

	return count <= int64(params.Limit), nil
}
