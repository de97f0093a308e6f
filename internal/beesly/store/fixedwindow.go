package store

import (
	"context"
	"time"

	"github.com/bincyber/beesly/pkg/httpx"
)

// NewFixedWindowLimiter adapts a RateCounters backend into a rate-limit
// store. Counters live in the backend, so every service instance pointed
// at the same database enforces one shared set of limits.
func NewFixedWindowLimiter(counters RateCounters) httpx.RateLimitStore {
	return &fixedWindowLimiter{counters: counters}
}

type fixedWindowLimiter struct {
	counters RateCounters
}

func (l *fixedWindowLimiter) Allow(ctx context.Context, key string, cfg httpx.RateLimitConfig) (httpx.Decision, error) {
	now := time.Now()
	windowStart := now.Truncate(cfg.Window)

	hits, err := l.counters.Increment(ctx, key, windowStart)
	if err != nil {
		return httpx.Decision{}, err
	}

	if hits > int64(cfg.Requests) {
		return httpx.Decision{
			OK:         false,
			RetryAfter: windowStart.Add(cfg.Window).Sub(now),
		}, nil
	}
	return httpx.Decision{OK: true}, nil
}
