package httpx

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// NewTokenBucketStore returns an in-memory moving-window limiter backed by
// token buckets, one per partition key.
func NewTokenBucketStore() RateLimitStore {
	return &tokenBucketStore{lastCleanup: time.Now()}
}

type tokenBucketStore struct {
	limiters sync.Map // map[string]*bucket

	mu          sync.Mutex
	lastCleanup time.Time
}

type bucket struct {
	limiter *rate.Limiter
	burst   int
}

func (s *tokenBucketStore) Allow(_ context.Context, key string, cfg RateLimitConfig) (Decision, error) {
	b := s.getBucket(key, cfg)

	if !b.limiter.Allow() {
		// Peek at when the next token arrives without consuming it.
		reservation := b.limiter.Reserve()
		delay := reservation.Delay()
		reservation.Cancel()

		return Decision{OK: false, RetryAfter: delay}, nil
	}

	return Decision{OK: true}, nil
}

func (s *tokenBucketStore) getBucket(key string, cfg RateLimitConfig) *bucket {
	if b, ok := s.limiters.Load(key); ok {
		return b.(*bucket)
	}

	perSecond := float64(cfg.Requests) / cfg.Window.Seconds()
	b := &bucket{
		limiter: rate.NewLimiter(rate.Limit(perSecond), cfg.Burst),
		burst:   cfg.Burst,
	}
	actual, _ := s.limiters.LoadOrStore(key, b)

	s.maybeCleanup()

	return actual.(*bucket)
}

// maybeCleanup drops buckets that have refilled completely; a full bucket
// means the key has been idle for at least one window.
func (s *tokenBucketStore) maybeCleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Since(s.lastCleanup) < 5*time.Minute {
		return
	}
	s.lastCleanup = time.Now()

	s.limiters.Range(func(key, value any) bool {
		b := value.(*bucket)
		if b.limiter.Tokens() >= float64(b.burst) {
			s.limiters.Delete(key)
		}
		return true
	})
}

// NewFixedWindowStore returns an in-memory fixed-window counter limiter.
// Cheaper and coarser than the token bucket: all requests inside one window
// share a single counter that resets on the window boundary.
func NewFixedWindowStore() RateLimitStore {
	return &fixedWindowStore{windows: make(map[string]*window)}
}

type fixedWindowStore struct {
	mu          sync.Mutex
	windows     map[string]*window
	lastCleanup time.Time
}

type window struct {
	start time.Time
	hits  int
}

func (s *fixedWindowStore) Allow(_ context.Context, key string, cfg RateLimitConfig) (Decision, error) {
	now := time.Now()
	start := now.Truncate(cfg.Window)

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || w.start.Before(start) {
		w = &window{start: start}
		s.windows[key] = w
	}
	w.hits++

	s.maybeCleanupLocked(now, cfg.Window)

	if w.hits > cfg.Requests {
		return Decision{OK: false, RetryAfter: start.Add(cfg.Window).Sub(now)}, nil
	}
	return Decision{OK: true}, nil
}

func (s *fixedWindowStore) maybeCleanupLocked(now time.Time, span time.Duration) {
	if now.Sub(s.lastCleanup) < 5*time.Minute {
		return
	}
	s.lastCleanup = now

	for key, w := range s.windows {
		if now.Sub(w.start) > 2*span {
			delete(s.windows, key)
		}
	}
}
