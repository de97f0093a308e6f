// Package store defines the persistence contracts for shared state.
// The only durable state the service keeps is the rate-limit counter
// table, used when several instances must agree on one set of limits.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// RateCounters is a fixed-window hit counter keyed by bucket and window
// start. Increment must be atomic across processes sharing the backend.
type RateCounters interface {
	// Increment bumps the counter for (bucket, windowStart) and returns
	// the new total including this hit.
	Increment(ctx context.Context, bucket string, windowStart time.Time) (int64, error)

	// PruneBefore deletes counters for windows that started before the
	// cutoff and reports how many rows went away.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store is the full persistence surface.
type Store interface {
	RateCounters() RateCounters

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}
