// Package sqlite implements the store contracts on a local SQLite
// database, giving multiple service instances on one host a shared
// rate-limit counter backend without an external dependency.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bincyber/beesly/internal/beesly/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	dsn string
}

var _ store.Store = (*Store)(nil)

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", dsn, err)
	}

	// WAL lets concurrent readers coexist with the single writer, and a
	// busy timeout keeps instances from erroring on write contention.
	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA busy_timeout = 5000;`,
	} {
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: apply %s: %w", pragma, err)
		}
	}

	return &Store{db: db, dsn: dsn}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) RateCounters() store.RateCounters { return &rateCountersRepo{db: s.db} }

type rateCountersRepo struct {
	db *sql.DB
}

func (r *rateCountersRepo) Increment(ctx context.Context, bucket string, windowStart time.Time) (int64, error) {
	var hits int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO rate_counters (bucket, window_start, hits)
		VALUES (?, ?, 1)
		ON CONFLICT (bucket, window_start) DO UPDATE SET hits = hits + 1
		RETURNING hits;
	`, bucket, windowStart.UTC().Unix()).Scan(&hits)
	if err != nil {
		return 0, fmt.Errorf("sqlite: increment rate counter: %w", err)
	}
	return hits, nil
}

func (r *rateCountersRepo) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM rate_counters WHERE window_start < ?;
	`, cutoff.UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune rate counters: %w", err)
	}
	return res.RowsAffected()
}
