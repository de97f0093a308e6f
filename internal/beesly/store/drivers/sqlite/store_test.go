package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bincyber/beesly/internal/beesly/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "beesly.db")
	s, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestRateCounters(t *testing.T) {
	s := newTestStore(t)
	counters := s.RateCounters()
	ctx := context.Background()

	window := time.Now().Truncate(time.Second)

	t.Run("increment returns the running total", func(t *testing.T) {
		for want := int64(1); want <= 3; want++ {
			hits, err := counters.Increment(ctx, "auth:abc", window)
			require.NoError(t, err)
			require.Equal(t, want, hits)
		}
	})

	t.Run("buckets count independently", func(t *testing.T) {
		hits, err := counters.Increment(ctx, "renew:abc", window)
		require.NoError(t, err)
		require.Equal(t, int64(1), hits)
	})

	t.Run("a new window starts from one", func(t *testing.T) {
		hits, err := counters.Increment(ctx, "auth:abc", window.Add(time.Second))
		require.NoError(t, err)
		require.Equal(t, int64(1), hits)
	})

	t.Run("prune drops old windows only", func(t *testing.T) {
		pruned, err := counters.PruneBefore(ctx, window.Add(time.Second))
		require.NoError(t, err)
		require.Equal(t, int64(2), pruned)

		// The surviving window keeps its count.
		hits, err := counters.Increment(ctx, "auth:abc", window.Add(time.Second))
		require.NoError(t, err)
		require.Equal(t, int64(2), hits)
	})
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
}
