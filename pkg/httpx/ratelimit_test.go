package httpx_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bincyber/beesly/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestIPKeyExtractor(t *testing.T) {
	t.Run("extracts from RemoteAddr", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"

		require.Equal(t, "192.168.1.1", httpx.IPKeyExtractor(req))
	})

	t.Run("prefers first X-Forwarded-For hop", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Forwarded-For", "203.0.113.1, 192.168.1.1")

		require.Equal(t, "203.0.113.1", httpx.IPKeyExtractor(req))
	})

	t.Run("uses X-Real-IP when X-Forwarded-For absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Real-IP", "203.0.113.2")

		require.Equal(t, "203.0.113.2", httpx.IPKeyExtractor(req))
	})
}

func TestHashedIPFieldKeyExtractor(t *testing.T) {
	extractor := httpx.HashedIPFieldKeyExtractor("username")

	hashOf := func(s string) string {
		sum := sha256.Sum256([]byte(s))
		return hex.EncodeToString(sum[:])
	}

	t.Run("hashes ip plus username", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(`{"username":"vagrant","password":"x"}`))
		req.RemoteAddr = "192.168.1.1:12345"

		require.Equal(t, hashOf("192.168.1.1vagrant"), extractor(req))
	})

	t.Run("defaults to None without a body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(""))
		req.RemoteAddr = "192.168.1.1:12345"

		require.Equal(t, hashOf("192.168.1.1None"), extractor(req))
	})

	t.Run("defaults to None for unparseable JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader("not-json"))
		req.RemoteAddr = "192.168.1.1:12345"

		require.Equal(t, hashOf("192.168.1.1None"), extractor(req))
	})

	t.Run("defaults to None when the field is missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(`{"password":"x"}`))
		req.RemoteAddr = "192.168.1.1:12345"

		require.Equal(t, hashOf("192.168.1.1None"), extractor(req))
	})

	t.Run("body is restored for the handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(`{"username":"vagrant"}`))
		req.RemoteAddr = "192.168.1.1:12345"

		_ = extractor(req)

		body, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"username":"vagrant"}`, string(body))
	})

	t.Run("distinct usernames get distinct keys", func(t *testing.T) {
		reqA := httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(`{"username":"alice"}`))
		reqA.RemoteAddr = "192.168.1.1:12345"
		reqB := httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(`{"username":"bob"}`))
		reqB.RemoteAddr = "192.168.1.1:12345"

		require.NotEqual(t, extractor(reqA), extractor(reqB))
	})
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := httpx.RateLimitConfig{Requests: 3, Window: time.Minute, Burst: 3}

	t.Run("blocks after the limit", func(t *testing.T) {
		handler := httpx.RateLimitMiddleware(
			httpx.NewTokenBucketStore(), "test", cfg, httpx.IPKeyExtractor,
		)(okHandler())

		for i := range 3 {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.168.1.1:12345"
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, "request %d should succeed", i+1)
		}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
		require.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		require.Contains(t, rec.Body.String(), "Rate limit exceeded")
	})

	t.Run("keys are tracked separately", func(t *testing.T) {
		handler := httpx.RateLimitMiddleware(
			httpx.NewTokenBucketStore(), "test", cfg, httpx.IPKeyExtractor,
		)(okHandler())

		for range 3 {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.168.1.1:12345"
			handler.ServeHTTP(httptest.NewRecorder(), req)
		}

		blocked := httptest.NewRequest(http.MethodGet, "/", nil)
		blocked.RemoteAddr = "192.168.1.1:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, blocked)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)

		other := httptest.NewRequest(http.MethodGet, "/", nil)
		other.RemoteAddr = "192.168.1.2:12345"
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, other)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("scopes never share counters", func(t *testing.T) {
		store := httpx.NewTokenBucketStore()
		one := httpx.RateLimitConfig{Requests: 1, Window: time.Minute, Burst: 1}

		first := httpx.RateLimitMiddleware(store, "auth", one, httpx.IPKeyExtractor)(okHandler())
		second := httpx.RateLimitMiddleware(store, "renew", one, httpx.IPKeyExtractor)(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"

		rec := httptest.NewRecorder()
		first.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		second.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("allows when key extraction fails", func(t *testing.T) {
		empty := func(r *http.Request) string { return "" }
		one := httpx.RateLimitConfig{Requests: 1, Window: time.Minute, Burst: 1}
		handler := httpx.RateLimitMiddleware(httpx.NewTokenBucketStore(), "test", one, empty)(okHandler())

		for range 3 {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			require.Equal(t, http.StatusOK, rec.Code)
		}
	})
}

func TestFixedWindowStore(t *testing.T) {
	store := httpx.NewFixedWindowStore()
	cfg := httpx.RateLimitConfig{Requests: 2, Window: time.Hour, Burst: 2}
	ctx := context.Background()

	for i := range 2 {
		d, err := store.Allow(ctx, "k", cfg)
		require.NoError(t, err)
		require.True(t, d.OK, "request %d should be allowed", i+1)
	}

	d, err := store.Allow(ctx, "k", cfg)
	require.NoError(t, err)
	require.False(t, d.OK)
	require.Greater(t, d.RetryAfter, time.Duration(0))

	d, err = store.Allow(ctx, "other", cfg)
	require.NoError(t, err)
	require.True(t, d.OK)
}

func TestRateLimitProfiles(t *testing.T) {
	profiles := map[string]httpx.RateLimitConfig{
		"service": httpx.ServiceLimit,
		"auth":    httpx.AuthLimit,
		"renew":   httpx.RenewLimit,
		"verify":  httpx.VerifyLimit,
	}

	for name, cfg := range profiles {
		t.Run(name, func(t *testing.T) {
			require.Greater(t, cfg.Requests, 0)
			require.Greater(t, cfg.Window, time.Duration(0))
			require.Greater(t, cfg.Burst, 0)
		})
	}

	require.Less(t, httpx.RenewLimit.Requests, httpx.AuthLimit.Requests)
	require.Less(t, httpx.AuthLimit.Requests, httpx.VerifyLimit.Requests)
}

func TestParseRateLimitFromEnv(t *testing.T) {
	defaults := httpx.RateLimitConfig{Requests: 10, Window: time.Second, Burst: 10}

	t.Run("no env vars uses defaults", func(t *testing.T) {
		require.Equal(t, defaults, httpx.ParseRateLimitFromEnv("TESTX", defaults))
	})

	t.Run("overrides", func(t *testing.T) {
		os.Setenv("RATELIMIT_TESTX_REQUESTS", "50")
		os.Setenv("RATELIMIT_TESTX_WINDOW_SEC", "30")
		os.Setenv("RATELIMIT_TESTX_BURST", "60")
		defer func() {
			os.Unsetenv("RATELIMIT_TESTX_REQUESTS")
			os.Unsetenv("RATELIMIT_TESTX_WINDOW_SEC")
			os.Unsetenv("RATELIMIT_TESTX_BURST")
		}()

		cfg := httpx.ParseRateLimitFromEnv("TESTX", defaults)
		require.Equal(t, 50, cfg.Requests)
		require.Equal(t, 30*time.Second, cfg.Window)
		require.Equal(t, 60, cfg.Burst)
	})

	t.Run("invalid values keep defaults", func(t *testing.T) {
		os.Setenv("RATELIMIT_TESTX_REQUESTS", "invalid")
		os.Setenv("RATELIMIT_TESTX_WINDOW_SEC", "-10")
		defer func() {
			os.Unsetenv("RATELIMIT_TESTX_REQUESTS")
			os.Unsetenv("RATELIMIT_TESTX_WINDOW_SEC")
		}()

		require.Equal(t, defaults, httpx.ParseRateLimitFromEnv("TESTX", defaults))
	})
}
