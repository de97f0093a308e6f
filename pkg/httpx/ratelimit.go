package httpx

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bincyber/beesly/pkg/slogx"
)

// RateLimitConfig defines the rate limiting parameters for one endpoint.
type RateLimitConfig struct {
	// Requests is the number of requests allowed in the time window
	Requests int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the steady rate
	Burst int
}

// Per-endpoint rate limit profiles. Values mirror the limits the service
// has always shipped with and can be overridden via environment variables
// RATELIMIT_{SERVICE,AUTH,RENEW,VERIFY}_{REQUESTS,WINDOW_SEC,BURST}.
var (
	// ServiceLimit covers the informational endpoints.
	ServiceLimit = RateLimitConfig{Requests: 10, Window: time.Second, Burst: 10}

	// AuthLimit covers password authentication attempts.
	AuthLimit = RateLimitConfig{Requests: 10, Window: time.Second, Burst: 10}

	// RenewLimit covers token renewal; deliberately the tightest since a
	// valid token never needs renewing more than once a second.
	RenewLimit = RateLimitConfig{Requests: 1, Window: time.Second, Burst: 1}

	// VerifyLimit covers token verification, the hot path for downstream
	// services.
	VerifyLimit = RateLimitConfig{Requests: 500, Window: time.Second, Burst: 500}
)

func init() {
	ServiceLimit = ParseRateLimitFromEnv("SERVICE", ServiceLimit)
	AuthLimit = ParseRateLimitFromEnv("AUTH", AuthLimit)
	RenewLimit = ParseRateLimitFromEnv("RENEW", RenewLimit)
	VerifyLimit = ParseRateLimitFromEnv("VERIFY", VerifyLimit)
}

// ParseRateLimitFromEnv reads overrides for one profile from environment
// variables of the form RATELIMIT_{prefix}_{REQUESTS,WINDOW_SEC,BURST}.
// Invalid or non-positive values leave the default untouched.
func ParseRateLimitFromEnv(prefix string, defaults RateLimitConfig) RateLimitConfig {
	config := defaults

	if val := os.Getenv("RATELIMIT_" + prefix + "_REQUESTS"); val != "" {
		if requests, err := strconv.Atoi(val); err == nil && requests > 0 {
			config.Requests = requests
			config.Burst = requests
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_WINDOW_SEC"); val != "" {
		if sec, err := strconv.Atoi(val); err == nil && sec > 0 {
			config.Window = time.Duration(sec) * time.Second
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_BURST"); val != "" {
		if burst, err := strconv.Atoi(val); err == nil && burst > 0 {
			config.Burst = burst
		}
	}

	return config
}

// KeyExtractor derives the rate-limit partition key from a request.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor returns the first address of a forwarded-for chain when
// present, else the peer address.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, _ := strings.Cut(xff, ","); first != "" {
			return strings.TrimSpace(first)
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// HashedIPFieldKeyExtractor partitions by source address plus a field from
// the JSON request body, hashed so the key itself never carries a claimed
// identity. The field value defaults to the literal "None" when the body is
// not parseable JSON or lacks the field, matching the keying scheme the
// limiter counters were always bucketed under. One source therefore cannot
// exhaust another identity's quota, and vice versa.
func HashedIPFieldKeyExtractor(field string) KeyExtractor {
	return func(r *http.Request) string {
		key := IPKeyExtractor(r)

		value := "None"
		if v, ok := peekJSONField(r, field); ok {
			value = v
		}

		sum := sha256.Sum256([]byte(key + value))
		return hex.EncodeToString(sum[:])
	}
}

// peekJSONField reads a string field from the JSON body without consuming
// it: the body is buffered and restored for the handler.
func peekJSONField(r *http.Request, field string) (string, bool) {
	if r.Body == nil {
		return "", false
	}

	body, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return "", false
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}

	value, ok := payload[field].(string)
	return value, ok
}

// Decision is a rate-limit store's verdict for one request.
type Decision struct {
	OK         bool
	RetryAfter time.Duration
}

// RateLimitStore answers whether a request identified by key may proceed.
// Implementations must provide atomic increment-and-check semantics per key;
// they may live in process memory or in a shared backend so that multiple
// service instances share one set of counters.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, cfg RateLimitConfig) (Decision, error)
}

// RateLimitMiddleware enforces cfg for all requests grouped by extractor.
// The scope prefixes every key so endpoints with different limits never
// share a counter even when backed by the same store.
func RateLimitMiddleware(
	store RateLimitStore,
	scope string,
	cfg RateLimitConfig,
	extract KeyExtractor,
) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			key := extract(r)
			if key == "" {
				log.Warn("rate limit: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			decision, err := store.Allow(ctx, scope+":"+key, cfg)
			if err != nil {
				// Fail open: losing the counter store must not take
				// authentication down with it.
				log.Warn("rate limit: store unavailable, allowing request", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if !decision.OK {
				retryAfter := max(int(decision.RetryAfter.Seconds()), 1)

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
				w.Header().Set("X-RateLimit-Window", cfg.Window.String())

				log.Warn("rate limit exceeded", "endpoint", r.URL.Path, "retry_after", retryAfter)

				WriteJSON(w, http.StatusTooManyRequests, map[string]string{
					"error": fmt.Sprintf("Rate limit exceeded %d per %s", cfg.Requests, cfg.Window),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
