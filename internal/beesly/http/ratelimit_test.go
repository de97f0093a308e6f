package http_test

import (
	"log/slog"
	"net/http"
	"testing"
	"time"

	beeslyhttp "github.com/bincyber/beesly/internal/beesly/http"
	"github.com/bincyber/beesly/internal/beesly/service"
	"github.com/bincyber/beesly/internal/beesly/sysinfo"
	"github.com/bincyber/beesly/pkg/httpx"
	"github.com/bincyber/beesly/pkg/jwtx"
	"github.com/bincyber/beesly/pkg/metrix"
	"github.com/stretchr/testify/require"
)

func TestRenewEndpointRateLimited(t *testing.T) {
	sessions := &service.SessionService{
		Backend:   &stubBackend{password: "vagrant"},
		Groups:    &stubResolver{},
		Metrics:   metrix.NewNoop(),
		Issuer:    "beesly",
		Algorithm: jwtx.AlgHS512,
		MasterKey: testMasterKey,
		Validity:  900 * time.Second,
	}
	collector := &sysinfo.Collector{AppName: "beesly", AppVersion: "v1.0.0"}

	router := beeslyhttp.NewRouter(
		sessions, collector, httpx.NewTokenBucketStore(),
		"beesly", "v1.0.0", false, slog.Default(),
	)
	router.ApplyRoutes()

	// The renewal limit is one per second per (source, username), so a
	// second immediate request from the same caller must be rejected.
	body := `{"jwt": "garbage", "username": "vagrant"}`

	rec := postJSON(t, router, "/renew", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, router, "/renew", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Contains(t, rec.Body.String(), "Rate limit exceeded")
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	// A different claimed username is a different partition key.
	rec = postJSON(t, router, "/renew", `{"jwt": "garbage", "username": "mallory"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
