package authsdk_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bincyber/beesly/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		if body.Password != "vagrant" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(authsdk.AuthFailure{Message: "Authentication failed"})
			return
		}

		token := "header.payload.signature"
		_ = json.NewEncoder(w).Encode(authsdk.AuthResponse{
			Message: "Authentication successful",
			Auth:    true,
			Groups:  []string{"sudo"},
			Token:   &token,
		})
	})

	mux.HandleFunc("POST /renew", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(authsdk.RenewResponse{
			Message: "JWT successfully renewed",
			Token:   "renewed.payload.signature",
		})
	})

	mux.HandleFunc("POST /verify", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(authsdk.VerifyResponse{
			Message: "JWT successfully verified",
			Valid:   true,
		})
	})

	mux.HandleFunc("GET /service/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"beesly": "OK"})
	})

	mux.HandleFunc("GET /service/version", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(authsdk.VersionResponse{App: "beesly", Version: "v1.0.0"})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestSDKClient(t *testing.T) {
	server := newTestServer(t)
	client := authsdk.NewSDKClient(server.URL)
	ctx := context.Background()

	t.Run("authenticate", func(t *testing.T) {
		resp, err := client.Authenticate(ctx, "vagrant", "vagrant")
		require.NoError(t, err)
		require.True(t, resp.Auth)
		require.Equal(t, []string{"sudo"}, resp.Groups)
		require.NotNil(t, resp.Token)
	})

	t.Run("authenticate failure surfaces the server message", func(t *testing.T) {
		_, err := client.Authenticate(ctx, "vagrant", "wrong")

		var apiErr *authsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		require.Equal(t, "Authentication failed", apiErr.Message)
	})

	t.Run("renew", func(t *testing.T) {
		resp, err := client.Renew(ctx, "header.payload.signature", "vagrant")
		require.NoError(t, err)
		require.Equal(t, "renewed.payload.signature", resp.Token)
	})

	t.Run("verify", func(t *testing.T) {
		resp, err := client.Verify(ctx, "header.payload.signature")
		require.NoError(t, err)
		require.True(t, resp.Valid)
	})

	t.Run("health", func(t *testing.T) {
		require.NoError(t, client.Health(ctx))
	})

	t.Run("version", func(t *testing.T) {
		resp, err := client.Version(ctx)
		require.NoError(t, err)
		require.Equal(t, "beesly", resp.App)
		require.Equal(t, "v1.0.0", resp.Version)
	})
}
