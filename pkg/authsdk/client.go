// Package authsdk is a small client for the beesly authentication
// service, plus the request/response types and error values shared with
// the server.
package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the beesly authentication service.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new client for the service at baseURL.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Authenticate exchanges a username and password for the subject's group
// list and, when issuance is enabled server-side, a session token.
func (c *SDKClient) Authenticate(ctx context.Context, username, password string) (*AuthResponse, error) {
	resp, err := c.postJSON(ctx, "/auth", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	var auth AuthResponse
	if err := decodeJSON(resp, &auth, http.StatusOK); err != nil {
		return nil, err
	}
	return &auth, nil
}

// Renew exchanges a still-valid token for a fresh one.
func (c *SDKClient) Renew(ctx context.Context, token, username string) (*RenewResponse, error) {
	resp, err := c.postJSON(ctx, "/renew", map[string]string{
		"jwt":      token,
		"username": username,
	})
	if err != nil {
		return nil, err
	}

	var renew RenewResponse
	if err := decodeJSON(resp, &renew, http.StatusOK); err != nil {
		return nil, err
	}
	return &renew, nil
}

// Verify reports whether the token is valid.
func (c *SDKClient) Verify(ctx context.Context, token string) (*VerifyResponse, error) {
	resp, err := c.postJSON(ctx, "/verify", map[string]string{"jwt": token})
	if err != nil {
		return nil, err
	}

	var verify VerifyResponse
	if err := decodeJSON(resp, &verify, http.StatusOK); err != nil {
		return nil, err
	}
	return &verify, nil
}

// Health checks the service health endpoint.
func (c *SDKClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/service/health"), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: "service unhealthy"}
	}
	return nil
}

// Version fetches the service name and version.
func (c *SDKClient) Version(ctx context.Context) (*VersionResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/service/version"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	var version VersionResponse
	if err := decodeJSON(resp, &version, http.StatusOK); err != nil {
		return nil, err
	}
	return &version, nil
}

func (c *SDKClient) url(path string) string {
	return c.BaseURL + path
}

func (c *SDKClient) postJSON(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// decodeJSON decodes a JSON response into the target. Responses with an
// unexpected status are parsed into an *APIError carrying the server's
// message.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp.StatusCode, bodyBytes)
	}

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func parseErrorResponse(statusCode int, body []byte) error {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)

	message := payload.Message
	if message == "" {
		message = payload.Error
	}
	if message == "" {
		message = http.StatusText(statusCode)
	}

	return &APIError{StatusCode: statusCode, Message: message}
}
