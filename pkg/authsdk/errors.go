package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError represents an error response from the service. It implements
// the error interface and can be used both by the server (to write HTTP
// responses) and by the SDK client (to represent failures).
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Message is the human-readable error message
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// WriteError writes this APIError to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"message": e.Message,
	})
}

// Predefined errors mirroring the responses the service returns.
var (
	// ErrMissingCredentials is returned when the authentication request
	// lacks a username or password.
	ErrMissingCredentials = &APIError{
		StatusCode: http.StatusBadRequest,
		Message:    "No username or password provided",
	}

	// ErrInvalidUsername is returned when the username fails validation.
	ErrInvalidUsername = &APIError{
		StatusCode: http.StatusBadRequest,
		Message:    "Invalid username provided",
	}

	// ErrAuthenticationFailed is returned when the credential backend
	// rejects the password.
	ErrAuthenticationFailed = &APIError{
		StatusCode: http.StatusUnauthorized,
		Message:    "Authentication failed",
	}

	// ErrMissingRenewParameters is returned when the renewal request
	// lacks a token or username.
	ErrMissingRenewParameters = &APIError{
		StatusCode: http.StatusBadRequest,
		Message:    "No JWT or username provided",
	}

	// ErrMissingToken is returned when the verification request lacks a
	// token.
	ErrMissingToken = &APIError{
		StatusCode: http.StatusBadRequest,
		Message:    "No JWT provided",
	}

	// ErrInvalidToken is returned when a presented token cannot be
	// decoded, or fails signature, expiry or issuer verification.
	ErrInvalidToken = &APIError{
		StatusCode: http.StatusBadRequest,
		Message:    "Invalid JWT",
	}

	// ErrInvalidClaims is returned when a token decodes but lacks the
	// subject or salt claim.
	ErrInvalidClaims = &APIError{
		StatusCode: http.StatusUnauthorized,
		Message:    "Invalid claims in JWT",
	}

	// ErrSubjectMismatch is returned when the renewal caller's username
	// does not match the token's subject.
	ErrSubjectMismatch = &APIError{
		StatusCode: http.StatusBadRequest,
		Message:    "Invalid subject in JWT claim",
	}

	// ErrRenewalFailed is returned when a token presented for renewal
	// fails verification.
	ErrRenewalFailed = &APIError{
		StatusCode: http.StatusUnauthorized,
		Message:    "Failed to renew invalid JWT",
	}

	// ErrRenewalDisabled is returned when renewal is requested but token
	// issuance is disabled.
	ErrRenewalDisabled = &APIError{
		StatusCode: http.StatusNotImplemented,
		Message:    "JWT renewal is not enabled",
	}

	// ErrVerificationDisabled is returned when verification is requested
	// but token issuance is disabled.
	ErrVerificationDisabled = &APIError{
		StatusCode: http.StatusNotImplemented,
		Message:    "JWT verification is not enabled",
	}
)
