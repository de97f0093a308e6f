package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bincyber/beesly/internal/beesly/domain"
	"github.com/bincyber/beesly/internal/beesly/service"
	"github.com/bincyber/beesly/pkg/authsdk"
	"github.com/bincyber/beesly/pkg/httpx"
	"github.com/bincyber/beesly/pkg/slogx"
)

// AuthHandler serves POST /auth: authenticates a username and password
// against the credential backend, returning the subject's groups and,
// when issuance is enabled, a session token.
type AuthHandler struct {
	Sessions *service.SessionService
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username *string `json:"username"`
		Password *string `json:"password"`
	}
	// Decode errors fall through to the missing-fields check so an
	// unparseable body and an empty one get the same answer.
	_ = json.NewDecoder(r.Body).Decode(&body)

	if body.Username == nil || body.Password == nil {
		authsdk.ErrMissingCredentials.WriteError(w)
		return
	}

	username := domain.SanitizeUsername(*body.Username)

	session, err := h.Sessions.Authenticate(r.Context(), username, *body.Password)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidUsername):
		authsdk.ErrInvalidUsername.WriteError(w)
		return
	case errors.Is(err, service.ErrBadCredentials):
		httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.AuthFailure{
			Message: "Authentication failed",
			Auth:    false,
		})
		return
	default:
		writeInternalError(w, r, err)
		return
	}

	var token *string
	if session.Token != "" {
		token = &session.Token
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.AuthResponse{
		Message: "Authentication successful",
		Auth:    true,
		Groups:  session.Groups,
		Token:   token,
	})
}

// writeInternalError hides the failure cause from the caller; the detail
// only goes to the log.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	slogx.FromContext(r.Context()).Error("request failed", "error", err)
	httpx.WriteJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "The application failed to handle the request",
	})
}
