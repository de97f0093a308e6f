package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bincyber/beesly/internal/beesly/domain"
	"github.com/bincyber/beesly/internal/beesly/service"
	"github.com/bincyber/beesly/pkg/authsdk"
	"github.com/bincyber/beesly/pkg/httpx"
)

// RenewHandler serves POST /renew: exchanges a still-valid token for a
// fresh one bound to the same subject and groups.
type RenewHandler struct {
	Sessions *service.SessionService
}

func (h *RenewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// The disabled check comes before any request inspection: with no
	// master key there is nothing to validate against.
	if !h.Sessions.TokensEnabled() {
		authsdk.ErrRenewalDisabled.WriteError(w)
		return
	}

	var body struct {
		Token    *string `json:"jwt"`
		Username *string `json:"username"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	if body.Token == nil || body.Username == nil {
		authsdk.ErrMissingRenewParameters.WriteError(w)
		return
	}

	username := domain.SanitizeUsername(*body.Username)

	renewed, err := h.Sessions.Renew(r.Context(), *body.Token, username)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidUsername):
		authsdk.ErrInvalidUsername.WriteError(w)
		return
	case errors.Is(err, service.ErrMalformedToken):
		authsdk.ErrInvalidToken.WriteError(w)
		return
	case errors.Is(err, service.ErrInvalidClaims):
		authsdk.ErrInvalidClaims.WriteError(w)
		return
	case errors.Is(err, service.ErrSubjectMismatch):
		authsdk.ErrSubjectMismatch.WriteError(w)
		return
	case errors.Is(err, service.ErrTokenRejected):
		authsdk.ErrRenewalFailed.WriteError(w)
		return
	default:
		writeInternalError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.RenewResponse{
		Message: "JWT successfully renewed",
		Token:   renewed,
	})
}
