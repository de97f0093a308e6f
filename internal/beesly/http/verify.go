package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bincyber/beesly/internal/beesly/service"
	"github.com/bincyber/beesly/pkg/authsdk"
	"github.com/bincyber/beesly/pkg/httpx"
)

// VerifyHandler serves POST /verify: reports whether a presented token
// is intact, unexpired and issued by this service. No username is taken;
// the token alone carries the claim.
type VerifyHandler struct {
	Sessions *service.SessionService
}

func (h *VerifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.Sessions.TokensEnabled() {
		authsdk.ErrVerificationDisabled.WriteError(w)
		return
	}

	var body struct {
		Token *string `json:"jwt"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	if body.Token == nil {
		authsdk.ErrMissingToken.WriteError(w)
		return
	}

	err := h.Sessions.Verify(r.Context(), *body.Token)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrMalformedToken):
		authsdk.ErrInvalidToken.WriteError(w)
		return
	case errors.Is(err, service.ErrInvalidClaims):
		httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.VerifyResponse{
			Message: "Invalid claims in JWT",
			Valid:   false,
		})
		return
	case errors.Is(err, service.ErrTokenRejected):
		httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.VerifyResponse{
			Message: "Failed to verify JWT",
			Valid:   false,
		})
		return
	default:
		writeInternalError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.VerifyResponse{
		Message: "JWT successfully verified",
		Valid:   true,
	})
}
