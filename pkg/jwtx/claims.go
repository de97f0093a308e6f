package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the session-token payload: the registered claim set plus the
// authenticated user's group memberships and the per-token key-derivation
// salt. The salt travels as claim "x" so that verification can reconstruct
// the signing secret without any server-side token state.
type Claims struct {
	jwt.RegisteredClaims

	// Groups the subject belonged to at authentication time. Carried over
	// unchanged on renewal, never re-resolved.
	Groups []string `json:"groups"`

	// Salt is the URL-safe encoded per-token salt (claim "x") mixed into
	// key derivation. Readable by anyone holding the token; useless
	// without the master key.
	Salt string `json:"x"`
}

// NewSessionClaims builds the claim set for a freshly issued token.
func NewSessionClaims(
	issuer, subject string,
	groups []string,
	validity time.Duration,
	salt string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		Groups: groups,
		Salt:   salt,
	}
}

// Refresh overwrites the issuance window and salt in place, preserving the
// subject, issuer and groups of the verified payload it is called on.
func (c *Claims) Refresh(validity time.Duration, salt string, now time.Time) {
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(validity))
	c.Salt = salt
}

// HasDerivationInputs reports whether the claims carry everything needed to
// re-derive the signing secret.
func (c *Claims) HasDerivationInputs() bool {
	return c.Subject != "" && c.Salt != ""
}
