// Package service implements the token lifecycle engine: password
// authentication, token issuance, renewal and verification.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bincyber/beesly/internal/beesly/backend"
	"github.com/bincyber/beesly/internal/beesly/domain"
	"github.com/bincyber/beesly/pkg/cryptox"
	"github.com/bincyber/beesly/pkg/jwtx"
	"github.com/bincyber/beesly/pkg/metrix"
	"github.com/bincyber/beesly/pkg/slogx"
)

// Sentinel errors for the caller to map onto response codes. Anything
// else coming out of the service is an internal failure.
var (
	// ErrInvalidUsername rejects a username before any backend call.
	ErrInvalidUsername = errors.New("service: invalid username")

	// ErrBadCredentials means the backend rejected the password.
	ErrBadCredentials = errors.New("service: bad credentials")

	// ErrMalformedToken means the token could not be decoded at all.
	ErrMalformedToken = errors.New("service: malformed token")

	// ErrInvalidClaims means the token decodes but lacks the claims
	// needed to re-derive its signing secret.
	ErrInvalidClaims = errors.New("service: invalid claims")

	// ErrSubjectMismatch means the token's subject is not the username
	// the renewal caller asserted.
	ErrSubjectMismatch = errors.New("service: subject mismatch")

	// ErrTokenRejected means signature or expiry verification failed.
	ErrTokenRejected = errors.New("service: token rejected")
)

// Session is the outcome of a successful authentication.
type Session struct {
	Username string
	Groups   []string

	// Token is empty when token issuance is disabled.
	Token string
}

// SessionService drives the whole token lifecycle. Tokens are stateless:
// each carries a salt, and its signing secret is re-derived from the
// master key, the salt and the subject on every operation. Nothing is
// stored server side, so a master key rotation invalidates every
// outstanding token at once.
type SessionService struct {
	Backend backend.CredentialBackend
	Groups  backend.GroupResolver
	Metrics metrix.Emitter

	// Issuer is stamped into and required of every token.
	Issuer string

	Algorithm jwtx.Algorithm

	// MasterKey of nil or empty disables issuance and renewal;
	// verification of previously issued tokens still fails cleanly.
	MasterKey []byte

	// Validity is the lifetime of issued and renewed tokens.
	Validity time.Duration
}

// TokensEnabled reports whether the service can sign tokens.
func (s *SessionService) TokensEnabled() bool {
	return len(s.MasterKey) > 0
}

// Authenticate validates the username, checks the password against the
// backend and, when issuance is enabled, mints a session token carrying
// the subject's groups.
func (s *SessionService) Authenticate(ctx context.Context, username, password string) (Session, error) {
	log := slogx.FromContext(ctx)

	if !domain.ValidateUsername(username) {
		log.Warn("Invalid username provided", "username", domain.SanitizeUsername(username))
		return Session{}, ErrInvalidUsername
	}

	started := time.Now()
	ok, err := s.Backend.Authenticate(ctx, username, password)
	s.Metrics.Timing("pam_auth", time.Since(started))
	if err != nil {
		return Session{}, fmt.Errorf("authenticate %q: %w", username, err)
	}
	if !ok {
		s.Metrics.Incr("auth_failed")
		log.Info("authentication failed", "username", username)
		return Session{}, ErrBadCredentials
	}

	s.Metrics.Incr("auth_success")
	log.Info("authentication succeeded", "username", username)

	groups, err := s.Groups.Groups(ctx, username)
	if err != nil {
		return Session{}, fmt.Errorf("resolve groups for %q: %w", username, err)
	}

	session := Session{Username: username, Groups: groups}

	if s.TokensEnabled() {
		token, err := s.issue(username, groups)
		if err != nil {
			return Session{}, err
		}
		session.Token = token
		s.Metrics.Incr("jwt_generated")
	}

	return session, nil
}

func (s *SessionService) issue(username string, groups []string) (string, error) {
	salt := cryptox.NewTokenSalt()
	secret, err := cryptox.DeriveTokenSecret(s.MasterKey, salt, username)
	if err != nil {
		return "", fmt.Errorf("derive secret for %q: %w", username, err)
	}

	claims := jwtx.NewSessionClaims(s.Issuer, username, groups, s.Validity, salt, time.Now())
	token, err := jwtx.Encode(claims, secret, s.Algorithm)
	if err != nil {
		return "", fmt.Errorf("sign token for %q: %w", username, err)
	}
	return token, nil
}

// Renew exchanges a still-valid token for a fresh one with a new window
// and a new salt. The caller must assert the username the token was
// issued to; the renewed payload itself travels unchanged, with subject,
// issuer and groups taken from the verified old token, never from the
// caller.
//
// The claims are checked for completeness before the subject comparison
// so a token missing its subject reports ErrInvalidClaims rather than a
// mismatch.
func (s *SessionService) Renew(ctx context.Context, token, username string) (string, error) {
	if !domain.ValidateUsername(username) {
		return "", ErrInvalidUsername
	}

	unverified, err := jwtx.DecodeUnverified(token)
	if err != nil {
		return "", ErrMalformedToken
	}
	if !unverified.HasDerivationInputs() {
		return "", ErrInvalidClaims
	}
	if unverified.Subject != username {
		return "", ErrSubjectMismatch
	}

	claims, err := s.verifyAgainstDerivedSecret(token, unverified)
	if err != nil {
		return "", err
	}

	salt := cryptox.NewTokenSalt()
	secret, err := cryptox.DeriveTokenSecret(s.MasterKey, salt, claims.Subject)
	if err != nil {
		return "", fmt.Errorf("derive secret for %q: %w", claims.Subject, err)
	}

	claims.Refresh(s.Validity, salt, time.Now())
	renewed, err := jwtx.Encode(claims, secret, s.Algorithm)
	if err != nil {
		return "", fmt.Errorf("sign renewed token for %q: %w", claims.Subject, err)
	}

	s.Metrics.Incr("jwt_renewed")
	slogx.FromContext(ctx).Info("token renewed", "username", claims.Subject)

	return renewed, nil
}

// Verify checks that the token is intact, unexpired and issued by this
// service. No username is asserted: the token alone is the claim.
func (s *SessionService) Verify(ctx context.Context, token string) error {
	unverified, err := jwtx.DecodeUnverified(token)
	if err != nil {
		return ErrMalformedToken
	}
	if !unverified.HasDerivationInputs() {
		return ErrInvalidClaims
	}

	if _, err := s.verifyAgainstDerivedSecret(token, unverified); err != nil {
		return err
	}

	s.Metrics.Incr("jwt_verified")
	slogx.FromContext(ctx).Info("token verified", "username", unverified.Subject)

	return nil
}

// verifyAgainstDerivedSecret re-derives the signing secret from the
// unverified claims and runs the verified decode against it.
func (s *SessionService) verifyAgainstDerivedSecret(token string, unverified jwtx.Claims) (jwtx.Claims, error) {
	secret, err := cryptox.DeriveTokenSecret(s.MasterKey, unverified.Salt, unverified.Subject)
	if err != nil {
		// No master key: every token fails verification, none leak why.
		return jwtx.Claims{}, ErrTokenRejected
	}

	claims, err := jwtx.DecodeVerified(token, secret, s.Algorithm, s.Issuer)
	if err != nil {
		return jwtx.Claims{}, ErrTokenRejected
	}
	return claims, nil
}
