package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Algorithm is a closed enumeration of the HMAC signing algorithms this
// service will accept. Anything else is rejected at configuration time.
type Algorithm string

const (
	AlgHS256 Algorithm = "HS256"
	AlgHS384 Algorithm = "HS384"
	AlgHS512 Algorithm = "HS512"
)

// ParseAlgorithm validates s against the allow-list.
func ParseAlgorithm(s string) (Algorithm, bool) {
	switch Algorithm(s) {
	case AlgHS256, AlgHS384, AlgHS512:
		return Algorithm(s), true
	}
	return "", false
}

func (a Algorithm) method() *jwt.SigningMethodHMAC {
	switch a {
	case AlgHS384:
		return jwt.SigningMethodHS384
	case AlgHS512:
		return jwt.SigningMethodHS512
	default:
		return jwt.SigningMethodHS256
	}
}

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrExpired    = errors.New("jwtx: token expired")
	ErrIssuer     = errors.New("jwtx: issuer mismatch")
)

// Encode serializes and signs the claims with the given textual secret.
func Encode(c Claims, secret string, alg Algorithm) (string, error) {
	token := jwt.NewWithClaims(alg.method(), c)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}

// DecodeUnverified extracts the claims without checking the signature. Its
// only legitimate use is reading the salt and subject needed to re-derive
// the signing secret before a verified decode; never trust its output.
func DecodeUnverified(token string) (Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, ErrMalformed
	}
	return claims, nil
}

// DecodeVerified checks the signature, expiry and issuer, returning the
// verified claims. Failures map to ErrMalformed, ErrInvalidSig, ErrExpired
// or ErrIssuer so callers can collapse them as they see fit.
func DecodeVerified(token, secret string, alg Algorithm, issuer string) (Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{string(alg)}))

	var claims Claims
	parsed, err := parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrMalformed
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		default:
			return Claims{}, ErrInvalidSig
		}
	}
	if !parsed.Valid {
		return Claims{}, ErrInvalidSig
	}

	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, ErrIssuer
	}

	return claims, nil
}
