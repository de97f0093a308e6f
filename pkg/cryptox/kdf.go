package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"hash"

	"golang.org/x/crypto/blake2b"
)

// TokenSaltSize is the number of random bytes in a per-token salt.
// 96 bits keeps the birthday-bound collision probability negligible
// for any realistic issuance volume.
const TokenSaltSize = 12

// ErrEmptyMasterKey reports a key derivation attempt without a master key.
var ErrEmptyMasterKey = errors.New("cryptox: master key is empty")

// NewTokenSalt returns a fresh per-token salt, URL-safe base64 encoded so it
// can be carried as a claim. The encoded form is what feeds the KDF: the raw
// bytes are never needed again once encoded.
func NewTokenSalt() string {
	var b [TokenSaltSize]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// DeriveTokenSecret derives the signing secret for a single token from the
// process-wide master key, the token's salt and its subject.
//
// BLAKE2b is keyed with the master key; the salt and subject act as the
// salt/personalization inputs so that no two tokens ever share a signing
// secret, even for the same subject under the same master key. Go's BLAKE2b
// API exposes no native salt/person parameters, so both are folded into the
// keyed hash with length framing to keep the mapping unambiguous.
//
// The secret is hex-encoded because the signing primitive takes a textual key.
// Deterministic and total for any non-empty master key of up to 64 bytes.
func DeriveTokenSecret(masterKey []byte, salt, subject string) (string, error) {
	if len(masterKey) == 0 {
		return "", ErrEmptyMasterKey
	}

	h, err := blake2b.New512(masterKey)
	if err != nil {
		return "", err
	}

	writeFrame(h, []byte(salt))
	writeFrame(h, []byte(subject))

	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeFrame writes a length-prefixed chunk so (salt, subject) pairs like
// ("ab", "c") and ("a", "bc") can never collide.
func writeFrame(h hash.Hash, p []byte) {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(p)))
	_, _ = h.Write(n[:])
	_, _ = h.Write(p)
}
