// Package pkce implements Proof Key for Code Exchange verification
// (RFC 7636) for the token endpoint.
package pkce

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// Code challenge methods defined by RFC 7636.
const (
	MethodPlain = "plain"
	MethodS256  = "S256"
)

// ChallengeS256 derives the S256 code challenge for a verifier: the
// base64url encoding, without padding, of its SHA-256 digest.
func ChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Verify checks a code_verifier against the stored code_challenge. An unknown
// method fails closed; it is never treated as "skip the check".
func Verify(method, verifier, challenge string) bool {
	if verifier == "" || challenge == "" {
		return false
	}

	switch method {
	case MethodPlain:
		return subtle.ConstantTimeCompare([]byte(verifier), []byte(challenge)) == 1
	case MethodS256:
		computed := ChallengeS256(verifier)
		return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
	default:
		return false
	}
}
