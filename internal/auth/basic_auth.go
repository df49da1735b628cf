package auth

import (
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmptyHeader        = errors.New("authorization header is empty")
	ErrInvalidScheme      = errors.New("invalid authorization scheme, expected 'Basic'")
	ErrInvalidBase64      = errors.New("invalid base64 encoding")
	ErrInvalidCredentials = errors.New("invalid credentials format")
	ErrEmptyClientID      = errors.New("client_id cannot be empty")
	ErrSecretMismatch     = errors.New("client secret does not match")
)

// Credentials are the client credentials carried by a token request's
// HTTP Basic Authorization header.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// ParseBasicAuth parses a Basic Authentication header of the form
// "Basic base64(client_id:client_secret)".
func ParseBasicAuth(header string) (Credentials, error) {
	if header == "" {
		return Credentials{}, ErrEmptyHeader
	}

	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return Credentials{}, ErrInvalidScheme
	}

	encoded := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if encoded == "" {
		return Credentials{}, ErrInvalidBase64
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Credentials{}, ErrInvalidBase64
	}

	// Split on the first colon only; the secret may contain colons.
	clientID, clientSecret, found := strings.Cut(string(decoded), ":")
	if !found {
		return Credentials{}, ErrInvalidCredentials
	}

	if clientID == "" {
		return Credentials{}, ErrEmptyClientID
	}

	return Credentials{
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}, nil
}

// VerifyClientSecret compares a presented client secret against the stored
// bcrypt hash. bcrypt's comparison is constant time.
func VerifyClientSecret(secretHash, secret string) error {
	if secretHash == "" || secret == "" {
		return ErrSecretMismatch
	}

	if err := bcrypt.CompareHashAndPassword([]byte(secretHash), []byte(secret)); err != nil {
		return ErrSecretMismatch
	}

	return nil
}

// HashClientSecret hashes a client secret for storage.
func HashClientSecret(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("secret cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}
