package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthorizationCodeClaims is the signed payload embedded in an authorization
// code. The JwtID doubles as the grant store lookup key.
type AuthorizationCodeClaims struct {
	JwtID          uuid.UUID `json:"jti"`
	Subject        uuid.UUID `json:"sub"`
	IssuedAtTime   int64     `json:"iat"`
	ExpirationTime int64     `json:"exp"`
	NotBefore      int64     `json:"nbf"`
	Audience       uuid.UUID `json:"aud"`
	Scope          string    `json:"scope"`
	RedirectURI    string    `json:"redirect_uri"`
}

// Validate checks the mint-time invariants of an authorization code:
// not_before < issued_at < expiration.
func (c AuthorizationCodeClaims) Validate() error {
	if c.JwtID == uuid.Nil {
		return errors.New("jwt_id is required")
	}
	if c.Audience == uuid.Nil {
		return errors.New("audience is required")
	}
	if c.RedirectURI == "" {
		return errors.New("redirect_uri is required")
	}
	if c.NotBefore >= c.IssuedAtTime || c.IssuedAtTime >= c.ExpirationTime {
		return errors.New("claims must satisfy not_before < issued_at < expiration")
	}
	return nil
}

func (c AuthorizationCodeClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.ExpirationTime, 0)), nil
}

func (c AuthorizationCodeClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.IssuedAtTime, 0)), nil
}

func (c AuthorizationCodeClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.NotBefore, 0)), nil
}

func (c AuthorizationCodeClaims) GetIssuer() (string, error) {
	return "", nil
}

func (c AuthorizationCodeClaims) GetSubject() (string, error) {
	return c.Subject.String(), nil
}

func (c AuthorizationCodeClaims) GetAudience() (jwt.ClaimStrings, error) {
	return jwt.ClaimStrings{c.Audience.String()}, nil
}

// StandardTokenClaims is the shared payload of access and refresh tokens.
// TokenType discriminates the two; callers must check it before accepting a
// token for a given purpose.
type StandardTokenClaims struct {
	JwtID          uuid.UUID `json:"jti"`
	Subject        uuid.UUID `json:"sub"`
	IssuedAtTime   int64     `json:"iat"`
	ExpirationTime int64     `json:"exp"`
	NotBefore      int64     `json:"nbf"`
	Audience       uuid.UUID `json:"aud"`
	Scope          string    `json:"scope"`
	TokenType      string    `json:"token_type"`
}

// Validate checks the mint-time invariants of a standard token. A refresh
// token's not_before is deliberately set close to its paired access token's
// expiry, so only expiration ordering is enforced here.
func (c StandardTokenClaims) Validate() error {
	if c.JwtID == uuid.Nil {
		return errors.New("jwt_id is required")
	}
	if c.Audience == uuid.Nil {
		return errors.New("audience is required")
	}
	if c.TokenType == "" {
		return errors.New("token_type is required")
	}
	if c.IssuedAtTime >= c.ExpirationTime || c.NotBefore >= c.ExpirationTime {
		return errors.New("claims must expire after issuance and not_before")
	}
	return nil
}

func (c StandardTokenClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.ExpirationTime, 0)), nil
}

func (c StandardTokenClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.IssuedAtTime, 0)), nil
}

func (c StandardTokenClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.NotBefore, 0)), nil
}

func (c StandardTokenClaims) GetIssuer() (string, error) {
	return "", nil
}

func (c StandardTokenClaims) GetSubject() (string, error) {
	return c.Subject.String(), nil
}

func (c StandardTokenClaims) GetAudience() (jwt.ClaimStrings, error) {
	return jwt.ClaimStrings{c.Audience.String()}, nil
}
