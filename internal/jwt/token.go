package jwt

import (
	"crypto/ecdsa"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the single error returned for any malformed, truncated,
// or signature-mismatched token. Which part failed is never exposed.
var ErrInvalidToken = errors.New("invalid token")

// Codec encodes and decodes the signed claim sets used by the authorization
// server. Signing uses ES256 so verification only needs the public key.
//
// Decode verifies the signature and the algorithm but deliberately does not
// interpret expiry or not_before; each caller enforces its own time policy.
type Codec struct {
	privateKey *ecdsa.PrivateKey
	publicKey  *ecdsa.PublicKey
}

// NewCodec creates a Codec from an ECDSA key pair.
func NewCodec(privateKey *ecdsa.PrivateKey, publicKey *ecdsa.PublicKey) (*Codec, error) {
	if privateKey == nil {
		return nil, errors.New("private key is required")
	}
	if publicKey == nil {
		return nil, errors.New("public key is required")
	}
	return &Codec{
		privateKey: privateKey,
		publicKey:  publicKey,
	}, nil
}

// EncodeAuthorizationCode signs authorization code claims into a compact token.
func (c *Codec) EncodeAuthorizationCode(claims AuthorizationCodeClaims) (string, error) {
	if err := claims.Validate(); err != nil {
		return "", err
	}
	return c.sign(claims)
}

// EncodeStandardToken signs access or refresh token claims into a compact token.
func (c *Codec) EncodeStandardToken(claims StandardTokenClaims) (string, error) {
	if err := claims.Validate(); err != nil {
		return "", err
	}
	return c.sign(claims)
}

// DecodeAuthorizationCode verifies the signature of an authorization code and
// returns its claims. Expiry is the caller's responsibility.
func (c *Codec) DecodeAuthorizationCode(tokenString string) (*AuthorizationCodeClaims, error) {
	claims := &AuthorizationCodeClaims{}
	if err := c.verify(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// DecodeStandardToken verifies the signature of an access or refresh token and
// returns its claims. Expiry and token_type are the caller's responsibility.
func (c *Codec) DecodeStandardToken(tokenString string) (*StandardTokenClaims, error) {
	claims := &StandardTokenClaims{}
	if err := c.verify(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (c *Codec) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	tokenString, err := token.SignedString(c.privateKey)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

func (c *Codec) verify(tokenString string, claims jwt.Claims) error {
	if tokenString == "" {
		return ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
				return nil, ErrInvalidToken
			}
			return c.publicKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}

	return nil
}
