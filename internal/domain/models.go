package domain

import (
	"time"

	"github.com/google/uuid"
)

// OAuth 2.0 grant type and token type identifiers used across the core.
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"

	TokenTypeAccessToken  = "access_token"
	TokenTypeRefreshToken = "refresh_token"
)

// Client is the authorization policy snapshot for a registered OAuth 2.0
// client. It is read from the registry per request and never mutated.
type Client struct {
	ClientID         uuid.UUID `json:"client_id"`
	ClientSecretHash string    `json:"-"`
	Owner            string    `json:"owner"`
	Audience         string    `json:"audience"`
	Grants           []string  `json:"grants"`
	ResponseTypes    []string  `json:"response_types"`
	Scopes           []string  `json:"scopes"`
	RedirectURIs     []string  `json:"redirect_uris"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AuthorizationCodeGrant is the server-side record of an issued authorization
// code. The JwtID is the same value embedded in the signed code, which is what
// makes revocation of the self-contained code effective.
type AuthorizationCodeGrant struct {
	JwtID               uuid.UUID `json:"jwt_id"`
	ClientID            uuid.UUID `json:"client_id"`
	RequestID           uuid.UUID `json:"request_id"`
	Subject             uuid.UUID `json:"subject"`
	RequestedScope      string    `json:"requested_scope"`
	GrantedScope        string    `json:"granted_scope"`
	RequestedAudience   string    `json:"requested_audience"`
	GrantedAudience     string    `json:"granted_audience"`
	CodeChallenge       string    `json:"code_challenge"`
	CodeChallengeMethod string    `json:"code_challenge_method"`
	RedirectURI         string    `json:"redirect_uri"`
	RequestedAt         time.Time `json:"requested_at"`
	ExpiresAt           time.Time `json:"expires_at"`
}

// TokenGrant is the server-side record of an issued access or refresh token,
// kept solely so an otherwise stateless token can be revoked.
type TokenGrant struct {
	JwtID       uuid.UUID `json:"jwt_id"`
	ClientID    uuid.UUID `json:"client_id"`
	RequestID   uuid.UUID `json:"request_id"`
	Subject     uuid.UUID `json:"subject"`
	Scope       string    `json:"scope"`
	TokenType   string    `json:"token_type"`
	RequestedAt time.Time `json:"requested_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}
