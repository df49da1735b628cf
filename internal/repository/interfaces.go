package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/haya-auth/haya/internal/domain"
)

var (
	ErrClientNotFound = errors.New("client not found")

	// ErrGrantNotFound is returned when a grant record is absent, which at
	// redemption time is indistinguishable from "already revoked".
	ErrGrantNotFound = errors.New("grant not found")
)

// ClientRepository defines read access to registered client policy. The core
// re-fetches per request and never caches.
type ClientRepository interface {
	GetByClientID(ctx context.Context, clientID uuid.UUID) (*domain.Client, error)
}

// AuthorizationCodeStore persists the revocation ledger for issued
// authorization codes, keyed by the jwt_id embedded in the signed code.
//
// Revoke must be an atomic conditional delete: for concurrent revocations of
// the same jwt_id exactly one succeeds and the rest get ErrGrantNotFound.
type AuthorizationCodeStore interface {
	Save(ctx context.Context, grant *domain.AuthorizationCodeGrant) error
	Get(ctx context.Context, jwtID uuid.UUID) (*domain.AuthorizationCodeGrant, error)
	Revoke(ctx context.Context, jwtID uuid.UUID) error
}

// TokenStore persists the revocation ledger for issued access or refresh
// tokens. Access and refresh tokens live in separate namespaces; a store
// instance serves exactly one of them. Revoke has the same atomicity contract
// as AuthorizationCodeStore.Revoke.
type TokenStore interface {
	Save(ctx context.Context, grant *domain.TokenGrant) error
	Get(ctx context.Context, jwtID uuid.UUID) (*domain.TokenGrant, error)
	Revoke(ctx context.Context, jwtID uuid.UUID) error
}
