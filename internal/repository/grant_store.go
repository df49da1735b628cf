package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/haya-auth/haya/internal/domain"
)

type pgAuthorizationCodeStore struct {
	pool *pgxpool.Pool
}

// NewAuthorizationCodeStore creates a PostgreSQL-based AuthorizationCodeStore.
func NewAuthorizationCodeStore(pool *pgxpool.Pool) AuthorizationCodeStore {
	return &pgAuthorizationCodeStore{pool: pool}
}

func (s *pgAuthorizationCodeStore) Save(ctx context.Context, grant *domain.AuthorizationCodeGrant) error {
	query := `
		INSERT INTO oauth_authorization_codes (
			jwt_id, client_id, request_id, subject,
			requested_scope, granted_scope, requested_audience, granted_audience,
			code_challenge, code_challenge_method, redirect_uri,
			requested_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.pool.Exec(
		ctx,
		query,
		grant.JwtID,
		grant.ClientID,
		grant.RequestID,
		grant.Subject,
		grant.RequestedScope,
		grant.GrantedScope,
		grant.RequestedAudience,
		grant.GrantedAudience,
		grant.CodeChallenge,
		grant.CodeChallengeMethod,
		grant.RedirectURI,
		grant.RequestedAt,
		grant.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save authorization code grant: %w", err)
	}

	return nil
}

func (s *pgAuthorizationCodeStore) Get(ctx context.Context, jwtID uuid.UUID) (*domain.AuthorizationCodeGrant, error) {
	query := `
		SELECT
			jwt_id, client_id, request_id, subject,
			requested_scope, granted_scope, requested_audience, granted_audience,
			code_challenge, code_challenge_method, redirect_uri,
			requested_at, expires_at
		FROM oauth_authorization_codes
		WHERE jwt_id = $1
	`

	grant := &domain.AuthorizationCodeGrant{}
	err := s.pool.QueryRow(ctx, query, jwtID).Scan(
		&grant.JwtID,
		&grant.ClientID,
		&grant.RequestID,
		&grant.Subject,
		&grant.RequestedScope,
		&grant.GrantedScope,
		&grant.RequestedAudience,
		&grant.GrantedAudience,
		&grant.CodeChallenge,
		&grant.CodeChallengeMethod,
		&grant.RedirectURI,
		&grant.RequestedAt,
		&grant.ExpiresAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGrantNotFound
		}
		return nil, err
	}

	return grant, nil
}

// Revoke deletes the grant record. The conditional DELETE is the single
// serialization point for concurrent redemptions of the same code: only one
// caller observes a deleted row.
func (s *pgAuthorizationCodeStore) Revoke(ctx context.Context, jwtID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM oauth_authorization_codes WHERE jwt_id = $1`, jwtID)
	if err != nil {
		return fmt.Errorf("failed to revoke authorization code grant: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrGrantNotFound
	}

	return nil
}

type pgTokenStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewAccessTokenStore creates a PostgreSQL-based TokenStore for access tokens.
func NewAccessTokenStore(pool *pgxpool.Pool) TokenStore {
	return &pgTokenStore{pool: pool, table: "oauth_access_tokens"}
}

// NewRefreshTokenStore creates a PostgreSQL-based TokenStore for refresh tokens.
func NewRefreshTokenStore(pool *pgxpool.Pool) TokenStore {
	return &pgTokenStore{pool: pool, table: "oauth_refresh_tokens"}
}

func (s *pgTokenStore) Save(ctx context.Context, grant *domain.TokenGrant) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			jwt_id, client_id, request_id, subject,
			scope, token_type, requested_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.table)

	_, err := s.pool.Exec(
		ctx,
		query,
		grant.JwtID,
		grant.ClientID,
		grant.RequestID,
		grant.Subject,
		grant.Scope,
		grant.TokenType,
		grant.RequestedAt,
		grant.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save token grant: %w", err)
	}

	return nil
}

func (s *pgTokenStore) Get(ctx context.Context, jwtID uuid.UUID) (*domain.TokenGrant, error) {
	query := fmt.Sprintf(`
		SELECT
			jwt_id, client_id, request_id, subject,
			scope, token_type, requested_at, expires_at
		FROM %s
		WHERE jwt_id = $1
	`, s.table)

	grant := &domain.TokenGrant{}
	err := s.pool.QueryRow(ctx, query, jwtID).Scan(
		&grant.JwtID,
		&grant.ClientID,
		&grant.RequestID,
		&grant.Subject,
		&grant.Scope,
		&grant.TokenType,
		&grant.RequestedAt,
		&grant.ExpiresAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGrantNotFound
		}
		return nil, err
	}

	return grant, nil
}

func (s *pgTokenStore) Revoke(ctx context.Context, jwtID uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE jwt_id = $1`, s.table)

	tag, err := s.pool.Exec(ctx, query, jwtID)
	if err != nil {
		return fmt.Errorf("failed to revoke token grant: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrGrantNotFound
	}

	return nil
}
