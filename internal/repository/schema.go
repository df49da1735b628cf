package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the grant and client tables if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	schema := `
	CREATE TABLE IF NOT EXISTS oauth_clients (
		client_id UUID PRIMARY KEY,
		client_secret_hash TEXT NOT NULL,
		owner TEXT NOT NULL DEFAULT '',
		audience TEXT NOT NULL DEFAULT '',
		grants TEXT[] NOT NULL,
		response_types TEXT[] NOT NULL,
		scopes TEXT[] NOT NULL,
		redirect_uris TEXT[] NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS oauth_authorization_codes (
		jwt_id UUID PRIMARY KEY,
		client_id UUID NOT NULL,
		request_id UUID NOT NULL,
		subject UUID NOT NULL,
		requested_scope TEXT NOT NULL,
		granted_scope TEXT NOT NULL DEFAULT '',
		requested_audience TEXT NOT NULL DEFAULT '',
		granted_audience TEXT NOT NULL DEFAULT '',
		code_challenge TEXT NOT NULL,
		code_challenge_method TEXT NOT NULL,
		redirect_uri TEXT NOT NULL,
		requested_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS oauth_access_tokens (
		jwt_id UUID PRIMARY KEY,
		client_id UUID NOT NULL,
		request_id UUID NOT NULL,
		subject UUID NOT NULL,
		scope TEXT NOT NULL,
		token_type TEXT NOT NULL,
		requested_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS oauth_refresh_tokens (
		jwt_id UUID PRIMARY KEY,
		client_id UUID NOT NULL,
		request_id UUID NOT NULL,
		subject UUID NOT NULL,
		scope TEXT NOT NULL,
		token_type TEXT NOT NULL,
		requested_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	);
	`

	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}
