package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/haya-auth/haya/internal/domain"
)

type pgClientRepository struct {
	pool *pgxpool.Pool
}

// NewClientRepository creates a new PostgreSQL-based ClientRepository.
func NewClientRepository(pool *pgxpool.Pool) ClientRepository {
	return &pgClientRepository{pool: pool}
}

// GetByClientID retrieves a client's policy snapshot by its client_id.
func (r *pgClientRepository) GetByClientID(ctx context.Context, clientID uuid.UUID) (*domain.Client, error) {
	query := `
		SELECT
			client_id, client_secret_hash, owner, audience,
			grants, response_types, scopes, redirect_uris,
			created_at, updated_at
		FROM oauth_clients
		WHERE client_id = $1
	`

	client := &domain.Client{}
	err := r.pool.QueryRow(ctx, query, clientID).Scan(
		&client.ClientID,
		&client.ClientSecretHash,
		&client.Owner,
		&client.Audience,
		&client.Grants,
		&client.ResponseTypes,
		&client.Scopes,
		&client.RedirectURIs,
		&client.CreatedAt,
		&client.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}

	return client, nil
}
