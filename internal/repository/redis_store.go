package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/haya-auth/haya/internal/domain"
)

// Key prefixes keep the three grant namespaces disjoint.
const (
	redisAuthorizationCodePrefix = "oauth:code:"
	redisAccessTokenPrefix       = "oauth:access:"
	redisRefreshTokenPrefix      = "oauth:refresh:"
)

type redisAuthorizationCodeStore struct {
	client *redis.Client
}

// NewRedisAuthorizationCodeStore creates a Redis-based AuthorizationCodeStore.
// Records expire with the code itself, so the ledger cleans up after the
// grant can no longer be redeemed anyway.
func NewRedisAuthorizationCodeStore(client *redis.Client) AuthorizationCodeStore {
	return &redisAuthorizationCodeStore{client: client}
}

func (s *redisAuthorizationCodeStore) Save(ctx context.Context, grant *domain.AuthorizationCodeGrant) error {
	payload, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("failed to marshal authorization code grant: %w", err)
	}

	key := redisAuthorizationCodePrefix + grant.JwtID.String()
	if err := s.client.Set(ctx, key, payload, time.Until(grant.ExpiresAt)).Err(); err != nil {
		return fmt.Errorf("failed to save authorization code grant: %w", err)
	}

	return nil
}

func (s *redisAuthorizationCodeStore) Get(ctx context.Context, jwtID uuid.UUID) (*domain.AuthorizationCodeGrant, error) {
	val, err := s.client.Get(ctx, redisAuthorizationCodePrefix+jwtID.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrGrantNotFound
		}
		return nil, err
	}

	grant := &domain.AuthorizationCodeGrant{}
	if err := json.Unmarshal([]byte(val), grant); err != nil {
		return nil, fmt.Errorf("failed to unmarshal authorization code grant: %w", err)
	}

	return grant, nil
}

// Revoke deletes the record. DEL reports how many keys it removed, which makes
// it the atomic serialization point for concurrent redemptions.
func (s *redisAuthorizationCodeStore) Revoke(ctx context.Context, jwtID uuid.UUID) error {
	deleted, err := s.client.Del(ctx, redisAuthorizationCodePrefix+jwtID.String()).Result()
	if err != nil {
		return fmt.Errorf("failed to revoke authorization code grant: %w", err)
	}

	if deleted == 0 {
		return ErrGrantNotFound
	}

	return nil
}

type redisTokenStore struct {
	client *redis.Client
	prefix string
}

// NewRedisAccessTokenStore creates a Redis-based TokenStore for access tokens.
func NewRedisAccessTokenStore(client *redis.Client) TokenStore {
	return &redisTokenStore{client: client, prefix: redisAccessTokenPrefix}
}

// NewRedisRefreshTokenStore creates a Redis-based TokenStore for refresh tokens.
func NewRedisRefreshTokenStore(client *redis.Client) TokenStore {
	return &redisTokenStore{client: client, prefix: redisRefreshTokenPrefix}
}

func (s *redisTokenStore) Save(ctx context.Context, grant *domain.TokenGrant) error {
	payload, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("failed to marshal token grant: %w", err)
	}

	key := s.prefix + grant.JwtID.String()
	if err := s.client.Set(ctx, key, payload, time.Until(grant.ExpiresAt)).Err(); err != nil {
		return fmt.Errorf("failed to save token grant: %w", err)
	}

	return nil
}

func (s *redisTokenStore) Get(ctx context.Context, jwtID uuid.UUID) (*domain.TokenGrant, error) {
	val, err := s.client.Get(ctx, s.prefix+jwtID.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrGrantNotFound
		}
		return nil, err
	}

	grant := &domain.TokenGrant{}
	if err := json.Unmarshal([]byte(val), grant); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token grant: %w", err)
	}

	return grant, nil
}

func (s *redisTokenStore) Revoke(ctx context.Context, jwtID uuid.UUID) error {
	deleted, err := s.client.Del(ctx, s.prefix+jwtID.String()).Result()
	if err != nil {
		return fmt.Errorf("failed to revoke token grant: %w", err)
	}

	if deleted == 0 {
		return ErrGrantNotFound
	}

	return nil
}
