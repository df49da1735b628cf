package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/haya-auth/haya/internal/domain"
	"github.com/haya-auth/haya/internal/jwt"
	"github.com/haya-auth/haya/internal/repository"
)

const testClientSecret = "test-client-secret"

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestCodec(t *testing.T) *jwt.Codec {
	t.Helper()

	privateKey, publicKey, err := jwt.GenerateKeyPair()
	if err != nil {
		t.Fatalf("failed to generate test key pair: %v", err)
	}

	codec, err := jwt.NewCodec(privateKey, publicKey)
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}

	return codec
}

func newTestClient(t *testing.T) *domain.Client {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testClientSecret), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash test secret: %v", err)
	}

	return &domain.Client{
		ClientID:         uuid.New(),
		ClientSecretHash: string(hash),
		Owner:            "test-owner",
		Grants:           []string{domain.GrantTypeAuthorizationCode, domain.GrantTypeRefreshToken},
		ResponseTypes:    []string{"code"},
		Scopes:           []string{"read", "write"},
		RedirectURIs:     []string{"https://app.example/cb"},
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
}

// fakeClientRepo serves fixed clients from memory.
type fakeClientRepo struct {
	clients map[uuid.UUID]*domain.Client
	err     error
}

func newFakeClientRepo(clients ...*domain.Client) *fakeClientRepo {
	repo := &fakeClientRepo{clients: make(map[uuid.UUID]*domain.Client)}
	for _, c := range clients {
		repo.clients[c.ClientID] = c
	}
	return repo
}

func (f *fakeClientRepo) GetByClientID(_ context.Context, clientID uuid.UUID) (*domain.Client, error) {
	if f.err != nil {
		return nil, f.err
	}
	client, ok := f.clients[clientID]
	if !ok {
		return nil, repository.ErrClientNotFound
	}
	return client, nil
}

// memCodeStore is an in-memory AuthorizationCodeStore with the same
// revocation semantics as the real backends.
type memCodeStore struct {
	mu        sync.Mutex
	grants    map[uuid.UUID]*domain.AuthorizationCodeGrant
	saveErr   error
	revokeErr error
}

func newMemCodeStore() *memCodeStore {
	return &memCodeStore{grants: make(map[uuid.UUID]*domain.AuthorizationCodeGrant)}
}

func (s *memCodeStore) Save(_ context.Context, grant *domain.AuthorizationCodeGrant) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[grant.JwtID] = grant
	return nil
}

func (s *memCodeStore) Get(_ context.Context, jwtID uuid.UUID) (*domain.AuthorizationCodeGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.grants[jwtID]
	if !ok {
		return nil, repository.ErrGrantNotFound
	}
	return grant, nil
}

func (s *memCodeStore) Revoke(_ context.Context, jwtID uuid.UUID) error {
	if s.revokeErr != nil {
		return s.revokeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.grants[jwtID]; !ok {
		return repository.ErrGrantNotFound
	}
	delete(s.grants, jwtID)
	return nil
}

// memTokenStore is an in-memory TokenStore.
type memTokenStore struct {
	mu      sync.Mutex
	grants  map[uuid.UUID]*domain.TokenGrant
	saveErr error
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{grants: make(map[uuid.UUID]*domain.TokenGrant)}
}

func (s *memTokenStore) Save(_ context.Context, grant *domain.TokenGrant) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[grant.JwtID] = grant
	return nil
}

func (s *memTokenStore) Get(_ context.Context, jwtID uuid.UUID) (*domain.TokenGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.grants[jwtID]
	if !ok {
		return nil, repository.ErrGrantNotFound
	}
	return grant, nil
}

func (s *memTokenStore) Revoke(_ context.Context, jwtID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.grants[jwtID]; !ok {
		return repository.ErrGrantNotFound
	}
	delete(s.grants, jwtID)
	return nil
}

func (s *memTokenStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.grants)
}
