package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/haya-auth/haya/internal/auth"
	"github.com/haya-auth/haya/internal/domain"
	"github.com/haya-auth/haya/internal/jwt"
	"github.com/haya-auth/haya/internal/pkce"
	"github.com/haya-auth/haya/internal/repository"
)

// TokenRequest carries the form body of a token request plus the client
// credentials from its Basic Authorization header.
type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string

	// authorization_code grant
	Code         string
	State        string
	RedirectURI  string
	CodeVerifier string

	// refresh_token grant
	RefreshToken string
	Scope        string

	// RequestID is the transport-assigned request tag, recorded on minted
	// grants for audit linkage.
	RequestID uuid.UUID
}

// TokenResponse is the JSON body of a successful token exchange.
type TokenResponse struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// TokenCodec signs and verifies the token formats the exchange needs.
type TokenCodec interface {
	DecodeAuthorizationCode(tokenString string) (*jwt.AuthorizationCodeClaims, error)
	DecodeStandardToken(tokenString string) (*jwt.StandardTokenClaims, error)
	EncodeStandardToken(claims jwt.StandardTokenClaims) (string, error)
}

// TokenService redeems authorization codes and rotates refresh tokens,
// minting fresh access/refresh token pairs. All failures are *Error values
// that the boundary renders as JSON; this endpoint never redirects.
type TokenService struct {
	clients       repository.ClientRepository
	codes         repository.AuthorizationCodeStore
	accessTokens  repository.TokenStore
	refreshTokens repository.TokenStore
	codec         TokenCodec
	accessTTL     time.Duration
	refreshTTL    time.Duration
	log           *logrus.Logger
}

// NewTokenService creates a new TokenService.
func NewTokenService(
	clients repository.ClientRepository,
	codes repository.AuthorizationCodeStore,
	accessTokens repository.TokenStore,
	refreshTokens repository.TokenStore,
	codec TokenCodec,
	accessTTL time.Duration,
	refreshTTL time.Duration,
	log *logrus.Logger,
) *TokenService {
	return &TokenService{
		clients:       clients,
		codes:         codes,
		accessTokens:  accessTokens,
		refreshTokens: refreshTokens,
		codec:         codec,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		log:           log,
	}
}

// Exchange runs the token endpoint state machine for the
// authorization_code and refresh_token grant types.
func (s *TokenService) Exchange(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	client, clientID, err := s.authenticateClient(ctx, req)
	if err != nil {
		return nil, err
	}

	if req.GrantType == "" {
		return nil, NewInvalidRequestError("", req.State, "missing body parameter 'grant_type'")
	}

	switch req.GrantType {
	case domain.GrantTypeAuthorizationCode, domain.GrantTypeRefreshToken:
	default:
		return nil, NewUnsupportedGrantTypeError(req.State, "grant_type '"+req.GrantType+"' is not supported")
	}

	if len(client.Grants) == 0 || !contains(client.Grants, req.GrantType) {
		return nil, NewUnauthorizedClientError(req.State, "client is not allowed the '"+req.GrantType+"' grant")
	}

	if req.GrantType == domain.GrantTypeAuthorizationCode {
		return s.exchangeAuthorizationCode(ctx, req, clientID)
	}
	return s.exchangeRefreshToken(ctx, req, clientID)
}

// authenticateClient resolves the client and verifies the presented secret
// against the stored hash. Trusting client_id without the secret check would
// let anyone redeem grants on another client's behalf.
func (s *TokenService) authenticateClient(ctx context.Context, req TokenRequest) (*domain.Client, uuid.UUID, error) {
	if req.ClientID == "" {
		return nil, uuid.Nil, NewInvalidClientError("missing client credentials")
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return nil, uuid.Nil, NewInvalidClientError("client authentication failed")
	}

	client, err := s.clients.GetByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			return nil, uuid.Nil, NewInvalidClientError("client authentication failed")
		}
		s.log.WithError(err).WithField("client_id", clientID).Error("client lookup failed")
		return nil, uuid.Nil, NewServerError("", req.State)
	}

	if err := auth.VerifyClientSecret(client.ClientSecretHash, req.ClientSecret); err != nil {
		return nil, uuid.Nil, NewInvalidClientError("client authentication failed")
	}

	return client, clientID, nil
}

func (s *TokenService) exchangeAuthorizationCode(ctx context.Context, req TokenRequest, clientID uuid.UUID) (*TokenResponse, error) {
	if req.Code == "" {
		return nil, NewInvalidRequestError("", req.State, "missing body parameter 'code'")
	}
	if req.State == "" {
		return nil, NewInvalidRequestError("", "", "missing body parameter 'state'")
	}
	if req.RedirectURI == "" {
		return nil, NewInvalidRequestError("", req.State, "missing body parameter 'redirect_uri'")
	}
	if req.CodeVerifier == "" {
		return nil, NewInvalidRequestError("", req.State, "missing body parameter 'code_verifier'")
	}

	claims, err := s.codec.DecodeAuthorizationCode(req.Code)
	if err != nil {
		return nil, NewInvalidGrantError(req.State, "authorization code is invalid")
	}

	if claims.Audience != clientID {
		return nil, NewInvalidGrantError(req.State, "authorization code was issued to another client")
	}

	if time.Unix(claims.ExpirationTime, 0).Before(time.Now()) {
		return nil, NewInvalidGrantError(req.State, "authorization code has expired")
	}

	if claims.RedirectURI != req.RedirectURI {
		return nil, NewInvalidGrantError(req.State, "redirect_uri does not match the authorization request")
	}

	grant, err := s.codes.Get(ctx, claims.JwtID)
	if err != nil {
		if errors.Is(err, repository.ErrGrantNotFound) {
			// Unknown or already redeemed. Logged as a replay signal, but the
			// wire response does not distinguish the two.
			s.log.WithField("jti", claims.JwtID).Warn("authorization code redemption for absent grant record")
			return nil, NewInvalidGrantError(req.State, "authorization code is invalid")
		}
		s.log.WithError(err).WithField("jti", claims.JwtID).Error("authorization code lookup failed")
		return nil, NewServerError("", req.State)
	}

	if grant.CodeChallengeMethod != "" {
		if !pkce.Verify(grant.CodeChallengeMethod, req.CodeVerifier, grant.CodeChallenge) {
			return nil, NewInvalidGrantError(req.State, "code_verifier does not match code_challenge")
		}
	}

	// Single-use enforcement: the revoke must succeed before any token is
	// minted. The store's conditional delete serializes concurrent
	// redemptions, so exactly one caller gets past this point.
	if err := s.codes.Revoke(ctx, claims.JwtID); err != nil {
		if errors.Is(err, repository.ErrGrantNotFound) {
			s.log.WithField("jti", claims.JwtID).Warn("authorization code replay detected")
			return nil, NewInvalidGrantError(req.State, "authorization code is invalid")
		}
		s.log.WithError(err).WithField("jti", claims.JwtID).Error("authorization code revocation failed")
		return nil, NewServerError("", req.State)
	}

	return s.mintTokenPair(ctx, claims.Subject, clientID, req.RequestID, claims.Scope, req.State)
}

func (s *TokenService) exchangeRefreshToken(ctx context.Context, req TokenRequest, clientID uuid.UUID) (*TokenResponse, error) {
	if req.RefreshToken == "" {
		return nil, NewInvalidRequestError("", req.State, "missing body parameter 'refresh_token'")
	}
	if req.Scope == "" {
		return nil, NewInvalidRequestError("", req.State, "missing body parameter 'scope'")
	}

	claims, err := s.codec.DecodeStandardToken(req.RefreshToken)
	if err != nil {
		return nil, NewInvalidGrantError(req.State, "refresh token is invalid")
	}

	// Token-type confusion defense: an access token presented here must be
	// rejected even though its signature and audience are valid.
	if claims.TokenType != domain.TokenTypeRefreshToken {
		return nil, NewInvalidGrantError(req.State, "refresh token is invalid")
	}

	if claims.Audience != clientID {
		return nil, NewInvalidGrantError(req.State, "refresh token was issued to another client")
	}

	if time.Unix(claims.ExpirationTime, 0).Before(time.Now()) {
		return nil, NewInvalidGrantError(req.State, "refresh token has expired")
	}

	// Rotation: the presented token becomes unusable the moment a new pair is
	// issued. A revoke that finds nothing means this token was already
	// rotated or revoked.
	if err := s.refreshTokens.Revoke(ctx, claims.JwtID); err != nil {
		if errors.Is(err, repository.ErrGrantNotFound) {
			s.log.WithField("jti", claims.JwtID).Warn("refresh token replay detected")
			return nil, NewInvalidGrantError(req.State, "refresh token is invalid")
		}
		s.log.WithError(err).WithField("jti", claims.JwtID).Error("refresh token revocation failed")
		return nil, NewServerError("", req.State)
	}

	return s.mintTokenPair(ctx, claims.Subject, clientID, req.RequestID, claims.Scope, req.State)
}

// mintTokenPair signs and persists a fresh access/refresh token pair. The
// refresh token's not_before sits one second inside the access token's
// expiry so it cannot pre-empt its paired access token.
func (s *TokenService) mintTokenPair(ctx context.Context, subject, clientID, requestID uuid.UUID, scope, state string) (*TokenResponse, error) {
	now := time.Now()
	accessExpiresAt := now.Add(s.accessTTL)
	refreshExpiresAt := now.Add(s.refreshTTL)

	accessClaims := jwt.StandardTokenClaims{
		JwtID:          uuid.New(),
		Subject:        subject,
		IssuedAtTime:   now.Unix(),
		ExpirationTime: accessExpiresAt.Unix(),
		NotBefore:      now.Add(-1 * time.Second).Unix(),
		Audience:       clientID,
		Scope:          scope,
		TokenType:      domain.TokenTypeAccessToken,
	}

	accessToken, err := s.codec.EncodeStandardToken(accessClaims)
	if err != nil {
		s.log.WithError(err).Error("failed to sign access token")
		return nil, NewServerError("", state)
	}

	refreshClaims := jwt.StandardTokenClaims{
		JwtID:          uuid.New(),
		Subject:        subject,
		IssuedAtTime:   now.Unix(),
		ExpirationTime: refreshExpiresAt.Unix(),
		NotBefore:      accessExpiresAt.Add(-1 * time.Second).Unix(),
		Audience:       clientID,
		Scope:          scope,
		TokenType:      domain.TokenTypeRefreshToken,
	}

	refreshToken, err := s.codec.EncodeStandardToken(refreshClaims)
	if err != nil {
		s.log.WithError(err).Error("failed to sign refresh token")
		return nil, NewServerError("", state)
	}

	accessGrant := &domain.TokenGrant{
		JwtID:       accessClaims.JwtID,
		ClientID:    clientID,
		RequestID:   requestID,
		Subject:     subject,
		Scope:       scope,
		TokenType:   domain.TokenTypeAccessToken,
		RequestedAt: now,
		ExpiresAt:   accessExpiresAt,
	}

	if err := s.accessTokens.Save(ctx, accessGrant); err != nil {
		s.log.WithError(err).WithField("jti", accessClaims.JwtID).Error("failed to persist access token grant")
		return nil, NewServerError("", state)
	}

	refreshGrant := &domain.TokenGrant{
		JwtID:       refreshClaims.JwtID,
		ClientID:    clientID,
		RequestID:   requestID,
		Subject:     subject,
		Scope:       scope,
		TokenType:   domain.TokenTypeRefreshToken,
		RequestedAt: now,
		ExpiresAt:   refreshExpiresAt,
	}

	if err := s.refreshTokens.Save(ctx, refreshGrant); err != nil {
		s.log.WithError(err).WithField("jti", refreshClaims.JwtID).Error("failed to persist refresh token grant")
		return nil, NewServerError("", state)
	}

	return &TokenResponse{
		TokenType:    "Bearer",
		AccessToken:  accessToken,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		RefreshToken: refreshToken,
		Scope:        scope,
	}, nil
}

// contains checks if a slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// splitScope splits a space-delimited scope string into its parts.
func splitScope(scope string) []string {
	return strings.Fields(scope)
}
