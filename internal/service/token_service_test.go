package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haya-auth/haya/internal/domain"
	"github.com/haya-auth/haya/internal/jwt"
	"github.com/haya-auth/haya/internal/pkce"
)

type tokenFixture struct {
	authorize *AuthorizeService
	tokens    *TokenService
	codec     *jwt.Codec
	codes     *memCodeStore
	access    *memTokenStore
	refresh   *memTokenStore
	clients   *fakeClientRepo
}

func newTokenFixture(t *testing.T, clients ...*domain.Client) *tokenFixture {
	t.Helper()

	codec := newTestCodec(t)
	codes := newMemCodeStore()
	access := newMemTokenStore()
	refresh := newMemTokenStore()
	repo := newFakeClientRepo(clients...)

	return &tokenFixture{
		authorize: NewAuthorizeService(repo, codes, codec, 300*time.Second, testLogger()),
		tokens:    NewTokenService(repo, codes, access, refresh, codec, time.Hour, 14*24*time.Hour, testLogger()),
		codec:     codec,
		codes:     codes,
		access:    access,
		refresh:   refresh,
		clients:   repo,
	}
}

// mintCode runs a full authorization request and returns the signed code.
func (f *tokenFixture) mintCode(t *testing.T, client *domain.Client) string {
	t.Helper()

	result, err := f.authorize.Authorize(context.Background(), validAuthorizeRequest(client.ClientID))
	require.NoError(t, err)
	return result.Code
}

func codeExchangeRequest(client *domain.Client, code string) TokenRequest {
	return TokenRequest{
		GrantType:    domain.GrantTypeAuthorizationCode,
		ClientID:     client.ClientID.String(),
		ClientSecret: testClientSecret,
		Code:         code,
		State:        "xyz",
		RedirectURI:  "https://app.example/cb",
		CodeVerifier: "verifier1",
		RequestID:    uuid.New(),
	}
}

func refreshExchangeRequest(client *domain.Client, refreshToken string) TokenRequest {
	return TokenRequest{
		GrantType:    domain.GrantTypeRefreshToken,
		ClientID:     client.ClientID.String(),
		ClientSecret: testClientSecret,
		RefreshToken: refreshToken,
		Scope:        "read",
		State:        "xyz",
		RequestID:    uuid.New(),
	}
}

func requireOAuthError(t *testing.T, err error, code string) *Error {
	t.Helper()

	require.Error(t, err)
	oauthErr, ok := err.(*Error)
	require.True(t, ok, "expected *service.Error, got %T", err)
	assert.Equal(t, code, oauthErr.Code)
	return oauthErr
}

func TestTokenService_AuthorizationCodeExchange(t *testing.T) {
	client := newTestClient(t)
	f := newTokenFixture(t, client)
	code := f.mintCode(t, client)

	resp, err := f.tokens.Exchange(context.Background(), codeExchangeRequest(client, code))
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "read", resp.Scope)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)

	accessClaims, err := f.codec.DecodeStandardToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenTypeAccessToken, accessClaims.TokenType)
	assert.Equal(t, client.ClientID, accessClaims.Audience)
	assert.Equal(t, "read", accessClaims.Scope)
	assert.Equal(t, int64(3600), accessClaims.ExpirationTime-accessClaims.IssuedAtTime)

	refreshClaims, err := f.codec.DecodeStandardToken(resp.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenTypeRefreshToken, refreshClaims.TokenType)
	assert.Equal(t, client.ClientID, refreshClaims.Audience)
	// The refresh token only becomes usable as its paired access token expires.
	assert.Equal(t, accessClaims.ExpirationTime-1, refreshClaims.NotBefore)

	// Both grants are recorded under their jtis, the code is gone.
	accessGrant, err := f.access.Get(context.Background(), accessClaims.JwtID)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenTypeAccessToken, accessGrant.TokenType)

	refreshGrant, err := f.refresh.Get(context.Background(), refreshClaims.JwtID)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenTypeRefreshToken, refreshGrant.TokenType)

	claims, err := f.codec.DecodeAuthorizationCode(code)
	require.NoError(t, err)
	_, err = f.codes.Get(context.Background(), claims.JwtID)
	assert.Error(t, err)
}

func TestTokenService_CodeIsSingleUse(t *testing.T) {
	client := newTestClient(t)
	f := newTokenFixture(t, client)
	code := f.mintCode(t, client)

	_, err := f.tokens.Exchange(context.Background(), codeExchangeRequest(client, code))
	require.NoError(t, err)

	_, err = f.tokens.Exchange(context.Background(), codeExchangeRequest(client, code))
	requireOAuthError(t, err, CodeInvalidGrant)

	// The replay minted nothing.
	assert.Equal(t, 1, f.access.len())
	assert.Equal(t, 1, f.refresh.len())
}

func TestTokenService_CodeBoundToClient(t *testing.T) {
	clientA := newTestClient(t)
	clientB := newTestClient(t)
	f := newTokenFixture(t, clientA, clientB)

	code := f.mintCode(t, clientA)

	// Client B authenticates correctly but presents client A's code.
	_, err := f.tokens.Exchange(context.Background(), codeExchangeRequest(clientB, code))
	requireOAuthError(t, err, CodeInvalidGrant)

	// The failed attempt did not burn the code.
	_, err = f.tokens.Exchange(context.Background(), codeExchangeRequest(clientA, code))
	require.NoError(t, err)
}

func TestTokenService_PKCEVerifierMismatch(t *testing.T) {
	client := newTestClient(t)
	f := newTokenFixture(t, client)
	code := f.mintCode(t, client)

	req := codeExchangeRequest(client, code)
	req.CodeVerifier = "some-other-verifier"

	_, err := f.tokens.Exchange(context.Background(), req)
	requireOAuthError(t, err, CodeInvalidGrant)
	assert.Equal(t, 0, f.access.len())

	// The verifier check precedes revocation, so the legitimate holder can
	// still redeem the code.
	_, err = f.tokens.Exchange(context.Background(), codeExchangeRequest(client, code))
	require.NoError(t, err)
}

func TestTokenService_PKCEPlainMethod(t *testing.T) {
	client := newTestClient(t)
	f := newTokenFixture(t, client)

	authReq := validAuthorizeRequest(client.ClientID)
	authReq.CodeChallenge = "plain-verifier-value"
	authReq.CodeChallengeMethod = pkce.MethodPlain
	result, err := f.authorize.Authorize(context.Background(), authReq)
	require.NoError(t, err)

	req := codeExchangeRequest(client, result.Code)
	req.CodeVerifier = "plain-verifier-value"
	_, err = f.tokens.Exchange(context.Background(), req)
	require.NoError(t, err)
}

func TestTokenService_RedirectURIMismatch(t *testing.T) {
	client := newTestClient(t)
	f := newTokenFixture(t, client)
	code := f.mintCode(t, client)

	req := codeExchangeRequest(client, code)
	req.RedirectURI = "https://app.example/other"

	_, err := f.tokens.Exchange(context.Background(), req)
	requireOAuthError(t, err, CodeInvalidGrant)
}

func TestTokenService_ExpiredCode(t *testing.T) {
	client := newTestClient(t)
	f := newTokenFixture(t, client)

	issuedAt := time.Now().Add(-10 * time.Minute)
	claims := jwt.AuthorizationCodeClaims{
		JwtID:          uuid.New(),
		Subject:        uuid.New(),
		IssuedAtTime:   issuedAt.Unix(),
		ExpirationTime: issuedAt.Add(300 * time.Second).Unix(),
		NotBefore:      issuedAt.Add(-1 * time.Second).Unix(),
		Audience:       client.ClientID,
		Scope:          "read",
		RedirectURI:    "https://app.example/cb",
	}
	code, err := f.codec.EncodeAuthorizationCode(claims)
	require.NoError(t, err)

	_, err = f.tokens.Exchange(context.Background(), codeExchangeRequest(client, code))
	requireOAuthError(t, err, CodeInvalidGrant)
}

func TestTokenService_ForgedCodeRejected(t *testing.T) {
	client := newTestClient(t)
	f := newTokenFixture(t, client)

	req := codeExchangeRequest(client, "not-a-jwt")
	_, err := f.tokens.Exchange(context.Background(), req)
	requireOAuthError(t, err, CodeInvalidGrant)
}

func TestTokenService_RefreshRotation(t *testing.T) {
	client := newTestClient(t)
	f := newTokenFixture(t, client)
	code := f.mintCode(t, client)

	first, err := f.tokens.Exchange(context.Background(), codeExchangeRequest(client, code))
	require.NoError(t, err)

	second, err := f.tokens.Exchange(context.Background(), refreshExchangeRequest(client, first.RefreshToken))
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)

	// The rotated-out token is dead.
	_, err = f.tokens.Exchange(context.Background(), refreshExchangeRequest(client, first.RefreshToken))
	requireOAuthError(t, err, CodeInvalidGrant)

	// The replacement still works.
	_, err = f.tokens.Exchange(context.Background(), refreshExchangeRequest(client, second.RefreshToken))
	require.NoError(t, err)
}

func TestTokenService_AccessTokenRejectedAsRefreshToken(t *testing.T) {
	client := newTestClient(t)
	f := newTokenFixture(t, client)
	code := f.mintCode(t, client)

	resp, err := f.tokens.Exchange(context.Background(), codeExchangeRequest(client, code))
	require.NoError(t, err)

	// The access token carries a valid signature and the right audience, but
	// its token_type is wrong for this grant.
	_, err = f.tokens.Exchange(context.Background(), refreshExchangeRequest(client, resp.AccessToken))
	requireOAuthError(t, err, CodeInvalidGrant)
}

func TestTokenService_RefreshTokenBoundToClient(t *testing.T) {
	clientA := newTestClient(t)
	clientB := newTestClient(t)
	f := newTokenFixture(t, clientA, clientB)

	code := f.mintCode(t, clientA)
	resp, err := f.tokens.Exchange(context.Background(), codeExchangeRequest(clientA, code))
	require.NoError(t, err)

	_, err = f.tokens.Exchange(context.Background(), refreshExchangeRequest(clientB, resp.RefreshToken))
	requireOAuthError(t, err, CodeInvalidGrant)
}

func TestTokenService_ExpiredRefreshToken(t *testing.T) {
	client := newTestClient(t)
	f := newTokenFixture(t, client)

	issuedAt := time.Now().Add(-30 * 24 * time.Hour)
	claims := jwt.StandardTokenClaims{
		JwtID:          uuid.New(),
		Subject:        uuid.New(),
		IssuedAtTime:   issuedAt.Unix(),
		ExpirationTime: issuedAt.Add(14 * 24 * time.Hour).Unix(),
		NotBefore:      issuedAt.Add(time.Hour).Unix(),
		Audience:       client.ClientID,
		Scope:          "read",
		TokenType:      domain.TokenTypeRefreshToken,
	}
	token, err := f.codec.EncodeStandardToken(claims)
	require.NoError(t, err)

	_, err = f.tokens.Exchange(context.Background(), refreshExchangeRequest(client, token))
	requireOAuthError(t, err, CodeInvalidGrant)
}

func TestTokenService_ClientAuthentication(t *testing.T) {
	client := newTestClient(t)

	tests := []struct {
		name   string
		mutate func(*TokenRequest)
	}{
		{
			name:   "missing client_id",
			mutate: func(r *TokenRequest) { r.ClientID = "" },
		},
		{
			name:   "unparseable client_id",
			mutate: func(r *TokenRequest) { r.ClientID = "not-a-uuid" },
		},
		{
			name:   "unknown client",
			mutate: func(r *TokenRequest) { r.ClientID = uuid.New().String() },
		},
		{
			name:   "wrong client_secret",
			mutate: func(r *TokenRequest) { r.ClientSecret = "wrong-secret" },
		},
		{
			name:   "empty client_secret",
			mutate: func(r *TokenRequest) { r.ClientSecret = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTokenFixture(t, client)
			code := f.mintCode(t, client)

			req := codeExchangeRequest(client, code)
			tt.mutate(&req)

			_, err := f.tokens.Exchange(context.Background(), req)
			requireOAuthError(t, err, CodeInvalidClient)
			assert.Equal(t, 0, f.access.len())
		})
	}
}

func TestTokenService_GrantTypeValidation(t *testing.T) {
	client := newTestClient(t)
	f := newTokenFixture(t, client)
	code := f.mintCode(t, client)

	t.Run("missing grant_type", func(t *testing.T) {
		req := codeExchangeRequest(client, code)
		req.GrantType = ""
		_, err := f.tokens.Exchange(context.Background(), req)
		requireOAuthError(t, err, CodeInvalidRequest)
	})

	t.Run("unsupported grant_type", func(t *testing.T) {
		req := codeExchangeRequest(client, code)
		req.GrantType = "password"
		_, err := f.tokens.Exchange(context.Background(), req)
		requireOAuthError(t, err, CodeUnsupportedGrantType)
	})

	t.Run("grant type not allowed for client", func(t *testing.T) {
		restricted := newTestClient(t)
		restricted.Grants = []string{domain.GrantTypeAuthorizationCode}
		rf := newTokenFixture(t, restricted)

		req := refreshExchangeRequest(restricted, "irrelevant")
		_, err := rf.tokens.Exchange(context.Background(), req)
		requireOAuthError(t, err, CodeUnauthorizedClient)
	})
}

func TestTokenService_MissingCodeExchangeParameters(t *testing.T) {
	client := newTestClient(t)

	tests := []struct {
		name   string
		mutate func(*TokenRequest)
	}{
		{name: "missing code", mutate: func(r *TokenRequest) { r.Code = "" }},
		{name: "missing state", mutate: func(r *TokenRequest) { r.State = "" }},
		{name: "missing redirect_uri", mutate: func(r *TokenRequest) { r.RedirectURI = "" }},
		{name: "missing code_verifier", mutate: func(r *TokenRequest) { r.CodeVerifier = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTokenFixture(t, client)
			code := f.mintCode(t, client)

			req := codeExchangeRequest(client, code)
			tt.mutate(&req)

			_, err := f.tokens.Exchange(context.Background(), req)
			requireOAuthError(t, err, CodeInvalidRequest)
		})
	}
}

func TestTokenService_MissingRefreshParameters(t *testing.T) {
	client := newTestClient(t)
	f := newTokenFixture(t, client)

	t.Run("missing refresh_token", func(t *testing.T) {
		req := refreshExchangeRequest(client, "")
		_, err := f.tokens.Exchange(context.Background(), req)
		requireOAuthError(t, err, CodeInvalidRequest)
	})

	t.Run("missing scope", func(t *testing.T) {
		req := refreshExchangeRequest(client, "some-token")
		req.Scope = ""
		_, err := f.tokens.Exchange(context.Background(), req)
		requireOAuthError(t, err, CodeInvalidRequest)
	})
}

func TestTokenService_RevocationFailureAbortsMinting(t *testing.T) {
	client := newTestClient(t)
	f := newTokenFixture(t, client)
	code := f.mintCode(t, client)

	f.codes.revokeErr = assert.AnError

	_, err := f.tokens.Exchange(context.Background(), codeExchangeRequest(client, code))
	requireOAuthError(t, err, CodeServerError)

	// No tokens may exist for a code whose revocation did not succeed.
	assert.Equal(t, 0, f.access.len())
	assert.Equal(t, 0, f.refresh.len())
}

func TestTokenService_GrantPersistFailureIsServerError(t *testing.T) {
	client := newTestClient(t)
	f := newTokenFixture(t, client)
	code := f.mintCode(t, client)

	f.access.saveErr = assert.AnError

	_, err := f.tokens.Exchange(context.Background(), codeExchangeRequest(client, code))
	requireOAuthError(t, err, CodeServerError)
	assert.Equal(t, 0, f.refresh.len())
}

func TestTokenService_ErrorsAreNeverRedirectable(t *testing.T) {
	client := newTestClient(t)
	f := newTokenFixture(t, client)

	req := codeExchangeRequest(client, "garbage")
	_, err := f.tokens.Exchange(context.Background(), req)

	oauthErr := requireOAuthError(t, err, CodeInvalidGrant)
	assert.False(t, oauthErr.Redirectable())
	assert.Equal(t, "xyz", oauthErr.State)
}
