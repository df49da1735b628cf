package service

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/haya-auth/haya/internal/domain"
	"github.com/haya-auth/haya/internal/jwt"
	"github.com/haya-auth/haya/internal/repository"
)

// AuthorizeRequest carries the query parameters of an authorization request
// plus the identity established by the outer authentication layer.
type AuthorizeRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scope               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string

	// RequestID and Subject come from the boundary layer: the request tag
	// assigned by the transport and the authenticated resource owner.
	RequestID uuid.UUID
	Subject   uuid.UUID
}

// AuthorizeResult is a successful authorization: the signed code and the
// redirect the boundary layer must issue.
type AuthorizeResult struct {
	Code        string
	State       string
	RedirectURI string
}

// CodeEncoder signs authorization code claims.
type CodeEncoder interface {
	EncodeAuthorizationCode(claims jwt.AuthorizationCodeClaims) (string, error)
}

// AuthorizeService validates authorization requests against client policy and
// mints single-use authorization codes.
type AuthorizeService struct {
	clients repository.ClientRepository
	codes   repository.AuthorizationCodeStore
	encoder CodeEncoder
	codeTTL time.Duration
	log     *logrus.Logger
}

// NewAuthorizeService creates a new AuthorizeService.
func NewAuthorizeService(
	clients repository.ClientRepository,
	codes repository.AuthorizationCodeStore,
	encoder CodeEncoder,
	codeTTL time.Duration,
	log *logrus.Logger,
) *AuthorizeService {
	return &AuthorizeService{
		clients: clients,
		codes:   codes,
		encoder: encoder,
		codeTTL: codeTTL,
		log:     log,
	}
}

// Authorize runs the authorization endpoint state machine. Validation
// failures after the redirect URI is known and trusted return a redirectable
// *Error; failures before that point return a non-redirectable one.
func (s *AuthorizeService) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	// Until the redirect URI has been checked against the client's policy it
	// cannot be trusted as an error target.
	if req.RedirectURI == "" {
		return nil, NewInvalidRequestError("", "", "missing query parameter 'redirect_uri'")
	}

	if req.State == "" {
		return nil, NewInvalidRequestError("", "", "missing query parameter 'state'")
	}

	if req.ClientID == "" {
		return nil, NewInvalidRequestError("", "", "missing query parameter 'client_id'")
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return nil, NewServerError("", "")
	}

	client, err := s.clients.GetByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			return nil, NewAccessDeniedError("", "", "unknown client")
		}
		s.log.WithError(err).WithField("client_id", clientID).Error("client lookup failed")
		return nil, NewServerError("", "")
	}

	if len(client.Grants) == 0 || !contains(client.Grants, domain.GrantTypeAuthorizationCode) {
		return nil, NewAccessDeniedError("", "", "client is not allowed the 'authorization_code' grant")
	}

	// Exact string containment; no prefix or wildcard matching. A mismatch
	// means the redirect target is untrusted, so this error is not redirected.
	if len(client.RedirectURIs) == 0 || !contains(client.RedirectURIs, req.RedirectURI) {
		return nil, NewAccessDeniedError("", "", "redirect_uri is not registered for this client")
	}

	// From here on the redirect URI is trusted and errors go back to the
	// client via redirect, carrying the state.
	if req.Scope == "" {
		return nil, NewInvalidRequestError(req.RedirectURI, req.State, "missing query parameter 'scope'")
	}

	for _, scope := range splitScope(req.Scope) {
		if !contains(client.Scopes, scope) {
			return nil, NewInvalidScopeError(req.RedirectURI, req.State, "scope '"+scope+"' is not allowed for this client")
		}
	}

	if req.ResponseType == "" {
		return nil, NewInvalidRequestError(req.RedirectURI, req.State, "missing query parameter 'response_type'")
	}

	if !contains(client.ResponseTypes, req.ResponseType) {
		return nil, NewUnsupportedResponseTypeError(req.RedirectURI, req.State, "response_type '"+req.ResponseType+"' is not allowed for this client")
	}

	// PKCE is mandatory, not opt-in.
	if req.CodeChallenge == "" {
		return nil, NewInvalidRequestError(req.RedirectURI, req.State, "missing query parameter 'code_challenge'")
	}

	if req.CodeChallengeMethod == "" {
		return nil, NewInvalidRequestError(req.RedirectURI, req.State, "missing query parameter 'code_challenge_method'")
	}

	now := time.Now()
	jwtID := uuid.New()

	claims := jwt.AuthorizationCodeClaims{
		JwtID:          jwtID,
		Subject:        req.Subject,
		IssuedAtTime:   now.Unix(),
		ExpirationTime: now.Add(s.codeTTL).Unix(),
		NotBefore:      now.Add(-1 * time.Second).Unix(),
		Audience:       clientID,
		Scope:          req.Scope,
		RedirectURI:    req.RedirectURI,
	}

	code, err := s.encoder.EncodeAuthorizationCode(claims)
	if err != nil {
		s.log.WithError(err).Error("failed to sign authorization code")
		return nil, NewServerError(req.RedirectURI, req.State)
	}

	grant := &domain.AuthorizationCodeGrant{
		JwtID:               jwtID,
		ClientID:            clientID,
		RequestID:           req.RequestID,
		Subject:             req.Subject,
		RequestedScope:      req.Scope,
		GrantedScope:        req.Scope,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
		RedirectURI:         req.RedirectURI,
		RequestedAt:         now,
		ExpiresAt:           now.Add(s.codeTTL),
	}

	if err := s.codes.Save(ctx, grant); err != nil {
		s.log.WithError(err).WithField("jti", jwtID).Error("failed to persist authorization code grant")
		return nil, NewServerError(req.RedirectURI, req.State)
	}

	location, err := redirectWith(req.RedirectURI, url.Values{
		"code":  {code},
		"state": {req.State},
	})
	if err != nil {
		s.log.WithError(err).Error("failed to build redirect target")
		return nil, NewServerError(req.RedirectURI, req.State)
	}

	return &AuthorizeResult{
		Code:        code,
		State:       req.State,
		RedirectURI: location,
	}, nil
}

// redirectWith rebuilds target with exactly the given query parameters. Any
// query already present on the registered redirect URI is dropped so a
// crafted registration cannot inject or duplicate parameters.
func redirectWith(target string, params url.Values) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}

	u.RawQuery = params.Encode()
	return u.String(), nil
}
