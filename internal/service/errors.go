package service

// OAuth 2.0 error codes (RFC 6749 §4.1.2.1, §5.2).
const (
	CodeInvalidRequest          = "invalid_request"
	CodeInvalidClient           = "invalid_client"
	CodeInvalidGrant            = "invalid_grant"
	CodeUnauthorizedClient      = "unauthorized_client"
	CodeAccessDenied            = "access_denied"
	CodeUnsupportedResponseType = "unsupported_response_type"
	CodeInvalidScope            = "invalid_scope"
	CodeUnsupportedGrantType    = "unsupported_grant_type"
	CodeServerError             = "server_error"
	CodeTemporarilyUnavailable  = "temporarily_unavailable"
)

// Error is an OAuth 2.0 protocol error with enough context for the boundary
// layer to render it on the right channel: a redirect back to the client when
// RedirectURI is set and trusted, a direct JSON body otherwise. It is an
// immutable value; each error kind has exactly one constructor.
type Error struct {
	Code        string
	Description string
	ErrorURI    string
	RedirectURI string
	State       string
}

// Error implements the error interface, returning the wire error code.
func (e *Error) Error() string {
	return e.Code
}

// Redirectable reports whether the error may be delivered via a 302 to the
// client's redirect URI. Errors raised before the redirect URI was resolved
// and validated carry no RedirectURI and must never be redirected.
func (e *Error) Redirectable() bool {
	return e.RedirectURI != ""
}

func newError(code, redirectURI, state, description string) *Error {
	return &Error{
		Code:        code,
		Description: description,
		RedirectURI: redirectURI,
		State:       state,
	}
}

// NewInvalidRequestError reports a missing or malformed request parameter.
func NewInvalidRequestError(redirectURI, state, description string) *Error {
	return newError(CodeInvalidRequest, redirectURI, state, description)
}

// NewInvalidClientError reports failed client authentication. It is never
// redirect-delivered; the token endpoint responds with a JSON body.
func NewInvalidClientError(description string) *Error {
	return newError(CodeInvalidClient, "", "", description)
}

// NewInvalidGrantError reports an invalid, expired, revoked, or replayed
// authorization grant or refresh token.
func NewInvalidGrantError(state, description string) *Error {
	return newError(CodeInvalidGrant, "", state, description)
}

// NewUnauthorizedClientError reports a client not authorized for the
// requested grant type.
func NewUnauthorizedClientError(state, description string) *Error {
	return newError(CodeUnauthorizedClient, "", state, description)
}

// NewAccessDeniedError reports a request the client's policy does not permit.
func NewAccessDeniedError(redirectURI, state, description string) *Error {
	return newError(CodeAccessDenied, redirectURI, state, description)
}

// NewUnsupportedResponseTypeError reports a response type outside the
// client's policy.
func NewUnsupportedResponseTypeError(redirectURI, state, description string) *Error {
	return newError(CodeUnsupportedResponseType, redirectURI, state, description)
}

// NewInvalidScopeError reports a requested scope outside the client's policy.
func NewInvalidScopeError(redirectURI, state, description string) *Error {
	return newError(CodeInvalidScope, redirectURI, state, description)
}

// NewUnsupportedGrantTypeError reports a grant type this server does not issue.
func NewUnsupportedGrantTypeError(state, description string) *Error {
	return newError(CodeUnsupportedGrantType, "", state, description)
}

// NewServerError reports an internal failure. The description stays generic;
// the true cause is logged, never exposed.
func NewServerError(redirectURI, state string) *Error {
	return newError(CodeServerError, redirectURI, state, "internal server error")
}

// NewTemporarilyUnavailableError reports a transient overload or maintenance
// condition.
func NewTemporarilyUnavailableError(redirectURI, state, description string) *Error {
	return newError(CodeTemporarilyUnavailable, redirectURI, state, description)
}
