package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/haya-auth/haya/internal/service"
)

type contextKey string

// Context keys the outer authentication/tagging middleware uses to hand the
// resource-owner identity and request tag to the authorization endpoint.
const (
	SubjectContextKey   contextKey = "subject"
	RequestIDContextKey contextKey = "request_id"
)

// WithSubject returns a context carrying the authenticated resource owner.
func WithSubject(ctx context.Context, subject uuid.UUID) context.Context {
	return context.WithValue(ctx, SubjectContextKey, subject)
}

// WithRequestID returns a context carrying the transport request tag.
func WithRequestID(ctx context.Context, requestID uuid.UUID) context.Context {
	return context.WithValue(ctx, RequestIDContextKey, requestID)
}

// AuthorizeService runs the authorization endpoint logic.
type AuthorizeService interface {
	Authorize(ctx context.Context, req service.AuthorizeRequest) (*service.AuthorizeResult, error)
}

// AuthorizeHandler handles the OAuth 2.0 authorization endpoint
// (RFC 6749 §3.1). Parameters come from the query string only; this endpoint
// has no body fallback.
type AuthorizeHandler struct {
	authorizeService AuthorizeService
}

// NewAuthorizeHandler creates a new authorization endpoint handler.
func NewAuthorizeHandler(authorizeService AuthorizeService) *AuthorizeHandler {
	return &AuthorizeHandler{
		authorizeService: authorizeService,
	}
}

// ServeHTTP implements the http.Handler interface.
func (h *AuthorizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()

	req := service.AuthorizeRequest{
		ResponseType:        query.Get("response_type"),
		ClientID:            query.Get("client_id"),
		RedirectURI:         query.Get("redirect_uri"),
		Scope:               query.Get("scope"),
		State:               query.Get("state"),
		CodeChallenge:       query.Get("code_challenge"),
		CodeChallengeMethod: query.Get("code_challenge_method"),
	}

	if subject, ok := r.Context().Value(SubjectContextKey).(uuid.UUID); ok {
		req.Subject = subject
	}
	if requestID, ok := r.Context().Value(RequestIDContextKey).(uuid.UUID); ok {
		req.RequestID = requestID
	}

	result, err := h.authorizeService.Authorize(r.Context(), req)
	if err != nil {
		h.renderError(w, err)
		return
	}

	w.Header().Set("Location", result.RedirectURI)
	w.WriteHeader(http.StatusFound)
}

// renderError delivers a redirectable error via 302 to the validated redirect
// URI; anything else gets a direct JSON body, so an untrusted redirect_uri is
// never used as an open-redirect target.
func (h *AuthorizeHandler) renderError(w http.ResponseWriter, err error) {
	oauthErr, ok := err.(*service.Error)
	if !ok {
		oauthErr = service.NewServerError("", "")
	}

	if !oauthErr.Redirectable() {
		writeErrorJSON(w, errorStatus(oauthErr.Code), oauthErr)
		return
	}

	location, parseErr := errorRedirect(oauthErr)
	if parseErr != nil {
		writeErrorJSON(w, http.StatusInternalServerError, service.NewServerError("", ""))
		return
	}

	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusFound)
}

// errorRedirect rebuilds the redirect URI with only the error parameters,
// clearing any query the registered URI already carried.
func errorRedirect(oauthErr *service.Error) (string, error) {
	u, err := url.Parse(oauthErr.RedirectURI)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("error", oauthErr.Code)
	if oauthErr.Description != "" {
		params.Set("error_description", oauthErr.Description)
	}
	if oauthErr.State != "" {
		params.Set("state", oauthErr.State)
	}

	u.RawQuery = params.Encode()
	return u.String(), nil
}

// errorResponse is the JSON wire shape of an OAuth error.
type errorResponse struct {
	ErrorCode        string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorURI         string `json:"error_uri,omitempty"`
	State            string `json:"state,omitempty"`
}

func writeErrorJSON(w http.ResponseWriter, statusCode int, oauthErr *service.Error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	resp := errorResponse{
		ErrorCode:        oauthErr.Code,
		ErrorDescription: oauthErr.Description,
		ErrorURI:         oauthErr.ErrorURI,
		State:            oauthErr.State,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		// Headers are already written; nothing left to do.
		return
	}
}

func errorStatus(code string) int {
	switch code {
	case service.CodeInvalidClient:
		return http.StatusUnauthorized
	case service.CodeServerError:
		return http.StatusInternalServerError
	case service.CodeTemporarilyUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}
