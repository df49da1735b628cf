package handler

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"

	"github.com/google/uuid"

	"github.com/haya-auth/haya/internal/auth"
	"github.com/haya-auth/haya/internal/service"
)

// TokenService runs the token endpoint logic.
type TokenService interface {
	Exchange(ctx context.Context, req service.TokenRequest) (*service.TokenResponse, error)
}

// TokenHandler handles the OAuth 2.0 token endpoint (RFC 6749 §3.2). All
// failures are JSON bodies; this endpoint never redirects.
type TokenHandler struct {
	tokenService TokenService
}

// NewTokenHandler creates a new token endpoint handler.
func NewTokenHandler(tokenService TokenService) *TokenHandler {
	return &TokenHandler{
		tokenService: tokenService,
	}
}

// ServeHTTP implements the http.Handler interface.
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Tokens must never be cached by intermediaries.
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/x-www-form-urlencoded" {
		writeErrorJSON(w, http.StatusBadRequest, service.NewInvalidRequestError(
			"", "", "content must be of type 'application/x-www-form-urlencoded'"))
		return
	}

	if err := r.ParseForm(); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, service.NewInvalidRequestError(
			"", "", "failed to parse form body"))
		return
	}

	credentials, err := auth.ParseBasicAuth(r.Header.Get("Authorization"))
	if err != nil {
		writeErrorJSON(w, http.StatusUnauthorized, service.NewInvalidClientError(
			"client authentication failed"))
		return
	}

	req := service.TokenRequest{
		GrantType:    r.PostFormValue("grant_type"),
		ClientID:     credentials.ClientID,
		ClientSecret: credentials.ClientSecret,
		Code:         r.PostFormValue("code"),
		State:        r.PostFormValue("state"),
		RedirectURI:  r.PostFormValue("redirect_uri"),
		CodeVerifier: r.PostFormValue("code_verifier"),
		RefreshToken: r.PostFormValue("refresh_token"),
		Scope:        r.PostFormValue("scope"),
	}

	if requestID, ok := r.Context().Value(RequestIDContextKey).(uuid.UUID); ok {
		req.RequestID = requestID
	}

	response, err := h.tokenService.Exchange(r.Context(), req)
	if err != nil {
		h.renderError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		// Headers are already written; nothing left to do.
		return
	}
}

func (h *TokenHandler) renderError(w http.ResponseWriter, err error) {
	oauthErr, ok := err.(*service.Error)
	if !ok {
		oauthErr = service.NewServerError("", "")
	}

	writeErrorJSON(w, errorStatus(oauthErr.Code), oauthErr)
}
