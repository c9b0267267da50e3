package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/utafrali/backoffice/internal/service"
	"github.com/utafrali/backoffice/pkg/httputil"
	"github.com/utafrali/backoffice/pkg/middleware"
)

// AuthHandler handles HTTP requests for auth endpoints.
type AuthHandler struct {
	service      service.UserManager
	logger       *slog.Logger
	secureCookie bool
}

// NewAuthHandler creates a new auth HTTP handler. secureCookie marks the
// access token cookie Secure; it is off in development where TLS is absent.
func NewAuthHandler(svc service.UserManager, logger *slog.Logger, secureCookie bool) *AuthHandler {
	return &AuthHandler{service: svc, logger: logger, secureCookie: secureCookie}
}

// --- Request DTOs ---

// LoginRequest is the JSON request body for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=100"`
	Password string `json:"password" validate:"required"`
}

// --- Response types ---

// LoginResponse wraps the authenticated user with the issued token.
type LoginResponse struct {
	User  any `json:"user"`
	Token any `json:"token"`
}

// --- Handlers ---

// Login handles POST /api/v1/auth/login
// The token is returned in the body and set as the access_token cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	token, user, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    token.Token,
		Path:     "/",
		Expires:  token.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: LoginResponse{User: user, Token: token},
	})
}

// Logout handles POST /api/v1/auth/logout
// The presented token is revoked until it would have expired.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "user not authenticated"},
		})
		return
	}

	if err := h.service.Logout(r.Context(), claims.TokenID, claims.ExpiresAt); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})

	noContent(w)
}
