package api

import (
	"net/http"
	"time"

	"github.com/erazemk/assettrack/internal/auth"
	"github.com/erazemk/assettrack/internal/model"
	"github.com/erazemk/assettrack/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	Svc       *service.Service
	JWTSecret string
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Svc.Authenticate(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	now := h.Svc.Clock()
	token, err := auth.GenerateToken(h.JWTSecret, user, now)
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: now.Add(auth.TokenExpiry).UTC(),
		User:      user,
	})
}

// Logout handles POST /api/auth/logout. The token stays revoked until it
// would have expired.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	expiresAt := h.Svc.Clock().Add(auth.TokenExpiry)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := h.Svc.RevokeToken(r.Context(), claims.ID, expiresAt); err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req service.PasswordInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Svc.ChangePassword(r.Context(), principal(r), req); err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// CurrentUser handles GET /api/auth/user.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	user, err := h.Svc.GetUser(r.Context(), p, p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, user)
}
