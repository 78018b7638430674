package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"skillhub/internal/auth"
)

// AuthHandler handles login, registration and user management endpoints.
type AuthHandler struct {
	auth *auth.Service
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// LoginRequest is the credential payload for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse carries a freshly issued bearer token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// RegisterRequest is the payload for POST /auth/register.
type RegisterRequest struct {
	Username      string   `json:"username"`
	Password      string   `json:"password"`
	Role          string   `json:"role"`
	AllowedSkills []string `json:"allowed_skills"`
}

// PermissionsUpdate is the payload for PUT /auth/users/{username}/permissions.
type PermissionsUpdate struct {
	AllowedSkills []string `json:"allowed_skills"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := h.auth.Authenticate(ctx, req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(ctx, w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, "Failed to authenticate")
		return
	}
	writeJSON(ctx, w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Register handles POST /auth/register (admin only).
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(ctx, w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.auth.Register(ctx, req.Username, req.Password, req.Role, req.AllowedSkills)
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, "Failed to register user")
		return
	}
	writeJSON(ctx, w, http.StatusCreated, user)
}

// ListUsers handles GET /auth/users (admin only).
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.auth.ListUsers(ctx)
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, "Failed to list users")
		return
	}
	if users == nil {
		users = []auth.User{}
	}
	writeJSON(ctx, w, http.StatusOK, users)
}

// PermissionsResponse pairs a user's allow-list with the full set of skill
// ids it resolves to through the hierarchy.
type PermissionsResponse struct {
	Username      string   `json:"username"`
	AllowedSkills []string `json:"allowed_skills"`
	ResolvedIDs   []string `json:"resolved_ids"`
}

// GetPermissions handles GET /auth/users/{username}/permissions (admin
// only): the allow-list plus every descendant it grants access to.
func (h *AuthHandler) GetPermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := chi.URLParam(r, "username")

	user, err := h.auth.GetUser(ctx, username)
	if errors.Is(err, auth.ErrUserNotFound) {
		writeError(ctx, w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, "Failed to get user")
		return
	}

	resolved := []string{}
	if len(user.AllowedSkills) > 0 {
		resolved = h.auth.AllDescendants(ctx, user.AllowedSkills)
	}
	writeJSON(ctx, w, http.StatusOK, PermissionsResponse{
		Username:      user.Username,
		AllowedSkills: user.AllowedSkills,
		ResolvedIDs:   resolved,
	})
}

// UpdatePermissions handles PUT /auth/users/{username}/permissions (admin only).
func (h *AuthHandler) UpdatePermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := chi.URLParam(r, "username")

	var req PermissionsUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.auth.UpdatePermissions(ctx, username, req.AllowedSkills)
	if errors.Is(err, auth.ErrUserNotFound) {
		writeError(ctx, w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, "Failed to update permissions")
		return
	}
	writeJSON(ctx, w, http.StatusOK, map[string]string{"status": "updated"})
}

// DeleteUser handles DELETE /auth/users/{username} (admin only).
func (h *AuthHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := chi.URLParam(r, "username")

	found, err := h.auth.DeleteUser(ctx, username)
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, "Failed to delete user")
		return
	}
	if !found {
		writeError(ctx, w, http.StatusNotFound, "User not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
