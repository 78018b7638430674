package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"skillhub/internal/auth"
)

// APIKeysHandler handles API key lifecycle endpoints (admin only).
type APIKeysHandler struct {
	keys *auth.APIKeyService
}

// NewAPIKeysHandler creates a new APIKeysHandler.
func NewAPIKeysHandler(keys *auth.APIKeyService) *APIKeysHandler {
	return &APIKeysHandler{keys: keys}
}

// CreateKeyRequest is the payload for POST /api-keys.
type CreateKeyRequest struct {
	Name   string   `json:"name"`
	Scopes []string `json:"scopes"`
}

// Create handles POST /api-keys. The full key appears in this response
// only; afterwards just the prefix is retrievable.
func (h *APIKeysHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		writeError(ctx, w, http.StatusBadRequest, "name is required")
		return
	}

	created, err := h.keys.CreateKey(ctx, req.Name, req.Scopes)
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, "Failed to create api key")
		return
	}
	writeJSON(ctx, w, http.StatusCreated, created)
}

// List handles GET /api-keys.
func (h *APIKeysHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	keys, err := h.keys.ListKeys(ctx)
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, "Failed to list api keys")
		return
	}
	if keys == nil {
		keys = []auth.APIKey{}
	}
	writeJSON(ctx, w, http.StatusOK, keys)
}

// Revoke handles DELETE /api-keys/{keyID}.
func (h *APIKeysHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	keyID := chi.URLParam(r, "keyID")

	found, err := h.keys.RevokeKey(ctx, keyID)
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, "Failed to revoke api key")
		return
	}
	if !found {
		writeError(ctx, w, http.StatusNotFound, "Key not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
