package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"skillhub/internal/contextutil"
	"skillhub/internal/skill"
)

// SkillService is the slice of orchestrator operations the HTTP layer uses.
type SkillService interface {
	Discover(ctx context.Context, query string, k int) ([]skill.Discovery, error)
	GetSkill(ctx context.Context, skillID string, includeInstruction bool) (*skill.Skill, error)
	GetSubSkills(ctx context.Context, skillID string) ([]skill.Discovery, error)
	Resolve(ctx context.Context, query string) (*skill.Resolution, error)
	UpsertSkill(ctx context.Context, s *skill.Skill) error
	DeleteSkill(ctx context.Context, skillID string) (bool, error)
	ListSkills(ctx context.Context) ([]skill.Discovery, error)
	BuildTree(ctx context.Context) ([]*skill.TreeNode, error)
	Health(ctx context.Context) skill.Health
}

// SkillsHandler handles skill CRUD and search endpoints.
type SkillsHandler struct {
	svc SkillService
}

// NewSkillsHandler creates a new SkillsHandler.
func NewSkillsHandler(svc SkillService) *SkillsHandler {
	return &SkillsHandler{svc: svc}
}

// Search handles GET /skills/search?q=&k=, semantic search over skill
// descriptions.
func (h *SkillsHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(ctx, w, http.StatusBadRequest, "Query parameter 'q' is required")
		return
	}

	k := skill.DefaultK
	if kStr := r.URL.Query().Get("k"); kStr != "" {
		parsed, err := strconv.Atoi(kStr)
		if err != nil {
			writeError(ctx, w, http.StatusBadRequest, "Query parameter 'k' must be an integer")
			return
		}
		k = parsed
	}

	results, err := h.svc.Discover(ctx, query, k)
	if err != nil {
		h.handleStoreError(ctx, w, err, "Failed to search skills")
		return
	}
	writeJSON(ctx, w, http.StatusOK, results)
}

// Tree handles GET /skills/tree, the full skill forest.
func (h *SkillsHandler) Tree(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	roots, err := h.svc.BuildTree(ctx)
	if err != nil {
		h.handleStoreError(ctx, w, err, "Failed to build skill tree")
		return
	}
	if roots == nil {
		roots = []*skill.TreeNode{}
	}
	writeJSON(ctx, w, http.StatusOK, roots)
}

// List handles GET /skills, all skills without instruction bodies.
func (h *SkillsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	results, err := h.svc.ListSkills(ctx)
	if err != nil {
		h.handleStoreError(ctx, w, err, "Failed to list skills")
		return
	}
	writeJSON(ctx, w, http.StatusOK, results)
}

// Resolve handles GET /skills/resolve?q=, the single-shot agentic
// resolution loop.
func (h *SkillsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(ctx, w, http.StatusBadRequest, "Query parameter 'q' is required")
		return
	}

	resolution, err := h.svc.Resolve(ctx, query)
	if err != nil {
		h.handleStoreError(ctx, w, err, "Failed to resolve skill")
		return
	}
	writeJSON(ctx, w, http.StatusOK, resolution)
}

// Get handles GET /skills/{skillID}?include_instruction=.
func (h *SkillsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	skillID := chi.URLParam(r, "skillID")

	includeInstruction := true
	if v := r.URL.Query().Get("include_instruction"); v != "" {
		includeInstruction = strings.ToLower(v) == "true" || v == "1"
	}

	s, err := h.svc.GetSkill(ctx, skillID, includeInstruction)
	if errors.Is(err, skill.ErrNotFound) {
		writeError(ctx, w, http.StatusNotFound, "Skill not found")
		return
	}
	if err != nil {
		h.handleStoreError(ctx, w, err, "Failed to get skill")
		return
	}
	writeJSON(ctx, w, http.StatusOK, s)
}

// Children handles GET /skills/{skillID}/children.
func (h *SkillsHandler) Children(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	skillID := chi.URLParam(r, "skillID")

	children, err := h.svc.GetSubSkills(ctx, skillID)
	if err != nil {
		h.handleStoreError(ctx, w, err, "Failed to list sub-skills")
		return
	}
	writeJSON(ctx, w, http.StatusOK, children)
}

// Create handles POST /skills, an upsert keyed by skill_id.
func (h *SkillsHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.upsert(w, r, "")
}

// Update handles PUT /skills/{skillID}, an upsert with a path/body id check.
func (h *SkillsHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.upsert(w, r, chi.URLParam(r, "skillID"))
}

func (h *SkillsHandler) upsert(w http.ResponseWriter, r *http.Request, pathID string) {
	ctx := r.Context()

	var payload skill.Skill
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if payload.SkillID == "" {
		writeError(ctx, w, http.StatusBadRequest, "skill_id is required")
		return
	}
	if payload.Summary == "" {
		writeError(ctx, w, http.StatusBadRequest, "summary is required")
		return
	}
	if pathID != "" && payload.SkillID != pathID {
		writeError(ctx, w, http.StatusBadRequest, "skill_id in path and body must match")
		return
	}
	if payload.SubSkills == nil {
		payload.SubSkills = []string{}
	}

	if err := h.svc.UpsertSkill(ctx, &payload); err != nil {
		h.handleStoreError(ctx, w, err, "Failed to upsert skill")
		return
	}

	status := http.StatusOK
	if pathID == "" {
		status = http.StatusCreated
	}
	writeJSON(ctx, w, status, payload)
}

// Delete handles DELETE /skills/{skillID}.
func (h *SkillsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	skillID := chi.URLParam(r, "skillID")

	found, err := h.svc.DeleteSkill(ctx, skillID)
	if err != nil {
		h.handleStoreError(ctx, w, err, "Failed to delete skill")
		return
	}
	if !found {
		writeError(ctx, w, http.StatusNotFound, "Skill not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStoreError maps infrastructure failures to HTTP status codes via
// the skill package sentinels. Store errors are surfaced loudly rather
// than masked as empty results.
func (h *SkillsHandler) handleStoreError(ctx context.Context, w http.ResponseWriter, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "skill operation failed", "error", err)

	switch {
	case errors.Is(err, skill.ErrStoreUnavailable):
		writeError(ctx, w, http.StatusServiceUnavailable, "Vector store unavailable")
	case errors.Is(err, skill.ErrEmbedding):
		writeError(ctx, w, http.StatusBadGateway, "Embedding service error")
	default:
		writeError(ctx, w, http.StatusInternalServerError, defaultMsg)
	}
}
