package handlers

import (
	"context"
	"net/http"
	"time"

	"skillhub/internal/skill"
)

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	svc                SkillService
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(svc SkillService) *HealthHandler {
	return &HealthHandler{
		svc:                svc,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	skill.Health
	Timestamp string `json:"timestamp"`
}

// ServeHTTP reports store reachability and embedding dimensionality.
// Returns 200 when healthy, 503 with the degraded report otherwise; it
// never fails outright.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	report := h.svc.Health(checkCtx)

	httpStatus := http.StatusOK
	if report.Degraded {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(ctx, w, httpStatus, HealthResponse{
		Health:    report,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
