package skill

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_store.go -package=mocks skillhub/internal/skill Store

import "context"

// Store defines the vector-index interface skills are persisted behind.
// The orchestrator depends only on this, never on a concrete backend.
type Store interface {
	// SearchByVector returns up to k skills ranked by similarity to vector.
	SearchByVector(ctx context.Context, vector []float32, k int) ([]Discovery, error)

	// GetByID fetches a skill by id. The instruction body is only loaded
	// when includeInstruction is true (projection hint, not a security
	// control). Returns ErrNotFound when the skill does not exist.
	GetByID(ctx context.Context, skillID string, includeInstruction bool) (*Skill, error)

	// Upsert inserts or overwrites the skill keyed by its skill_id,
	// storing vector as its embedding. Writes must be visible to
	// subsequent reads once Upsert returns.
	Upsert(ctx context.Context, s *Skill, vector []float32) error

	// Delete removes a skill by id. Returns false when it did not exist.
	Delete(ctx context.Context, skillID string) (bool, error)

	// ListAll returns up to limit skills without their instruction bodies.
	ListAll(ctx context.Context, limit int) ([]Skill, error)

	// HealthCheck reports whether the backing store is reachable.
	HealthCheck(ctx context.Context) bool
}
