package skill

import (
	"context"
	"errors"
	"fmt"

	"skillhub/internal/contextutil"
	"skillhub/internal/embedding"
)

const (
	// DefaultK is the number of discovery results returned when the caller
	// does not ask for a specific count.
	DefaultK = 3
	// MaxK caps caller-supplied result counts.
	MaxK = 20

	listPageSize = 100
	treePageSize = 500
)

// Orchestrator is the single point of business logic over the skill store.
// It holds no mutable state and is safe to share across request handlers.
type Orchestrator struct {
	embedder embedding.Provider
	store    Store
}

// NewOrchestrator creates an Orchestrator over the given provider and store.
func NewOrchestrator(embedder embedding.Provider, store Store) *Orchestrator {
	return &Orchestrator{
		embedder: embedder,
		store:    store,
	}
}

// Discover embeds query and returns up to k skills ranked by similarity.
// A non-positive k asks for nothing and yields an empty result; values
// above MaxK are clamped. Callers that want a default count pass DefaultK.
func (o *Orchestrator) Discover(ctx context.Context, query string, k int) ([]Discovery, error) {
	if k <= 0 {
		return []Discovery{}, nil
	}
	if k > MaxK {
		k = MaxK
	}

	vector, err := o.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w for query: %w", ErrEmbedding, err)
	}

	hits, err := o.store.SearchByVector(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search skills: %w", err)
	}
	return hits, nil
}

// GetSkill fetches a single skill by id. Returns ErrNotFound when absent.
func (o *Orchestrator) GetSkill(ctx context.Context, skillID string, includeInstruction bool) (*Skill, error) {
	return o.store.GetByID(ctx, skillID, includeInstruction)
}

// GetSubSkills loads lightweight info for every child of skillID.
// Children that no longer exist are skipped (dangling references are
// tolerated). A missing parent yields an empty list, not an error.
func (o *Orchestrator) GetSubSkills(ctx context.Context, skillID string) ([]Discovery, error) {
	parent, err := o.store.GetByID(ctx, skillID, false)
	if errors.Is(err, ErrNotFound) {
		return []Discovery{}, nil
	}
	if err != nil {
		return nil, err
	}

	results := make([]Discovery, 0, len(parent.SubSkills))
	for _, sid := range parent.SubSkills {
		child, err := o.store.GetByID(ctx, sid, false)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		results = append(results, Discovery{
			SkillID:   child.SkillID,
			Summary:   child.Summary,
			SubSkills: child.SubSkills,
		})
	}
	return results, nil
}

// Resolve is the single-shot agentic entry point:
// discover the best entry skill, and if it is a folder with children,
// return the entry plus its children and a navigation hint.
// A skill deleted between discovery and fetch resolves to "not resolved".
func (o *Orchestrator) Resolve(ctx context.Context, query string) (*Resolution, error) {
	discoveries, err := o.Discover(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if len(discoveries) == 0 {
		return &Resolution{Resolved: false, Message: "No matching skill found."}, nil
	}

	entry, err := o.store.GetByID(ctx, discoveries[0].SkillID, true)
	if errors.Is(err, ErrNotFound) {
		return &Resolution{Resolved: false, Message: "Skill disappeared after discovery."}, nil
	}
	if err != nil {
		return nil, err
	}

	if entry.IsFolder && len(entry.SubSkills) > 0 {
		children, err := o.GetSubSkills(ctx, entry.SkillID)
		if err != nil {
			return nil, err
		}
		return &Resolution{
			Resolved: true,
			Entry:    entry,
			Children: children,
			Hint:     "Pick a sub-skill and call get_skill to load its instruction.",
		}, nil
	}

	return &Resolution{Resolved: true, Skill: entry}, nil
}

// UpsertSkill creates or overwrites a skill, recomputing the embedding
// vector from its summary. There is no separate create path; writing an
// existing skill_id silently replaces it.
func (o *Orchestrator) UpsertSkill(ctx context.Context, s *Skill) error {
	logger := contextutil.LoggerFromContext(ctx)

	vector, err := o.embedder.Embed(ctx, s.Summary)
	if err != nil {
		return fmt.Errorf("%w for summary: %w", ErrEmbedding, err)
	}
	if err := o.store.Upsert(ctx, s, vector); err != nil {
		return fmt.Errorf("failed to upsert skill: %w", err)
	}
	logger.InfoContext(ctx, "upserted skill", "skill_id", s.SkillID)
	return nil
}

// DeleteSkill removes a skill by id. It does not cascade to children;
// orphaned sub_skill references are tolerated by all traversals.
func (o *Orchestrator) DeleteSkill(ctx context.Context, skillID string) (bool, error) {
	return o.store.Delete(ctx, skillID)
}

// ListSkills returns all skills without instruction bodies, bounded by the
// store page size.
func (o *Orchestrator) ListSkills(ctx context.Context) ([]Discovery, error) {
	docs, err := o.store.ListAll(ctx, listPageSize)
	if err != nil {
		return nil, err
	}
	results := make([]Discovery, 0, len(docs))
	for _, d := range docs {
		results = append(results, Discovery{
			SkillID:   d.SkillID,
			Summary:   d.Summary,
			SubSkills: d.SubSkills,
		})
	}
	return results, nil
}

// BuildTree reconstructs the skill forest from the flat store. Every skill
// that never appears as someone's child is a root. Referenced children
// missing from the listing are skipped; a back-edge to a node already on
// the current path is skipped rather than recursed into.
func (o *Orchestrator) BuildTree(ctx context.Context) ([]*TreeNode, error) {
	docs, err := o.store.ListAll(ctx, treePageSize)
	if err != nil {
		return nil, err
	}

	lookup := make(map[string]*Skill, len(docs))
	childIDs := make(map[string]bool)
	for i := range docs {
		lookup[docs[i].SkillID] = &docs[i]
		for _, sid := range docs[i].SubSkills {
			childIDs[sid] = true
		}
	}

	var roots []*TreeNode
	for i := range docs {
		if childIDs[docs[i].SkillID] {
			continue
		}
		onPath := map[string]bool{}
		roots = append(roots, buildNode(&docs[i], lookup, onPath))
	}
	return roots, nil
}

func buildNode(doc *Skill, lookup map[string]*Skill, onPath map[string]bool) *TreeNode {
	onPath[doc.SkillID] = true
	defer delete(onPath, doc.SkillID)

	node := &TreeNode{
		SkillID:  doc.SkillID,
		Summary:  doc.Summary,
		IsFolder: doc.IsFolder,
		Children: []*TreeNode{},
	}
	for _, sid := range doc.SubSkills {
		child, ok := lookup[sid]
		if !ok || onPath[sid] {
			continue
		}
		node.Children = append(node.Children, buildNode(child, lookup, onPath))
	}
	return node
}

// Health aggregates store reachability and embedding dimensionality into a
// best-effort report. It never returns an error.
func (o *Orchestrator) Health(ctx context.Context) Health {
	storeOK := o.store.HealthCheck(ctx)

	h := Health{
		Status:         "healthy",
		VectorStore:    "ok",
		EmbeddingModel: "loaded",
		EmbeddingDims:  o.embedder.Dimensions(),
	}
	if !storeOK {
		h.Status = "degraded"
		h.VectorStore = "unreachable"
		h.Degraded = true
	}
	return h
}
