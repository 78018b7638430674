package skill

import "errors"

// ErrNotFound is returned when a skill does not exist in the store.
var ErrNotFound = errors.New("skill not found")

// ErrStoreUnavailable marks failures reaching the vector store. Store
// implementations wrap their transport errors with it so callers can map
// outages without inspecting message text.
var ErrStoreUnavailable = errors.New("vector store unavailable")

// ErrEmbedding marks failures producing an embedding vector.
var ErrEmbedding = errors.New("embedding failed")

// Skill is the full skill document. The embedding vector is derived from
// Summary at write time and never leaves the store.
type Skill struct {
	SkillID     string   `json:"skill_id"`
	Summary     string   `json:"summary"`
	IsFolder    bool     `json:"is_folder"`
	SubSkills   []string `json:"sub_skills"`
	Instruction string   `json:"instruction"`
}

// Discovery is the lightweight projection returned from vector search and
// child listings. It never carries the instruction body.
type Discovery struct {
	SkillID   string   `json:"skill_id"`
	Summary   string   `json:"summary"`
	SubSkills []string `json:"sub_skills"`
	Score     float32  `json:"score"`
}

// TreeNode is a recursive node in the skill forest.
type TreeNode struct {
	SkillID  string      `json:"skill_id"`
	Summary  string      `json:"summary"`
	IsFolder bool        `json:"is_folder"`
	Children []*TreeNode `json:"children"`
}

// Resolution is the result of the single-shot agentic resolve loop.
type Resolution struct {
	Resolved bool        `json:"resolved"`
	Message  string      `json:"message,omitempty"`
	Entry    *Skill      `json:"entry,omitempty"`
	Children []Discovery `json:"children,omitempty"`
	Hint     string      `json:"hint,omitempty"`
	Skill    *Skill      `json:"skill,omitempty"`
}

// Health is a best-effort status report over the store and embedding model.
type Health struct {
	Status         string `json:"status"`
	VectorStore    string `json:"vector_store"`
	EmbeddingModel string `json:"embedding_model"`
	EmbeddingDims  int    `json:"embedding_dims"`
	Degraded       bool   `json:"degraded"`
}
