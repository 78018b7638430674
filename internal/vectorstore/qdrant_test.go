package vectorstore

import (
	"reflect"
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

func TestPointIDDeterministic(t *testing.T) {
	a := PointID("SQL_SKILL")
	b := PointID("SQL_SKILL")
	if a != b {
		t.Fatalf("PointID is not deterministic: %s != %s", a, b)
	}
	if a == PointID("PYTHON_SKILL") {
		t.Fatal("different skill ids must map to different point ids")
	}
	// Qdrant requires UUID-shaped ids.
	if len(a) != 36 {
		t.Fatalf("expected UUID string, got %q", a)
	}
}

func TestNewQdrantStoreRejectsBadURL(t *testing.T) {
	if _, err := NewQdrantStore("://not-a-url", "skills"); err == nil {
		t.Fatal("expected error for malformed URL")
	}
}

func TestSkillFromPayload(t *testing.T) {
	payload := qdrant.NewValueMap(map[string]any{
		"skill_id":    "SQL_SKILL",
		"summary":     "SQL skills",
		"is_folder":   true,
		"sub_skills":  []any{"SQL_SKILL_MIGRATION", "SQL_SKILL_OPTIMIZATION"},
		"instruction": "Top-level collection.",
	})

	sk := skillFromPayload(payload)
	if sk.SkillID != "SQL_SKILL" || sk.Summary != "SQL skills" {
		t.Fatalf("unexpected skill: %+v", sk)
	}
	if !sk.IsFolder {
		t.Fatal("expected is_folder to be true")
	}
	if !reflect.DeepEqual(sk.SubSkills, []string{"SQL_SKILL_MIGRATION", "SQL_SKILL_OPTIMIZATION"}) {
		t.Fatalf("unexpected sub_skills: %v", sk.SubSkills)
	}
	if sk.Instruction != "Top-level collection." {
		t.Fatalf("unexpected instruction: %q", sk.Instruction)
	}
}

func TestSkillFromPayloadMissingFields(t *testing.T) {
	sk := skillFromPayload(map[string]*qdrant.Value{})
	if sk.SkillID != "" || sk.Summary != "" || sk.IsFolder {
		t.Fatalf("expected zero-value skill, got %+v", sk)
	}
	if sk.SubSkills == nil || len(sk.SubSkills) != 0 {
		t.Fatalf("expected empty sub_skills list, got %v", sk.SubSkills)
	}
}

func TestConvertValueKinds(t *testing.T) {
	payload := qdrant.NewValueMap(map[string]any{
		"text":   "hello",
		"flag":   true,
		"count":  int64(3),
		"ratio":  0.5,
		"nested": map[string]any{"inner": "value"},
	})
	got := convertPayloadToMap(payload)

	if got["text"] != "hello" || got["flag"] != true {
		t.Fatalf("unexpected conversion: %v", got)
	}
	if got["count"] != int64(3) {
		t.Fatalf("unexpected integer conversion: %v (%T)", got["count"], got["count"])
	}
	if got["ratio"] != 0.5 {
		t.Fatalf("unexpected double conversion: %v", got["ratio"])
	}
	nested, ok := got["nested"].(map[string]any)
	if !ok || nested["inner"] != "value" {
		t.Fatalf("unexpected struct conversion: %v", got["nested"])
	}
}
