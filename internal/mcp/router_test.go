package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"skillhub/internal/skill"
)

// stubOrchestrator serves canned results for the three tool operations.
type stubOrchestrator struct {
	discoveries []skill.Discovery
	skills      map[string]*skill.Skill
	children    map[string][]skill.Discovery
	discoverErr error
}

func (s *stubOrchestrator) Discover(ctx context.Context, query string, k int) ([]skill.Discovery, error) {
	if s.discoverErr != nil {
		return nil, s.discoverErr
	}
	if k < len(s.discoveries) {
		return s.discoveries[:k], nil
	}
	return s.discoveries, nil
}

func (s *stubOrchestrator) GetSkill(ctx context.Context, skillID string, includeInstruction bool) (*skill.Skill, error) {
	doc, ok := s.skills[skillID]
	if !ok {
		return nil, skill.ErrNotFound
	}
	return doc, nil
}

func (s *stubOrchestrator) GetSubSkills(ctx context.Context, skillID string) ([]skill.Discovery, error) {
	return s.children[skillID], nil
}

func newStub() *stubOrchestrator {
	return &stubOrchestrator{
		discoveries: []skill.Discovery{
			{SkillID: "SQL_SKILL", Summary: "SQL skills", SubSkills: []string{"SQL_SKILL_MIGRATION"}, Score: 0.92},
		},
		skills: map[string]*skill.Skill{
			"SQL_SKILL": {
				SkillID:     "SQL_SKILL",
				Summary:     "SQL skills",
				IsFolder:    true,
				SubSkills:   []string{"SQL_SKILL_MIGRATION"},
				Instruction: "Top-level SQL collection.",
			},
		},
		children: map[string][]skill.Discovery{
			"SQL_SKILL": {
				{SkillID: "SQL_SKILL_MIGRATION", Summary: "Migrations"},
			},
		},
	}
}

func TestToolCatalogue(t *testing.T) {
	router := NewToolRouter(newStub())

	tools := router.ListTools()
	if len(tools) != 3 {
		t.Fatalf("expected exactly 3 tools, got %d", len(tools))
	}

	want := map[string]bool{
		"find_relevant_skill": true,
		"load_instruction":    true,
		"list_sub_skills":     true,
	}
	for _, tool := range tools {
		if !want[tool.Name] {
			t.Fatalf("unexpected tool in catalogue: %s", tool.Name)
		}
		if tool.Description == "" {
			t.Fatalf("tool %s has no description", tool.Name)
		}
		if tool.InputSchema["type"] != "object" {
			t.Fatalf("tool %s schema is not an object", tool.Name)
		}
	}
}

func TestCallToolDiscoveryEnvelope(t *testing.T) {
	router := NewToolRouter(newStub())

	result := router.CallTool(context.Background(), "find_relevant_skill", map[string]any{"query": "sql"})
	envelope, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("expected map envelope, got %T", result)
	}
	if envelope["type"] != "skill_discovery" {
		t.Fatalf("expected skill_discovery envelope, got %v", envelope["type"])
	}
	results, ok := envelope["results"].([]map[string]any)
	if !ok || len(results) != 1 {
		t.Fatalf("unexpected results: %v", envelope["results"])
	}
	if results[0]["skill_id"] != "SQL_SKILL" {
		t.Fatalf("unexpected skill_id: %v", results[0]["skill_id"])
	}
	if results[0]["has_children"] != true {
		t.Fatal("expected has_children to be true for folder skill")
	}
}

func TestCallToolMissingArguments(t *testing.T) {
	router := NewToolRouter(newStub())
	ctx := context.Background()

	tests := []struct {
		tool    string
		args    map[string]any
		wantErr string
	}{
		{"find_relevant_skill", map[string]any{}, "Missing required argument: 'query'"},
		{"load_instruction", map[string]any{}, "Missing required argument: 'skill_id'"},
		{"list_sub_skills", map[string]any{}, "Missing required argument: 'skill_id'"},
	}

	for _, tt := range tests {
		result := router.CallTool(ctx, tt.tool, tt.args)
		envelope, ok := result.(map[string]any)
		if !ok {
			t.Fatalf("%s: expected map, got %T", tt.tool, result)
		}
		if envelope["error"] != tt.wantErr {
			t.Fatalf("%s: error = %v, want %q", tt.tool, envelope["error"], tt.wantErr)
		}
	}
}

func TestCallToolUnknownTool(t *testing.T) {
	router := NewToolRouter(newStub())

	result := router.CallTool(context.Background(), "does_not_exist", map[string]any{})
	envelope := result.(map[string]any)
	if envelope["error"] != "Unknown tool: does_not_exist" {
		t.Fatalf("unexpected error: %v", envelope["error"])
	}
}

func TestCallToolSkillNotFound(t *testing.T) {
	router := NewToolRouter(newStub())

	result := router.CallTool(context.Background(), "load_instruction", map[string]any{"skill_id": "MISSING"})
	envelope := result.(map[string]any)
	if envelope["error"] != "Skill 'MISSING' not found." {
		t.Fatalf("unexpected error: %v", envelope["error"])
	}
}

func TestJSONRPCInitialize(t *testing.T) {
	router := NewToolRouter(newStub())

	resp := router.HandleJSONRPC(context.Background(), &Request{
		JSONRPC: "2.0", ID: 1, Method: "initialize",
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result := resp.Result.(map[string]any)
	if result["protocolVersion"] != protocolVersion {
		t.Fatalf("unexpected protocol version: %v", result["protocolVersion"])
	}
	info := result["serverInfo"].(map[string]any)
	if info["name"] != serverName || info["version"] != serverVersion {
		t.Fatalf("unexpected server info: %v", info)
	}
}

func TestJSONRPCToolsList(t *testing.T) {
	router := NewToolRouter(newStub())

	resp := router.HandleJSONRPC(context.Background(), &Request{
		JSONRPC: "2.0", ID: 2, Method: "tools/list",
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result := resp.Result.(map[string]any)
	tools := result["tools"].([]ToolDefinition)
	if len(tools) != 3 {
		t.Fatalf("expected 3 tools, got %d", len(tools))
	}
}

func TestJSONRPCMethodNotFound(t *testing.T) {
	router := NewToolRouter(newStub())

	resp := router.HandleJSONRPC(context.Background(), &Request{
		JSONRPC: "2.0", ID: 3, Method: "resources/list",
	})
	if resp.Error == nil || resp.Error.Code != -32601 {
		t.Fatalf("expected -32601, got %+v", resp.Error)
	}
}

func TestJSONRPCToolsCallMissingName(t *testing.T) {
	router := NewToolRouter(newStub())

	resp := router.HandleJSONRPC(context.Background(), &Request{
		JSONRPC: "2.0", ID: 4, Method: "tools/call", Params: map[string]any{},
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Fatalf("expected -32602, got %+v", resp.Error)
	}
}

func TestJSONRPCToolError(t *testing.T) {
	stub := newStub()
	stub.discoverErr = errors.New("store offline")
	router := NewToolRouter(stub)

	resp := router.HandleJSONRPC(context.Background(), &Request{
		JSONRPC: "2.0", ID: 5, Method: "tools/call",
		Params: map[string]any{
			"name":      "find_relevant_skill",
			"arguments": map[string]any{"query": "sql"},
		},
	})
	if resp.Error == nil || resp.Error.Code != -32603 {
		t.Fatalf("expected -32603, got %+v", resp.Error)
	}
}

func TestJSONRPCUnknownToolQuotesName(t *testing.T) {
	router := NewToolRouter(newStub())

	resp := router.HandleJSONRPC(context.Background(), &Request{
		JSONRPC: "2.0", ID: 10, Method: "tools/call",
		Params: map[string]any{"name": "does_not_exist", "arguments": map[string]any{}},
	})
	if resp.Error == nil || resp.Error.Code != -32603 {
		t.Fatalf("expected -32603, got %+v", resp.Error)
	}
	if resp.Error.Message != "Unknown tool: 'does_not_exist'" {
		t.Fatalf("unexpected message: %q", resp.Error.Message)
	}
}

func TestJSONRPCToolsCallRendersContent(t *testing.T) {
	router := NewToolRouter(newStub())

	resp := router.HandleJSONRPC(context.Background(), &Request{
		JSONRPC: "2.0", ID: 6, Method: "tools/call",
		Params: map[string]any{
			"name":      "load_instruction",
			"arguments": map[string]any{"skill_id": "SQL_SKILL"},
		},
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	content := resp.Result.(ToolContent)
	if len(content.Content) != 1 || content.Content[0].Type != "text" {
		t.Fatalf("unexpected content shape: %+v", content)
	}
	if content.Content[0].Text != "Top-level SQL collection." {
		t.Fatalf("unexpected text: %q", content.Content[0].Text)
	}
}

// Both protocol paths must dispatch identically; only the result rendering
// differs.
func TestProtocolPathsAgree(t *testing.T) {
	router := NewToolRouter(newStub())
	ctx := context.Background()
	args := map[string]any{"query": "sql"}

	legacy := router.CallTool(ctx, "find_relevant_skill", args).(map[string]any)
	legacyResults := legacy["results"].([]map[string]any)

	resp := router.HandleJSONRPC(ctx, &Request{
		JSONRPC: "2.0", ID: 7, Method: "tools/call",
		Params: map[string]any{"name": "find_relevant_skill", "arguments": args},
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	content := resp.Result.(ToolContent)
	text := content.Content[0].Text

	if len(legacyResults) != 1 {
		t.Fatalf("expected 1 legacy result, got %d", len(legacyResults))
	}
	if !strings.Contains(text, legacyResults[0]["skill_id"].(string)) {
		t.Fatalf("JSON-RPC text %q does not mention %v", text, legacyResults[0]["skill_id"])
	}
}

func TestContentFormatterEmptyResults(t *testing.T) {
	stub := newStub()
	stub.discoveries = nil
	stub.children = nil
	router := NewToolRouter(stub)
	ctx := context.Background()

	resp := router.HandleJSONRPC(ctx, &Request{
		JSONRPC: "2.0", ID: 8, Method: "tools/call",
		Params: map[string]any{"name": "find_relevant_skill", "arguments": map[string]any{"query": "x"}},
	})
	content := resp.Result.(ToolContent)
	if content.Content[0].Text != "No matching skills found." {
		t.Fatalf("unexpected empty-discovery text: %q", content.Content[0].Text)
	}

	resp = router.HandleJSONRPC(ctx, &Request{
		JSONRPC: "2.0", ID: 9, Method: "tools/call",
		Params: map[string]any{"name": "list_sub_skills", "arguments": map[string]any{"skill_id": "SQL_SKILL"}},
	})
	content = resp.Result.(ToolContent)
	if content.Content[0].Text != "No child skills found." {
		t.Fatalf("unexpected empty-children text: %q", content.Content[0].Text)
	}
}

func TestDispatchParsesKFromJSONNumber(t *testing.T) {
	stub := newStub()
	stub.discoveries = []skill.Discovery{
		{SkillID: "A", Summary: "a"},
		{SkillID: "B", Summary: "b"},
		{SkillID: "C", Summary: "c"},
	}
	router := NewToolRouter(stub)

	// JSON numbers arrive as float64.
	result := router.CallTool(context.Background(), "find_relevant_skill", map[string]any{
		"query": "q",
		"k":     float64(2),
	})
	envelope := result.(map[string]any)
	results := envelope["results"].([]map[string]any)
	if len(results) != 2 {
		t.Fatalf("expected k=2 results, got %d", len(results))
	}
}
