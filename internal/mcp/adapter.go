package mcp

import (
	"fmt"
	"strings"

	"skillhub/internal/skill"
)

// ToolDefinition describes one entry of the fixed tool catalogue in the
// MCP tools/list shape.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ToolDefinitions returns the tool catalogue an agent can call.
// The catalogue is fixed: exactly these three tools.
func ToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name: "find_relevant_skill",
			Description: "Search the skill database for capabilities matching a " +
				"natural-language query. Returns lightweight summaries — " +
				"call load_instruction to get the full content.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Natural-language description of what you need.",
					},
					"k": map[string]any{
						"type":        "integer",
						"description": "Number of results to return (default 3).",
						"default":     3,
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name: "load_instruction",
			Description: "Fetch the full instruction content for a specific skill " +
				"by its skill_id. Use this after discovery to get the " +
				"detailed Markdown guide.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"skill_id": map[string]any{
						"type":        "string",
						"description": "The unique identifier of the skill to load.",
					},
				},
				"required": []string{"skill_id"},
			},
		},
		{
			Name: "list_sub_skills",
			Description: "List the immediate children of a folder-type skill. " +
				"Returns summaries only.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"skill_id": map[string]any{
						"type":        "string",
						"description": "The parent skill whose children to list.",
					},
				},
				"required": []string{"skill_id"},
			},
		},
	}
}

// formatter shapes dispatch results for one protocol. The legacy path
// produces typed envelopes, the JSON-RPC path renders text content blocks;
// both sit over the same dispatch logic.
type formatter interface {
	Discovery(results []skill.Discovery) any
	Instruction(s *skill.Skill) any
	SubSkills(children []skill.Discovery) any
}

// envelopeFormatter produces the legacy REST-style typed envelopes.
type envelopeFormatter struct{}

func (envelopeFormatter) Discovery(results []skill.Discovery) any {
	out := make([]map[string]any, 0, len(results))
	for _, r := range results {
		out = append(out, map[string]any{
			"skill_id":     r.SkillID,
			"summary":      r.Summary,
			"has_children": len(r.SubSkills) > 0,
			"score":        r.Score,
		})
	}
	return map[string]any{"type": "skill_discovery", "results": out}
}

func (envelopeFormatter) Instruction(s *skill.Skill) any {
	return map[string]any{
		"type":       "skill_instruction",
		"skill_id":   s.SkillID,
		"summary":    s.Summary,
		"content":    s.Instruction,
		"sub_skills": s.SubSkills,
	}
}

func (envelopeFormatter) SubSkills(children []skill.Discovery) any {
	out := make([]map[string]any, 0, len(children))
	for _, c := range children {
		out = append(out, map[string]any{
			"skill_id":     c.SkillID,
			"summary":      c.Summary,
			"has_children": len(c.SubSkills) > 0,
		})
	}
	return map[string]any{"type": "skill_children", "children": out}
}

// ContentBlock is a single MCP content entry.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToolContent is the standard MCP result shape for tools/call.
type ToolContent struct {
	Content []ContentBlock `json:"content"`
}

// contentFormatter renders results as MCP text content for the JSON-RPC
// path.
type contentFormatter struct{}

func textContent(text string) ToolContent {
	return ToolContent{Content: []ContentBlock{{Type: "text", Text: text}}}
}

func (contentFormatter) Discovery(results []skill.Discovery) any {
	if len(results) == 0 {
		return textContent("No matching skills found.")
	}
	var lines []string
	for i, r := range results {
		hasChildren := len(r.SubSkills) > 0
		lines = append(lines, fmt.Sprintf("%d. **%s**  (score: %.3f, folder: %t)", i+1, r.SkillID, r.Score, hasChildren))
		lines = append(lines, fmt.Sprintf("   %s", r.Summary))
	}
	return textContent(strings.Join(lines, "\n"))
}

func (contentFormatter) Instruction(s *skill.Skill) any {
	text := s.Instruction
	if text == "" {
		text = "_No instruction available._"
	}
	return textContent(text)
}

func (contentFormatter) SubSkills(children []skill.Discovery) any {
	if len(children) == 0 {
		return textContent("No child skills found.")
	}
	var lines []string
	for _, c := range children {
		kind := "leaf"
		if len(c.SubSkills) > 0 {
			kind = "folder"
		}
		lines = append(lines, fmt.Sprintf("- **%s**: %s (%s)", c.SkillID, c.Summary, kind))
	}
	return textContent(strings.Join(lines, "\n"))
}
