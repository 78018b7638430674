package mcp

import (
	"context"
	"errors"
	"fmt"

	"skillhub/internal/skill"
)

// protocolVersion is advertised during the initialize handshake.
const protocolVersion = "2024-11-05"

const (
	serverName    = "skillhub"
	serverVersion = "1.0.0"
)

// JSON-RPC 2.0 error codes.
const (
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// Orchestrator is the slice of skill operations the tool router needs.
type Orchestrator interface {
	Discover(ctx context.Context, query string, k int) ([]skill.Discovery, error)
	GetSkill(ctx context.Context, skillID string, includeInstruction bool) (*skill.Skill, error)
	GetSubSkills(ctx context.Context, skillID string) ([]skill.Discovery, error)
}

// ToolRouter dispatches incoming tool-call payloads to the orchestrator.
// Both protocol paths share one dispatch function and differ only in the
// formatter they hand it.
type ToolRouter struct {
	orch Orchestrator
}

// NewToolRouter creates a ToolRouter over the given orchestrator.
func NewToolRouter(orch Orchestrator) *ToolRouter {
	return &ToolRouter{orch: orch}
}

// ListTools returns the tool catalogue (used by both protocol paths).
func (r *ToolRouter) ListTools() []ToolDefinition {
	return ToolDefinitions()
}

// CallTool dispatches a legacy tool call and returns a typed envelope, or
// an inline {"error": ...} object. Tool failures are never protocol-level
// failures on this path.
func (r *ToolRouter) CallTool(ctx context.Context, name string, arguments map[string]any) any {
	result, err := r.dispatch(ctx, name, arguments, envelopeFormatter{})
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return result
}

// Request is a single JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      any            `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

// Response is a single JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// HandleJSONRPC handles a single JSON-RPC 2.0 request.
//
// Supported methods:
//
//	initialize: capability handshake required by MCP clients
//	tools/list: return the tool catalogue
//	tools/call: invoke a tool and return MCP content
func (r *ToolRouter) HandleJSONRPC(ctx context.Context, req *Request) *Response {
	ok := func(result any) *Response {
		return &Response{JSONRPC: "2.0", ID: req.ID, Result: result}
	}
	rpcErr := func(code int, message string) *Response {
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: &RPCError{Code: code, Message: message}}
	}

	switch req.Method {
	case "initialize":
		return ok(map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": serverName, "version": serverVersion},
		})

	case "tools/list":
		return ok(map[string]any{"tools": r.ListTools()})

	case "tools/call":
		name, _ := req.Params["name"].(string)
		if name == "" {
			return rpcErr(codeInvalidParams, "Missing required param: 'name'")
		}
		arguments, _ := req.Params["arguments"].(map[string]any)
		result, err := r.dispatch(ctx, name, arguments, contentFormatter{})
		if err != nil {
			var unknown *unknownToolError
			if errors.As(err, &unknown) {
				return rpcErr(codeInternalError, fmt.Sprintf("Unknown tool: '%s'", unknown.name))
			}
			return rpcErr(codeInternalError, err.Error())
		}
		return ok(result)

	default:
		return rpcErr(codeMethodNotFound, fmt.Sprintf("Method not found: '%s'", req.Method))
	}
}

// dispatch runs one tool against the orchestrator and shapes the result
// through f. Returned errors are tool-level and caller-visible; each
// wrapper decides how to surface them.
func (r *ToolRouter) dispatch(ctx context.Context, name string, arguments map[string]any, f formatter) (any, error) {
	switch name {
	case "find_relevant_skill":
		query, _ := arguments["query"].(string)
		if query == "" {
			return nil, errors.New("Missing required argument: 'query'")
		}
		k := skill.DefaultK
		if raw, ok := arguments["k"]; ok {
			switch v := raw.(type) {
			case float64: // JSON numbers decode as float64
				k = int(v)
			case int:
				k = v
			}
		}
		results, err := r.orch.Discover(ctx, query, k)
		if err != nil {
			return nil, err
		}
		return f.Discovery(results), nil

	case "load_instruction":
		skillID, _ := arguments["skill_id"].(string)
		if skillID == "" {
			return nil, errors.New("Missing required argument: 'skill_id'")
		}
		s, err := r.orch.GetSkill(ctx, skillID, true)
		if errors.Is(err, skill.ErrNotFound) {
			return nil, fmt.Errorf("Skill '%s' not found.", skillID)
		}
		if err != nil {
			return nil, err
		}
		return f.Instruction(s), nil

	case "list_sub_skills":
		skillID, _ := arguments["skill_id"].(string)
		if skillID == "" {
			return nil, errors.New("Missing required argument: 'skill_id'")
		}
		children, err := r.orch.GetSubSkills(ctx, skillID)
		if err != nil {
			return nil, err
		}
		return f.SubSkills(children), nil

	default:
		return nil, &unknownToolError{name: name}
	}
}

// unknownToolError distinguishes a bad tool name from tool execution
// failures. The legacy envelope carries the name bare; the JSON-RPC path
// quotes it.
type unknownToolError struct {
	name string
}

func (e *unknownToolError) Error() string {
	return "Unknown tool: " + e.name
}
