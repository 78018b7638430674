package handlers

import (
	"encoding/json"
	"net/http"

	"skillhub/internal/mcp"
)

// MCPHandler exposes the tool protocol endpoints, both the legacy
// call-by-name path and the JSON-RPC 2.0 path.
type MCPHandler struct {
	router *mcp.ToolRouter
}

// NewMCPHandler creates a new MCPHandler.
func NewMCPHandler(router *mcp.ToolRouter) *MCPHandler {
	return &MCPHandler{router: router}
}

// ToolCallRequest is the payload for the legacy POST /mcp/tools/call.
type ToolCallRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ListTools handles GET /mcp/tools, the catalogue of available tools.
func (h *MCPHandler) ListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, h.router.ListTools())
}

// CallTool handles POST /mcp/tools/call, the legacy dispatch path.
// Tool-level failures come back as 200s with an inline error object.
func (h *MCPHandler) CallTool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ToolCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		writeError(ctx, w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Arguments == nil {
		req.Arguments = map[string]any{}
	}

	writeJSON(ctx, w, http.StatusOK, h.router.CallTool(ctx, req.Name, req.Arguments))
}

// JSONRPC handles POST /mcp, the JSON-RPC 2.0 path used by standard MCP
// clients. Errors are always JSON-RPC error objects, never HTTP failures.
func (h *MCPHandler) JSONRPC(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req mcp.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(ctx, w, http.StatusOK, &mcp.Response{
			JSONRPC: "2.0",
			Error:   &mcp.RPCError{Code: -32700, Message: "Parse error"},
		})
		return
	}

	writeJSON(ctx, w, http.StatusOK, h.router.HandleJSONRPC(ctx, &req))
}
