// Package mcp exposes the tool registry over two wire shapes:
//
//  1. A plain REST endpoint, POST /execute_tool, that names a plugin
//     and function explicitly and returns the tool result (or a
//     structured error) in a flat JSON body.
//  2. A JSON-RPC 2.0 surface under /mcp/* (initialize, tools/list,
//     tools/call, and stub resources/prompts listings) for clients
//     that speak the Model Context Protocol handshake.
//
// Both shapes funnel into the same tools.Registry dispatch, so a tool
// behaves identically no matter which door it was called through.
package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/people-api/internal/tools"
	"github.com/aanand-mishra/people-api/internal/types"
	"github.com/aanand-mishra/people-api/internal/utils/response"
)

// Protocol identity advertised by the initialize handshake.
const (
	protocolVersion = "2024-11-05"
	serverName      = "people-api"
	serverVersion   = "1.0.0"
)

// ─────────────────────────────────────────────────────────────────────────────
// POST /execute_tool
//
// Request body (JSON):
//
//	{ "plugin_name": "PeopleCRUD", "function_name": "get_person_by_id",
//	  "arguments": { "person_id": 1 } }
//
// Success response (200 OK):
//
//	{ "plugin_name": "...", "function_name": "...", "result": <tool value> }
//
// Error responses:
//   - 400 — empty or undecodable body, bad/missing tool arguments
//   - 404 — unknown plugin or function (listing what does exist), or the
//     tool itself reported that no such record exists
//   - 409 — the tool reported a unique-field conflict
//   - 422 — plugin_name/function_name missing, or tool payload failed
//     validation
//   - 500 — anything unanticipated
//
// ─────────────────────────────────────────────────────────────────────────────

// executeToolError is the structured error body for a tool that was
// found and ran, but reported a failure.
type executeToolError struct {
	PluginName   string           `json:"plugin_name"`
	FunctionName string           `json:"function_name"`
	Error        *tools.ToolError `json:"error"`
}

// ExecuteTool handles POST /execute_tool.
func ExecuteTool(registry *tools.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ExecuteToolRequest

		err := json.NewDecoder(r.Body).Decode(&req)
		if errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("request body is empty")))
			return
		}
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		if err := validator.New().Struct(req); err != nil {
			validateErrs := err.(validator.ValidationErrors)
			response.WriteJSON(w, http.StatusUnprocessableEntity,
				response.ValidationError(validateErrs))
			return
		}

		// Resolve plugin → function the way the availability listing
		// groups them, so "not found" errors can name what does exist.
		pluginTools, ok := registry.PluginTools(req.PluginName)
		if !ok {
			response.WriteJSON(w, http.StatusNotFound,
				response.GeneralError(fmt.Errorf(
					"plugin %q not found; available plugins: %s",
					req.PluginName, strings.Join(registry.PluginNames(), ", "))))
			return
		}

		var found bool
		for _, t := range pluginTools {
			if t.Name == req.FunctionName {
				found = true
				break
			}
		}
		if !found {
			names := make([]string, len(pluginTools))
			for i, t := range pluginTools {
				names[i] = t.Name
			}
			response.WriteJSON(w, http.StatusNotFound,
				response.GeneralError(fmt.Errorf(
					"function %q not found in plugin %q; available functions: %s",
					req.FunctionName, req.PluginName, strings.Join(names, ", "))))
			return
		}

		slog.Info("executing tool",
			slog.String("plugin", req.PluginName),
			slog.String("function", req.FunctionName))

		res := registry.Dispatch(r.Context(), req.FunctionName, req.Arguments)
		if !res.OK() {
			response.WriteJSON(w, statusForToolError(res.Err.Code), executeToolError{
				PluginName:   req.PluginName,
				FunctionName: req.FunctionName,
				Error:        res.Err,
			})
			return
		}

		response.WriteJSON(w, http.StatusOK, map[string]any{
			"plugin_name":   req.PluginName,
			"function_name": req.FunctionName,
			"result":        res.Value,
		})
	}
}

// statusForToolError maps a dispatch reason code onto the HTTP status
// /execute_tool responds with.
func statusForToolError(code string) int {
	switch code {
	case tools.CodeNotFound:
		return http.StatusNotFound
	case tools.CodeConflict:
		return http.StatusConflict
	case tools.CodeValidation:
		return http.StatusUnprocessableEntity
	case tools.CodeInvalidArgument, tools.CodeMalformedPayload:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GET /mcp/
// Availability listing: which plugins exist and what functions each
// carries, so a caller can discover valid /execute_tool inputs.
// ─────────────────────────────────────────────────────────────────────────────

// Availability handles GET /mcp/.
func Availability(registry *tools.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plugins := make([]map[string]any, 0)
		for _, pluginName := range registry.PluginNames() {
			pluginTools, _ := registry.PluginTools(pluginName)
			functions := make([]map[string]any, 0, len(pluginTools))
			for _, t := range pluginTools {
				functions = append(functions, map[string]any{
					"name":        t.Name,
					"description": t.Description,
				})
			}
			plugins = append(plugins, map[string]any{
				"name":      pluginName,
				"functions": functions,
			})
		}

		response.WriteJSON(w, http.StatusOK, map[string]any{
			"status":  "MCP is available",
			"plugins": plugins,
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// JSON-RPC 2.0 surface under /mcp/*.
//
// Every POST endpoint accepts a JSON-RPC envelope and replies with one,
// always over HTTP 200 — the transport succeeded even when the call did
// not, so failures live in the envelope's error object:
//
//	{ "jsonrpc": "2.0", "id": 1, "error": { "code": -32601, "message": "..." } }
//
// Codes follow the JSON-RPC spec: -32700 parse error, -32600 invalid
// request, -32601 method/tool not found, -32602 invalid params,
// -32603 internal error; -32000 covers application-level failures
// (missing record, unique-field conflict).
// ─────────────────────────────────────────────────────────────────────────────

type jsonrpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonrpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func rpcResult(id any, result any) *jsonrpcResponse {
	return &jsonrpcResponse{JSONRPC: "2.0", ID: id, Result: result}
}

func rpcErr(id any, code int, msg string) *jsonrpcResponse {
	return &jsonrpcResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: msg}}
}

// readEnvelope decodes and checks the JSON-RPC request envelope.
// A non-nil response means the envelope was unusable and the caller
// should send that response back instead of proceeding.
func readEnvelope(r *http.Request) (jsonrpcRequest, *jsonrpcResponse) {
	var req jsonrpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, rpcErr(nil, -32700, "parse error: "+err.Error())
	}
	if req.JSONRPC != "2.0" {
		return req, rpcErr(req.ID, -32600, "invalid request: jsonrpc must be \"2.0\"")
	}
	return req, nil
}

// Initialize handles POST /mcp/initialize: the MCP handshake that
// reports the protocol version and which capability groups exist.
func Initialize(registry *tools.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, bad := readEnvelope(r)
		if bad != nil {
			response.WriteJSON(w, http.StatusOK, bad)
			return
		}

		slog.Info("mcp initialize", slog.Any("id", req.ID))

		response.WriteJSON(w, http.StatusOK, rpcResult(req.ID, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]any{
				"tools":     map[string]any{},
				"resources": map[string]any{},
				"prompts":   map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    serverName,
				"version": serverVersion,
			},
		}))
	}
}

// ToolsList handles GET and POST /mcp/tools/list. GET carries no
// envelope, so the response id is null; POST echoes the request id.
func ToolsList(registry *tools.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var id any
		if r.Method == http.MethodPost {
			req, bad := readEnvelope(r)
			if bad != nil {
				response.WriteJSON(w, http.StatusOK, bad)
				return
			}
			id = req.ID
		}

		registryTools := registry.Tools()
		list := make([]map[string]any, 0, len(registryTools))
		for _, t := range registryTools {
			list = append(list, map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"inputSchema": t.InputSchema(),
			})
		}

		response.WriteJSON(w, http.StatusOK, rpcResult(id, map[string]any{
			"tools": list,
		}))
	}
}

// ToolsCall handles POST /mcp/tools/call: resolves params.name against
// the registry, dispatches, and wraps the outcome in MCP's text-content
// result shape (or a JSON-RPC error object).
func ToolsCall(registry *tools.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, bad := readEnvelope(r)
		if bad != nil {
			response.WriteJSON(w, http.StatusOK, bad)
			return
		}

		var params struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		}
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &params); err != nil {
				response.WriteJSON(w, http.StatusOK,
					rpcErr(req.ID, -32602, "invalid params: "+err.Error()))
				return
			}
		}
		if params.Name == "" {
			response.WriteJSON(w, http.StatusOK,
				rpcErr(req.ID, -32602, "invalid params: name is required"))
			return
		}

		slog.Info("mcp tools/call", slog.String("tool", params.Name))

		res := registry.Dispatch(r.Context(), params.Name, params.Arguments)
		if !res.OK() {
			response.WriteJSON(w, http.StatusOK,
				rpcErr(req.ID, rpcCodeForToolError(res.Err.Code), res.Err.Message))
			return
		}

		response.WriteJSON(w, http.StatusOK, rpcResult(req.ID, map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": res.ValueJSON()},
			},
			"isError": false,
		}))
	}
}

// rpcCodeForToolError maps a dispatch reason code onto a JSON-RPC
// error code for tools/call.
func rpcCodeForToolError(code string) int {
	switch code {
	case tools.CodeToolNotFound:
		return -32601
	case tools.CodeInvalidArgument, tools.CodeMalformedPayload, tools.CodeValidation:
		return -32602
	case tools.CodeNotFound, tools.CodeConflict:
		return -32000
	default:
		return -32603
	}
}

// ResourcesList handles POST /mcp/resources/list. This server exposes
// no resources, so the listing is always empty.
func ResourcesList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, bad := readEnvelope(r)
		if bad != nil {
			response.WriteJSON(w, http.StatusOK, bad)
			return
		}
		response.WriteJSON(w, http.StatusOK, rpcResult(req.ID, map[string]any{
			"resources": []any{},
		}))
	}
}

// PromptsList handles POST /mcp/prompts/list. This server exposes no
// prompt templates, so the listing is always empty.
func PromptsList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, bad := readEnvelope(r)
		if bad != nil {
			response.WriteJSON(w, http.StatusOK, bad)
			return
		}
		response.WriteJSON(w, http.StatusOK, rpcResult(req.ID, map[string]any{
			"prompts": []any{},
		}))
	}
}

// Notification handles POST /mcp/notifications/{rest...}. JSON-RPC
// notifications carry no id and expect no reply body, so every
// notification is acknowledged with 202 and nothing else.
func Notification() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("mcp notification", slog.String("path", r.URL.Path))
		w.WriteHeader(http.StatusAccepted)
	}
}
