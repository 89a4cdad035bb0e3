package mcp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/people-api/internal/mapping"
	"github.com/aanand-mishra/people-api/internal/storage"
	"github.com/aanand-mishra/people-api/internal/tools"
	"github.com/aanand-mishra/people-api/internal/types"
)

// memStore is the minimal in-memory Storage these handler tests need.
type memStore struct {
	people []types.Person
	nextID int64
}

var _ storage.Storage = (*memStore)(nil)

func (m *memStore) CreatePerson(req types.CreatePersonRequest) (types.Person, error) {
	m.nextID++
	person := types.Person{
		ID:        m.nextID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Age:       req.Age,
		Email:     req.Email,
	}
	m.people = append(m.people, person)
	return person, nil
}

func (m *memStore) GetPersonByID(id int64) (types.Person, bool, error) {
	for _, p := range m.people {
		if p.ID == id {
			return p, true, nil
		}
	}
	return types.Person{}, false, nil
}

func (m *memStore) GetPeople(skip, limit int64) ([]types.Person, error) {
	out := make([]types.Person, 0)
	for i := skip; i < int64(len(m.people)) && int64(len(out)) < limit; i++ {
		out = append(out, m.people[i])
	}
	return out, nil
}

func (m *memStore) UpdatePersonByID(id int64, patch mapping.PersonPatch) (types.Person, bool, error) {
	for i, p := range m.people {
		if p.ID == id {
			m.people[i] = patch.ApplyTo(p)
			return m.people[i], true, nil
		}
	}
	return types.Person{}, false, nil
}

func (m *memStore) DeletePersonByID(id int64) (bool, error) {
	for i, p := range m.people {
		if p.ID == id {
			m.people = append(m.people[:i], m.people[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func newTestRegistry(t *testing.T) (*tools.Registry, *memStore) {
	t.Helper()
	store := &memStore{}
	return tools.NewRegistry(store), store
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// ─────────────────────────────────────────────────────────────────────────────
// POST /execute_tool
// ─────────────────────────────────────────────────────────────────────────────

func TestExecuteTool(t *testing.T) {
	registry, store := newTestRegistry(t)
	store.CreatePerson(types.CreatePersonRequest{FirstName: "John", LastName: "Doe"})
	handler := ExecuteTool(registry)

	rec := postJSON(t, handler, "/execute_tool", `{
		"plugin_name": "PeopleCRUD",
		"function_name": "get_person_by_id",
		"arguments": {"person_id": 1}
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "PeopleCRUD", body["plugin_name"])
	assert.Equal(t, "get_person_by_id", body["function_name"])

	result, ok := body["result"].(map[string]any)
	require.True(t, ok, "result should be the person object")
	assert.Equal(t, "John", result["first_name"])
}

func TestExecuteToolSystemPrompt(t *testing.T) {
	registry, _ := newTestRegistry(t)
	handler := ExecuteTool(registry)

	rec := postJSON(t, handler, "/execute_tool", `{
		"plugin_name": "SystemGuide",
		"function_name": "get_system_prompt"
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	result, ok := body["result"].(string)
	require.True(t, ok)
	assert.Contains(t, result, "create_person")
}

func TestExecuteToolUnknownPlugin(t *testing.T) {
	registry, _ := newTestRegistry(t)
	handler := ExecuteTool(registry)

	rec := postJSON(t, handler, "/execute_tool", `{
		"plugin_name": "Nope",
		"function_name": "get_person_by_id"
	}`)

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["error"], "PeopleCRUD")
	assert.Contains(t, body["error"], "SystemGuide")
}

func TestExecuteToolUnknownFunction(t *testing.T) {
	registry, _ := newTestRegistry(t)
	handler := ExecuteTool(registry)

	rec := postJSON(t, handler, "/execute_tool", `{
		"plugin_name": "PeopleCRUD",
		"function_name": "explode_person"
	}`)

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["error"], "explode_person")
	assert.Contains(t, body["error"], "delete_person_by_id")
	// The SystemGuide function must not be advertised under PeopleCRUD.
	assert.NotContains(t, body["error"], "get_system_prompt")
}

func TestExecuteToolMissingFunctionName(t *testing.T) {
	registry, _ := newTestRegistry(t)
	handler := ExecuteTool(registry)

	rec := postJSON(t, handler, "/execute_tool", `{"plugin_name": "PeopleCRUD"}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["error"], "FunctionName")
}

func TestExecuteToolEmptyBody(t *testing.T) {
	registry, _ := newTestRegistry(t)
	handler := ExecuteTool(registry)

	rec := postJSON(t, handler, "/execute_tool", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "request body is empty", body["error"])
}

func TestExecuteToolRecordNotFound(t *testing.T) {
	registry, _ := newTestRegistry(t)
	handler := ExecuteTool(registry)

	rec := postJSON(t, handler, "/execute_tool", `{
		"plugin_name": "PeopleCRUD",
		"function_name": "get_person_by_id",
		"arguments": {"person_id": 42}
	}`)

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	toolErr, ok := body["error"].(map[string]any)
	require.True(t, ok, "tool failures carry a structured error object")
	assert.Equal(t, "not_found", toolErr["code"])
}

func TestExecuteToolBadArgument(t *testing.T) {
	registry, _ := newTestRegistry(t)
	handler := ExecuteTool(registry)

	rec := postJSON(t, handler, "/execute_tool", `{
		"plugin_name": "PeopleCRUD",
		"function_name": "get_person_by_id",
		"arguments": {"person_id": "not-a-number"}
	}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	toolErr := body["error"].(map[string]any)
	assert.Equal(t, "invalid_argument", toolErr["code"])
}

// ─────────────────────────────────────────────────────────────────────────────
// GET /mcp/
// ─────────────────────────────────────────────────────────────────────────────

func TestAvailability(t *testing.T) {
	registry, _ := newTestRegistry(t)
	handler := Availability(registry)

	req := httptest.NewRequest(http.MethodGet, "/mcp/", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "MCP is available", body["status"])

	plugins, ok := body["plugins"].([]any)
	require.True(t, ok)
	require.Len(t, plugins, 2)

	first := plugins[0].(map[string]any)
	assert.Equal(t, "PeopleCRUD", first["name"])
	assert.Len(t, first["functions"], 5)

	second := plugins[1].(map[string]any)
	assert.Equal(t, "SystemGuide", second["name"])
	assert.Len(t, second["functions"], 1)
}

// ─────────────────────────────────────────────────────────────────────────────
// JSON-RPC surface
// ─────────────────────────────────────────────────────────────────────────────

func TestInitialize(t *testing.T) {
	registry, _ := newTestRegistry(t)
	handler := Initialize(registry)

	rec := postJSON(t, handler, "/mcp/initialize",
		`{"jsonrpc": "2.0", "id": 1, "method": "initialize"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "2.0", body["jsonrpc"])
	assert.Equal(t, float64(1), body["id"])
	assert.Nil(t, body["error"])

	result := body["result"].(map[string]any)
	assert.Equal(t, protocolVersion, result["protocolVersion"])
	serverInfo := result["serverInfo"].(map[string]any)
	assert.Equal(t, serverName, serverInfo["name"])
}

func TestToolsListGet(t *testing.T) {
	registry, _ := newTestRegistry(t)
	handler := ToolsList(registry)

	req := httptest.NewRequest(http.MethodGet, "/mcp/tools/list", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Nil(t, body["id"])

	result := body["result"].(map[string]any)
	list := result["tools"].([]any)
	require.Len(t, list, 6)

	first := list[0].(map[string]any)
	assert.Equal(t, "create_person", first["name"])
	schema := first["inputSchema"].(map[string]any)
	assert.Equal(t, "object", schema["type"])
	assert.Contains(t, schema["required"], "person_data_json")
}

func TestToolsListPostEchoesID(t *testing.T) {
	registry, _ := newTestRegistry(t)
	handler := ToolsList(registry)

	rec := postJSON(t, handler, "/mcp/tools/list",
		`{"jsonrpc": "2.0", "id": 7, "method": "tools/list"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(7), body["id"])
}

func TestToolsCall(t *testing.T) {
	registry, _ := newTestRegistry(t)
	handler := ToolsCall(registry)

	rec := postJSON(t, handler, "/mcp/tools/call", `{
		"jsonrpc": "2.0", "id": 3, "method": "tools/call",
		"params": {
			"name": "create_person",
			"arguments": {"person_data_json": "{\"first_name\": \"Jane\", \"last_name\": \"Doe\"}"}
		}
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Nil(t, body["error"])

	result := body["result"].(map[string]any)
	assert.Equal(t, false, result["isError"])
	content := result["content"].([]any)
	require.Len(t, content, 1)

	text := content[0].(map[string]any)
	assert.Equal(t, "text", text["type"])
	assert.Contains(t, text["text"], `"first_name":"Jane"`)
}

func TestToolsCallUnknownTool(t *testing.T) {
	registry, _ := newTestRegistry(t)
	handler := ToolsCall(registry)

	rec := postJSON(t, handler, "/mcp/tools/call", `{
		"jsonrpc": "2.0", "id": 4, "method": "tools/call",
		"params": {"name": "no_such_tool"}
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	rpcError := body["result"]
	assert.Nil(t, rpcError)

	errObj := body["error"].(map[string]any)
	assert.Equal(t, float64(-32601), errObj["code"])
	assert.Contains(t, errObj["message"], "no_such_tool")
}

func TestToolsCallMissingName(t *testing.T) {
	registry, _ := newTestRegistry(t)
	handler := ToolsCall(registry)

	rec := postJSON(t, handler, "/mcp/tools/call",
		`{"jsonrpc": "2.0", "id": 5, "method": "tools/call", "params": {}}`)

	body := decodeBody(t, rec)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, float64(-32602), errObj["code"])
}

func TestToolsCallRecordNotFound(t *testing.T) {
	registry, _ := newTestRegistry(t)
	handler := ToolsCall(registry)

	rec := postJSON(t, handler, "/mcp/tools/call", `{
		"jsonrpc": "2.0", "id": 6, "method": "tools/call",
		"params": {"name": "get_person_by_id", "arguments": {"person_id": 99}}
	}`)

	body := decodeBody(t, rec)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, float64(-32000), errObj["code"])
}

func TestJSONRPCParseError(t *testing.T) {
	registry, _ := newTestRegistry(t)
	handler := Initialize(registry)

	rec := postJSON(t, handler, "/mcp/initialize", "{not json")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, float64(-32700), errObj["code"])
}

func TestJSONRPCWrongVersion(t *testing.T) {
	registry, _ := newTestRegistry(t)
	handler := ToolsCall(registry)

	rec := postJSON(t, handler, "/mcp/tools/call",
		`{"jsonrpc": "1.0", "id": 8, "method": "tools/call"}`)

	body := decodeBody(t, rec)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, float64(-32600), errObj["code"])
}

func TestResourcesAndPromptsAlwaysEmpty(t *testing.T) {
	rec := postJSON(t, ResourcesList(), "/mcp/resources/list",
		`{"jsonrpc": "2.0", "id": 9, "method": "resources/list"}`)
	body := decodeBody(t, rec)
	result := body["result"].(map[string]any)
	assert.Empty(t, result["resources"])

	rec = postJSON(t, PromptsList(), "/mcp/prompts/list",
		`{"jsonrpc": "2.0", "id": 10, "method": "prompts/list"}`)
	body = decodeBody(t, rec)
	result = body["result"].(map[string]any)
	assert.Empty(t, result["prompts"])
}

func TestNotificationAccepted(t *testing.T) {
	rec := postJSON(t, Notification(), "/mcp/notifications/initialized",
		`{"jsonrpc": "2.0", "method": "notifications/initialized"}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 0, rec.Body.Len(), "notifications reply with no body")
}
