// Package tools holds the tool registry and dispatcher: the single
// place where a (tool name, argument bag) pair is resolved to a Record
// Store operation and its outcome is normalised into a Result.
//
// Three adapters reuse this one contract — the direct /execute_tool
// endpoint, the JSON-RPC tools/call endpoint, and the chat bridge when
// the LLM elects to call a tool — so none of them needs its own
// error-translation logic.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/people-api/internal/mapping"
	"github.com/aanand-mishra/people-api/internal/storage"
	"github.com/aanand-mishra/people-api/internal/types"
)

// Plugin names. The plugin is a grouping label used by /execute_tool and
// the availability listing; dispatch itself is by bare function name,
// which is unique across plugins.
const (
	PluginPeopleCRUD  = "PeopleCRUD"
	PluginSystemGuide = "SystemGuide"
)

// Parameter describes one argument of a tool, for capability
// advertisement and loose input coercion. Type is "string" or "integer".
type Parameter struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"`
}

// handlerFunc executes one tool against a loosely-typed argument bag.
type handlerFunc func(ctx context.Context, args map[string]any) Result

// Tool is one registry entry: an advertised descriptor bound to a
// handler. Entries are built once at startup and never mutated.
type Tool struct {
	Plugin      string      `json:"-"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`

	handler handlerFunc
}

// InputSchema renders the parameter list as a JSON-Schema object, the
// shape OpenAI-style function tools and MCP tools/list both expect.
func (t Tool) InputSchema() map[string]any {
	properties := make(map[string]any, len(t.Parameters))
	required := make([]string, 0, len(t.Parameters))
	for _, p := range t.Parameters {
		properties[p.Name] = map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Registry is the immutable, process-wide tool table. It is built once
// in main and passed by reference to every adapter; nothing mutates it
// afterwards, so concurrent reads need no locking.
type Registry struct {
	tools    []Tool
	byName   map[string]int
	validate *validator.Validate
}

// systemPrompt is the static guidance string the SystemGuide plugin
// serves to LLM callers. It describes the CRUD tools in enough detail
// for the model to pick arguments correctly.
const systemPrompt = `You are a helpful AI assistant that can manage a list of people. You have the following tools at your disposal:

1. create_person: creates a new person. Input: person_data_json, a JSON string with 'first_name' (string, required), 'last_name' (string, required), 'age' (integer, optional) and 'email' (string, optional, must be unique if provided). Example: create_person(person_data_json='{"first_name": "John", "last_name": "Doe", "age": 30, "email": "john.doe@example.com"}')

2. get_person_by_id: retrieves a specific person by their unique ID. Input: an integer person_id. Example: get_person_by_id(person_id=123)

3. get_all_people: retrieves a list of people. Supports pagination with 'skip' (integer, optional, default 0) and 'limit' (integer, optional, default 100). Example: get_all_people(skip=0, limit=10)

4. update_person_by_id: updates an existing person. Input: an integer person_id and person_update_data_json, a JSON string with the fields to change ('first_name', 'last_name', 'age', 'email', all optional). Fields not present in the JSON are left unchanged. Example: update_person_by_id(person_id=123, person_update_data_json='{"age": 31}')

5. delete_person_by_id: deletes a person by their unique ID. Input: an integer person_id. Example: delete_person_by_id(person_id=123)

When the user asks about people, use these tools rather than guessing. Report tool errors back to the user in plain language.`

// NewRegistry builds the fixed tool table over the given store.
// The returned registry is safe for concurrent use and is the only
// value the three protocol adapters share.
func NewRegistry(store storage.Storage) *Registry {
	r := &Registry{
		byName:   make(map[string]int),
		validate: validator.New(),
	}

	r.add(Tool{
		Plugin: PluginPeopleCRUD,
		Name:   "create_person",
		Description: "Creates a new person in the system from a JSON string " +
			"with the person's details.",
		Parameters: []Parameter{
			{
				Name: "person_data_json",
				Description: "A JSON string with the person's details. Example: " +
					`'{"first_name": "John", "last_name": "Doe", "age": 30, "email": "john.doe@example.com"}'`,
				Required: true,
				Type:     "string",
			},
		},
		handler: r.createPerson(store),
	})

	r.add(Tool{
		Plugin:      PluginPeopleCRUD,
		Name:        "get_person_by_id",
		Description: "Retrieves a specific person by their unique ID.",
		Parameters: []Parameter{
			{
				Name:        "person_id",
				Description: "The unique ID of the person to retrieve.",
				Required:    true,
				Type:        "integer",
			},
		},
		handler: r.getPerson(store),
	})

	r.add(Tool{
		Plugin:      PluginPeopleCRUD,
		Name:        "get_all_people",
		Description: "Retrieves a list of people, with optional pagination.",
		Parameters: []Parameter{
			{
				Name:        "skip",
				Description: "Number of records to skip for pagination. Defaults to 0 if not provided.",
				Required:    false,
				Type:        "integer",
			},
			{
				Name:        "limit",
				Description: "Maximum number of records to return. Defaults to 100 if not provided.",
				Required:    false,
				Type:        "integer",
			},
		},
		handler: r.getAllPeople(store),
	})

	r.add(Tool{
		Plugin:      PluginPeopleCRUD,
		Name:        "update_person_by_id",
		Description: "Updates an existing person by their unique ID using a JSON string of fields to change.",
		Parameters: []Parameter{
			{
				Name:        "person_id",
				Description: "The unique ID of the person to update.",
				Required:    true,
				Type:        "integer",
			},
			{
				Name: "person_update_data_json",
				Description: "A JSON string with the person's details to update. Example: " +
					`'{"first_name": "Jane", "email": "jane.doe@example.com"}'`,
				Required: true,
				Type:     "string",
			},
		},
		handler: r.updatePerson(store),
	})

	r.add(Tool{
		Plugin:      PluginPeopleCRUD,
		Name:        "delete_person_by_id",
		Description: "Deletes a person by their unique ID.",
		Parameters: []Parameter{
			{
				Name:        "person_id",
				Description: "The unique ID of the person to delete.",
				Required:    true,
				Type:        "integer",
			},
		},
		handler: r.deletePerson(store),
	})

	r.add(Tool{
		Plugin:      PluginSystemGuide,
		Name:        "get_system_prompt",
		Description: "Provides a system prompt that informs the LLM about available tools and their usage.",
		Parameters:  []Parameter{},
		handler: func(context.Context, map[string]any) Result {
			return okResult(systemPrompt)
		},
	})

	return r
}

func (r *Registry) add(t Tool) {
	r.byName[t.Name] = len(r.tools)
	r.tools = append(r.tools, t)
}

// Tools returns the registry entries in registration order. The slice
// is a copy; callers cannot disturb the table.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Lookup resolves a tool by its bare function name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Tool{}, false
	}
	return r.tools[i], true
}

// Names returns every registered tool name in registration order.
// Dispatch errors embed this list for client debuggability.
func (r *Registry) Names() []string {
	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Name
	}
	return names
}

// PluginNames returns the distinct plugin names in registration order.
func (r *Registry) PluginNames() []string {
	var names []string
	seen := make(map[string]bool)
	for _, t := range r.tools {
		if !seen[t.Plugin] {
			seen[t.Plugin] = true
			names = append(names, t.Plugin)
		}
	}
	return names
}

// PluginTools returns the tools grouped under one plugin.
// The bool reports whether the plugin exists at all.
func (r *Registry) PluginTools(plugin string) ([]Tool, bool) {
	var out []Tool
	for _, t := range r.tools {
		if t.Plugin == plugin {
			out = append(out, t)
		}
	}
	return out, len(out) > 0
}

// SystemPrompt returns the static LLM guidance string. The chat bridge
// fetches it through dispatch like any other tool; this accessor exists
// for callers that want it without an argument bag.
func (r *Registry) SystemPrompt() string {
	return systemPrompt
}

// ─────────────────────────────────────────────────────────────────────────────
// Tool handlers. Each closes over the store, coerces its arguments, and
// translates the store outcome into a Result with a stable reason code.
// ─────────────────────────────────────────────────────────────────────────────

func (r *Registry) createPerson(store storage.Storage) handlerFunc {
	return func(_ context.Context, args map[string]any) Result {
		var req types.CreatePersonRequest
		if toolErr := payloadArg(args, "person_data_json", &req); toolErr != nil {
			return Result{Err: toolErr}
		}
		if toolErr := r.validateStruct(req); toolErr != nil {
			return Result{Err: toolErr}
		}
		person, err := store.CreatePerson(req)
		if err != nil {
			if errors.Is(err, storage.ErrEmailTaken) {
				return errResult(CodeConflict, "%s", err.Error())
			}
			return storeFailure("create person", err)
		}
		return okResult(person)
	}
}

func (r *Registry) getPerson(store storage.Storage) handlerFunc {
	return func(_ context.Context, args map[string]any) Result {
		id, toolErr := intArg(args, "person_id", true, 0)
		if toolErr != nil {
			return Result{Err: toolErr}
		}
		person, found, err := store.GetPersonByID(id)
		if err != nil {
			return storeFailure("get person", err)
		}
		if !found {
			return errResult(CodeNotFound, "no person with id %d", id)
		}
		return okResult(person)
	}
}

func (r *Registry) getAllPeople(store storage.Storage) handlerFunc {
	return func(_ context.Context, args map[string]any) Result {
		skip, toolErr := intArg(args, "skip", false, 0)
		if toolErr != nil {
			return Result{Err: toolErr}
		}
		limit, toolErr := intArg(args, "limit", false, storage.DefaultListLimit)
		if toolErr != nil {
			return Result{Err: toolErr}
		}
		people, err := store.GetPeople(skip, limit)
		if err != nil {
			return storeFailure("list people", err)
		}
		return okResult(people)
	}
}

func (r *Registry) updatePerson(store storage.Storage) handlerFunc {
	return func(_ context.Context, args map[string]any) Result {
		id, toolErr := intArg(args, "person_id", true, 0)
		if toolErr != nil {
			return Result{Err: toolErr}
		}
		var req types.UpdatePersonRequest
		if toolErr := payloadArg(args, "person_update_data_json", &req); toolErr != nil {
			return Result{Err: toolErr}
		}
		if toolErr := r.validateStruct(req); toolErr != nil {
			return Result{Err: toolErr}
		}
		person, found, err := store.UpdatePersonByID(id, mapping.PatchFromUpdate(req))
		if err != nil {
			if errors.Is(err, storage.ErrEmailTaken) {
				return errResult(CodeConflict, "%s", err.Error())
			}
			return storeFailure("update person", err)
		}
		if !found {
			return errResult(CodeNotFound, "no person with id %d", id)
		}
		return okResult(person)
	}
}

func (r *Registry) deletePerson(store storage.Storage) handlerFunc {
	return func(_ context.Context, args map[string]any) Result {
		id, toolErr := intArg(args, "person_id", true, 0)
		if toolErr != nil {
			return Result{Err: toolErr}
		}
		deleted, err := store.DeletePersonByID(id)
		if err != nil {
			return storeFailure("delete person", err)
		}
		if !deleted {
			return errResult(CodeNotFound, "no person with id %d", id)
		}
		return okResult(map[string]any{
			"status":    "person deleted",
			"person_id": id,
		})
	}
}

// validateStruct runs the validator tags on a decoded payload and folds
// any field errors into a single validation_error message.
func (r *Registry) validateStruct(v any) *ToolError {
	err := r.validate.Struct(v)
	if err == nil {
		return nil
	}
	validateErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ToolError{Code: CodeInternal, Message: err.Error()}
	}
	messages := make([]string, 0, len(validateErrs))
	for _, e := range validateErrs {
		switch e.ActualTag() {
		case "required":
			messages = append(messages, fmt.Sprintf("field %s is required", e.Field()))
		case "contains":
			messages = append(messages, fmt.Sprintf("field %s must be a valid email address", e.Field()))
		default:
			messages = append(messages, fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}
	return &ToolError{Code: CodeValidation, Message: strings.Join(messages, ", ")}
}

// storeFailure wraps an unexpected store error. The detail goes to the
// message for operators reading logs; the code stays generic so clients
// are not coupled to storage internals.
func storeFailure(op string, err error) Result {
	return errResult(CodeInternal, "failed to %s: %v", op, err)
}

// ValueJSON renders a Result value (or error) as a JSON string, the
// form tool results take when fed back to an LLM.
func (r Result) ValueJSON() string {
	payload := r.Value
	if r.Err != nil {
		payload = map[string]any{"error": r.Err}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return `{"error":{"code":"internal_error","message":"unserialisable tool result"}}`
	}
	return string(data)
}
