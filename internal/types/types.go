// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles —
// handlers, storage, tools, and the LLM bridge can all import types
// without depending on each other.
package types

// Person represents a stored person record.
//
// Age and Email are pointers because both are optional: a record with
// neither is valid. A nil pointer encodes to JSON null, which is how
// the API reports "not set" to clients.
//
// Struct tags serve two purposes:
//
//  1. json:"..."  — controls how the field appears when encoded to JSON
//     (snake_case names match REST API conventions).
//
//  2. validate:"..." — rules checked by the go-playground/validator
//     package on the request variants below.
type Person struct {
	ID        int64   `json:"id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Age       *int    `json:"age"`
	Email     *string `json:"email"`
}

// CreatePersonRequest is the payload accepted by POST /people/ and the
// create_person tool. The ID is never client-supplied; the store assigns
// it at insert time.
//
// Validation rules mirror the stored contract: names are required and
// 1–50 characters, age is 0–150 when present, email is at most 100
// characters and must look like an address (contain an "@") when present.
type CreatePersonRequest struct {
	FirstName string  `json:"first_name" validate:"required,min=1,max=50"`
	LastName  string  `json:"last_name"  validate:"required,min=1,max=50"`
	Age       *int    `json:"age"        validate:"omitempty,gte=0,lte=150"`
	Email     *string `json:"email"      validate:"omitempty,contains=@,max=100"`
}

// UpdatePersonRequest is the payload accepted by PUT /people/{id} and the
// update_person_by_id tool. Every field is a pointer so the mapping layer
// can tell "supplied with a value" apart from "omitted".
//
// Note that encoding/json leaves a pointer nil both when the key is
// missing AND when it is explicitly null, which is exactly the
// partial-update policy this API promises: null never clears a field.
type UpdatePersonRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=50"`
	LastName  *string `json:"last_name"  validate:"omitempty,min=1,max=50"`
	Age       *int    `json:"age"        validate:"omitempty,gte=0,lte=150"`
	Email     *string `json:"email"      validate:"omitempty,contains=@,max=100"`
}

// ChatMessage is one entry of a chat transcript, in the {role, content}
// shape OpenAI-style APIs use. Role is "user" or "assistant"; anything
// else in client-supplied history is ignored by the bridge.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the payload accepted by POST /chat.
type ChatRequest struct {
	UserQuery   string        `json:"user_query" validate:"required"`
	ChatHistory []ChatMessage `json:"chat_history"`
}

// ChatResponse is the reply from POST /chat: the model's final answer
// plus the running transcript (including tool-usage annotations) that a
// client sends back on its next turn.
type ChatResponse struct {
	LLMResponse string        `json:"llm_response"`
	ChatHistory []ChatMessage `json:"chat_history"`
}

// ExecuteToolRequest is the payload accepted by POST /execute_tool:
// a direct, non-LLM invocation of one registered tool.
type ExecuteToolRequest struct {
	PluginName   string         `json:"plugin_name"   validate:"required"`
	FunctionName string         `json:"function_name" validate:"required"`
	Arguments    map[string]any `json:"arguments"`
}
