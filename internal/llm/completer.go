// Package llm contains the conversational bridge: the turn-taking logic
// that offers the tool registry to an external LLM, executes whatever
// tools the model requests, and returns a final natural-language answer.
//
// The model wire protocol lives behind the Completer interface so the
// bridge can be tested against a scripted fake, the same way the handlers
// are tested against a fake Storage.
package llm

import "context"

// Message is one transcript entry sent to the model.
// Role is "system", "user" or "assistant".
type Message struct {
	Role    string
	Content string
}

// ToolSpec describes one callable function offered to the model:
// a name, a description, and a JSON-Schema object for the arguments.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolRunner executes one model-requested tool call. It receives the
// tool name and the raw JSON argument string exactly as the model sent
// them, and returns the JSON to feed back as the tool result. It never
// fails: tool errors come back as structured JSON error payloads so the
// model can read them.
type ToolRunner func(name, argsJSON string) string

// Answer is the outcome of a full model turn, after any tool use.
type Answer struct {
	// Content is the final natural-language reply.
	Content string

	// ToolsUsed lists the tool names invoked during the turn, in call
	// order, for the transcript annotation. Empty when the model
	// answered directly.
	ToolsUsed []string
}

// Completer runs one complete model turn: an initial completion with
// tool offers and, if the model requests tool calls, a follow-up
// completion carrying the tool results.
type Completer interface {
	Chat(ctx context.Context, messages []Message, tools []ToolSpec, runTool ToolRunner) (Answer, error)
}
