package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aanand-mishra/people-api/internal/tools"
	"github.com/aanand-mishra/people-api/internal/types"
)

// fallbackSystemPrompt is used if the registry's get_system_prompt tool
// cannot be dispatched for any reason. The chat surface degrades to a
// generic tool-aware assistant instead of failing the whole turn.
const fallbackSystemPrompt = "You are a helpful assistant with access to tools. " +
	"Analyze the user's question and use the appropriate tools when needed to get information."

// Bridge is the Conversational Bridge: it assembles the transcript,
// offers the CRUD tools to the model, executes requested calls through
// the dispatcher, and maintains the returned chat history.
type Bridge struct {
	completer Completer
	registry  *tools.Registry
}

// NewBridge wires a Completer (the real OpenAI client in production, a
// fake in tests) to the process-wide tool registry.
func NewBridge(completer Completer, registry *tools.Registry) *Bridge {
	return &Bridge{
		completer: completer,
		registry:  registry,
	}
}

// ChatTurn runs one full chat turn and returns the final answer plus
// the updated transcript.
//
// The transcript the caller gets back ends with its own query and the
// assistant's reply; when tools were used, the assistant history entry
// carries a "[Used tools: ...]" suffix so later turns (and humans
// reading the transcript) can see what happened. The suffix is history
// annotation only — the llm_response field stays clean prose.
func (b *Bridge) ChatTurn(ctx context.Context, userQuery string, history []types.ChatMessage) (types.ChatResponse, error) {
	system := b.systemPrompt(ctx)

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: "system", Content: system})
	for _, msg := range history {
		// Only user/assistant entries are replayed; anything else in
		// client-supplied history is dropped rather than trusted.
		if msg.Role == "user" || msg.Role == "assistant" {
			messages = append(messages, Message{Role: msg.Role, Content: msg.Content})
		}
	}
	messages = append(messages, Message{Role: "user", Content: userQuery})

	answer, err := b.completer.Chat(ctx, messages, b.toolSpecs(), b.runTool(ctx))
	if err != nil {
		return types.ChatResponse{}, fmt.Errorf("chat turn: %w", err)
	}

	content := strings.TrimSpace(answer.Content)
	assistantEntry := content
	if len(answer.ToolsUsed) > 0 {
		assistantEntry += "\n\n[Used tools: " + strings.Join(answer.ToolsUsed, ", ") + "]"
	}

	updated := make([]types.ChatMessage, 0, len(history)+2)
	updated = append(updated, history...)
	updated = append(updated,
		types.ChatMessage{Role: "user", Content: userQuery},
		types.ChatMessage{Role: "assistant", Content: assistantEntry},
	)

	return types.ChatResponse{
		LLMResponse: content,
		ChatHistory: updated,
	}, nil
}

// systemPrompt obtains the guidance string through the dispatcher, like
// any other tool consumer would.
func (b *Bridge) systemPrompt(ctx context.Context) string {
	res := b.registry.Dispatch(ctx, "get_system_prompt", nil)
	if prompt, ok := res.Value.(string); ok && res.OK() && prompt != "" {
		return prompt
	}
	slog.Warn("falling back to generic system prompt")
	return fallbackSystemPrompt
}

// toolSpecs advertises the PeopleCRUD plugin to the model. The
// SystemGuide plugin is deliberately not offered: its one function
// already shaped the system message.
func (b *Bridge) toolSpecs() []ToolSpec {
	crud, _ := b.registry.PluginTools(tools.PluginPeopleCRUD)
	specs := make([]ToolSpec, 0, len(crud))
	for _, t := range crud {
		specs = append(specs, ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.InputSchema(),
		})
	}
	return specs
}

// runTool adapts the dispatcher to the ToolRunner shape: every outcome,
// including a bad-arguments failure, becomes a JSON payload the model
// can read and explain to the user.
func (b *Bridge) runTool(ctx context.Context) ToolRunner {
	return func(name, argsJSON string) string {
		args := map[string]any{}
		if strings.TrimSpace(argsJSON) != "" {
			if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
				bad := tools.Result{Err: &tools.ToolError{
					Code:    tools.CodeMalformedPayload,
					Message: "tool arguments are not valid JSON: " + err.Error(),
				}}
				return bad.ValueJSON()
			}
		}

		result := b.registry.Dispatch(ctx, name, args)
		slog.Info("tool call executed",
			slog.String("tool", name),
			slog.Bool("ok", result.OK()),
		)
		return result.ValueJSON()
	}
}
