package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/aanand-mishra/people-api/internal/config"
)

// Client is the OpenAI-backed Completer used in production.
type Client struct {
	api   *openai.Client
	model string
}

var _ Completer = (*Client)(nil)

// NewClient builds a chat-completions client from the openai config
// block. The API key is mandatory: without it the /chat surface cannot
// work, and failing at startup beats failing on the first request.
func NewClient(cfg config.OpenAI) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("missing OPENAI_API_KEY")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(base, "/")))
	}
	client := openai.NewClient(opts...)

	return &Client{
		api:   &client,
		model: cfg.Model,
	}, nil
}

// Chat implements Completer over the chat-completions API.
//
// TURN SHAPE:
// ───────────
// First request: transcript + tool definitions, tool_choice left to the
// model. If the reply contains tool calls, each is executed through
// runTool and its result is appended as a "tool" role message; a second
// request (without tool offers) then produces the final answer. A reply
// without tool calls IS the final answer and no second request is made.
func (c *Client) Chat(ctx context.Context, messages []Message, specs []ToolSpec, runTool ToolRunner) (Answer, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: toChatMessages(messages),
	}
	if len(specs) > 0 {
		params.Tools = toChatTools(specs)
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return Answer{}, err
	}
	if len(resp.Choices) == 0 {
		return Answer{}, errors.New("no completion choices returned")
	}

	assistant := resp.Choices[0].Message
	if len(assistant.ToolCalls) == 0 {
		return Answer{Content: assistant.Content}, nil
	}

	// The assistant's tool-call message must be echoed back verbatim
	// before the tool results, or the API rejects the transcript.
	params.Messages = append(params.Messages, assistant.ToParam())

	used := make([]string, 0, len(assistant.ToolCalls))
	for _, call := range assistant.ToolCalls {
		name := call.Function.Name
		used = append(used, name)
		result := runTool(name, call.Function.Arguments)
		params.Messages = append(params.Messages, openai.ToolMessage(result, call.ID))
	}

	// Second completion: tool results in, tool offers out, so the model
	// produces prose instead of another round of calls.
	params.Tools = nil
	final, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return Answer{}, err
	}
	if len(final.Choices) == 0 {
		return Answer{}, errors.New("no completion choices returned after tool use")
	}

	return Answer{
		Content:   final.Choices[0].Message.Content,
		ToolsUsed: used,
	}, nil
}

func toChatMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case "system":
			out = append(out, openai.SystemMessage(msg.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

func toChatTools(specs []ToolSpec) []openai.ChatCompletionToolUnionParam {
	tools := make([]openai.ChatCompletionToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			continue
		}
		fn := shared.FunctionDefinitionParam{
			Name:       name,
			Parameters: spec.Parameters,
		}
		if desc := strings.TrimSpace(spec.Description); desc != "" {
			fn.Description = openai.String(desc)
		}
		tools = append(tools, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: fn,
			},
		})
	}
	return tools
}
