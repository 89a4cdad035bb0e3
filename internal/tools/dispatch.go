package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// Dispatch resolves a tool name against the registry, runs the matching
// handler, and returns its normalised Result.
//
// This is the single error-translation point for all three adapters:
// an unknown name, a bad argument, or a failing store operation all come
// back as a structured Result, and even a panicking handler is caught
// here rather than crashing the request.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("tool handler panicked",
				slog.String("tool", name),
				slog.Any("panic", p),
			)
			res = errResult(CodeInternal, "internal error while executing tool %q", name)
		}
	}()

	tool, ok := r.Lookup(name)
	if !ok {
		return errResult(CodeToolNotFound,
			"unknown tool %q; known tools: %s", name, strings.Join(r.Names(), ", "))
	}
	if args == nil {
		args = map[string]any{}
	}
	return tool.handler(ctx, args)
}

// ─────────────────────────────────────────────────────────────────────────────
// Argument coercion.
//
// Tool arguments arrive loosely typed: JSON numbers decode to float64,
// LLMs frequently quote integers as strings, and REST clients may send
// either. The helpers below accept every reasonable encoding of the
// declared type and reject the rest with invalid_argument.
// ─────────────────────────────────────────────────────────────────────────────

// intArg coerces args[name] to an int64. When required is false and the
// argument is missing (or null), fallback is returned instead.
func intArg(args map[string]any, name string, required bool, fallback int64) (int64, *ToolError) {
	raw, present := args[name]
	if !present || raw == nil {
		if required {
			return 0, &ToolError{
				Code:    CodeInvalidArgument,
				Message: "missing required argument " + strconv.Quote(name),
			}
		}
		return fallback, nil
	}

	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		// encoding/json decodes every JSON number to float64; accept it
		// only when it is actually a whole number.
		if v != math.Trunc(v) {
			return 0, badIntArg(name, raw)
		}
		return int64(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, badIntArg(name, raw)
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, badIntArg(name, raw)
		}
		return n, nil
	default:
		return 0, badIntArg(name, raw)
	}
}

func badIntArg(name string, raw any) *ToolError {
	return &ToolError{
		Code:    CodeInvalidArgument,
		Message: "argument " + strconv.Quote(name) + " must be an integer, got " + describe(raw),
	}
}

// payloadArg decodes a structured-payload argument into dest.
// The payload may arrive as a JSON string (how LLMs send it, and how the
// original tool contract declares it) or as an already-parsed object
// (convenient for direct REST callers). Anything else, or JSON that does
// not parse, is malformed_payload.
func payloadArg(args map[string]any, name string, dest any) *ToolError {
	raw, present := args[name]
	if !present || raw == nil {
		return &ToolError{
			Code:    CodeInvalidArgument,
			Message: "missing required argument " + strconv.Quote(name),
		}
	}

	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case map[string]any:
		// Re-marshal so the same strict decode path applies either way.
		encoded, err := json.Marshal(v)
		if err != nil {
			return malformedPayload(name, err)
		}
		data = encoded
	default:
		return &ToolError{
			Code:    CodeMalformedPayload,
			Message: "argument " + strconv.Quote(name) + " must be a JSON string or object, got " + describe(raw),
		}
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return malformedPayload(name, err)
	}
	return nil
}

func malformedPayload(name string, err error) *ToolError {
	return &ToolError{
		Code:    CodeMalformedPayload,
		Message: "argument " + strconv.Quote(name) + " is not valid JSON: " + err.Error(),
	}
}

// describe names a value's dynamic type for error messages without
// leaking Go type syntax like "map[string]interface {}".
func describe(v any) string {
	switch v.(type) {
	case string:
		return "a string"
	case bool:
		return "a boolean"
	case float64, int, int64, json.Number:
		return "a number"
	case map[string]any:
		return "an object"
	case []any:
		return "an array"
	default:
		return "an unsupported value"
	}
}
