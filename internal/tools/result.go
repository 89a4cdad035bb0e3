package tools

import "fmt"

// Stable machine-readable reason codes carried by ToolError. Adapters
// map these onto their own protocol's error shapes (HTTP status, JSON-RPC
// code, tool-result payload) without parsing message text.
const (
	CodeToolNotFound     = "tool_not_found"
	CodeInvalidArgument  = "invalid_argument"
	CodeMalformedPayload = "malformed_payload"
	CodeValidation       = "validation_error"
	CodeNotFound         = "not_found"
	CodeConflict         = "conflict"
	CodeInternal         = "internal_error"
)

// ToolError is the structured failure value produced by dispatch.
// It is a value the caller renders, not an error that propagates: the
// dispatcher never lets a handled failure escape as a transport fault.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error makes ToolError usable with the standard error plumbing in logs.
func (e *ToolError) Error() string {
	return e.Code + ": " + e.Message
}

// Result is the single outcome shape every adapter consumes: exactly one
// of Value or Err is set.
type Result struct {
	Value any
	Err   *ToolError
}

// OK reports whether the dispatch succeeded.
func (r Result) OK() bool { return r.Err == nil }

func okResult(value any) Result {
	return Result{Value: value}
}

func errResult(code, format string, args ...any) Result {
	return Result{Err: &ToolError{Code: code, Message: fmt.Sprintf(format, args...)}}
}
