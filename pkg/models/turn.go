package models

import "time"

// Turn is one request/response round between an agent and the LLM,
// including every action it produced and the environment's results.
type Turn struct {
	AgentID        string            `json:"agent_id"`
	TurnIndex      int               `json:"turn_index"`
	PromptRendered string            `json:"prompt_rendered"`
	RawResponse    string            `json:"raw_response"`
	Actions        []Action          `json:"actions"`
	Results        []ExecutionResult `json:"results"`
	TokensIn       int64             `json:"tokens_in"`
	TokensOut      int64             `json:"tokens_out"`
	Timestamp      time.Time         `json:"timestamp"`
}

// ErrorKind classifies why an ExecutionResult or parse step failed. It is
// the taxonomy every runtime shares: parse/validation errors
// are self-correcting, capability violations are terminal for the action,
// sandbox errors are informational, not fatal.
type ErrorKind string

const (
	ErrorKindNone                ErrorKind = ""
	ErrorKindParseError          ErrorKind = "ParseError"
	ErrorKindValidationError     ErrorKind = "ValidationError"
	ErrorKindCapabilityViolation ErrorKind = "CapabilityViolation"
	ErrorKindNotFound            ErrorKind = "NotFound"
	ErrorKindNotAFile            ErrorKind = "NotAFile"
	ErrorKindPermissionDenied    ErrorKind = "PermissionDenied"
	ErrorKindMissingParent       ErrorKind = "MissingParent"
	ErrorKindAmbiguousEdit       ErrorKind = "AmbiguousEdit"
	ErrorKindInvalidPath         ErrorKind = "InvalidPath"
	ErrorKindUnknownTodo         ErrorKind = "UnknownTodo"
	ErrorKindTimeout             ErrorKind = "Timeout"
	ErrorKindNonZeroExit         ErrorKind = "NonZeroExit"
	ErrorKindTruncated           ErrorKind = "Truncated"
	ErrorKindLLMError            ErrorKind = "LLMError"
	ErrorKindFatal               ErrorKind = "Fatal"
)

// ExecutionResult is the uniform result the Dispatcher returns for every
// executed Action.
type ExecutionResult struct {
	OK           bool      `json:"ok"`
	Payload      string    `json:"payload,omitempty"`
	ErrorKind    ErrorKind `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	// Truncated marks a Sandbox/Search result that hit its size cap; it is
	// observable on a successful result, not just on error.
	Truncated bool `json:"truncated,omitempty"`
}

// Ok builds a successful ExecutionResult.
func Ok(payload string) ExecutionResult {
	return ExecutionResult{OK: true, Payload: payload}
}

// OkTruncated builds a successful but truncated ExecutionResult.
func OkTruncated(payload string) ExecutionResult {
	return ExecutionResult{OK: true, Payload: payload, Truncated: true}
}

// Err builds a failed ExecutionResult.
func Err(kind ErrorKind, message string) ExecutionResult {
	return ExecutionResult{OK: false, ErrorKind: kind, ErrorMessage: message}
}
