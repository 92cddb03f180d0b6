package gateway

import (
	"fmt"
	"time"

	"github.com/codex-k8s/canvas-command-gateway/internal/completion"
	"github.com/codex-k8s/canvas-command-gateway/internal/tools"
)

// Kind tags an Outcome variant.
type Kind string

// Outcome kinds.
const (
	KindSuccess        Kind = "success"
	KindNoAction       Kind = "no_action"
	KindRateLimited    Kind = "rate_limited"
	KindTimeout        Kind = "timeout"
	KindTransportError Kind = "transport_error"
	KindDecodeError    Kind = "decode_error"
)

// Fixed error codes, one per non-success kind.
const (
	CodeNoToolCalls    = "NO_TOOL_CALLS"
	CodeRateLimited    = "RATE_LIMITED"
	CodeTimeout        = "TIMEOUT"
	CodeTransportError = "TRANSPORT_ERROR"
	CodeDecodeError    = "DECODE_ERROR"
)

// Outcome is the single result of Dispatch. The variants are Success,
// NoAction, RateLimited, Timeout, TransportError and DecodeError.
type Outcome interface {
	// Kind returns the variant tag.
	Kind() Kind
	// Code returns the fixed error code, empty for Success.
	Code() string
	// Message returns an English description.
	Message() string

	outcome()
}

// Success carries decoded tool calls in model order.
type Success struct {
	Calls []tools.Call
	Text  string
}

// NoAction is a valid response without tool calls.
type NoAction struct {
	Text         string
	FinishReason string
}

// RateLimited means the user's window quota is exhausted.
type RateLimited struct {
	RetryAfter time.Duration
}

// Timeout means the completion call exceeded its deadline.
type Timeout struct {
	After time.Duration
}

// TransportError wraps a network, auth or service failure.
type TransportError struct {
	Cause error
}

// DecodeError identifies the tool call that failed validation.
type DecodeError struct {
	Call  completion.ToolCall
	Cause error
}

func (Success) Kind() Kind        { return KindSuccess }
func (NoAction) Kind() Kind       { return KindNoAction }
func (RateLimited) Kind() Kind    { return KindRateLimited }
func (Timeout) Kind() Kind        { return KindTimeout }
func (TransportError) Kind() Kind { return KindTransportError }
func (DecodeError) Kind() Kind    { return KindDecodeError }

func (Success) Code() string        { return "" }
func (NoAction) Code() string       { return CodeNoToolCalls }
func (RateLimited) Code() string    { return CodeRateLimited }
func (Timeout) Code() string        { return CodeTimeout }
func (TransportError) Code() string { return CodeTransportError }
func (DecodeError) Code() string    { return CodeDecodeError }

func (o Success) Message() string {
	return fmt.Sprintf("%d tool call(s) ready", len(o.Calls))
}

func (o NoAction) Message() string {
	return "the model returned no tool calls"
}

func (o RateLimited) Message() string {
	return fmt.Sprintf("rate limit exceeded, retry in %s", o.RetryAfter.Round(time.Second))
}

func (o Timeout) Message() string {
	return fmt.Sprintf("completion timeout after %s", o.After)
}

func (o TransportError) Message() string {
	if o.Cause == nil {
		return "completion service error"
	}
	return "completion service error: " + o.Cause.Error()
}

func (o DecodeError) Message() string {
	if o.Cause == nil {
		return fmt.Sprintf("invalid arguments for tool call %s", o.Call.ID)
	}
	return o.Cause.Error()
}

func (Success) outcome()        {}
func (NoAction) outcome()       {}
func (RateLimited) outcome()    {}
func (Timeout) outcome()        {}
func (TransportError) outcome() {}
func (DecodeError) outcome()    {}
