package completion

import "context"

// Message roles sent to the completion service.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Finish reasons reported by the completion service.
const (
	FinishStop      = "stop"
	FinishToolCalls = "tool_calls"
	FinishLength    = "length"
)

// Message is a single chat turn.
type Message struct {
	// Role is system, user or assistant.
	Role string
	// Content is the message text.
	Content string
}

// ToolSpec declares a function the model may call.
type ToolSpec struct {
	// Name is the function name.
	Name string
	// Description explains the function.
	Description string
	// Parameters is the JSON schema of the arguments object.
	Parameters map[string]any
}

// Request is the prompt context of one completion call.
type Request struct {
	// Model selects the model variant.
	Model string
	// ReasoningEffort is passed through unmodified when set.
	ReasoningEffort string
	// Verbosity is passed through unmodified when set.
	Verbosity string
	// Messages are the ordered chat turns.
	Messages []Message
	// Tools are the functions offered to the model.
	Tools []ToolSpec
}

// ToolCall is a raw function call proposed by the model.
type ToolCall struct {
	// ID is the call id.
	ID string
	// Name is the function name.
	Name string
	// Arguments is the JSON-encoded argument object, untrusted.
	Arguments string
}

// Response is the first choice of a completion.
type Response struct {
	// FinishReason is the service finish reason.
	FinishReason string
	// Text is the assistant text, possibly empty.
	Text string
	// ToolCalls are the proposed calls in service order.
	ToolCalls []ToolCall
}

// Client performs one completion call.
type Client interface {
	// Complete sends the request and returns the first choice.
	Complete(ctx context.Context, req Request) (Response, error)
}
