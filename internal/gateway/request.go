package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxPromptLength is the longest accepted prompt, in characters.
const MaxPromptLength = 4000

// ErrInvalidRequest marks a malformed CommandRequest.
var ErrInvalidRequest = errors.New("invalid command request")

// Role is the author of a conversation turn.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one prior conversation turn, in chronological order.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CommandRequest is one user command. Build it with NewCommandRequest.
type CommandRequest struct {
	// CorrelationID identifies the command in logs and responses.
	CorrelationID string
	// UserID is the verified user identifier.
	UserID string
	// Prompt is the free-text instruction.
	Prompt string
	// History holds prior turns, oldest first.
	History []Message
	// CanvasState is an optional read-only snapshot of the canvas.
	CanvasState json.RawMessage
}

// NewCommandRequest validates the inputs and returns a request owning copies of them.
// An empty correlationID gets a fresh one.
func NewCommandRequest(correlationID, userID, prompt string, history []Message, canvasState json.RawMessage) (CommandRequest, error) {
	if strings.TrimSpace(correlationID) == "" {
		correlationID = uuid.NewString()
	}
	req := CommandRequest{
		CorrelationID: correlationID,
		UserID:        strings.TrimSpace(userID),
		Prompt:        strings.TrimSpace(prompt),
		History:       append([]Message(nil), history...),
	}
	if len(canvasState) > 0 {
		req.CanvasState = append(json.RawMessage(nil), canvasState...)
	}
	if err := req.Validate(); err != nil {
		return CommandRequest{}, err
	}
	return req, nil
}

// Validate reports contract violations.
func (r CommandRequest) Validate() error {
	if r.CorrelationID == "" {
		return fmt.Errorf("%w: correlation id is required", ErrInvalidRequest)
	}
	if r.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}
	if r.Prompt == "" {
		return fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	}
	if utf8.RuneCountInString(r.Prompt) > MaxPromptLength {
		return fmt.Errorf("%w: prompt exceeds %d characters", ErrInvalidRequest, MaxPromptLength)
	}
	for i, msg := range r.History {
		switch msg.Role {
		case RoleUser, RoleAssistant, RoleSystem:
		default:
			return fmt.Errorf("%w: history[%d] has unknown role %q", ErrInvalidRequest, i, msg.Role)
		}
	}
	if len(r.CanvasState) > 0 && !json.Valid(r.CanvasState) {
		return fmt.Errorf("%w: canvas state is not valid JSON", ErrInvalidRequest)
	}
	return nil
}
