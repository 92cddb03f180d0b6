package audit

import (
	"context"
	"log/slog"
)

// Event types.
const (
	TypeCommand        = "command"
	TypeRateLimitReset = "rate_limit_reset"
)

// Event represents an audit entry for a command or an operator action.
type Event struct {
	// Type describes the event kind.
	Type string
	// UserID is the user the event concerns.
	UserID string
	// CorrelationID links related events.
	CorrelationID string
	// Outcome is the outcome kind of a command.
	Outcome string
	// Code is the outcome error code.
	Code string
	// Tools lists tool names involved.
	Tools []string
	// Reason provides additional context.
	Reason string
}

// Logger records audit events.
type Logger interface {
	// Record stores an audit event.
	Record(ctx context.Context, event Event)
}

// StdLogger writes audit events to slog.
type StdLogger struct {
	logger *slog.Logger
}

// New returns a StdLogger.
func New(logger *slog.Logger) *StdLogger {
	return &StdLogger{logger: logger}
}

// Record logs an audit event.
func (l *StdLogger) Record(ctx context.Context, event Event) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.InfoContext(ctx, "audit",
		"type", event.Type,
		"user_id", event.UserID,
		"correlation_id", event.CorrelationID,
		"outcome", event.Outcome,
		"code", event.Code,
		"tools", event.Tools,
		"reason", event.Reason,
	)
}
