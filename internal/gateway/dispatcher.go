package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/codex-k8s/canvas-command-gateway/internal/admission"
	"github.com/codex-k8s/canvas-command-gateway/internal/audit"
	"github.com/codex-k8s/canvas-command-gateway/internal/completion"
	"github.com/codex-k8s/canvas-command-gateway/internal/security"
	"github.com/codex-k8s/canvas-command-gateway/internal/tools"
)

// StateSource supplies a read-only canvas snapshot for a user.
type StateSource interface {
	// Snapshot returns the current canvas state as JSON.
	Snapshot(ctx context.Context, userID string) (json.RawMessage, error)
}

// Config wires a Dispatcher.
type Config struct {
	// Admission decides per-user admission. Required.
	Admission *admission.Controller
	// Invoker calls the completion service. Required.
	Invoker *completion.Invoker
	// Tools is the enabled tool registry. Required.
	Tools *tools.Registry
	// Model selects the model variant. Required.
	Model string
	// ReasoningEffort is passed through to the service.
	ReasoningEffort string
	// Verbosity is passed through to the service.
	Verbosity string
	// SystemPrompt replaces DefaultSystemPrompt when set.
	SystemPrompt string
	// Deadline is the completion deadline. Zero uses the invoker default.
	Deadline time.Duration
	// State supplies canvas snapshots for requests without one.
	State StateSource
	// MaxCanvasStateBytes drops snapshots larger than this. Zero means no limit.
	MaxCanvasStateBytes int
	// Audit records one event per command.
	Audit audit.Logger
	// Logger is used for structured logging.
	Logger *slog.Logger
	// Now overrides the clock.
	Now func() time.Time
}

// Dispatcher is the single entry point for user commands.
type Dispatcher struct {
	admission     *admission.Controller
	invoker       *completion.Invoker
	tools         *tools.Registry
	specs         []completion.ToolSpec
	model         string
	effort        string
	verbosity     string
	systemPrompt  string
	deadline      time.Duration
	state         StateSource
	maxStateBytes int
	audit         audit.Logger
	logger        *slog.Logger
	now           func() time.Time
}

var tracer = otel.Tracer("github.com/codex-k8s/canvas-command-gateway/internal/gateway")

// New validates cfg and builds a Dispatcher.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Admission == nil {
		return nil, errors.New("admission controller is nil")
	}
	if cfg.Invoker == nil {
		return nil, errors.New("completion invoker is nil")
	}
	if cfg.Tools == nil {
		return nil, errors.New("tool registry is nil")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("model is required")
	}
	d := &Dispatcher{
		admission:     cfg.Admission,
		invoker:       cfg.Invoker,
		tools:         cfg.Tools,
		model:         cfg.Model,
		effort:        cfg.ReasoningEffort,
		verbosity:     cfg.Verbosity,
		systemPrompt:  cfg.SystemPrompt,
		deadline:      cfg.Deadline,
		state:         cfg.State,
		maxStateBytes: cfg.MaxCanvasStateBytes,
		audit:         cfg.Audit,
		logger:        cfg.Logger,
		now:           cfg.Now,
	}
	if strings.TrimSpace(d.systemPrompt) == "" {
		d.systemPrompt = DefaultSystemPrompt
	}
	if d.now == nil {
		d.now = time.Now
	}
	d.specs = d.toolSpecs()
	return d, nil
}

// Dispatch runs one command through admission, completion and decoding.
// Every expected failure is returned as an Outcome; the error is non-nil only
// for a malformed request.
func (d *Dispatcher) Dispatch(ctx context.Context, req CommandRequest) (Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "gateway.dispatch", trace.WithAttributes(
		attribute.String("canvas.user_id", req.UserID),
		attribute.String("canvas.correlation_id", req.CorrelationID),
	))
	defer span.End()

	started := time.Now()
	out := d.dispatch(ctx, req)

	span.SetAttributes(attribute.String("canvas.outcome", string(out.Kind())))
	if out.Kind() != KindSuccess {
		span.SetStatus(codes.Error, out.Code())
	}
	d.report(ctx, req, out, time.Since(started))
	return out, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, req CommandRequest) Outcome {
	decision := d.admission.TryAdmit(req.UserID, d.now())
	if !decision.Admitted {
		return RateLimited{RetryAfter: decision.RetryAfter}
	}

	res := d.invoker.Invoke(ctx, completion.Request{
		Model:           d.model,
		ReasoningEffort: d.effort,
		Verbosity:       d.verbosity,
		Messages:        d.buildMessages(req, d.canvasState(ctx, req)),
		Tools:           d.specs,
	}, d.deadline)

	switch res.Status {
	case completion.Completed:
		return d.decode(res.Response)
	case completion.TimedOut:
		return Timeout{After: res.Deadline}
	default:
		return TransportError{Cause: res.Cause}
	}
}

// decode fails closed: one bad call rejects the whole response.
func (d *Dispatcher) decode(resp completion.Response) Outcome {
	if len(resp.ToolCalls) == 0 {
		return NoAction{Text: resp.Text, FinishReason: resp.FinishReason}
	}
	calls := make([]tools.Call, 0, len(resp.ToolCalls))
	for _, raw := range resp.ToolCalls {
		call, err := d.tools.Decode(raw.ID, raw.Name, raw.Arguments)
		if err != nil {
			return DecodeError{Call: raw, Cause: err}
		}
		calls = append(calls, call)
	}
	return Success{Calls: calls, Text: resp.Text}
}

func (d *Dispatcher) canvasState(ctx context.Context, req CommandRequest) []byte {
	state := []byte(req.CanvasState)
	if len(state) == 0 && d.state != nil {
		snapshot, err := d.state.Snapshot(ctx, req.UserID)
		if err != nil {
			if d.logger != nil {
				d.logger.Warn("canvas snapshot failed", "user_id", req.UserID, "correlation_id", req.CorrelationID, "error", err)
			}
			return nil
		}
		state = snapshot
	}
	if len(state) > 0 && !json.Valid(state) {
		if d.logger != nil {
			d.logger.Warn("canvas snapshot is not valid json", "user_id", req.UserID, "correlation_id", req.CorrelationID)
		}
		return nil
	}
	if d.maxStateBytes > 0 && len(state) > d.maxStateBytes {
		if d.logger != nil {
			d.logger.Warn("canvas snapshot too large, omitted", "user_id", req.UserID, "correlation_id", req.CorrelationID, "bytes", len(state))
		}
		return nil
	}
	return state
}

// Status reports a user's quota for display.
func (d *Dispatcher) Status(userID string) admission.Status {
	return d.admission.Status(userID, d.now())
}

// Reset restores a user's full quota. Operator use only.
func (d *Dispatcher) Reset(ctx context.Context, userID, reason string) {
	d.admission.Reset(userID)
	if d.logger != nil {
		d.logger.Info("rate limit reset", "user_id", userID, "reason", reason)
	}
	if d.audit != nil {
		d.audit.Record(ctx, audit.Event{Type: audit.TypeRateLimitReset, UserID: userID, Reason: reason})
	}
}

func (d *Dispatcher) report(ctx context.Context, req CommandRequest, out Outcome, elapsed time.Duration) {
	var toolNames []string
	attrs := []any{
		"user_id", req.UserID,
		"correlation_id", req.CorrelationID,
		"outcome", string(out.Kind()),
		"elapsed_ms", elapsed.Milliseconds(),
	}
	switch o := out.(type) {
	case Success:
		for _, call := range o.Calls {
			toolNames = append(toolNames, call.Name)
		}
		attrs = append(attrs, "tools", toolNames)
	case RateLimited:
		attrs = append(attrs, "retry_after_ms", o.RetryAfter.Milliseconds())
	case TransportError:
		attrs = append(attrs, "error", o.Cause)
	case DecodeError:
		toolNames = []string{o.Call.Name}
		attrs = append(attrs, "tool", o.Call.Name, "call_id", o.Call.ID, "args", security.RedactRawArguments(o.Call.Arguments), "error", o.Cause)
	}

	if d.logger != nil {
		switch out.Kind() {
		case KindSuccess, KindNoAction, KindRateLimited:
			d.logger.InfoContext(ctx, "command dispatched", attrs...)
		default:
			d.logger.WarnContext(ctx, "command failed", attrs...)
		}
	}
	if d.audit != nil {
		event := audit.Event{
			Type:          audit.TypeCommand,
			UserID:        req.UserID,
			CorrelationID: req.CorrelationID,
			Outcome:       string(out.Kind()),
			Code:          out.Code(),
			Tools:         toolNames,
		}
		if out.Kind() != KindSuccess {
			event.Reason = out.Message()
		}
		d.audit.Record(ctx, event)
	}
}
