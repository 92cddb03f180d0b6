package protocol

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/codex-k8s/canvas-command-gateway/internal/admission"
	"github.com/codex-k8s/canvas-command-gateway/internal/gateway"
	"github.com/codex-k8s/canvas-command-gateway/internal/templates"
	"github.com/codex-k8s/canvas-command-gateway/internal/timeutil"
	"github.com/codex-k8s/canvas-command-gateway/internal/tools"
)

// Response statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// CommandResponse is the fixed JSON response returned to canvas clients.
type CommandResponse struct {
	// Status is success for Success and NoAction, error otherwise.
	Status string `json:"status"`
	// Kind is the outcome variant.
	Kind string `json:"kind"`
	// Code is the fixed error code.
	Code string `json:"code,omitempty"`
	// Message is a localized, human-readable message.
	Message string `json:"message"`
	// CorrelationID links the response to logs and audit.
	CorrelationID string `json:"correlation_id"`
	// RetryAfterMS is set for rate-limited responses.
	RetryAfterMS int64 `json:"retry_after_ms,omitempty"`
	// ToolCalls are the decoded operations in model order.
	ToolCalls []tools.Call `json:"tool_calls,omitempty"`
	// Text is free text returned by the model.
	Text string `json:"text,omitempty"`
	// CallID identifies the rejected tool call.
	CallID string `json:"call_id,omitempty"`
	// Tool names the rejected tool call.
	Tool string `json:"tool,omitempty"`
}

// RateLimitStatus is the quota display payload.
type RateLimitStatus struct {
	// Limit is the per-window maximum.
	Limit int `json:"limit"`
	// Remaining is the number of requests left in the window.
	Remaining int `json:"remaining"`
	// ResetInMS is the time until the window resets.
	ResetInMS int64 `json:"reset_in_ms"`
	// Message is a localized display line.
	Message string `json:"message"`
}

// ErrorResponse is returned for malformed requests.
type ErrorResponse struct {
	// Status is always error.
	Status string `json:"status"`
	// Code is the fixed error code.
	Code string `json:"code"`
	// Message describes the problem.
	Message string `json:"message"`
}

// Request-level error codes.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
)

// FromOutcome converts a dispatcher outcome into the wire shape.
func FromOutcome(correlationID string, out gateway.Outcome, r templates.Renderer) CommandResponse {
	resp := CommandResponse{
		Status:        StatusError,
		Kind:          string(out.Kind()),
		Code:          out.Code(),
		Message:       out.Message(),
		CorrelationID: correlationID,
	}

	switch o := out.(type) {
	case gateway.Success:
		resp.Status = StatusSuccess
		resp.ToolCalls = o.Calls
		resp.Text = o.Text
		resp.Message = templates.RenderOr(r, "outcome.success", map[string]any{"Count": len(o.Calls)}, resp.Message)
	case gateway.NoAction:
		resp.Status = StatusSuccess
		resp.Text = o.Text
		resp.Message = templates.RenderOr(r, "outcome.no_action", nil, resp.Message)
	case gateway.RateLimited:
		resp.RetryAfterMS = o.RetryAfter.Milliseconds()
		resp.Message = templates.RenderOr(r, "outcome.rate_limited", map[string]any{"Seconds": timeutil.CeilSeconds(o.RetryAfter)}, resp.Message)
	case gateway.Timeout:
		resp.Message = templates.RenderOr(r, "outcome.timeout", map[string]any{"Seconds": timeutil.CeilSeconds(o.After)}, resp.Message)
	case gateway.TransportError:
		resp.Message = templates.RenderOr(r, "outcome.transport_error", nil, resp.Message)
	case gateway.DecodeError:
		resp.CallID = o.Call.ID
		resp.Tool = o.Call.Name
		var decodeErr *tools.DecodeError
		if errors.As(o.Cause, &decodeErr) && decodeErr.Tool != "" {
			resp.Tool = decodeErr.Tool
		}
		resp.Message = templates.RenderOr(r, "outcome.decode_error", map[string]any{"Tool": resp.Tool}, resp.Message)
	}
	return resp
}

// FromStatus converts an admission status into the display payload.
func FromStatus(st admission.Status, r templates.Renderer) RateLimitStatus {
	seconds := timeutil.CeilSeconds(st.ResetIn)
	fallback := fmt.Sprintf("%d requests remaining, resets in %ds", st.Remaining, seconds)
	return RateLimitStatus{
		Limit:     st.Limit,
		Remaining: st.Remaining,
		ResetInMS: st.ResetIn.Milliseconds(),
		Message:   templates.RenderOr(r, "rate_limit.status", map[string]any{"Remaining": st.Remaining, "Seconds": seconds}, fallback),
	}
}

// HTTPStatus maps an outcome kind to an HTTP status code.
func HTTPStatus(kind gateway.Kind) int {
	switch kind {
	case gateway.KindSuccess, gateway.KindNoAction:
		return http.StatusOK
	case gateway.KindRateLimited:
		return http.StatusTooManyRequests
	case gateway.KindTimeout:
		return http.StatusGatewayTimeout
	case gateway.KindTransportError:
		return http.StatusBadGateway
	case gateway.KindDecodeError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
