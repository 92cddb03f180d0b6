package protocol

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-k8s/canvas-command-gateway/internal/admission"
	"github.com/codex-k8s/canvas-command-gateway/internal/completion"
	"github.com/codex-k8s/canvas-command-gateway/internal/gateway"
	"github.com/codex-k8s/canvas-command-gateway/internal/templates"
	"github.com/codex-k8s/canvas-command-gateway/internal/tools"
)

func TestFromOutcomeRateLimited(t *testing.T) {
	bundle, err := templates.Load("en")
	require.NoError(t, err)

	resp := FromOutcome("c1", gateway.RateLimited{RetryAfter: 41500 * time.Millisecond}, bundle)
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, "rate_limited", resp.Kind)
	assert.Equal(t, gateway.CodeRateLimited, resp.Code)
	assert.Equal(t, int64(41500), resp.RetryAfterMS)
	assert.Equal(t, "Please wait 42s before sending another command.", resp.Message)
	assert.Equal(t, "c1", resp.CorrelationID)
}

func TestFromOutcomeSuccessKeepsOrder(t *testing.T) {
	calls := []tools.Call{
		{ID: "a", Name: tools.CreateShape, Arguments: tools.CreateShapeArgs{Type: "rectangle"}},
		{ID: "b", Name: tools.DeleteShapes, Arguments: tools.DeleteShapesArgs{IDs: []string{"s1"}}},
	}
	resp := FromOutcome("c1", gateway.Success{Calls: calls, Text: "done"}, nil)
	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Empty(t, resp.Code)
	require.Len(t, resp.ToolCalls, 2)
	assert.Equal(t, "a", resp.ToolCalls[0].ID)
	assert.Equal(t, "b", resp.ToolCalls[1].ID)
	assert.Equal(t, "done", resp.Text)
	assert.Equal(t, "2 tool call(s) ready", resp.Message)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"tool_calls":[{"id":"a","name":"create_shape"`)
}

func TestFromOutcomeNoActionIsNotAnError(t *testing.T) {
	resp := FromOutcome("c1", gateway.NoAction{Text: "Which shape?"}, nil)
	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, gateway.CodeNoToolCalls, resp.Code)
	assert.Equal(t, "Which shape?", resp.Text)
	assert.Equal(t, http.StatusOK, HTTPStatus(gateway.KindNoAction))
}

func TestFromOutcomeTimeoutMentionsTimeout(t *testing.T) {
	for _, lang := range []string{"en", "ru"} {
		bundle, err := templates.Load(lang)
		require.NoError(t, err)
		resp := FromOutcome("c1", gateway.Timeout{After: 10 * time.Second}, bundle)
		assert.Equal(t, gateway.CodeTimeout, resp.Code)
		assert.Contains(t, resp.Message, "timeout")
	}
}

func TestFromOutcomeDecodeErrorNamesCall(t *testing.T) {
	cause := &tools.DecodeError{CallID: "call_7", Tool: tools.UpdateShape, Err: tools.ErrInvalidArguments}
	out := gateway.DecodeError{
		Call:  completion.ToolCall{ID: "call_7", Name: tools.UpdateShape, Arguments: `{"id":""}`},
		Cause: cause,
	}
	resp := FromOutcome("c1", out, nil)
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, "call_7", resp.CallID)
	assert.Equal(t, tools.UpdateShape, resp.Tool)
	assert.Equal(t, cause.Error(), resp.Message)
	assert.Empty(t, resp.ToolCalls)
}

func TestFromOutcomeTransportErrorHidesCause(t *testing.T) {
	bundle, err := templates.Load("en")
	require.NoError(t, err)
	resp := FromOutcome("c1", gateway.TransportError{Cause: errors.New("dial tcp: secret-host")}, bundle)
	assert.NotContains(t, resp.Message, "secret-host")
	assert.Equal(t, gateway.CodeTransportError, resp.Code)
}

func TestFromStatus(t *testing.T) {
	st := FromStatus(admission.Status{Limit: 10, Remaining: 3, ResetIn: 44200 * time.Millisecond}, nil)
	assert.Equal(t, 10, st.Limit)
	assert.Equal(t, 3, st.Remaining)
	assert.Equal(t, int64(44200), st.ResetInMS)
	assert.Equal(t, "3 requests remaining, resets in 45s", st.Message)

	bundle, err := templates.Load("en")
	require.NoError(t, err)
	st = FromStatus(admission.Status{Limit: 10, Remaining: 10}, bundle)
	assert.Equal(t, "10 requests remaining, resets in 0s", st.Message)
}

func TestHTTPStatus(t *testing.T) {
	cases := map[gateway.Kind]int{
		gateway.KindSuccess:        http.StatusOK,
		gateway.KindRateLimited:    http.StatusTooManyRequests,
		gateway.KindTimeout:        http.StatusGatewayTimeout,
		gateway.KindTransportError: http.StatusBadGateway,
		gateway.KindDecodeError:    http.StatusUnprocessableEntity,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), string(kind))
	}
}
