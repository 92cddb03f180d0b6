package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-k8s/canvas-command-gateway/internal/admission"
	"github.com/codex-k8s/canvas-command-gateway/internal/gateway"
	"github.com/codex-k8s/canvas-command-gateway/internal/idempotency"
	"github.com/codex-k8s/canvas-command-gateway/internal/protocol"
	"github.com/codex-k8s/canvas-command-gateway/internal/templates"
	"github.com/codex-k8s/canvas-command-gateway/internal/tools"
)

type fakeCommander struct {
	mu      sync.Mutex
	outcome gateway.Outcome
	err     error
	got     []gateway.CommandRequest
	status  admission.Status
	resets  []string
}

func (f *fakeCommander) Dispatch(_ context.Context, req gateway.CommandRequest) (gateway.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, req)
	return f.outcome, f.err
}

func (f *fakeCommander) Status(string) admission.Status {
	return f.status
}

func (f *fakeCommander) Reset(_ context.Context, userID, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, userID+":"+reason)
}

func newHandler(t *testing.T, c *fakeCommander, adminToken string) *Handler {
	t.Helper()
	bundle, err := templates.Load("en")
	require.NoError(t, err)
	return New(c, Options{BasePath: "/api/", AdminToken: adminToken, MaxBodyBytes: 4096, Templates: bundle})
}

func postCommand(h http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/commands", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type wireCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type wireResponse struct {
	Status        string     `json:"status"`
	Code          string     `json:"code"`
	Message       string     `json:"message"`
	CorrelationID string     `json:"correlation_id"`
	RetryAfterMS  int64      `json:"retry_after_ms"`
	ToolCalls     []wireCall `json:"tool_calls"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) wireResponse {
	t.Helper()
	var resp wireResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCommandSuccess(t *testing.T) {
	c := &fakeCommander{outcome: gateway.Success{Calls: []tools.Call{
		{ID: "call_1", Name: tools.CreateShape, Arguments: tools.CreateShapeArgs{Type: "circle"}},
	}}}
	h := newHandler(t, c, "")

	rec := postCommand(h, `{"user_id":"u1","prompt":"draw a circle","history":[{"role":"user","content":"hi"}],"canvas_state":{"shapes":[]}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode(t, rec)
	assert.Equal(t, protocol.StatusSuccess, resp.Status)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "circle", resp.ToolCalls[0].Arguments["type"])
	assert.NotEmpty(t, resp.CorrelationID)
	assert.Equal(t, resp.CorrelationID, rec.Header().Get(HeaderCorrelationID))

	require.Len(t, c.got, 1)
	assert.Equal(t, "u1", c.got[0].UserID)
	assert.Len(t, c.got[0].History, 1)
	assert.JSONEq(t, `{"shapes":[]}`, string(c.got[0].CanvasState))
}

func TestCommandTrustedHeadersWin(t *testing.T) {
	c := &fakeCommander{outcome: gateway.NoAction{}}
	h := newHandler(t, c, "")

	rec := postCommand(h, `{"user_id":"spoofed","prompt":"hello"}`, map[string]string{
		HeaderUserID:        "u-proxy",
		HeaderCorrelationID: "corr-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, c.got, 1)
	assert.Equal(t, "u-proxy", c.got[0].UserID)
	assert.Equal(t, "corr-1", c.got[0].CorrelationID)
	assert.Equal(t, gateway.CodeNoToolCalls, decode(t, rec).Code)
}

func TestCommandRateLimited(t *testing.T) {
	c := &fakeCommander{outcome: gateway.RateLimited{RetryAfter: 41200 * time.Millisecond}}
	rec := postCommand(newHandler(t, c, ""), `{"user_id":"u1","prompt":"draw"}`, nil)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "42", rec.Header().Get("Retry-After"))
	resp := decode(t, rec)
	assert.Equal(t, gateway.CodeRateLimited, resp.Code)
	assert.Equal(t, int64(41200), resp.RetryAfterMS)
	assert.Contains(t, resp.Message, "Please wait 42s")
}

func TestCommandFailureStatuses(t *testing.T) {
	cases := map[string]struct {
		outcome gateway.Outcome
		status  int
	}{
		"timeout":   {gateway.Timeout{After: 10 * time.Second}, http.StatusGatewayTimeout},
		"transport": {gateway.TransportError{Cause: errors.New("401")}, http.StatusBadGateway},
		"decode":    {gateway.DecodeError{Cause: tools.ErrInvalidArguments}, http.StatusUnprocessableEntity},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := postCommand(newHandler(t, &fakeCommander{outcome: tc.outcome}, ""), `{"user_id":"u1","prompt":"draw"}`, nil)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, protocol.StatusError, decode(t, rec).Status)
		})
	}
}

func TestCommandRejectsBadRequests(t *testing.T) {
	cases := map[string]string{
		"malformed":     `{"user_id":`,
		"unknown field": `{"user_id":"u1","prompt":"x","temperature":1}`,
		"missing user":  `{"prompt":"x"}`,
		"missing text":  `{"user_id":"u1","prompt":""}`,
		"bad role":      `{"user_id":"u1","prompt":"x","history":[{"role":"tool","content":"x"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c := &fakeCommander{outcome: gateway.NoAction{}}
			rec := postCommand(newHandler(t, c, ""), body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, c.got)
		})
	}
}

func TestCommandBodyTooLarge(t *testing.T) {
	c := &fakeCommander{outcome: gateway.NoAction{}}
	body := `{"user_id":"u1","prompt":"` + strings.Repeat("a", 5000) + `"}`
	rec := postCommand(newHandler(t, c, ""), body, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestStatus(t *testing.T) {
	c := &fakeCommander{status: admission.Status{Limit: 10, Remaining: 7, ResetIn: 30 * time.Second}}
	h := newHandler(t, c, "")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rate-limit?user_id=u1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var st protocol.RateLimitStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 7, st.Remaining)
	assert.Equal(t, "7 requests remaining, resets in 30s", st.Message)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rate-limit", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetRequiresAdminToken(t *testing.T) {
	reset := func(h http.Handler, auth string) int {
		req := httptest.NewRequest(http.MethodDelete, "/api/rate-limit?user_id=u1&reason=support", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	disabled := &fakeCommander{}
	assert.Equal(t, http.StatusForbidden, reset(newHandler(t, disabled, ""), "Bearer anything"))
	assert.Empty(t, disabled.resets)

	c := &fakeCommander{}
	h := newHandler(t, c, "s3cret")
	assert.Equal(t, http.StatusUnauthorized, reset(h, ""))
	assert.Equal(t, http.StatusUnauthorized, reset(h, "Bearer wrong"))
	assert.Equal(t, http.StatusNoContent, reset(h, "Bearer s3cret"))
	assert.Equal(t, []string{"u1:support"}, c.resets)
}

func TestUnknownRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler(t, &fakeCommander{}, "").ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/commands", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCommandReplaysTerminalOutcome(t *testing.T) {
	c := &fakeCommander{outcome: gateway.Success{Calls: []tools.Call{
		{ID: "call_1", Name: tools.DeleteShapes, Arguments: tools.DeleteShapesArgs{IDs: []string{"s1"}}},
	}}}
	bundle, err := templates.Load("en")
	require.NoError(t, err)
	h := New(c, Options{BasePath: "/api", Templates: bundle, Replay: idempotency.NewCache[Replay](time.Minute, 10)})

	body := `{"user_id":"u1","prompt":"delete it","correlation_id":"retry-1"}`
	first := postCommand(h, body, nil)
	second := postCommand(h, body, nil)

	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get(HeaderReplayed))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Len(t, c.got, 1)

	// Another user with the same id is a new command.
	postCommand(h, `{"user_id":"u2","prompt":"delete it","correlation_id":"retry-1"}`, nil)
	assert.Len(t, c.got, 2)
}

func TestCommandDoesNotReplayTransientOutcomes(t *testing.T) {
	c := &fakeCommander{outcome: gateway.Timeout{After: time.Second}}
	h := New(c, Options{BasePath: "/api", Replay: idempotency.NewCache[Replay](time.Minute, 10)})

	body := `{"user_id":"u1","prompt":"draw","correlation_id":"retry-2"}`
	postCommand(h, body, nil)
	rec := postCommand(h, body, nil)
	assert.Empty(t, rec.Header().Get(HeaderReplayed))
	assert.Len(t, c.got, 2)

	// Generated ids are never replayed.
	c.outcome = gateway.NoAction{}
	postCommand(h, `{"user_id":"u1","prompt":"draw"}`, nil)
	postCommand(h, `{"user_id":"u1","prompt":"draw"}`, nil)
	assert.Len(t, c.got, 4)
}
