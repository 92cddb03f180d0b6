package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/codex-k8s/canvas-command-gateway/internal/admission"
	"github.com/codex-k8s/canvas-command-gateway/internal/gateway"
	"github.com/codex-k8s/canvas-command-gateway/internal/idempotency"
	"github.com/codex-k8s/canvas-command-gateway/internal/protocol"
	"github.com/codex-k8s/canvas-command-gateway/internal/templates"
	"github.com/codex-k8s/canvas-command-gateway/internal/timeutil"
)

// Trusted headers set by the auth proxy in front of the gateway.
const (
	HeaderUserID        = "X-User-ID"
	HeaderCorrelationID = "X-Correlation-ID"
)

// HeaderReplayed marks a response served from the replay cache.
const HeaderReplayed = "Idempotent-Replayed"

const defaultMaxBodyBytes = 1 << 20

// Commander is the dispatcher surface used by the HTTP API.
type Commander interface {
	Dispatch(ctx context.Context, req gateway.CommandRequest) (gateway.Outcome, error)
	Status(userID string) admission.Status
	Reset(ctx context.Context, userID, reason string)
}

// Replay is a stored command response.
type Replay struct {
	// Status is the HTTP status of the original response.
	Status int
	// Response is the original body.
	Response protocol.CommandResponse
}

// Options configures the API handler.
type Options struct {
	// BasePath prefixes every route, e.g. "/api".
	BasePath string
	// AdminToken guards the reset route. Empty disables it.
	AdminToken string
	// MaxBodyBytes caps the command body.
	MaxBodyBytes int64
	// Replay caches terminal responses by user and client-supplied correlation id.
	Replay *idempotency.Cache[Replay]
	// Templates renders localized messages.
	Templates templates.Renderer
	// Logger is used for structured logging.
	Logger *slog.Logger
}

// Handler serves the command, status and reset routes.
type Handler struct {
	commander    Commander
	adminToken   string
	maxBodyBytes int64
	replay       *idempotency.Cache[Replay]
	templates    templates.Renderer
	logger       *slog.Logger
	mux          *http.ServeMux
}

type commandBody struct {
	CorrelationID string            `json:"correlation_id"`
	UserID        string            `json:"user_id"`
	Prompt        string            `json:"prompt"`
	History       []gateway.Message `json:"history"`
	CanvasState   json.RawMessage   `json:"canvas_state"`
}

// New builds the API handler.
func New(commander Commander, opts Options) *Handler {
	h := &Handler{
		commander:    commander,
		adminToken:   opts.AdminToken,
		maxBodyBytes: opts.MaxBodyBytes,
		replay:       opts.Replay,
		templates:    opts.Templates,
		logger:       opts.Logger,
		mux:          http.NewServeMux(),
	}
	if h.maxBodyBytes <= 0 {
		h.maxBodyBytes = defaultMaxBodyBytes
	}
	base := strings.TrimRight(opts.BasePath, "/")
	h.mux.HandleFunc("POST "+base+"/commands", h.handleCommand)
	h.mux.HandleFunc("GET "+base+"/rate-limit", h.handleStatus)
	h.mux.HandleFunc("DELETE "+base+"/rate-limit", h.handleReset)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleCommand(w http.ResponseWriter, r *http.Request) {
	var body commandBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		if h.logger != nil {
			h.logger.Debug("malformed command body", "error", err)
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, protocol.CodeInvalidRequest, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, protocol.CodeInvalidRequest, "malformed json body")
		return
	}

	userID := body.UserID
	if header := strings.TrimSpace(r.Header.Get(HeaderUserID)); header != "" {
		userID = header
	}
	correlationID := body.CorrelationID
	if correlationID == "" {
		correlationID = strings.TrimSpace(r.Header.Get(HeaderCorrelationID))
	}

	req, err := gateway.NewCommandRequest(correlationID, userID, body.Prompt, body.History, body.CanvasState)
	if err != nil {
		writeError(w, http.StatusBadRequest, protocol.CodeInvalidRequest, err.Error())
		return
	}

	// Only client-supplied ids are replayable.
	var replayKey string
	if strings.TrimSpace(correlationID) != "" {
		replayKey = idempotency.Key(req.UserID, req.CorrelationID)
	}
	if cached, ok := h.replay.Get(replayKey); ok {
		if h.logger != nil {
			h.logger.Info("command replayed", "user_id", req.UserID, "correlation_id", req.CorrelationID)
		}
		w.Header().Set(HeaderReplayed, "true")
		w.Header().Set(HeaderCorrelationID, req.CorrelationID)
		writeJSON(w, cached.Status, cached.Response)
		return
	}

	out, err := h.commander.Dispatch(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, protocol.CodeInvalidRequest, err.Error())
		return
	}

	resp := protocol.FromOutcome(req.CorrelationID, out, h.templates)
	if rl, ok := out.(gateway.RateLimited); ok {
		w.Header().Set("Retry-After", strconv.FormatInt(timeutil.CeilSeconds(rl.RetryAfter), 10))
	}
	status := protocol.HTTPStatus(out.Kind())
	if replayable(out.Kind()) {
		h.replay.Set(replayKey, Replay{Status: status, Response: resp})
	}
	w.Header().Set(HeaderCorrelationID, req.CorrelationID)
	writeJSON(w, status, resp)
}

// replayable reports whether a retry must see the same outcome. Transient
// failures are retried for real.
func replayable(kind gateway.Kind) bool {
	switch kind {
	case gateway.KindSuccess, gateway.KindNoAction, gateway.KindDecodeError:
		return true
	default:
		return false
	}
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	userID := h.userID(r)
	if userID == "" {
		writeError(w, http.StatusBadRequest, protocol.CodeInvalidRequest, "user_id is required")
		return
	}
	writeJSON(w, http.StatusOK, protocol.FromStatus(h.commander.Status(userID), h.templates))
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if h.adminToken == "" {
		writeError(w, http.StatusForbidden, protocol.CodeForbidden, "rate limit reset is disabled")
		return
	}
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, protocol.CodeUnauthorized, "admin token required")
		return
	}
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, protocol.CodeInvalidRequest, "user_id is required")
		return
	}
	reason := strings.TrimSpace(r.URL.Query().Get("reason"))
	if reason == "" {
		reason = "admin reset"
	}
	h.commander.Reset(r.Context(), userID, reason)
	w.WriteHeader(http.StatusNoContent)
}

// userID prefers the trusted header over the query parameter.
func (h *Handler) userID(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get(HeaderUserID)); header != "" {
		return header
	}
	return strings.TrimSpace(r.URL.Query().Get("user_id"))
}

func (h *Handler) authorized(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(h.adminToken)) == 1
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, protocol.ErrorResponse{Status: protocol.StatusError, Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
