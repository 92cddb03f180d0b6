package health

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

// Handler serves liveness and readiness probes.
type Handler struct {
	ready  atomic.Bool
	reason atomic.Value
}

type probeResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// New returns a health handler that starts not ready.
func New() *Handler {
	h := &Handler{}
	h.reason.Store("starting")
	return h
}

// SetReady marks the handler as ready.
func (h *Handler) SetReady() {
	h.reason.Store("")
	h.ready.Store(true)
}

// SetNotReady marks the handler as not ready with a short reason.
func (h *Handler) SetNotReady(reason string) {
	h.reason.Store(reason)
	h.ready.Store(false)
}

// Healthz handles liveness probes.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeProbe(w, http.StatusOK, probeResponse{Status: "ok"})
}

// Readyz handles readiness probes.
func (h *Handler) Readyz(w http.ResponseWriter, _ *http.Request) {
	if h.ready.Load() {
		writeProbe(w, http.StatusOK, probeResponse{Status: "ready"})
		return
	}
	reason, _ := h.reason.Load().(string)
	writeProbe(w, http.StatusServiceUnavailable, probeResponse{Status: "not ready", Reason: reason})
}

func writeProbe(w http.ResponseWriter, status int, body probeResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
