package api

import (
	"net/http"

	"github.com/parley0/parley/internal/log"
	"github.com/parley0/parley/internal/session"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	gateway session.Gateway
	logger  log.Logger
}

// NewHealthHandler creates a new health handler.
// The gateway is exercised for readiness checks.
func NewHealthHandler(gateway session.Gateway, logger log.Logger) *HealthHandler {
	return &HealthHandler{gateway: gateway, logger: logger}
}

// RegisterRoutes registers health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

// liveness is a liveness probe endpoint.
// Returns 200 OK if the process is alive.
func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness is a readiness probe endpoint.
// Returns 200 OK if the storage backend answers a read.
func (h *HealthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.gateway == nil {
		http.Error(w, "storage not configured", http.StatusServiceUnavailable)
		return
	}
	if _, err := h.gateway.ListSessions(r.Context()); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		http.Error(w, "storage not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
