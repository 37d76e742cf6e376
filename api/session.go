package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/parley0/parley/internal/chat"
	"github.com/parley0/parley/internal/log"
	"github.com/parley0/parley/internal/session"
)

// MaxSearchQueryLength bounds the search term.
const MaxSearchQueryLength = 200

// SessionHandler handles session-related HTTP endpoints.
type SessionHandler struct {
	engine  *chat.Engine
	gateway session.Gateway
	logger  log.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(engine *chat.Engine, gateway session.Gateway, logger log.Logger) *SessionHandler {
	return &SessionHandler{engine: engine, gateway: gateway, logger: logger}
}

// RegisterRoutes registers session routes on the given mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions", h.list)
	mux.HandleFunc("POST /api/sessions", h.create)
	mux.HandleFunc("GET /api/sessions/search", h.search)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.delete)
	mux.HandleFunc("GET /api/sessions/{id}/messages", h.messages)
}

// list returns all sessions, most recently updated first.
func (h *SessionHandler) list(w http.ResponseWriter, _ *http.Request) {
	sessions := h.engine.Sessions().List()
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"total":    len(sessions),
		"active":   h.engine.ActiveSession(),
	})
}

// create creates a new session and makes it active.
func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	sess, err := h.engine.NewSession(r.Context())
	if err != nil {
		h.logger.Error("failed to create session", "error", err)
		writeError(w, http.StatusInternalServerError, "CREATE_FAILED", "failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// search returns sessions whose title contains the query. An empty
// query returns all sessions. Gateway failures degrade to a local scan
// inside the store, so search itself cannot fail.
func (h *SessionHandler) search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(query) > MaxSearchQueryLength {
		writeError(w, http.StatusBadRequest, "QUERY_TOO_LONG", "search query too long")
		return
	}

	sessions := h.engine.Sessions().Search(r.Context(), query)
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"total":    len(sessions),
	})
}

// delete removes a session and its messages. Deleting the active session
// switches to the most recent remaining one.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "session id must be a UUID")
		return
	}

	if err := h.engine.DeleteSession(r.Context(), id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "session not found")
			return
		}
		h.logger.Error("failed to delete session", "error", err, "session_id", id)
		writeError(w, http.StatusInternalServerError, "DELETE_FAILED", "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// messages returns a session's full message sequence in order.
func (h *SessionHandler) messages(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "session id must be a UUID")
		return
	}

	msgs, err := h.gateway.ListMessages(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list messages", "error", err, "session_id", id)
		writeError(w, http.StatusInternalServerError, "LIST_FAILED", "failed to list messages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": msgs,
		"total":    len(msgs),
	})
}
