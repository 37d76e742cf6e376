package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/parley0/parley/internal/chat"
	"github.com/parley0/parley/internal/log"
	"github.com/parley0/parley/internal/session"
)

// ChatHandler handles chat-related HTTP endpoints.
//
// Endpoints:
//   - POST /api/chat            - Synchronous exchange (JSON request/response)
//   - POST /api/chat/stream     - Streaming exchange (SSE - Server-Sent Events)
//   - POST /api/chat/regenerate - Re-run a model message (SSE)
//
// The engine serializes generations globally, so a request arriving while
// another generation is in flight gets 409 Conflict rather than queueing.
type ChatHandler struct {
	engine *chat.Engine
	logger log.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(engine *chat.Engine, logger log.Logger) *ChatHandler {
	return &ChatHandler{engine: engine, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.handleChat)
	mux.HandleFunc("POST /api/chat/stream", h.handleStream)
	mux.HandleFunc("POST /api/chat/regenerate", h.handleRegenerate)
}

// ChatRequest is the request body for chat endpoints.
type ChatRequest struct {
	// Text is the user's message.
	Text string `json:"text"`

	// SessionID optionally targets a session; empty means the currently
	// active one.
	SessionID string `json:"sessionId,omitempty"`
}

// ChatResponse is the response body for the synchronous chat endpoint.
type ChatResponse struct {
	SessionID string          `json:"sessionId"`
	Message   session.Message `json:"message"`
}

// RegenerateRequest is the request body for the regenerate endpoint.
type RegenerateRequest struct {
	MessageID string `json:"messageId"`
	SessionID string `json:"sessionId,omitempty"`
}

// SSEChunkData is the data for "chunk" events. Content is cumulative:
// each chunk carries the full text generated so far.
type SSEChunkData struct {
	MessageID string `json:"messageId"`
	Content   string `json:"content"`
}

// SSEDoneData is the data for "done" events.
type SSEDoneData struct {
	SessionID string          `json:"sessionId"`
	Message   session.Message `json:"message"`
}

// SSEErrorData is the data for "error" events.
type SSEErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleChat handles the synchronous chat endpoint. The response carries
// the final model message; a failed generation is reported in-band via
// the message's isError flag, mirroring the transcript semantics.
func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeChatRequest(w, r)
	if !ok {
		return
	}

	var last session.Message
	accepted := h.engine.Send(r.Context(), req.Text, func(m session.Message) {
		last = m
	})
	if !accepted {
		writeError(w, http.StatusConflict, "BUSY", "a generation is already in flight")
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		SessionID: h.engine.ActiveSession().String(),
		Message:   last,
	})
}

// handleStream handles the SSE streaming endpoint.
//
// Event types:
//   - chunk: cumulative text so far {"messageId": "...", "content": "..."}
//   - done:  final message {"sessionId": "...", "message": {...}}
//   - error: request-level failure {"code": "...", "message": "..."}
//
// A failed generation is NOT an error event: the stream ends with a done
// event whose message has isError set, matching the transcript semantics.
func (h *ChatHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := h.startSSE(w)
	if !ok {
		return
	}

	req, ok := h.decodeChatRequestSSE(w, flusher, r)
	if !ok {
		return
	}

	var last session.Message
	accepted := h.engine.Send(r.Context(), req.Text, func(m session.Message) {
		last = m
		h.writeSSEChunk(w, flusher, m)
	})
	if !accepted {
		h.writeSSEError(w, flusher, "BUSY", "a generation is already in flight")
		return
	}

	h.writeSSEDone(w, flusher, h.engine.ActiveSession().String(), last)
}

// handleRegenerate re-runs generation for an existing model message,
// streaming the replacement over SSE. The message keeps its ID and
// position.
func (h *ChatHandler) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	flusher, ok := h.startSSE(w)
	if !ok {
		return
	}

	var req RegenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeSSEError(w, flusher, "INVALID_REQUEST", fmt.Sprintf("invalid request body: %v", err))
		return
	}
	messageID, err := uuid.Parse(req.MessageID)
	if err != nil {
		h.writeSSEError(w, flusher, "INVALID_ID", "messageId must be a UUID")
		return
	}
	if !h.activateIfRequested(r, w, flusher, req.SessionID) {
		return
	}

	var last session.Message
	accepted := h.engine.Regenerate(r.Context(), messageID, func(m session.Message) {
		last = m
		h.writeSSEChunk(w, flusher, m)
	})
	if !accepted {
		h.writeSSEError(w, flusher, "NOT_REGENERABLE",
			"message cannot be regenerated (busy, unknown, or not a model response)")
		return
	}

	h.writeSSEDone(w, flusher, h.engine.ActiveSession().String(), last)
}

// decodeChatRequest parses and validates the chat request body, switching
// the active session when one is requested. Errors are reported as JSON.
func (h *ChatHandler) decodeChatRequest(w http.ResponseWriter, r *http.Request) (ChatRequest, bool) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", fmt.Sprintf("invalid request body: %v", err))
		return req, false
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TEXT", "text is required")
		return req, false
	}
	if req.SessionID != "" {
		id, err := uuid.Parse(req.SessionID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_ID", "sessionId must be a UUID")
			return req, false
		}
		if id != h.engine.ActiveSession() {
			if err := h.engine.ActivateSession(r.Context(), id); err != nil {
				writeError(w, http.StatusNotFound, "NOT_FOUND", "session not found")
				return req, false
			}
		}
	}
	return req, true
}

// decodeChatRequestSSE mirrors decodeChatRequest but reports failures as
// SSE error events, since the stream headers are already committed.
func (h *ChatHandler) decodeChatRequestSSE(w http.ResponseWriter, flusher http.Flusher, r *http.Request) (ChatRequest, bool) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeSSEError(w, flusher, "INVALID_REQUEST", fmt.Sprintf("invalid request body: %v", err))
		return req, false
	}
	if strings.TrimSpace(req.Text) == "" {
		h.writeSSEError(w, flusher, "MISSING_TEXT", "text is required")
		return req, false
	}
	if !h.activateIfRequested(r, w, flusher, req.SessionID) {
		return req, false
	}
	return req, true
}

// activateIfRequested switches the active session when the request names
// one. Returns false after writing an SSE error event.
func (h *ChatHandler) activateIfRequested(r *http.Request, w http.ResponseWriter, flusher http.Flusher, sessionID string) bool {
	if sessionID == "" {
		return true
	}
	id, err := uuid.Parse(sessionID)
	if err != nil {
		h.writeSSEError(w, flusher, "INVALID_ID", "sessionId must be a UUID")
		return false
	}
	if id == h.engine.ActiveSession() {
		return true
	}
	if err := h.engine.ActivateSession(r.Context(), id); err != nil {
		h.writeSSEError(w, flusher, "NOT_FOUND", "session not found")
		return false
	}
	return true
}

// startSSE sets the SSE headers and checks flushing support.
func (h *ChatHandler) startSSE(w http.ResponseWriter) (http.Flusher, bool) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("streaming not supported")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return nil, false
	}
	return flusher, true
}

// writeSSEChunk writes a chunk event to the SSE stream.
func (h *ChatHandler) writeSSEChunk(w http.ResponseWriter, flusher http.Flusher, m session.Message) {
	data, _ := json.Marshal(SSEChunkData{MessageID: m.ID.String(), Content: m.Content})
	fmt.Fprintf(w, "event: chunk\ndata: %s\n\n", data)
	flusher.Flush()
}

// writeSSEDone writes a done event to the SSE stream.
func (h *ChatHandler) writeSSEDone(w http.ResponseWriter, flusher http.Flusher, sessionID string, m session.Message) {
	data, _ := json.Marshal(SSEDoneData{SessionID: sessionID, Message: m})
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", data)
	flusher.Flush()
}

// writeSSEError writes an error event to the SSE stream.
func (h *ChatHandler) writeSSEError(w http.ResponseWriter, flusher http.Flusher, code, message string) {
	data, _ := json.Marshal(SSEErrorData{Code: code, Message: message})
	fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
	flusher.Flush()
}
