// Package session defines the conversation data model and the in-memory
// session store.
//
// The Store is the authoritative view of session metadata across all
// sessions, ordered by recency. Durable copies live behind the Gateway
// interface; in-memory state is written through asynchronously by the
// callers (write-behind).
package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role constants define valid message roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

const (
	// TitleMaxLength caps derived session titles.
	TitleMaxLength = 60

	// PreviewMaxLength caps the session preview before the ellipsis marker.
	PreviewMaxLength = 60

	// PreviewEllipsis is appended to truncated previews.
	PreviewEllipsis = "…"
)

// Session represents a conversation session.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Preview   string    `json:"preview"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message represents a single conversation turn.
//
// A model message passes through up to four observable states: pending
// (empty content, generation in flight), streaming (content growing),
// final (content fixed, IsError false) or failed (IsError true, content
// set to a localized error string).
type Message struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"sessionId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	IsError   bool      `json:"isError,omitempty"`
}

// Preview derives a session preview from message content: the first
// PreviewMaxLength runes, with an ellipsis marker appended when truncated.
func Preview(content string) string {
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) <= PreviewMaxLength {
		return content
	}
	return string(runes[:PreviewMaxLength]) + PreviewEllipsis
}
