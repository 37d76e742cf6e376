package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Gateway is the persistence boundary for sessions and messages.
// Interfaces are defined by the consumer: the Store (and the chat engine)
// depend on this abstraction, while internal/store provides the Postgres
// and local implementations.
type Gateway interface {
	// ListSessions returns all sessions ordered by updated_at descending.
	ListSessions(ctx context.Context) ([]*Session, error)

	// CreateSession stores a new session.
	CreateSession(ctx context.Context, s *Session) error

	// UpdateSession merges the non-nil fields of upd into the stored
	// session. Unset fields are left unchanged.
	UpdateSession(ctx context.Context, id uuid.UUID, upd Update) error

	// DeleteSession removes a session and cascades to its messages.
	DeleteSession(ctx context.Context, id uuid.UUID) error

	// SearchSessions returns sessions whose title contains query
	// (case-insensitive), ordered by updated_at descending.
	SearchSessions(ctx context.Context, query string) ([]*Session, error)

	// ListMessages returns a session's messages ordered by timestamp
	// ascending, ties broken by insertion order.
	ListMessages(ctx context.Context, sessionID uuid.UUID) ([]*Message, error)

	// SaveMessage upserts a message by ID. Saving a non-error message
	// also refreshes the owning session's preview and updated_at in the
	// backing store, mirroring the engine's own update.
	SaveMessage(ctx context.Context, m *Message) error
}

// Update is a partial session update. Nil fields are left unchanged.
// UpdatedAt participates in list ordering; title- or preview-only updates
// must never reorder the session list.
type Update struct {
	Title     *string
	Preview   *string
	UpdatedAt *time.Time
}
