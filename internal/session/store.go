package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parley0/parley/internal/i18n"
)

// Store is the in-memory authoritative list of sessions, ordered by
// updated_at descending, synchronized to a Gateway.
//
// Store is safe for concurrent use. Writers racing on the same session
// (a title derivation and a message completion) both apply because
// updates merge field-wise under one lock.
type Store struct {
	mu      sync.RWMutex
	gateway Gateway
	logger  *slog.Logger

	list   []*Session
	active uuid.UUID
}

// NewStore creates a Store backed by the given gateway.
func NewStore(gateway Gateway, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		gateway: gateway,
		logger:  logger,
	}
}

// Load populates the store from the gateway and guarantees at least one
// session exists. The most recently updated session becomes active.
func (s *Store) Load(ctx context.Context) error {
	sessions, err := s.gateway.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	s.mu.Lock()
	s.list = sessions
	s.sortLocked()
	if len(s.list) > 0 {
		s.active = s.list[0].ID
	}
	empty := len(s.list) == 0
	s.mu.Unlock()

	if empty {
		if _, err := s.Create(ctx); err != nil {
			return err
		}
	}
	return nil
}

// List returns a snapshot of all sessions, ordered by updated_at
// descending.
func (s *Store) List() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, len(s.list))
	for i, sess := range s.list {
		cp := *sess
		out[i] = &cp
	}
	return out
}

// Get returns a copy of the session with the given ID.
func (s *Store) Get(id uuid.UUID) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.list {
		if sess.ID == id {
			return *sess, true
		}
	}
	return Session{}, false
}

// Active returns the ID of the active session (uuid.Nil if none).
func (s *Store) Active() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SetActive switches the active session.
func (s *Store) SetActive(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.list {
		if sess.ID == id {
			s.active = id
			return nil
		}
	}
	return ErrNotFound
}

// Create makes a new session with the placeholder title, persists it
// durably, inserts it at the front of the list and makes it active.
func (s *Store) Create(ctx context.Context) (*Session, error) {
	now := time.Now()
	sess := &Session{
		ID:        uuid.New(),
		Title:     i18n.T("session.default_title"),
		Preview:   "",
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.gateway.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.mu.Lock()
	s.list = append([]*Session{sess}, s.list...)
	s.active = sess.ID
	s.mu.Unlock()

	s.logger.Debug("created session", "id", sess.ID)
	cp := *sess
	return &cp, nil
}

// Delete removes a session from memory and durable storage (messages
// cascade in the gateway). If the deleted session was active, the new
// front of the list becomes active; if none remain, a fresh session is
// created so that exactly one exists afterward. Returns the active
// session ID after deletion.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	if err := s.gateway.DeleteSession(ctx, id); err != nil {
		return uuid.Nil, fmt.Errorf("deleting session %s: %w", id, err)
	}

	s.mu.Lock()
	for i, sess := range s.list {
		if sess.ID == id {
			s.list = append(s.list[:i], s.list[i+1:]...)
			break
		}
	}
	wasActive := s.active == id
	if wasActive {
		if len(s.list) > 0 {
			s.active = s.list[0].ID
		} else {
			s.active = uuid.Nil
		}
	}
	needReplacement := len(s.list) == 0
	active := s.active
	s.mu.Unlock()

	s.logger.Debug("deleted session", "id", id)

	if needReplacement {
		replacement, err := s.Create(ctx)
		if err != nil {
			return uuid.Nil, err
		}
		return replacement.ID, nil
	}
	return active, nil
}

// Update merges the non-nil fields of upd into the session, persists the
// change and keeps the invariants: the list is reordered only when
// UpdatedAt is part of the update, and updated_at never decreases.
func (s *Store) Update(ctx context.Context, id uuid.UUID, upd Update) error {
	s.mu.Lock()
	var target *Session
	for _, sess := range s.list {
		if sess.ID == id {
			target = sess
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		return ErrNotFound
	}

	if upd.Title != nil {
		target.Title = *upd.Title
	}
	if upd.Preview != nil {
		target.Preview = *upd.Preview
	}
	if upd.UpdatedAt != nil {
		if upd.UpdatedAt.After(target.UpdatedAt) {
			target.UpdatedAt = *upd.UpdatedAt
		}
		s.sortLocked()
	}
	s.mu.Unlock()

	if err := s.gateway.UpdateSession(ctx, id, upd); err != nil {
		return fmt.Errorf("updating session %s: %w", id, err)
	}
	return nil
}

// Touch records a successful message exchange: the preview becomes the
// truncated content and the session moves to the front of the list.
func (s *Store) Touch(ctx context.Context, id uuid.UUID, content string, at time.Time) error {
	preview := Preview(content)
	return s.Update(ctx, id, Update{Preview: &preview, UpdatedAt: &at})
}

// Search returns sessions whose title contains query, case-insensitively.
// The canonical list is not mutated; this is a filtered view. Search is
// delegated to the gateway, falling back to a local scan if it fails.
func (s *Store) Search(ctx context.Context, query string) []*Session {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.List()
	}

	found, err := s.gateway.SearchSessions(ctx, query)
	if err == nil {
		return found
	}
	s.logger.Warn("gateway search failed, filtering locally", "error", err)

	lower := strings.ToLower(query)
	var out []*Session
	for _, sess := range s.List() {
		if strings.Contains(strings.ToLower(sess.Title), lower) {
			out = append(out, sess)
		}
	}
	return out
}

// HasDefaultTitle reports whether the session still carries the
// placeholder title in any supported locale. Used to decide whether
// title derivation should run.
func (s *Store) HasDefaultTitle(id uuid.UUID) bool {
	sess, ok := s.Get(id)
	if !ok {
		return false
	}
	for _, title := range i18n.All("session.default_title") {
		if sess.Title == title {
			return true
		}
	}
	return false
}

// sortLocked re-sorts the list by updated_at descending. The sort is
// stable so equal timestamps keep their insertion order.
func (s *Store) sortLocked() {
	sort.SliceStable(s.list, func(i, j int) bool {
		return s.list[i].UpdatedAt.After(s.list[j].UpdatedAt)
	})
}
