// Package local implements the session gateway on top of a Pebble
// key-value database. It is the persistence fallback when no PostgreSQL
// instance is configured: everything lives in a single directory under
// the user's data dir.
//
// Key layout:
//
//	session:<id>                      -> JSON-encoded session
//	msg:<sessionID>:<ts>:<messageID>  -> JSON-encoded message
//
// The message timestamp is zero-padded so lexicographic key order equals
// chronological order; ties sort by message ID.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/parley0/parley/internal/session"
)

const (
	sessionKeyPrefix = "session:"
	messageKeyPrefix = "msg:"
	lockFileName     = "parley.lock"
)

// Store is a session.Gateway backed by Pebble.
//
// A file lock guards the data directory so a second parley process gets
// a clear error instead of fighting over the database.
type Store struct {
	mu     sync.Mutex
	db     *pebble.DB
	lock   *flock.Flock
	logger *slog.Logger
}

// Open opens (or creates) the local store in dir.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking data directory: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("data directory %s is in use by another parley instance", dir)
	}

	db, err := pebble.Open(filepath.Join(dir, "chat"), &pebble.Options{})
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("opening local store: %w", err)
	}

	logger.Debug("opened local store", "dir", dir)
	return &Store{db: db, lock: lock, logger: logger}, nil
}

// Close closes the database and releases the directory lock.
func (s *Store) Close() error {
	err := s.db.Close()
	if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
		err = unlockErr
	}
	return err
}

// ListSessions returns all sessions ordered by updated_at descending.
func (s *Store) ListSessions(ctx context.Context) ([]*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listSessionsLocked()
}

func (s *Store) listSessionsLocked() ([]*session.Session, error) {
	var sessions []*session.Session

	prefix := []byte(sessionKeyPrefix)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var sess session.Session
		if err := json.Unmarshal(iter.Value(), &sess); err != nil {
			s.logger.Warn("skipping malformed session record", "key", string(iter.Key()), "error", err)
			continue
		}
		sessions = append(sessions, &sess)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// CreateSession stores a new session.
func (s *Store) CreateSession(ctx context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putSessionLocked(sess)
}

func (s *Store) putSessionLocked(sess *session.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := s.db.Set(sessionKey(sess.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// UpdateSession merges upd into the stored session.
func (s *Store) UpdateSession(ctx context.Context, id uuid.UUID, upd session.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSessionLocked(id)
	if err != nil {
		return err
	}

	if upd.Title != nil {
		sess.Title = *upd.Title
	}
	if upd.Preview != nil {
		sess.Preview = *upd.Preview
	}
	if upd.UpdatedAt != nil && upd.UpdatedAt.After(sess.UpdatedAt) {
		sess.UpdatedAt = *upd.UpdatedAt
	}

	return s.putSessionLocked(sess)
}

// DeleteSession removes the session and all of its messages.
func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Delete(sessionKey(id), pebble.Sync); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	prefix := []byte(messageKeyPrefix + id.String() + ":")
	if err := s.db.DeleteRange(prefix, keyUpperBound(prefix), pebble.Sync); err != nil {
		return fmt.Errorf("deleting session messages: %w", err)
	}
	return nil
}

// SearchSessions filters sessions by case-insensitive title substring.
func (s *Store) SearchSessions(ctx context.Context, query string) ([]*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.listSessionsLocked()
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(query)
	var out []*session.Session
	for _, sess := range all {
		if strings.Contains(strings.ToLower(sess.Title), lower) {
			out = append(out, sess)
		}
	}
	return out, nil
}

// ListMessages returns the session's messages in conversation order.
func (s *Store) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]*session.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := []byte(messageKeyPrefix + sessionID.String() + ":")
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	defer iter.Close()

	var msgs []*session.Message
	for iter.First(); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var msg session.Message
		if err := json.Unmarshal(iter.Value(), &msg); err != nil {
			s.logger.Warn("skipping malformed message record", "key", string(iter.Key()), "error", err)
			continue
		}
		msgs = append(msgs, &msg)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return msgs, nil
}

// SaveMessage upserts a message. The key embeds the (fixed) timestamp and
// message ID, so rewriting a regenerated message lands on the same key.
// Non-error messages refresh the owning session's preview and updated_at.
func (s *Store) SaveMessage(ctx context.Context, m *session.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	if err := s.db.Set(messageKey(m), data, pebble.Sync); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}

	if m.IsError {
		return nil
	}

	sess, err := s.getSessionLocked(m.SessionID)
	if err != nil {
		// Orphaned write; the in-memory view stays authoritative.
		s.logger.Warn("message saved for unknown session", "session_id", m.SessionID, "error", err)
		return nil
	}
	sess.Preview = session.Preview(m.Content)
	if m.Timestamp.After(sess.UpdatedAt) {
		sess.UpdatedAt = m.Timestamp
	}
	return s.putSessionLocked(sess)
}

func (s *Store) getSessionLocked(id uuid.UUID) (*session.Session, error) {
	data, closer, err := s.db.Get(sessionKey(id))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("reading session: %w", err)
	}
	defer closer.Close()

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &sess, nil
}

func sessionKey(id uuid.UUID) []byte {
	return []byte(sessionKeyPrefix + id.String())
}

func messageKey(m *session.Message) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:%s",
		messageKeyPrefix, m.SessionID, m.Timestamp.UnixNano(), m.ID))
}

// keyUpperBound returns the smallest key greater than every key with the
// given prefix.
func keyUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
