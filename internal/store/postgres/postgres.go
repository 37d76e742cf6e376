// Package postgres implements the session gateway on PostgreSQL.
//
// Schema lives in embedded migrations (see migrate.go). Message deletion
// cascades from sessions via foreign key, so DeleteSession is a single
// statement.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parley0/parley/internal/session"
)

// Store is a session.Gateway backed by a pgx connection pool.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a Store over an existing pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// Connect opens a pool, verifies connectivity and runs migrations.
func Connect(ctx context.Context, connString string, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := Migrate(connString); err != nil {
		pool.Close()
		return nil, err
	}
	return New(pool, logger), nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// ListSessions returns all sessions ordered by updated_at descending.
func (s *Store) ListSessions(ctx context.Context) ([]*session.Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, preview, created_at, updated_at
		FROM sessions
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

// CreateSession stores a new session.
func (s *Store) CreateSession(ctx context.Context, sess *session.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (id, title, preview, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		toPgUUID(sess.ID), sess.Title, sess.Preview, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	s.logger.Debug("created session", "id", sess.ID)
	return nil
}

// UpdateSession merges the non-nil fields of upd into the stored session.
// updated_at never moves backward.
func (s *Store) UpdateSession(ctx context.Context, id uuid.UUID, upd session.Update) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sessions
		SET title      = COALESCE($2, title),
		    preview    = COALESCE($3, preview),
		    updated_at = GREATEST(updated_at, COALESCE($4, updated_at))
		WHERE id = $1`,
		toPgUUID(id), upd.Title, upd.Preview, upd.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating session %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrNotFound
	}
	return nil
}

// DeleteSession removes a session; messages cascade via foreign key.
func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, toPgUUID(id))
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	s.logger.Debug("deleted session", "id", id)
	return nil
}

// SearchSessions filters sessions by case-insensitive title substring.
func (s *Store) SearchSessions(ctx context.Context, query string) ([]*session.Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, preview, created_at, updated_at
		FROM sessions
		WHERE title ILIKE '%' || $1 || '%'
		ORDER BY updated_at DESC`, query)
	if err != nil {
		return nil, fmt.Errorf("searching sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

// ListMessages returns a session's messages in conversation order. The
// seq column breaks timestamp ties by insertion order.
func (s *Store) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]*session.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, role, content, created_at, is_error
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at ASC, seq ASC`, toPgUUID(sessionID))
	if err != nil {
		return nil, fmt.Errorf("listing messages for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var msgs []*session.Message
	for rows.Next() {
		var (
			msg     session.Message
			id, sid pgtype.UUID
		)
		if err := rows.Scan(&id, &sid, &msg.Role, &msg.Content, &msg.Timestamp, &msg.IsError); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.ID = fromPgUUID(id)
		msg.SessionID = fromPgUUID(sid)
		msgs = append(msgs, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading messages: %w", err)
	}
	return msgs, nil
}

// SaveMessage upserts a message by ID, so a regenerated message rewrites
// its original row. Saving a non-error message also refreshes the owning
// session's preview and updated_at; both statements share a transaction.
func (s *Store) SaveMessage(ctx context.Context, m *session.Message) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO messages (id, session_id, role, content, created_at, is_error)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET content = EXCLUDED.content, is_error = EXCLUDED.is_error`,
		toPgUUID(m.ID), toPgUUID(m.SessionID), m.Role, m.Content, m.Timestamp, m.IsError)
	if err != nil {
		return fmt.Errorf("saving message: %w", err)
	}

	if !m.IsError {
		_, err = tx.Exec(ctx, `
			UPDATE sessions
			SET preview = $2, updated_at = GREATEST(updated_at, $3)
			WHERE id = $1`,
			toPgUUID(m.SessionID), session.Preview(m.Content), m.Timestamp)
		if err != nil {
			return fmt.Errorf("refreshing session metadata: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func scanSessions(rows pgx.Rows) ([]*session.Session, error) {
	var sessions []*session.Session
	for rows.Next() {
		var (
			sess session.Session
			id   pgtype.UUID
		)
		if err := rows.Scan(&id, &sess.Title, &sess.Preview, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sess.ID = fromPgUUID(id)
		sessions = append(sessions, &sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading sessions: %w", err)
	}
	return sessions, nil
}

func toPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func fromPgUUID(id pgtype.UUID) uuid.UUID {
	if !id.Valid {
		return uuid.Nil
	}
	return id.Bytes
}
