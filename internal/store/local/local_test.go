package local

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/parley0/parley/internal/log"
	"github.com/parley0/parley/internal/session"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir(), log.NewNop())
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() unexpected error: %v", err)
		}
	})
	return store
}

func newSession(title string, updatedAt time.Time) *session.Session {
	return &session.Session{
		ID:        uuid.New(),
		Title:     title,
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
	}
}

func TestOpen_LocksDirectory(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, log.NewNop())
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	defer store.Close()

	if _, err := Open(dir, log.NewNop()); err == nil {
		t.Error("second Open() on the same directory should fail")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Millisecond)
	sess := newSession("first", now)
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession() unexpected error: %v", err)
	}

	list, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions() unexpected error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("session count = %d, want 1", len(list))
	}
	if diff := cmp.Diff(sess, list[0]); diff != "" {
		t.Errorf("session mismatch (-want +got):\n%s", diff)
	}
}

func TestListSessions_OrderedByRecency(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	now := time.Now()
	old := newSession("old", now.Add(-2*time.Hour))
	mid := newSession("mid", now.Add(-time.Hour))
	fresh := newSession("fresh", now)
	for _, s := range []*session.Session{mid, fresh, old} {
		if err := store.CreateSession(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	list, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got := []string{list[0].Title, list[1].Title, list[2].Title}
	want := []string{"fresh", "mid", "old"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Millisecond)
	sess := newSession("before", now)
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatal(err)
	}

	title := "after"
	preview := "a preview"
	past := now.Add(-time.Hour)
	err := store.UpdateSession(ctx, sess.ID, session.Update{
		Title:     &title,
		Preview:   &preview,
		UpdatedAt: &past, // must not move updated_at backwards
	})
	if err != nil {
		t.Fatalf("UpdateSession() unexpected error: %v", err)
	}

	list, _ := store.ListSessions(ctx)
	got := list[0]
	if got.Title != "after" || got.Preview != "a preview" {
		t.Errorf("merged session = %+v", got)
	}
	if got.UpdatedAt.Before(now) {
		t.Errorf("updated_at went backwards: %v", got.UpdatedAt)
	}

	if err := store.UpdateSession(ctx, uuid.New(), session.Update{Title: &title}); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("UpdateSession(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestDeleteSession_CascadesToMessages(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	keep := newSession("keep", time.Now())
	drop := newSession("drop", time.Now())
	for _, s := range []*session.Session{keep, drop} {
		if err := store.CreateSession(ctx, s); err != nil {
			t.Fatal(err)
		}
		msg := &session.Message{
			ID:        uuid.New(),
			SessionID: s.ID,
			Role:      session.RoleUser,
			Content:   "hello from " + s.Title,
			Timestamp: time.Now(),
		}
		if err := store.SaveMessage(ctx, msg); err != nil {
			t.Fatal(err)
		}
	}

	if err := store.DeleteSession(ctx, drop.ID); err != nil {
		t.Fatalf("DeleteSession() unexpected error: %v", err)
	}

	if msgs, _ := store.ListMessages(ctx, drop.ID); len(msgs) != 0 {
		t.Errorf("deleted session still has %d messages", len(msgs))
	}
	if msgs, _ := store.ListMessages(ctx, keep.ID); len(msgs) != 1 {
		t.Errorf("surviving session message count = %d, want 1", len(msgs))
	}
	if list, _ := store.ListSessions(ctx); len(list) != 1 {
		t.Errorf("session count = %d, want 1", len(list))
	}
}

func TestListMessages_ChronologicalOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	sess := newSession("ordered", time.Now())
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatal(err)
	}

	base := time.Now().Truncate(time.Millisecond)
	// Saved out of order on purpose.
	for _, offset := range []time.Duration{2 * time.Second, 0, time.Second} {
		msg := &session.Message{
			ID:        uuid.New(),
			SessionID: sess.ID,
			Role:      session.RoleUser,
			Content:   offset.String(),
			Timestamp: base.Add(offset),
		}
		if err := store.SaveMessage(ctx, msg); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := store.ListMessages(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("message count = %d, want 3", len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Timestamp.Before(msgs[i-1].Timestamp) {
			t.Errorf("messages out of order at %d: %v before %v", i, msgs[i].Timestamp, msgs[i-1].Timestamp)
		}
	}
}

func TestSaveMessage(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	start := time.Now().Truncate(time.Millisecond)
	sess := newSession("sessions", start)
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatal(err)
	}

	msg := &session.Message{
		ID:        uuid.New(),
		SessionID: sess.ID,
		Role:      session.RoleModel,
		Content:   "the first answer",
		Timestamp: start.Add(time.Minute),
	}

	t.Run("refreshes session metadata", func(t *testing.T) {
		if err := store.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("SaveMessage() unexpected error: %v", err)
		}
		list, _ := store.ListSessions(ctx)
		if list[0].Preview != session.Preview("the first answer") {
			t.Errorf("preview = %q", list[0].Preview)
		}
		if !list[0].UpdatedAt.After(start) {
			t.Errorf("updated_at not refreshed: %v", list[0].UpdatedAt)
		}
	})

	t.Run("upsert by identity replaces content", func(t *testing.T) {
		msg.Content = "the regenerated answer"
		if err := store.SaveMessage(ctx, msg); err != nil {
			t.Fatal(err)
		}
		msgs, _ := store.ListMessages(ctx, sess.ID)
		if len(msgs) != 1 {
			t.Fatalf("message count = %d, want 1 after upsert", len(msgs))
		}
		if msgs[0].Content != "the regenerated answer" {
			t.Errorf("content = %q", msgs[0].Content)
		}
	})

	t.Run("error message leaves session untouched", func(t *testing.T) {
		before, _ := store.ListSessions(ctx)
		failed := &session.Message{
			ID:        uuid.New(),
			SessionID: sess.ID,
			Role:      session.RoleModel,
			Content:   "something went wrong",
			Timestamp: time.Now().Add(time.Hour),
			IsError:   true,
		}
		if err := store.SaveMessage(ctx, failed); err != nil {
			t.Fatal(err)
		}
		after, _ := store.ListSessions(ctx)
		if diff := cmp.Diff(before, after); diff != "" {
			t.Errorf("session changed by error message (-before +after):\n%s", diff)
		}
	})

	t.Run("unknown session is tolerated", func(t *testing.T) {
		orphan := &session.Message{
			ID:        uuid.New(),
			SessionID: uuid.New(),
			Role:      session.RoleUser,
			Content:   "orphan",
			Timestamp: time.Now(),
		}
		if err := store.SaveMessage(ctx, orphan); err != nil {
			t.Errorf("SaveMessage(orphan) unexpected error: %v", err)
		}
	})
}

func TestSearchSessions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"Rust Lifetimes", "Go Generics", "rust macros"} {
		if err := store.CreateSession(ctx, newSession(title, time.Now())); err != nil {
			t.Fatal(err)
		}
	}

	found, err := store.SearchSessions(ctx, "RUST")
	if err != nil {
		t.Fatalf("SearchSessions() unexpected error: %v", err)
	}
	if len(found) != 2 {
		t.Errorf("match count = %d, want 2 case-insensitive matches", len(found))
	}

	none, err := store.SearchSessions(ctx, "python")
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("match count = %d, want 0", len(none))
	}
}

func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(dir, log.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	sess := newSession("durable", time.Now().Truncate(time.Millisecond))
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(dir, log.NewNop())
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer reopened.Close()

	list, err := reopened.ListSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Title != "durable" {
		t.Errorf("reopened sessions = %+v, want the stored session", list)
	}
}
