// ABOUTME: Tests for SQLite store implementation
// ABOUTME: Covers conversation uniqueness, message ordering, and live subscriptions

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T, opts ...Option) *SQLiteStore {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath, opts...)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// fixedClock returns a clock that yields the given times in order and then
// keeps returning the last one.
func fixedClock(times ...time.Time) func() time.Time {
	var mu sync.Mutex
	i := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestSQLite_CreateAndFindConversation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv := &Conversation{Participants: [2]string{"zoe", "adam"}}
	if err := store.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	if conv.ID == "" {
		t.Fatal("expected ID to be assigned")
	}
	if conv.Participants != [2]string{"adam", "zoe"} {
		t.Errorf("participants not sorted: %v", conv.Participants)
	}

	for _, pair := range [][2]string{{"adam", "zoe"}, {"zoe", "adam"}} {
		got, err := store.FindConversation(ctx, pair[0], pair[1])
		if err != nil {
			t.Fatalf("FindConversation(%v) failed: %v", pair, err)
		}
		if got.ID != conv.ID {
			t.Errorf("FindConversation(%v) = %q, want %q", pair, got.ID, conv.ID)
		}
		if !got.CreatedAt.Equal(conv.CreatedAt) {
			t.Errorf("CreatedAt mismatch: got %v, want %v", got.CreatedAt, conv.CreatedAt)
		}
	}
}

func TestSQLite_FindConversation_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.FindConversation(context.Background(), "adam", "zoe")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLite_CreateConversation_DuplicatePair(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateConversation(ctx, &Conversation{Participants: [2]string{"adam", "zoe"}}); err != nil {
		t.Fatalf("first CreateConversation failed: %v", err)
	}

	err := store.CreateConversation(ctx, &Conversation{Participants: [2]string{"zoe", "adam"}})
	if !errors.Is(err, ErrDuplicateConversation) {
		t.Errorf("expected ErrDuplicateConversation, got %v", err)
	}
}

func TestSQLite_PairsDoNotCollide(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ab := &Conversation{Participants: [2]string{"a", "b"}}
	ac := &Conversation{Participants: [2]string{"a", "c"}}
	if err := store.CreateConversation(ctx, ab); err != nil {
		t.Fatalf("CreateConversation(a,b) failed: %v", err)
	}
	if err := store.CreateConversation(ctx, ac); err != nil {
		t.Fatalf("CreateConversation(a,c) failed: %v", err)
	}
	if ab.ID == ac.ID {
		t.Error("distinct pairs share a conversation")
	}
}

func TestSQLite_AppendMessage_AssignsServerFields(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(t, WithClock(fixedClock(base)))
	ctx := context.Background()

	conv := &Conversation{Participants: [2]string{"adam", "zoe"}}
	if err := store.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	msg := &Message{ConversationID: conv.ID, SenderID: "adam", Text: "hi"}
	if err := store.AppendMessage(ctx, msg); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	if msg.ID == "" {
		t.Error("expected message ID to be assigned")
	}
	if msg.Seq != 1 {
		t.Errorf("Seq = %d, want 1", msg.Seq)
	}
	if !msg.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", msg.CreatedAt, base)
	}
}

func TestSQLite_AppendMessage_UnknownConversation(t *testing.T) {
	store := newTestStore(t)

	err := store.AppendMessage(context.Background(), &Message{ConversationID: "missing", SenderID: "a", Text: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLite_ListMessages_ChronologicalWithClockSkew(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	// The second timestamp goes backwards; the store must clamp it.
	store := newTestStore(t, WithClock(fixedClock(
		base,
		base.Add(time.Second),
		base.Add(-time.Minute),
		base.Add(2*time.Second),
	)))
	ctx := context.Background()

	conv := &Conversation{Participants: [2]string{"adam", "zoe"}}
	if err := store.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	for _, text := range []string{"first", "second", "third"} {
		if err := store.AppendMessage(ctx, &Message{ConversationID: conv.ID, SenderID: "adam", Text: text}); err != nil {
			t.Fatalf("AppendMessage(%q) failed: %v", text, err)
		}
	}

	msgs, err := store.ListMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}

	want := []string{"first", "second", "third"}
	for i, msg := range msgs {
		if msg.Text != want[i] {
			t.Errorf("message %d = %q, want %q", i, msg.Text, want[i])
		}
		if msg.Seq != int64(i+1) {
			t.Errorf("message %d seq = %d, want %d", i, msg.Seq, i+1)
		}
		if i > 0 && msg.CreatedAt.Before(msgs[i-1].CreatedAt) {
			t.Errorf("message %d timestamp went backwards", i)
		}
	}
}

func TestSQLite_ListMessages_EmptyConversation(t *testing.T) {
	store := newTestStore(t)

	msgs, err := store.ListMessages(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if msgs == nil || len(msgs) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", msgs)
	}
}

func TestSQLite_SubscribeMessages_DeliversInitialAndUpdates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv := &Conversation{Participants: [2]string{"adam", "zoe"}}
	if err := store.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	sub, err := store.SubscribeMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("SubscribeMessages failed: %v", err)
	}
	defer sub.Close()

	first := receiveSnapshot(t, sub)
	if len(first.Items) != 0 {
		t.Fatalf("expected empty initial snapshot, got %d messages", len(first.Items))
	}

	if err := store.AppendMessage(ctx, &Message{ConversationID: conv.ID, SenderID: "zoe", Text: "hello"}); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	next := receiveSnapshot(t, sub)
	if len(next.Items) != 1 || next.Items[0].Text != "hello" {
		t.Fatalf("unexpected snapshot: %+v", next)
	}
}

func TestSQLite_CloseEndsSubscriptions(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewSQLiteStore(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}

	sub, err := store.SubscribeMessages(context.Background(), "conv")
	if err != nil {
		t.Fatalf("SubscribeMessages failed: %v", err)
	}
	receiveSnapshot(t, sub)

	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	snap := receiveSnapshot(t, sub)
	if !errors.Is(snap.Err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", snap.Err)
	}

	if _, err := store.SubscribeMessages(context.Background(), "conv"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from closed store, got %v", err)
	}
}

func receiveSnapshot[T any](t *testing.T, sub *Subscription[T]) Snapshot[T] {
	t.Helper()
	select {
	case snap, ok := <-sub.Snapshots():
		if !ok {
			t.Fatal("subscription closed unexpectedly")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return Snapshot[T]{}
}

func TestSQLite_OnlyUniqueViolationsAreDuplicates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	insert := `INSERT INTO conversations (id, participant_a, participant_b, created_at) VALUES (?, ?, ?, ?)`
	now := time.Now().UTC().Format(timeFormat)

	if _, err := store.db.ExecContext(ctx, insert, "c1", "a", "b", now); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	_, err := store.db.ExecContext(ctx, insert, "c2", "a", "b", now)
	if !isUniqueViolation(err) {
		t.Errorf("duplicate pair should be a unique violation, got %v", err)
	}

	// CHECK (participant_a <= participant_b)
	_, err = store.db.ExecContext(ctx, insert, "c3", "z", "a", now)
	if err == nil {
		t.Fatal("expected CHECK constraint failure")
	}
	if isUniqueViolation(err) {
		t.Errorf("CHECK failure must not be a unique violation: %v", err)
	}

	_, err = store.db.ExecContext(ctx, insert, "c4", nil, "b", now)
	if err == nil {
		t.Fatal("expected NOT NULL constraint failure")
	}
	if isUniqueViolation(err) {
		t.Errorf("NOT NULL failure must not be a unique violation: %v", err)
	}

	_, err = store.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, seq, sender_id, text, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		"m1", "missing", 1, "a", "hi", now)
	if err == nil {
		t.Fatal("expected FOREIGN KEY constraint failure")
	}
	if isUniqueViolation(err) {
		t.Errorf("FOREIGN KEY failure must not be a unique violation: %v", err)
	}
}
