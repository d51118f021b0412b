// ABOUTME: Tests for the pairchat HTTP client against a live test server
// ABOUTME: Covers send, resolve, errors, and the SSE watch loop

package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/2389/pairchat/internal/api"
	"github.com/2389/pairchat/internal/auth"
	"github.com/2389/pairchat/internal/chat"
	"github.com/2389/pairchat/internal/community"
	"github.com/2389/pairchat/internal/store"
)

var testSecret = []byte("test-secret-key-for-jwt-signing!")

type testServer struct {
	url      string
	store    *store.MockStore
	verifier *auth.JWTVerifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := store.NewMockStore()
	t.Cleanup(func() { s.Close() })

	verifier, err := auth.NewJWTVerifier(testSecret)
	if err != nil {
		t.Fatalf("NewJWTVerifier() error = %v", err)
	}

	srv := api.New(chat.New(s, nil, nil), community.New(s, nil), verifier, api.Options{}, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testServer{url: ts.URL, store: s, verifier: verifier}
}

func (ts *testServer) clientFor(t *testing.T, userID string) *Client {
	t.Helper()
	token, err := ts.verifier.Generate(userID, "", time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	return New(ts.url, token)
}

func TestClient_Health(t *testing.T) {
	ts := newTestServer(t)

	if err := New(ts.url, "").Health(context.Background()); err != nil {
		t.Errorf("Health() error = %v", err)
	}
}

func TestClient_HealthUnreachable(t *testing.T) {
	if err := New("http://127.0.0.1:1", "").Health(context.Background()); err == nil {
		t.Error("Health() error = nil for unreachable server")
	}
}

func TestClient_SendAndResolve(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	msg, err := ts.clientFor(t, "alice").Send(ctx, "bob", "hello")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if msg.Text != "hello" || msg.SenderID != "alice" {
		t.Errorf("Send() = %+v, want hello from alice", msg)
	}

	conv, err := ts.clientFor(t, "bob").Resolve(ctx, "alice")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if conv.ID != msg.ConversationID {
		t.Errorf("Resolve().ID = %q, want %q", conv.ID, msg.ConversationID)
	}
}

func TestClient_SendWithKeyIsIdempotent(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.clientFor(t, "alice")
	ctx := context.Background()

	first, err := alice.SendWithKey(ctx, "bob", "just once", "retry-1")
	if err != nil {
		t.Fatalf("SendWithKey() error = %v", err)
	}
	second, err := alice.SendWithKey(ctx, "bob", "just once", "retry-1")
	if err != nil {
		t.Fatalf("SendWithKey() retry error = %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("retry ID = %q, want %q", second.ID, first.ID)
	}
	if got := ts.store.Calls(store.OpAppend); got != 1 {
		t.Errorf("append calls = %d, want 1", got)
	}
}

func TestClient_Unauthorized(t *testing.T) {
	ts := newTestServer(t)

	_, err := New(ts.url, "not-a-token").Send(context.Background(), "bob", "hi")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Send() error = %v, want ErrUnauthorized", err)
	}
}

func TestClient_BadRequestCarriesMessage(t *testing.T) {
	ts := newTestServer(t)

	_, err := ts.clientFor(t, "alice").Send(context.Background(), "bob", "   ")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Send() error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, http.StatusBadRequest)
	}
	if statusErr.Message == "" {
		t.Error("StatusError.Message is empty")
	}
}

func TestClient_WatchReceivesSnapshots(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.clientFor(t, "alice")
	bob := ts.clientFor(t, "bob")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := make(chan api.SnapshotEvent, 8)
	done := make(chan error, 1)
	go func() {
		done <- bob.Watch(ctx, "alice", func(snap api.SnapshotEvent) error {
			snapshots <- snap
			return nil
		})
	}()

	select {
	case snap := <-snapshots:
		if len(snap.Messages) != 0 {
			t.Fatalf("initial snapshot has %d messages, want 0", len(snap.Messages))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initial snapshot")
	}

	if _, err := alice.Send(context.Background(), "bob", "hey bob"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case snap := <-snapshots:
		if len(snap.Messages) != 1 || snap.Messages[0].Text != "hey bob" {
			t.Errorf("snapshot = %+v, want one message %q", snap.Messages, "hey bob")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() error = %v, want nil after cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestClient_WatchServerError(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.clientFor(t, "alice")

	first := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		var once bool
		done <- alice.Watch(context.Background(), "bob", func(api.SnapshotEvent) error {
			if !once {
				once = true
				close(first)
			}
			return nil
		})
	}()

	select {
	case <-first:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initial snapshot")
	}

	ts.store.FailOn(store.OpList, errors.New("listing failed"))
	if _, err := alice.Send(context.Background(), "bob", "x"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrStreamFailed) {
			t.Errorf("Watch() error = %v, want ErrStreamFailed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after server error")
	}
}

func TestStreamSSE_ParsesFrames(t *testing.T) {
	input := ": keepalive\n\n" +
		"event: snapshot\n" +
		"data: {\"a\":1}\n\n" +
		"event: other\n" +
		"data: line1\n" +
		"data: line2\n\n"

	type frame struct{ event, data string }
	var got []frame
	err := streamSSE(strings.NewReader(input), func(event, data string) error {
		got = append(got, frame{event, data})
		return nil
	})
	if err != nil {
		t.Fatalf("streamSSE() error = %v", err)
	}

	want := []frame{
		{"snapshot", `{"a":1}`},
		{"other", "line1\nline2"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d frames, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
