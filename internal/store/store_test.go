package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// implementations returns a fresh instance of every Store for contract tests.
func implementations(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	mock := NewMockStore()

	t.Cleanup(func() {
		sqlite.Close()
		mock.Close()
	})

	return map[string]Store{
		"sqlite": sqlite,
		"mock":   mock,
	}
}

func TestStore_ConcurrentCreateYieldsOneConversation(t *testing.T) {
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			var created, duplicates atomic.Int32
			var wg sync.WaitGroup
			for i := range 8 {
				wg.Go(func() {
					pair := [2]string{"alice", "bob"}
					if i%2 == 1 {
						pair = [2]string{"bob", "alice"}
					}
					err := s.CreateConversation(ctx, &Conversation{Participants: pair})
					switch {
					case err == nil:
						created.Add(1)
					case errors.Is(err, ErrDuplicateConversation):
						duplicates.Add(1)
					default:
						t.Errorf("unexpected error: %v", err)
					}
				})
			}
			wg.Wait()

			assert.Equal(t, int32(1), created.Load())
			assert.Equal(t, int32(7), duplicates.Load())

			conv, err := s.FindConversation(ctx, "bob", "alice")
			require.NoError(t, err)
			assert.Equal(t, [2]string{"alice", "bob"}, conv.Participants)
			assert.True(t, conv.HasParticipant("alice"))
			assert.False(t, conv.HasParticipant("carol"))
		})
	}
}

func TestStore_MessagesStayInConversation(t *testing.T) {
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			ab := &Conversation{Participants: [2]string{"a", "b"}}
			ac := &Conversation{Participants: [2]string{"a", "c"}}
			require.NoError(t, s.CreateConversation(ctx, ab))
			require.NoError(t, s.CreateConversation(ctx, ac))

			for i := range 3 {
				require.NoError(t, s.AppendMessage(ctx, &Message{
					ConversationID: ab.ID,
					SenderID:       "a",
					Text:           fmt.Sprintf("ab-%d", i),
				}))
			}
			require.NoError(t, s.AppendMessage(ctx, &Message{ConversationID: ac.ID, SenderID: "c", Text: "ac-0"}))

			abMsgs, err := s.ListMessages(ctx, ab.ID)
			require.NoError(t, err)
			require.Len(t, abMsgs, 3)
			for i, m := range abMsgs {
				assert.Equal(t, fmt.Sprintf("ab-%d", i), m.Text)
				assert.Equal(t, ab.ID, m.ConversationID)
			}

			acMsgs, err := s.ListMessages(ctx, ac.ID)
			require.NoError(t, err)
			require.Len(t, acMsgs, 1)
			assert.Equal(t, "c", acMsgs[0].SenderID)
		})
	}
}

func TestStore_ConcurrentAppendsKeepSequenceDense(t *testing.T) {
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			conv := &Conversation{Participants: [2]string{"a", "b"}}
			require.NoError(t, s.CreateConversation(ctx, conv))

			var wg sync.WaitGroup
			for i := range 20 {
				wg.Go(func() {
					err := s.AppendMessage(ctx, &Message{
						ConversationID: conv.ID,
						SenderID:       "a",
						Text:           fmt.Sprintf("msg-%d", i),
					})
					assert.NoError(t, err)
				})
			}
			wg.Wait()

			msgs, err := s.ListMessages(ctx, conv.ID)
			require.NoError(t, err)
			require.Len(t, msgs, 20)
			for i, m := range msgs {
				assert.Equal(t, int64(i+1), m.Seq)
				if i > 0 {
					assert.False(t, m.CreatedAt.Before(msgs[i-1].CreatedAt))
				}
			}
		})
	}
}

func TestStore_SubscriptionStopsOnContextCancel(t *testing.T) {
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())

			sub, err := s.SubscribeMessages(ctx, "conv")
			require.NoError(t, err)
			receiveSnapshot(t, sub)

			cancel()
			for range sub.Snapshots() {
			}
			sub.Close()
		})
	}
}

func TestStore_ClosedStoreRejectsOperations(t *testing.T) {
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Close())
			require.NoError(t, s.Close())

			_, err := s.FindConversation(ctx, "a", "b")
			assert.ErrorIs(t, err, ErrClosed)
			assert.ErrorIs(t, s.CreateConversation(ctx, &Conversation{Participants: [2]string{"a", "b"}}), ErrClosed)
			assert.ErrorIs(t, s.AppendMessage(ctx, &Message{ConversationID: "x"}), ErrClosed)
			_, err = s.ListMessages(ctx, "x")
			assert.ErrorIs(t, err, ErrClosed)
			_, err = s.GetProfile(ctx, "a")
			assert.ErrorIs(t, err, ErrClosed)
			assert.ErrorIs(t, s.CreatePost(ctx, &Post{AuthorID: "a", Text: "x"}), ErrClosed)
			assert.ErrorIs(t, s.CreateComment(ctx, &Comment{PostID: "p", AuthorID: "a", Text: "x"}), ErrClosed)
			_, err = s.SubscribePosts(ctx)
			assert.ErrorIs(t, err, ErrClosed)
		})
	}
}
