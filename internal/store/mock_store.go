// ABOUTME: Mock Store implementation for testing
// ABOUTME: In-memory, counts calls per operation and supports failure injection

package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/pairchat/internal/feed"
)

// mockMessage mirrors how a hosted document store keeps server timestamps:
// as a native tick count rather than a time.Time.
type mockMessage struct {
	id        string
	seq       int64
	senderID  string
	text      string
	createdNS int64
}

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation  // keyed by conversation ID
	pairIndex     map[[2]string]string      // sorted participants -> conversation ID
	messages      map[string][]*mockMessage // keyed by conversation ID
	profiles      map[string]*Profile       // keyed by user ID
	posts         []*Post                   // insertion order
	comments      map[string][]*Comment     // keyed by post ID
	changes       *feed.Broadcaster
	clock         func() time.Time
	logger        *slog.Logger
	closed        bool

	calls    map[string]int
	failures map[string]error
}

// Operation names used by Calls and FailOn.
const (
	OpFind      = "FindConversation"
	OpCreate    = "CreateConversation"
	OpAppend    = "AppendMessage"
	OpList      = "ListMessages"
	OpSubscribe = "SubscribeMessages"

	OpGetProfile        = "GetProfile"
	OpGetProfiles       = "GetProfiles"
	OpCreateProfile     = "CreateProfile"
	OpUpdateProfile     = "UpdateProfile"
	OpCreatePost        = "CreatePost"
	OpGetPost           = "GetPost"
	OpUpdatePost        = "UpdatePostText"
	OpListPosts         = "ListPosts"
	OpSubscribePosts    = "SubscribePosts"
	OpCreateComment     = "CreateComment"
	OpListComments      = "ListComments"
	OpSubscribeComments = "SubscribeComments"
)

var _ Store = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore(opts ...Option) *MockStore {
	o := buildOptions(opts)
	return &MockStore{
		conversations: make(map[string]*Conversation),
		pairIndex:     make(map[[2]string]string),
		messages:      make(map[string][]*mockMessage),
		profiles:      make(map[string]*Profile),
		comments:      make(map[string][]*Comment),
		changes:       feed.NewBroadcaster(o.feedBuffer, o.logger),
		clock:         o.clock,
		logger:        o.logger,
		calls:         make(map[string]int),
		failures:      make(map[string]error),
	}
}

// Calls returns how many times the named operation was invoked.
func (m *MockStore) Calls(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

// FailOn makes every subsequent call of op return err. Pass nil to clear.
func (m *MockStore) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// ConversationCount returns the number of stored conversations.
func (m *MockStore) ConversationCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conversations)
}

// begin records a call and returns the injected failure, if any.
// Caller must hold m.mu for writing.
func (m *MockStore) begin(op string) error {
	m.calls[op]++
	if m.closed {
		return ErrClosed
	}
	return m.failures[op]
}

// FindConversation looks up the conversation for the participant pair.
func (m *MockStore) FindConversation(ctx context.Context, a, b string) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(OpFind); err != nil {
		return nil, err
	}

	id, ok := m.pairIndex[SortPair(a, b)]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy
	result := *m.conversations[id]
	return &result, nil
}

// CreateConversation stores a new conversation unless the pair already has one.
func (m *MockStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(OpCreate); err != nil {
		return err
	}

	pair := SortPair(conv.Participants[0], conv.Participants[1])
	if _, exists := m.pairIndex[pair]; exists {
		return ErrDuplicateConversation
	}

	conv.Participants = pair
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = m.clock().UTC()
	}

	// Make a copy to avoid external modification
	c := *conv
	m.conversations[c.ID] = &c
	m.pairIndex[pair] = c.ID
	return nil
}

// AppendMessage adds a message with a server timestamp and publishes a change.
func (m *MockStore) AppendMessage(ctx context.Context, msg *Message) error {
	m.mu.Lock()

	if err := m.begin(OpAppend); err != nil {
		m.mu.Unlock()
		return err
	}
	if _, ok := m.conversations[msg.ConversationID]; !ok {
		m.mu.Unlock()
		return ErrNotFound
	}

	existing := m.messages[msg.ConversationID]
	now := m.clock().UnixNano()
	var seq int64 = 1
	if n := len(existing); n > 0 {
		last := existing[n-1]
		seq = last.seq + 1
		if now < last.createdNS {
			now = last.createdNS
		}
	}

	stored := &mockMessage{
		id:        uuid.New().String(),
		seq:       seq,
		senderID:  msg.SenderID,
		text:      msg.Text,
		createdNS: now,
	}
	m.messages[msg.ConversationID] = append(existing, stored)
	m.mu.Unlock()

	msg.ID = stored.id
	msg.Seq = stored.seq
	msg.CreatedAt = time.Unix(0, stored.createdNS).UTC()

	topic := conversationTopic(msg.ConversationID)
	m.changes.Publish(topic, feed.Change{Topic: topic, ID: msg.ID})
	return nil
}

// ListMessages returns the conversation's messages ordered by timestamp then seq.
func (m *MockStore) ListMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(OpList); err != nil {
		return nil, err
	}

	stored := m.messages[conversationID]
	result := make([]*Message, 0, len(stored))
	for _, sm := range stored {
		result = append(result, &Message{
			ID:             sm.id,
			ConversationID: conversationID,
			Seq:            sm.seq,
			SenderID:       sm.senderID,
			Text:           sm.text,
			CreatedAt:      time.Unix(0, sm.createdNS).UTC(),
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].Seq < result[j].Seq
	})
	return result, nil
}

// SubscribeMessages opens a live subscription on a conversation.
func (m *MockStore) SubscribeMessages(ctx context.Context, conversationID string) (*Subscription[*Message], error) {
	if err := m.record(OpSubscribe); err != nil {
		return nil, err
	}
	topic := conversationTopic(conversationID)
	list := func(ctx context.Context) ([]*Message, error) {
		return m.ListMessages(ctx, conversationID)
	}
	return newSubscription(ctx, topic, m.changes, []string{topic}, list, m.logger), nil
}

// record is begin for operations that do not otherwise need the lock.
func (m *MockStore) record(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.begin(op)
}

// Close ends live subscriptions.
func (m *MockStore) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.changes.Close()
	return nil
}
