// ABOUTME: In-memory fan-out of change notices keyed by topic
// ABOUTME: Stores publish after every write so live subscriptions know to re-read

package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// DefaultBufferSize is the per-subscriber channel buffer used when none is configured.
const DefaultBufferSize = 64

// Change announces that something under a topic was written. ID names the
// written record.
type Change struct {
	Topic string
	ID    string
}

// Broadcaster provides in-memory pub/sub for Change notices. Subscribers
// register for a topic (a conversation ID, the post list, one post's
// comments) and are told whenever it is written. A notice carries no payload
// beyond identifiers; readers re-query the store for the authoritative list.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan Change // topic -> subID -> ch
	bufferSize  int
	closed      bool
	logger      *slog.Logger
}

// NewBroadcaster creates a broadcaster. Pass nil logger for default and a
// non-positive bufferSize for DefaultBufferSize.
func NewBroadcaster(bufferSize int, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Broadcaster{
		subscribers: make(map[string]map[string]chan Change),
		bufferSize:  bufferSize,
		logger:      logger.With("component", "feed"),
	}
}

// Subscribe registers a subscriber for changes on the given topic.
// Returns a channel that receives changes and a subscription ID for later
// unsubscription. The subscription is cleaned up when ctx is cancelled.
// Subscribing to a closed broadcaster returns an already closed channel.
func (b *Broadcaster) Subscribe(ctx context.Context, topic string) (<-chan Change, string) {
	subID := uuid.New().String()
	ch := make(chan Change, b.bufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, subID
	}
	if _, ok := b.subscribers[topic]; !ok {
		b.subscribers[topic] = make(map[string]chan Change)
	}
	b.subscribers[topic][subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added",
		"topic", topic,
		"sub_id", subID)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(topic, subID)
	}()

	return ch, subID
}

// Publish notifies all subscribers of the given topic.
// Non-blocking: a subscriber whose buffer is full already has a pending
// notice, so dropping this one loses nothing.
func (b *Broadcaster) Publish(topic string, change Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs, ok := b.subscribers[topic]
	if !ok || len(subs) == 0 {
		return
	}

	// Sends are non-blocking, so holding the read lock keeps Unsubscribe from
	// closing a channel underneath us.
	for subID, ch := range subs {
		select {
		case ch <- change:
		default:
			b.logger.Debug("subscriber already has a pending change",
				"topic", topic,
				"sub_id", subID)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(topic, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[topic]
	if !ok {
		return
	}

	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(ch)

	if len(subs) == 0 {
		delete(b.subscribers, topic)
	}

	b.logger.Debug("subscriber removed",
		"topic", topic,
		"sub_id", subID)
}

// SubscriberCount reports the live subscriptions for a topic.
func (b *Broadcaster) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}

// Close shuts down the broadcaster and closes all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for topic, subs := range b.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(b.subscribers, topic)
	}

	b.logger.Debug("broadcaster closed")
}
