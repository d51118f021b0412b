// ABOUTME: Live message subscriptions for a participant pair
// ABOUTME: Delivers the full ordered list on every change and failures once to OnError

package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/2389/pairchat/internal/store"
)

// Message is the plain value delivered to callers.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
}

// Observer receives subscription deliveries. OnUpdate gets the full ordered
// message list each time it changes. OnError is called at most once, with a
// terminal failure, after which nothing else is delivered. Callbacks run on
// the subscription's own goroutine and must not call its Unsubscribe.
type Observer struct {
	OnUpdate func([]Message)
	OnError  func(error)
}

// Unsubscribe stops a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// SubscribeToMessages resolves the pair's conversation and starts delivering
// its messages, oldest first. The current list is delivered right away.
// Cancelling ctx has the same effect as calling the returned Unsubscribe.
func (r *Resolver) SubscribeToMessages(ctx context.Context, senderID, receiverID string, obs Observer) (Unsubscribe, error) {
	conv, err := r.Resolve(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}

	sub, err := r.store.SubscribeMessages(ctx, conv.ID)
	if err != nil {
		return nil, &QueryError{Op: "subscribe messages", Err: err}
	}

	logger := r.logger.With("conversation_id", conv.ID)
	stop := store.Watch(sub, func(snap store.Snapshot[*store.Message]) bool {
		if ctx.Err() != nil {
			return false
		}
		if snap.Err != nil {
			notifyError(obs, &QueryError{Op: "watch messages", Err: snap.Err}, logger)
			return false
		}
		if obs.OnUpdate != nil {
			obs.OnUpdate(toMessages(snap.Items))
		}
		return true
	})

	r.logger.Debug("subscription opened",
		"conversation_id", conv.ID,
		"subscriber", senderID)

	return Unsubscribe(stop), nil
}

func notifyError(obs Observer, err error, logger *slog.Logger) {
	if obs.OnError == nil {
		logger.Warn("subscription failed with no error handler", "error", err)
		return
	}
	obs.OnError(err)
}

func toMessages(msgs []*store.Message) []Message {
	return lo.Map(msgs, func(m *store.Message, _ int) Message {
		return toMessage(m)
	})
}

func toMessage(m *store.Message) Message {
	return Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Text:           m.Text,
		CreatedAt:      m.CreatedAt,
	}
}
