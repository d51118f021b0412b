// ABOUTME: Resolver finds or creates the single conversation of a participant pair
// ABOUTME: Memoizes resolutions and appends messages through the document store

package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/2389/pairchat/internal/store"
)

// ConversationStore defines what the resolver needs from storage.
type ConversationStore interface {
	FindConversation(ctx context.Context, a, b string) (*store.Conversation, error)
	CreateConversation(ctx context.Context, conv *store.Conversation) error
	AppendMessage(ctx context.Context, msg *store.Message) error
	SubscribeMessages(ctx context.Context, conversationID string) (*store.Subscription[*store.Message], error)
}

// Conversation is a resolved conversation handle.
type Conversation struct {
	ID           string    `json:"conversation_id"`
	PairKey      string    `json:"pair_key"`
	Participants [2]string `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

// Resolver maps participant pairs to conversations. It is safe for
// concurrent use.
type Resolver struct {
	store  ConversationStore
	cache  *Cache
	group  singleflight.Group
	logger *slog.Logger
}

// New creates a Resolver. A nil cache gets a fresh one; a nil logger uses
// slog.Default().
func New(s ConversationStore, cache *Cache, logger *slog.Logger) *Resolver {
	if cache == nil {
		cache = NewCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:  s,
		cache:  cache,
		logger: logger.With("component", "chat"),
	}
}

// Cache returns the resolver's cache.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// Resolve returns the conversation between senderID and receiverID, creating
// it if this is the pair's first contact. Argument order does not matter.
func (r *Resolver) Resolve(ctx context.Context, senderID, receiverID string) (Conversation, error) {
	if err := validatePair(senderID, receiverID); err != nil {
		return Conversation{}, err
	}

	key := PairKey(senderID, receiverID)
	if conv, ok := r.cache.Get(key); ok {
		return conv, nil
	}

	// The shared lookup must outlive any single caller's cancellation;
	// each caller still stops waiting when its own ctx ends.
	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		if conv, ok := r.cache.Get(key); ok {
			return conv, nil
		}
		conv, err := r.findOrCreate(shared, key, senderID, receiverID)
		if err != nil {
			return nil, err
		}
		r.cache.Put(key, conv)
		return conv, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Conversation{}, res.Err
		}
		return res.Val.(Conversation), nil
	case <-ctx.Done():
		return Conversation{}, ctx.Err()
	}
}

func (r *Resolver) findOrCreate(ctx context.Context, key, senderID, receiverID string) (Conversation, error) {
	found, err := r.store.FindConversation(ctx, senderID, receiverID)
	if err == nil {
		return fromStore(key, found), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return Conversation{}, &QueryError{Op: "find conversation", Err: err}
	}

	created := &store.Conversation{Participants: [2]string{senderID, receiverID}}
	if err := r.store.CreateConversation(ctx, created); err != nil {
		if !errors.Is(err, store.ErrDuplicateConversation) {
			return Conversation{}, &WriteError{Op: "create conversation", Err: err}
		}

		// Another process created the pair between our lookup and insert.
		found, lookupErr := r.store.FindConversation(ctx, senderID, receiverID)
		if lookupErr != nil {
			r.logger.Error("lookup failed after duplicate conversation",
				"pair_key", key,
				"error", lookupErr)
			return Conversation{}, &QueryError{Op: "find conversation", Err: lookupErr}
		}
		r.logger.Debug("found existing conversation after race",
			"pair_key", key,
			"conversation_id", found.ID)
		return fromStore(key, found), nil
	}

	r.logger.Info("conversation created",
		"pair_key", key,
		"conversation_id", created.ID)
	return fromStore(key, created), nil
}

// SendMessage appends text from senderID to the pair's conversation and
// returns the stored message.
func (r *Resolver) SendMessage(ctx context.Context, senderID, receiverID, text string) (Message, error) {
	text, err := normalizeText(text)
	if err != nil {
		return Message{}, err
	}

	conv, err := r.Resolve(ctx, senderID, receiverID)
	if err != nil {
		return Message{}, err
	}

	msg := &store.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Text:           text,
	}
	if err := r.store.AppendMessage(ctx, msg); err != nil {
		return Message{}, &WriteError{Op: "append message", Err: err}
	}

	r.logger.Debug("message sent",
		"conversation_id", conv.ID,
		"message_id", msg.ID,
		"sender_id", senderID)

	return toMessage(msg), nil
}

func fromStore(key string, c *store.Conversation) Conversation {
	return Conversation{
		ID:           c.ID,
		PairKey:      key,
		Participants: c.Participants,
		CreatedAt:    c.CreatedAt,
	}
}
