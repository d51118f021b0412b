// ABOUTME: Live post and comment lists with author details
// ABOUTME: Each delivery is the complete list; failures end the subscription

package community

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/2389/pairchat/internal/store"
)

// Observer receives subscription deliveries. OnUpdate gets the full list
// each time it changes. OnError is called at most once, with a terminal
// failure, after which nothing else is delivered. Callbacks run on the
// subscription's own goroutine and must not call its Unsubscribe.
type Observer[T any] struct {
	OnUpdate func([]T)
	OnError  func(error)
}

func (o Observer[T]) fail(err error, logger *slog.Logger) {
	if o.OnError == nil {
		logger.Warn("subscription failed with no error handler", "error", err)
		return
	}
	o.OnError(err)
}

// Unsubscribe stops a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// SubscribeToPosts delivers every post, newest first, now and after each
// post or profile change. Cancelling ctx has the same effect as calling the
// returned Unsubscribe.
func (s *Service) SubscribeToPosts(ctx context.Context, obs Observer[Post]) (Unsubscribe, error) {
	sub, err := s.store.SubscribePosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribing to posts: %w", err)
	}
	s.logger.Debug("subscription opened", "subscription", sub.Name())
	return watch(ctx, sub, s.enrichPosts, obs, s.logger), nil
}

// SubscribeToComments delivers the comments of postID, oldest first, now and
// after each new comment or profile change. An unknown post has no comments.
func (s *Service) SubscribeToComments(ctx context.Context, postID string, obs Observer[Comment]) (Unsubscribe, error) {
	if err := validate.VarWithKey("post_id", postID, "required"); err != nil {
		return nil, invalidInput(err)
	}
	sub, err := s.store.SubscribeComments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("subscribing to comments: %w", err)
	}
	s.logger.Debug("subscription opened", "subscription", sub.Name())
	return watch(ctx, sub, s.enrichComments, obs, s.logger), nil
}

// watch enriches each snapshot of sub and hands the result to obs.
func watch[S, T any](ctx context.Context, sub *store.Subscription[S], enrich func(context.Context, []S) ([]T, error), obs Observer[T], logger *slog.Logger) Unsubscribe {
	logger = logger.With("subscription", sub.Name())
	stop := store.Watch(sub, func(snap store.Snapshot[S]) bool {
		if ctx.Err() != nil {
			return false
		}
		if snap.Err != nil {
			obs.fail(fmt.Errorf("watching %s: %w", sub.Name(), snap.Err), logger)
			return false
		}
		items, err := enrich(ctx, snap.Items)
		if ctx.Err() != nil {
			return false
		}
		if err != nil {
			obs.fail(err, logger)
			return false
		}
		if obs.OnUpdate != nil {
			obs.OnUpdate(items)
		}
		return true
	})
	return Unsubscribe(stop)
}
