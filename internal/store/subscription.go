// ABOUTME: Live list subscriptions shared by all Store implementations
// ABOUTME: Re-reads the authoritative list whenever one of its feed topics fires

package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/2389/pairchat/internal/feed"
)

// Snapshot is one delivery of a live subscription: either the full ordered
// list or a terminal error.
type Snapshot[T any] struct {
	Items []T
	Err   error
}

// lister reads the authoritative ordered list a subscription watches.
type lister[T any] func(ctx context.Context) ([]T, error)

// Subscription is a live, ordered view of a list in the store. Snapshots
// are delivered on a channel that is closed when the subscription ends,
// either through Close, context cancellation, or a terminal error.
type Subscription[T any] struct {
	name      string
	out       chan Snapshot[T]
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// newSubscription starts the delivery goroutine. Feed subscriptions are
// registered before the first read so no write can slip in between.
func newSubscription[T any](ctx context.Context, name string, changes *feed.Broadcaster, topics []string, list lister[T], logger *slog.Logger) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription[T]{
		name:   name,
		out:    make(chan Snapshot[T], 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	notices := merge(ctx, changes, topics)

	go sub.run(ctx, notices, list, logger)
	return sub
}

// merge fans the notices of every topic into one channel of capacity one.
// All topics share one broadcaster and one ctx, so they close together; the
// result closes once every topic has.
func merge(ctx context.Context, changes *feed.Broadcaster, topics []string) <-chan struct{} {
	out := make(chan struct{}, 1)

	var wg sync.WaitGroup
	for _, topic := range topics {
		ch, _ := changes.Subscribe(ctx, topic)
		wg.Go(func() {
			for range ch {
				select {
				case out <- struct{}{}:
				default:
				}
			}
		})
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func (s *Subscription[T]) run(ctx context.Context, notices <-chan struct{}, list lister[T], logger *slog.Logger) {
	defer close(s.done)
	defer close(s.out)

	if !s.deliver(ctx, list) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-notices:
			if !ok {
				// The feed only closes without our ctx ending when the store shuts down.
				if ctx.Err() == nil {
					s.send(ctx, Snapshot[T]{Err: ErrClosed})
				}
				return
			}
			if !s.deliver(ctx, list) {
				logger.Debug("subscription ended", "subscription", s.name)
				return
			}
		}
	}
}

// deliver reads and sends one snapshot. It reports whether the subscription
// should keep running.
func (s *Subscription[T]) deliver(ctx context.Context, list lister[T]) bool {
	items, err := list(ctx)
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		s.send(ctx, Snapshot[T]{Err: err})
		return false
	}
	return s.send(ctx, Snapshot[T]{Items: items})
}

func (s *Subscription[T]) send(ctx context.Context, snap Snapshot[T]) bool {
	select {
	case s.out <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}

// Name identifies what the subscription watches, for logs.
func (s *Subscription[T]) Name() string {
	return s.name
}

// Snapshots returns the delivery channel.
func (s *Subscription[T]) Snapshots() <-chan Snapshot[T] {
	return s.out
}

// Close stops the subscription and waits for the delivery goroutine to exit.
// Safe to call more than once.
func (s *Subscription[T]) Close() {
	s.closeOnce.Do(s.cancel)
	<-s.done
}
