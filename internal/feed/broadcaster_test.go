// ABOUTME: Tests for the change feed broadcaster
// ABOUTME: Covers subscribe, publish, unsubscribe, context cancellation, concurrency

package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_SingleSubscriberReceivesChange(t *testing.T) {
	b := NewBroadcaster(0, nil)
	defer b.Close()

	ch, _ := b.Subscribe(t.Context(), "conv-1")

	b.Publish("conv-1", Change{Topic: "conv-1", ID: "msg-1"})

	select {
	case received := <-ch:
		assert.Equal(t, "msg-1", received.ID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change")
	}
}

func TestBroadcaster_MultipleSubscribersReceiveSameChange(t *testing.T) {
	b := NewBroadcaster(0, nil)
	defer b.Close()

	ctx := t.Context()
	ch1, _ := b.Subscribe(ctx, "conv-1")
	ch2, _ := b.Subscribe(ctx, "conv-1")

	b.Publish("conv-1", Change{Topic: "conv-1", ID: "msg-2"})

	for i, ch := range []<-chan Change{ch1, ch2} {
		select {
		case received := <-ch:
			assert.Equal(t, "msg-2", received.ID, "subscriber %d got wrong change", i)
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d timed out", i)
		}
	}
}

func TestBroadcaster_ConversationsAreIsolated(t *testing.T) {
	b := NewBroadcaster(0, nil)
	defer b.Close()

	ctx := t.Context()
	ch1, _ := b.Subscribe(ctx, "conv-1")
	ch2, _ := b.Subscribe(ctx, "conv-2")

	b.Publish("conv-1", Change{Topic: "conv-1"})

	select {
	case <-ch1:
	case <-time.After(time.Second):
		t.Fatal("subscriber for conv-1 timed out")
	}

	select {
	case <-ch2:
		t.Fatal("subscriber for conv-2 should not receive changes for conv-1")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBroadcaster_FullBufferDoesNotBlockPublisher(t *testing.T) {
	b := NewBroadcaster(1, nil)
	defer b.Close()

	ch, _ := b.Subscribe(t.Context(), "conv-1")

	done := make(chan struct{})
	go func() {
		for range 100 {
			b.Publish("conv-1", Change{Topic: "conv-1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a full subscriber")
	}

	// Exactly one notice is pending.
	<-ch
	select {
	case <-ch:
		t.Fatal("expected a single pending change")
	default:
	}
}

func TestBroadcaster_ContextCancellationCleansUp(t *testing.T) {
	b := NewBroadcaster(0, nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := b.Subscribe(ctx, "conv-1")
	require.Equal(t, 1, b.SubscriberCount("conv-1"))

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after context cancel")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after context cancel")
	}
	assert.Equal(t, 0, b.SubscriberCount("conv-1"))
}

func TestBroadcaster_UnsubscribeTwiceIsSafe(t *testing.T) {
	b := NewBroadcaster(0, nil)
	defer b.Close()

	ch, subID := b.Subscribe(t.Context(), "conv-1")
	b.Unsubscribe("conv-1", subID)
	b.Unsubscribe("conv-1", subID)

	_, ok := <-ch
	assert.False(t, ok)

	// Publishing after unsubscribe must not panic.
	b.Publish("conv-1", Change{Topic: "conv-1"})
}

func TestBroadcaster_CloseClosesAllSubscriptions(t *testing.T) {
	b := NewBroadcaster(0, nil)

	ch1, _ := b.Subscribe(t.Context(), "conv-1")
	ch2, _ := b.Subscribe(t.Context(), "conv-2")

	b.Close()
	b.Close()

	for i, ch := range []<-chan Change{ch1, ch2} {
		_, ok := <-ch
		assert.False(t, ok, "channel %d should be closed after Close()", i)
	}

	late, _ := b.Subscribe(t.Context(), "conv-3")
	_, ok := <-late
	assert.False(t, ok, "subscribing after Close() yields a closed channel")
}

func TestBroadcaster_ConcurrentPublishSubscribe(t *testing.T) {
	b := NewBroadcaster(0, nil)
	defer b.Close()

	var wg sync.WaitGroup
	ctx := t.Context()

	for range 10 {
		wg.Go(func() {
			subCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			ch, _ := b.Subscribe(subCtx, "conv-concurrent")
			for range 5 {
				select {
				case <-ch:
				case <-time.After(200 * time.Millisecond):
					return
				}
			}
		})
	}

	for range 10 {
		wg.Go(func() {
			for range 10 {
				b.Publish("conv-concurrent", Change{Topic: "conv-concurrent"})
			}
		})
	}

	wg.Wait()
}
