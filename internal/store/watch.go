// ABOUTME: Forwards subscription snapshots to a handler on its own goroutine
// ABOUTME: Stop is idempotent and returns only once no handler call can run

package store

import (
	"sync"
	"sync/atomic"
)

// Watch forwards sub's snapshots to handle on a new goroutine until handle
// returns false, the subscription ends, or the returned stop func is called.
//
// stop waits for a handle call already running, and once it has returned no
// further call begins. handle must therefore not call stop; it ends the
// watch by returning false.
func Watch[T any](sub *Subscription[T], handle func(Snapshot[T]) bool) (stop func()) {
	w := &watcher[T]{sub: sub, handle: handle}
	go w.run()
	return w.stop
}

type watcher[T any] struct {
	sub    *Subscription[T]
	handle func(Snapshot[T]) bool

	// mu is held for the whole of each handle call.
	mu       sync.Mutex
	stopped  atomic.Bool
	stopOnce sync.Once
}

func (w *watcher[T]) run() {
	for snap := range w.sub.Snapshots() {
		if !w.deliver(snap) {
			w.stop()
			return
		}
	}
}

// deliver runs handle unless the watch is stopped, and reports whether more
// snapshots are wanted.
func (w *watcher[T]) deliver(snap Snapshot[T]) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped.Load() {
		return false
	}
	return w.handle(snap)
}

func (w *watcher[T]) stop() {
	w.stopOnce.Do(func() {
		w.stopped.Store(true)
		w.sub.Close()
		// Wait out a handle call that began before stopped was set.
		w.mu.Lock()
		defer w.mu.Unlock()
	})
}
