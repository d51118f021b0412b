// ABOUTME: Auth-state emitter: one owner of the signed-in user, many observers
// ABOUTME: Observers are notified immediately on subscribe and after every change

package session

import (
	"fmt"
	"log/slog"
	"sync"
)

// State describes the signed-in user. The zero value means signed out.
type State struct {
	UserID      string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Bio         string `json:"bio,omitempty"`
	Career      string `json:"career,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
	Token       string `json:"token,omitempty"`
}

// SignedIn reports whether a user is present.
func (s State) SignedIn() bool {
	return s.UserID != ""
}

// Patch lists the fields to change. Nil fields are left as they are.
type Patch struct {
	UserID      *string
	Email       *string
	DisplayName *string
	Bio         *string
	Career      *string
	PhotoURL    *string
	Token       *string
}

func (p Patch) apply(s State) State {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&s.UserID, p.UserID)
	set(&s.Email, p.Email)
	set(&s.DisplayName, p.DisplayName)
	set(&s.Bio, p.Bio)
	set(&s.Career, p.Career)
	set(&s.PhotoURL, p.PhotoURL)
	set(&s.Token, p.Token)
	return s
}

// Persister keeps State across process restarts.
type Persister interface {
	Load() (State, bool, error)
	Save(State) error
	Clear() error
}

// Emitter owns the current auth state. Construct one at startup and pass it
// to whatever needs to react to sign-in and sign-out.
type Emitter struct {
	mu        sync.Mutex
	state     State
	observers map[uint64]func(State)
	nextID    uint64
	persister Persister
	logger    *slog.Logger
}

// NewEmitter creates an emitter, restoring state from p when it has any.
// p may be nil for a memory-only emitter.
func NewEmitter(p Persister, logger *slog.Logger) (*Emitter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Emitter{
		observers: make(map[uint64]func(State)),
		persister: p,
		logger:    logger.With("component", "session"),
	}

	if p != nil {
		state, ok, err := p.Load()
		if err != nil {
			return nil, fmt.Errorf("loading session: %w", err)
		}
		if ok {
			e.state = state
			e.logger.Debug("session restored", "user_id", state.UserID)
		}
	}
	return e, nil
}

// Current returns a copy of the current state.
func (e *Emitter) Current() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Subscribe registers fn and calls it right away with the current state.
// The returned func removes fn; calling it again is a no-op.
func (e *Emitter) Subscribe(fn func(State)) (dispose func()) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.observers[id] = fn
	current := e.state
	e.mu.Unlock()

	fn(current)

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.observers, id)
	}
}

// Update merges patch into the state, persists it, and notifies observers.
func (e *Emitter) Update(patch Patch) error {
	e.mu.Lock()
	e.state = patch.apply(e.state)
	state := e.state
	e.mu.Unlock()

	var err error
	if e.persister != nil {
		if err = e.persister.Save(state); err != nil {
			err = fmt.Errorf("saving session: %w", err)
		}
	}

	e.notifyAll(state)
	return err
}

// SignOut clears the state, removes the persisted copy, and notifies observers.
func (e *Emitter) SignOut() error {
	e.mu.Lock()
	userID := e.state.UserID
	e.state = State{}
	e.mu.Unlock()

	var err error
	if e.persister != nil {
		if err = e.persister.Clear(); err != nil {
			err = fmt.Errorf("clearing session: %w", err)
		}
	}

	e.logger.Debug("signed out", "user_id", userID)
	e.notifyAll(State{})
	return err
}

// ObserverCount reports how many observers are registered.
func (e *Emitter) ObserverCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.observers)
}

// notifyAll calls observers outside the lock so they may subscribe or
// dispose from inside the callback.
func (e *Emitter) notifyAll(state State) {
	e.mu.Lock()
	fns := make([]func(State), 0, len(e.observers))
	for _, fn := range e.observers {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}
