// Package store is a small single-writer state container: state is replaced
// by a reducer on every dispatched action and listeners run after each
// dispatch.
//
// A Store is confined to one goroutine, the same one that drives rendering.
package store

import (
	"errors"

	"github.com/delaneyj/storebind/subscription"
)

var ErrDispatchInReducer = errors.New("reducers may not dispatch actions")

// Reducer returns the state that follows state after action. It must not
// mutate state in place.
type Reducer[S, A any] func(state S, action A) S

// Options tunes a Store. The zero value is ready to use.
type Options[S any] struct {
	// Equal, when set, keeps the previous state reference whenever it
	// reports the reduced state equal to it. Listeners still run.
	Equal func(prev, next S) bool
}

// Store holds state of type S changed by actions of type A.
type Store[S, A any] struct {
	reducer   Reducer[S, A]
	opts      Options[S]
	state     S
	reducing  bool
	listeners *subscription.Registry
}

// New creates a store holding initial.
func New[S, A any](reducer Reducer[S, A], initial S, opts ...Options[S]) *Store[S, A] {
	s := &Store[S, A]{
		reducer:   reducer,
		state:     initial,
		listeners: subscription.NewRegistry(),
	}
	if len(opts) > 0 {
		s.opts = opts[0]
	}
	return s
}

// GetState returns the current state.
func (s *Store[S, A]) GetState() S {
	return s.state
}

// Dispatch reduces action into the state, notifies listeners in subscription
// order and returns action. A reducer panic propagates and leaves the state
// unchanged; so does a listener panic, after the state was replaced.
func (s *Store[S, A]) Dispatch(action A) A {
	if s.reducing {
		panic(ErrDispatchInReducer)
	}

	next := s.reduce(action)
	if s.opts.Equal == nil || !s.opts.Equal(s.state, next) {
		s.state = next
	}

	s.listeners.Notify()
	return action
}

func (s *Store[S, A]) reduce(action A) S {
	s.reducing = true
	defer func() { s.reducing = false }()
	return s.reducer(s.state, action)
}

// Subscribe registers listener to run after every dispatch. The returned
// function is idempotent.
func (s *Store[S, A]) Subscribe(listener func()) (unsubscribe func()) {
	return s.listeners.Subscribe(listener)
}

// Listeners is the number of registered listeners.
func (s *Store[S, A]) Listeners() int {
	return s.listeners.Len()
}

// ReplaceReducer swaps the reducer used by later dispatches.
func (s *Store[S, A]) ReplaceReducer(next Reducer[S, A]) {
	s.reducer = next
}
