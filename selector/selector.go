// Package selector memoizes a derived value per call site.
//
// An Instance is owned by one call site and survives across renders. Each
// Memo is a generation of snapshot state bound to one store; memos are never
// shared between overlapping renders, only the committed value on the
// Instance is.
package selector

import "github.com/delaneyj/storebind/equal"

// Func derives a value from store state.
type Func[S, V any] func(state S) V

// Instance is the per-call-site state shared by all memo generations.
type Instance[S, V any] struct {
	selector Func[S, V]
	isEqual  equal.Func[V]

	// whether store changes trigger recomputation
	active       bool
	hasCommitted bool
	committed    V

	computations int
}

// NewInstance creates an active instance. A nil isEqual compares derived
// values with equal.SameValueZero.
func NewInstance[S, V any](selector Func[S, V], isEqual equal.Func[V]) *Instance[S, V] {
	i := &Instance[S, V]{active: true}
	i.Update(selector, isEqual)
	return i
}

// Update refreshes the selector and equality function. The next comparison
// uses isEqual, including comparisons inside memos created earlier.
func (i *Instance[S, V]) Update(selector Func[S, V], isEqual equal.Func[V]) {
	if isEqual == nil {
		isEqual = equal.SameValueZero[V]
	}
	i.selector = selector
	i.isEqual = isEqual
}

// Commit records the value a completed render used. It must only be called
// once the render is accepted, never while computing.
func (i *Instance[S, V]) Commit(value V, shouldUpdateWhenStateChanges bool) {
	i.hasCommitted = true
	i.active = shouldUpdateWhenStateChanges
	i.committed = value
}

// Committed returns the last committed value.
func (i *Instance[S, V]) Committed() (value V, ok bool) {
	return i.committed, i.hasCommitted
}

// Active reports whether state changes trigger recomputation.
func (i *Instance[S, V]) Active() bool {
	return i.active
}

// Computations counts selector invocations over the instance's lifetime.
func (i *Instance[S, V]) Computations() int {
	return i.computations
}

func (i *Instance[S, V]) compute(state S) V {
	v := i.selector(state)
	i.computations++
	return v
}

// Memo is one generation of snapshot state.
type Memo[S, V any] struct {
	instance *Instance[S, V]

	hasSnapshot bool
	lastState   S
	lastDerived V
}

// NewMemo starts a fresh generation.
func (i *Instance[S, V]) NewMemo() *Memo[S, V] {
	return &Memo[S, V]{instance: i}
}

// Select returns the derived value for state, recomputing only when state is
// not identical to the last state seen and keeping the previous value when
// the instance's isEqual reports the new one equal.
//
// A panicking selector leaves the memo untouched.
func (m *Memo[S, V]) Select(state S) V {
	i := m.instance

	if !i.active {
		if m.hasSnapshot {
			return m.lastDerived
		}
		if i.hasCommitted {
			return i.committed
		}
	}

	if !m.hasSnapshot {
		derived := i.compute(state)

		// a new selector may still select what is on screen; keep that value
		// so downstream memoization holds
		if i.hasCommitted && i.isEqual(i.committed, derived) {
			derived = i.committed
		}

		m.hasSnapshot = true
		m.lastState = state
		m.lastDerived = derived
		return derived
	}

	if equal.Is(m.lastState, state) {
		return m.lastDerived
	}

	next := i.compute(state)
	if i.isEqual(m.lastDerived, next) {
		return m.lastDerived
	}

	m.lastState = state
	m.lastDerived = next
	return next
}

// Snapshots binds a fresh memo to state accessors. getServerSnapshot is nil
// when getServerState is nil. Both getters share the memo.
func (i *Instance[S, V]) Snapshots(getState func() S, getServerState func() S) (getSnapshot, getServerSnapshot func() V) {
	m := i.NewMemo()

	getSnapshot = func() V {
		return m.Select(getState())
	}
	if getServerState != nil {
		getServerSnapshot = func() V {
			return m.Select(getServerState())
		}
	}
	return getSnapshot, getServerSnapshot
}
