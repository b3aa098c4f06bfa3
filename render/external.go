package render

import "github.com/delaneyj/storebind/equal"

// Subscribable signals changes of some external state.
type Subscribable interface {
	AddSubscriber(onChange func()) (unsubscribe func())
}

// SubscribeFunc adapts a plain subscribe function. A func literal evaluated
// during render is a new closure each time, so a component building its
// SubscribeFunc inline resubscribes after every render.
type SubscribeFunc func(onChange func()) (unsubscribe func())

func (f SubscribeFunc) AddSubscriber(onChange func()) func() {
	return f(onChange)
}

type externalStoreHook[T any] struct {
	value       T
	getSnapshot func() T
}

// changed reports whether the snapshot moved away from the rendered value.
// A panicking getSnapshot counts as a change so the error resurfaces during
// the re-render.
func (h *externalStoreHook[T]) changed() (changed bool) {
	defer func() {
		if recover() != nil {
			changed = true
		}
	}()
	return !equal.Is(h.value, h.getSnapshot())
}

// UseSyncExternalStore reads external state without tearing.
//
// getSnapshot is called on every render; the component re-renders when a
// change signal from source yields a snapshot that is not identical
// (equal.Is) to the rendered one. getSnapshot must return the identical
// value for unchanged state. getServerSnapshot, when not nil, replaces
// getSnapshot for server renders and for the first render of a hydrating
// root. Source is resubscribed when it changes under equal.Is.
func UseSyncExternalStore[T any](r *Render, source Subscribable, getSnapshot, getServerSnapshot func() T) T {
	inst := r.inst
	rt := inst.root

	var value T
	if getServerSnapshot != nil && rt.useServerSnapshot() {
		value = getServerSnapshot()
	} else {
		value = getSnapshot()
	}

	h := use(r, func() *externalStoreHook[T] { return &externalStoreHook[T]{} })

	UseLayoutEffect(r, nil, func() func() {
		h.value = value
		h.getSnapshot = getSnapshot
		// the store may have changed between render and commit
		if h.changed() {
			rt.scheduleUpdate(inst)
		}
		return nil
	})

	UseEffect(r, []any{source}, func() func() {
		onChange := func() {
			if h.changed() {
				rt.scheduleUpdate(inst)
			}
		}
		onChange()
		return source.AddSubscriber(onChange)
	})

	return value
}
