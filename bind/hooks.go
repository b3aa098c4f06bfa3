package bind

import (
	"github.com/delaneyj/storebind/equal"
	"github.com/delaneyj/storebind/render"
	"github.com/delaneyj/storebind/selector"
)

// SelectorOptions tunes UseSelectorWithOptions.
type SelectorOptions[V any] struct {
	// IsEqual decides whether a newly derived value replaces the previous
	// one. Nil means equal.SameValueZero. It may change between renders and
	// applies from the next comparison on.
	IsEqual equal.Func[V]

	// ShouldUpdateWhenStateChanges false pauses the call site: store
	// updates no longer recompute the selection until it is set again.
	ShouldUpdateWhenStateChanges bool

	// Deps starts a new memo generation whenever they change, the way a
	// new store does. A selector closing over render inputs is a new closure
	// on every render, so it lists those inputs here. The first value of a
	// new generation is still reused when IsEqual reports it unchanged.
	Deps []any
}

// DefaultSelectorOptions compares with equal.SameValueZero and follows
// store updates.
func DefaultSelectorOptions[V any]() SelectorOptions[V] {
	return SelectorOptions[V]{ShouldUpdateWhenStateChanges: true}
}

// UseSelector returns sel applied to the state of the nearest Provider's
// store and re-renders the component whenever that selection changes.
func UseSelector[S, V any](r *render.Render, sel func(state S) V) (V, error) {
	return UseSelectorWithOptions(r, sel, DefaultSelectorOptions[V]())
}

// UseSelectorWithOptions is UseSelector with explicit options.
func UseSelectorWithOptions[S, V any](r *render.Render, sel func(state S) V, opts SelectorOptions[V]) (V, error) {
	sc, err := useStateScope[S](r)
	if err != nil {
		var zero V
		return zero, err
	}

	ref := render.UseRef[*selector.Instance[S, V]](r, nil)
	if ref.Current == nil {
		ref.Current = selector.NewInstance[S, V](sel, opts.IsEqual)
	} else {
		ref.Current.Update(sel, opts.IsEqual)
	}
	inst := ref.Current

	deps := append([]any{sc}, opts.Deps...)
	snapshots := render.UseMemo(r, deps, func() [2]func() V {
		getState, getServerState := sc.sources()
		getSnapshot, getServerSnapshot := inst.Snapshots(getState, getServerState)
		return [2]func() V{getSnapshot, getServerSnapshot}
	})

	selected := render.UseSyncExternalStore(r, sc.node(), snapshots[0], snapshots[1])

	shouldUpdate := opts.ShouldUpdateWhenStateChanges
	render.UseEffect(r, []any{shouldUpdate, selected}, func() func() {
		inst.Commit(selected, shouldUpdate)
		return nil
	})

	return selected, nil
}

// UseDispatch returns the dispatch function of the nearest Provider's store.
// The function stays the same while the store does.
func UseDispatch[A any](r *render.Render) (func(action A) A, error) {
	ds, err := useDispatchScope[A](r)
	if err != nil {
		return nil, err
	}
	return render.UseMemo(r, []any{ds}, func() func(A) A {
		return ds.dispatch
	}), nil
}

// UseStore returns the nearest Provider's store.
func UseStore[S, A any](r *render.Render) (Store[S, A], error) {
	ctx, err := UseContext[S, A](r)
	if err != nil {
		return nil, err
	}
	return ctx.Store, nil
}

// UseActionCreator returns a function dispatching what creator builds from
// its argument. The returned function stays the same while the store does
// and always calls the creator passed to the latest render.
func UseActionCreator[A, P any](r *render.Render, creator func(arg P) A) (func(arg P), error) {
	ds, err := useDispatchScope[A](r)
	if err != nil {
		return nil, err
	}

	latest := render.UseRef(r, creator)
	latest.Current = creator

	return render.UseMemo(r, []any{ds}, func() func(P) {
		return func(arg P) {
			ds.dispatch(latest.Current(arg))
		}
	}), nil
}

// ActionCreator builds an action from call arguments.
type ActionCreator[A any] func(args ...any) A

// ActionCreators names a set of action creators.
type ActionCreators[A any] map[string]ActionCreator[A]

// Dispatcher dispatches the action built by one action creator. Dispatchers
// are pointers so props holding them stay shallow-equal across renders.
type Dispatcher struct {
	Name string
	fn   func(args ...any)
}

// Dispatch builds the action from args and dispatches it.
func (d *Dispatcher) Dispatch(args ...any) {
	d.fn(args...)
}

// Dispatchers are bound action creators by name.
type Dispatchers map[string]*Dispatcher

// BindActionCreators binds every creator to dispatch.
func BindActionCreators[A any](creators ActionCreators[A], dispatch func(action A) A) Dispatchers {
	bound := make(Dispatchers, len(creators))
	for name, create := range creators {
		bound[name] = &Dispatcher{
			Name: name,
			fn: func(args ...any) {
				dispatch(create(args...))
			},
		}
	}
	return bound
}
