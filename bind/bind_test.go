package bind_test

import (
	"fmt"
	"slices"
	"testing"

	"github.com/delaneyj/storebind/batch"
	"github.com/delaneyj/storebind/bind"
	"github.com/delaneyj/storebind/render"
	"github.com/delaneyj/storebind/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterState struct {
	Count int
	Label string
}

type action struct {
	Kind string
	N    int
}

func reducer(s *counterState, a action) *counterState {
	switch a.Kind {
	case "add":
		return &counterState{Count: s.Count + a.N, Label: s.Label}
	case "touch":
		next := *s
		return &next
	default:
		return s
	}
}

func newStore() *store.Store[*counterState, action] {
	return store.New(reducer, &counterState{})
}

func provide(st *store.Store[*counterState, action], children ...render.Element) render.Element {
	return bind.Provider[*counterState, action](st, children...)
}

func reader[V any](name string, renders *int, sel func(*counterState) V) *render.Component {
	return render.NewComponent(name, func(r *render.Render, p render.Props) ([]render.Element, error) {
		*renders++
		v, err := bind.UseSelector(r, sel)
		if err != nil {
			return nil, err
		}
		return []render.Element{render.Textf("%v;", v)}, nil
	})
}

func TestSelectOneValue(t *testing.T) {
	st := newStore()
	computations, renders := 0, 0
	count := reader("Count", &renders, func(s *counterState) int {
		computations++
		return s.Count
	})

	rt := render.NewRoot(render.Options{})
	require.NoError(t, rt.Render(provide(st, render.El(count, nil))))
	assert.Equal(t, "0;", rt.Output())
	assert.Equal(t, 1, computations)

	st.Dispatch(action{Kind: "add", N: 1})
	assert.Equal(t, "1;", rt.Output())
	assert.Equal(t, 2, computations, "one recomputation per state change")
	assert.Equal(t, 2, renders)

	t.Run("new state with the same selection", func(t *testing.T) {
		st.Dispatch(action{Kind: "touch"})
		assert.Equal(t, 3, computations)
		assert.Equal(t, 2, renders)
	})

	t.Run("unmount releases the store", func(t *testing.T) {
		assert.Equal(t, 1, st.Listeners())
		require.NoError(t, rt.Unmount())
		assert.Equal(t, 0, st.Listeners())
	})
}

type handlerState struct {
	Count   int
	OnClick func() string
}

type handlerView struct {
	Count   int
	OnClick func() string
}

func reduceHandlers(s *handlerState, a action) *handlerState {
	switch a.Kind {
	case "add":
		return &handlerState{Count: s.Count + a.N, OnClick: s.OnClick}
	case "swap":
		label := fmt.Sprintf("clicked %d", a.N)
		return &handlerState{Count: s.Count, OnClick: func() string { return label }}
	case "touch":
		next := *s
		return &next
	default:
		return s
	}
}

func TestSelectFuncValue(t *testing.T) {
	st := store.New(reduceHandlers, &handlerState{OnClick: func() string { return "clicked 0" }})

	buttonRenders, viewRenders := 0, 0
	button := render.NewComponent("Button", func(r *render.Render, p render.Props) ([]render.Element, error) {
		buttonRenders++
		onClick, err := bind.UseSelector(r, func(s *handlerState) func() string { return s.OnClick })
		if err != nil {
			return nil, err
		}
		return []render.Element{render.Textf("%s;", onClick())}, nil
	})
	view := render.NewComponent("View", func(r *render.Render, p render.Props) ([]render.Element, error) {
		viewRenders++
		v, err := bind.UseSelector(r, func(s *handlerState) handlerView {
			return handlerView{Count: s.Count, OnClick: s.OnClick}
		})
		if err != nil {
			return nil, err
		}
		return []render.Element{render.Textf("%d %s;", v.Count, v.OnClick())}, nil
	})

	rt := render.NewRoot(render.Options{})
	require.NoError(t, rt.Render(bind.Provider[*handlerState, action](st,
		render.El(button, nil),
		render.El(view, nil),
	)))
	assert.Equal(t, "clicked 0;0 clicked 0;", rt.Output())
	assert.Equal(t, 1, buttonRenders)
	assert.Equal(t, 1, viewRenders)

	t.Run("same handler in new state", func(t *testing.T) {
		st.Dispatch(action{Kind: "touch"})
		assert.Equal(t, 1, buttonRenders)
		assert.Equal(t, 1, viewRenders)
	})

	t.Run("other field changes", func(t *testing.T) {
		st.Dispatch(action{Kind: "add", N: 1})
		assert.Equal(t, "clicked 0;1 clicked 0;", rt.Output())
		assert.Equal(t, 1, buttonRenders)
		assert.Equal(t, 2, viewRenders)
	})

	t.Run("new handler", func(t *testing.T) {
		st.Dispatch(action{Kind: "swap", N: 2})
		assert.Equal(t, "clicked 2;1 clicked 2;", rt.Output())
		assert.Equal(t, 2, buttonRenders)
		assert.Equal(t, 3, viewRenders)
	})

	require.NoError(t, rt.Unmount())
}

func TestIndependentCallSites(t *testing.T) {
	st := newStore()
	countRenders, doubleRenders := 0, 0
	count := reader("Count", &countRenders, func(s *counterState) int { return s.Count })
	double := reader("Double", &doubleRenders, func(s *counterState) int { return s.Count * 2 })

	rt := render.NewRoot(render.Options{})
	require.NoError(t, rt.Render(provide(st, render.El(count, nil), render.El(double, nil))))
	assert.Equal(t, "0;0;", rt.Output())

	for i := 1; i <= 3; i++ {
		st.Dispatch(action{Kind: "add", N: 1})
		assert.Equal(t, i+1, countRenders)
		assert.Equal(t, i+1, doubleRenders)
	}
	assert.Equal(t, "3;6;", rt.Output())
	assert.Equal(t, 1, st.Listeners(), "both call sites share one store listener")
}

func TestNestedProviders(t *testing.T) {
	// store
	//   └── outer node ── Outer
	//         └── inner node ── Inner
	st := newStore()
	outerRenders, innerRenders := 0, 0
	outer := reader("Outer", &outerRenders, func(s *counterState) int { return s.Count })
	inner := reader("Inner", &innerRenders, func(s *counterState) int { return s.Count * 10 })

	var contexts []*bind.Context[*counterState, action]
	probe := render.NewComponent("Probe", func(r *render.Render, p render.Props) ([]render.Element, error) {
		ctx, err := bind.UseContext[*counterState, action](r)
		if err != nil {
			return nil, err
		}
		contexts = append(contexts, ctx)
		return nil, nil
	})

	rt := render.NewRoot(render.Options{})
	require.NoError(t, rt.Render(provide(st,
		render.El(outer, nil),
		render.El(probe, nil),
		provide(st,
			render.El(inner, nil),
			render.El(probe, nil),
		),
	)))
	assert.Equal(t, "0;0;", rt.Output())
	assert.Equal(t, 1, st.Listeners())

	require.Len(t, contexts, 2)
	outerNode, innerNode := contexts[0].Subscription, contexts[1].Subscription
	assert.Nil(t, outerNode.Parent())
	assert.Same(t, outerNode, innerNode.Parent())
	assert.Equal(t, 2, outerNode.Len(), "Outer and the inner node")
	assert.Equal(t, 1, innerNode.Len())

	st.Dispatch(action{Kind: "add", N: 2})
	assert.Equal(t, "2;20;", rt.Output())
	assert.Equal(t, 2, outerRenders)
	assert.Equal(t, 2, innerRenders, "reached through the outer node exactly once")

	t.Run("other store roots its own node", func(t *testing.T) {
		other := newStore()
		contexts = nil
		rt := render.NewRoot(render.Options{})
		require.NoError(t, rt.Render(provide(st,
			provide(other, render.El(probe, nil)),
		)))
		require.Len(t, contexts, 1)
		assert.Nil(t, contexts[0].Subscription.Parent())
		assert.True(t, contexts[0].Subscription.Listening())
		assert.Equal(t, 1, other.Listeners())
	})
}

func TestMissingProvider(t *testing.T) {
	renders := 0
	count := reader("Count", &renders, func(s *counterState) int { return s.Count })

	rt := render.NewRoot(render.Options{})
	err := rt.Render(render.El(count, nil))
	require.ErrorIs(t, err, bind.ErrNoProvider)
	assert.Contains(t, err.Error(), "Count")

	t.Run("store of another type", func(t *testing.T) {
		wrong := render.NewComponent("Wrong", func(r *render.Render, p render.Props) ([]render.Element, error) {
			_, err := bind.UseSelector(r, func(s string) int { return len(s) })
			return nil, err
		})
		rt := render.NewRoot(render.Options{})
		err := rt.Render(provide(newStore(), render.El(wrong, nil)))
		require.ErrorIs(t, err, bind.ErrStoreType)
	})

	t.Run("dispatch of another type", func(t *testing.T) {
		comp := render.NewComponent("Dispatcher", func(r *render.Render, p render.Props) ([]render.Element, error) {
			_, err := bind.UseDispatch[string](r)
			return nil, err
		})
		rt := render.NewRoot(render.Options{})
		err := rt.Render(provide(newStore(), render.El(comp, nil)))
		require.ErrorIs(t, err, bind.ErrStoreType)
	})
}

func TestBatchedFanOut(t *testing.T) {
	st := newStore()
	rt := render.NewRoot(render.Options{})
	batch.Set(rt.Batch)
	t.Cleanup(func() { batch.Set(nil) })

	var committed []string
	child := render.Memo(render.NewComponent("Child", func(r *render.Render, p render.Props) ([]render.Element, error) {
		v, err := bind.UseSelector(r, func(s *counterState) int { return s.Count * 2 })
		if err != nil {
			return nil, err
		}
		render.UseLayoutEffect(r, nil, func() func() {
			committed = append(committed, rt.Output())
			return nil
		})
		return []render.Element{render.Textf("%d;", v)}, nil
	}), nil)
	parent := render.NewComponent("Parent", func(r *render.Render, p render.Props) ([]render.Element, error) {
		v, err := bind.UseSelector(r, func(s *counterState) int { return s.Count })
		if err != nil {
			return nil, err
		}
		return []render.Element{render.Textf("%d;", v), render.El(child, nil)}, nil
	})

	require.NoError(t, rt.Render(provide(st, render.El(parent, nil))))
	st.Dispatch(action{Kind: "add", N: 1})
	assert.Equal(t, []string{"0;0;", "1;2;"}, committed, "parent and child commit together")
}

func TestSelectorOptions(t *testing.T) {
	t.Run("custom equality keeps the previous value", func(t *testing.T) {
		st := newStore()
		renders := 0
		comp := render.NewComponent("Slice", func(r *render.Render, p render.Props) ([]render.Element, error) {
			renders++
			v, err := bind.UseSelectorWithOptions(r, func(s *counterState) []int {
				return []int{s.Count}
			}, bind.SelectorOptions[[]int]{
				IsEqual:                      func(prev, next []int) bool { return slices.Equal(prev, next) },
				ShouldUpdateWhenStateChanges: true,
			})
			if err != nil {
				return nil, err
			}
			return []render.Element{render.Textf("%v", v)}, nil
		})

		rt := render.NewRoot(render.Options{})
		require.NoError(t, rt.Render(provide(st, render.El(comp, nil))))
		st.Dispatch(action{Kind: "touch"})
		assert.Equal(t, 1, renders)
		st.Dispatch(action{Kind: "add", N: 1})
		assert.Equal(t, 2, renders)
		assert.Equal(t, "[1]", rt.Output())
	})

	t.Run("paused call site", func(t *testing.T) {
		st := newStore()
		renders := 0
		comp := render.NewComponent("Paused", func(r *render.Render, p render.Props) ([]render.Element, error) {
			renders++
			v, err := bind.UseSelectorWithOptions(r, func(s *counterState) int {
				return s.Count
			}, bind.SelectorOptions[int]{ShouldUpdateWhenStateChanges: p["live"].(bool)})
			if err != nil {
				return nil, err
			}
			return []render.Element{render.Textf("%d", v)}, nil
		})

		rt := render.NewRoot(render.Options{})
		require.NoError(t, rt.Render(provide(st, render.El(comp, render.Props{"live": false}))))
		st.Dispatch(action{Kind: "add", N: 1})
		st.Dispatch(action{Kind: "add", N: 1})
		assert.Equal(t, "0", rt.Output())
		assert.Equal(t, 1, renders)

		require.NoError(t, rt.Render(provide(st, render.El(comp, render.Props{"live": true}))))
		assert.Equal(t, "0", rt.Output(), "resuming keeps the committed value until the next update")

		st.Dispatch(action{Kind: "add", N: 1})
		assert.Equal(t, "3", rt.Output())
	})
}

func TestDispatchHooks(t *testing.T) {
	st := newStore()
	renders := 0
	count := reader("Count", &renders, func(s *counterState) int { return s.Count })

	var (
		dispatch func(action) action
		first    func(int)
		latest   func(int)
		got      bind.Store[*counterState, action]
	)
	buttons := render.NewComponent("Buttons", func(r *render.Render, p render.Props) ([]render.Element, error) {
		var err error
		if dispatch, err = bind.UseDispatch[action](r); err != nil {
			return nil, err
		}
		if got, err = bind.UseStore[*counterState, action](r); err != nil {
			return nil, err
		}

		step := p["step"].(int)
		latest, err = bind.UseActionCreator(r, func(n int) action {
			return action{Kind: "add", N: n * step}
		})
		if err != nil {
			return nil, err
		}
		if first == nil {
			first = latest
		}
		return nil, nil
	})

	rt := render.NewRoot(render.Options{})
	app := func(step int) render.Element {
		return provide(st, render.El(count, nil), render.El(buttons, render.Props{"step": step}))
	}
	require.NoError(t, rt.Render(app(1)))
	assert.Same(t, st, got)

	dispatch(action{Kind: "add", N: 2})
	assert.Equal(t, "2;", rt.Output())

	latest(3)
	assert.Equal(t, "5;", rt.Output())

	require.NoError(t, rt.Render(app(10)))
	first(1)
	assert.Equal(t, "15;", rt.Output(), "the first dispatcher calls the latest creator")
}

func TestBindActionCreators(t *testing.T) {
	var dispatched []action
	dispatch := func(a action) action {
		dispatched = append(dispatched, a)
		return a
	}

	bound := bind.BindActionCreators(bind.ActionCreators[action]{
		"add": func(args ...any) action { return action{Kind: "add", N: args[0].(int)} },
		"nop": func(args ...any) action { return action{Kind: "nop"} },
	}, dispatch)
	require.Len(t, bound, 2)
	assert.Equal(t, "add", bound["add"].Name)

	bound["add"].Dispatch(4)
	bound["nop"].Dispatch()
	assert.Equal(t, []action{{Kind: "add", N: 4}, {Kind: "nop"}}, dispatched)
}

func TestServerState(t *testing.T) {
	server := &counterState{Count: 42}

	t.Run("server", func(t *testing.T) {
		st := newStore()
		renders := 0
		count := reader("Count", &renders, func(s *counterState) int { return s.Count })

		rt := render.NewRoot(render.Options{Server: true})
		require.NoError(t, rt.Render(bind.ProviderWithServerState[*counterState, action](st, server, render.El(count, nil))))
		assert.Equal(t, "42;", rt.Output())
		assert.Equal(t, 0, st.Listeners())
	})

	t.Run("hydrate", func(t *testing.T) {
		st := newStore()
		renders := 0
		count := reader("Count", &renders, func(s *counterState) int { return s.Count })

		rt := render.NewRoot(render.Options{Hydrate: true})
		require.NoError(t, rt.Render(bind.ProviderWithServerState[*counterState, action](st, server, render.El(count, nil))))
		assert.Equal(t, "0;", rt.Output())
		assert.Equal(t, 2, renders)
		assert.Equal(t, 1, st.Listeners())
	})

	t.Run("without server state", func(t *testing.T) {
		st := newStore()
		renders := 0
		count := reader("Count", &renders, func(s *counterState) int { return s.Count })

		rt := render.NewRoot(render.Options{Server: true})
		require.NoError(t, rt.Render(provide(st, render.El(count, nil))))
		assert.Equal(t, "0;", rt.Output())
	})
}

func TestDispatchWhileMounting(t *testing.T) {
	st := newStore()
	renders := 0
	count := reader("Count", &renders, func(s *counterState) int { return s.Count })
	kick := render.NewComponent("Kick", func(r *render.Render, p render.Props) ([]render.Element, error) {
		render.UseMemo(r, []any{}, func() bool {
			st.Dispatch(action{Kind: "add", N: 1})
			return true
		})
		return nil, nil
	})

	rt := render.NewRoot(render.Options{})
	require.NoError(t, rt.Render(provide(st, render.El(count, nil), render.El(kick, nil))))
	assert.Equal(t, "1;", rt.Output())
}

func TestSelectorPanicRecovers(t *testing.T) {
	st := newStore()
	renders := 0
	count := reader("Count", &renders, func(s *counterState) int {
		if s.Count == 3 {
			panic("three")
		}
		return s.Count
	})

	var reported []error
	rt := render.NewRoot(render.Options{OnError: func(err error) { reported = append(reported, err) }})
	require.NoError(t, rt.Render(provide(st, render.El(count, nil))))

	st.Dispatch(action{Kind: "add", N: 3})
	require.Len(t, reported, 1)
	assert.Contains(t, reported[0].Error(), "three")
	assert.Equal(t, "0;", rt.Output())

	st.Dispatch(action{Kind: "add", N: 1})
	assert.Equal(t, "4;", rt.Output())
	assert.Len(t, reported, 1)
}
