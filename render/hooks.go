package render

import (
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/delaneyj/storebind/equal"
)

type instance struct {
	root     *Root
	parent   *instance
	depth    int
	element  Element
	children []*instance

	hooks   []any
	pending []*effectHook

	// values provided to descendants, by context id
	contexts map[uint64]any
	// ids of contexts read through UseContext
	consumed mapset.Set[uint64]

	mounted  bool
	dirty    bool
	rendered bool
	renders  int
}

func (inst *instance) path() string {
	var names []string
	for p := inst; p != nil && p.parent != nil; p = p.parent {
		names = append(names, p.element.Type.Name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, "/")
}

// call runs the component, turning a returned error or a panic into a
// renderError carrying the path of the innermost failing component.
func (inst *instance) call(r *Render) []Element {
	fail := func(err error) {
		if _, ok := err.(*renderError); ok {
			panic(err)
		}
		panic(&renderError{path: inst.path(), err: err})
	}

	var (
		children []Element
		err      error
	)
	func() {
		defer func() {
			if p := recover(); p != nil {
				fail(asError(p))
			}
		}()
		children, err = inst.element.Type.fn(r, inst.element.Props)
	}()
	if err != nil {
		fail(err)
	}
	return children
}

// Render is the handle a component uses to call hooks during one render.
type Render struct {
	inst      *instance
	hookIndex int
}

// Ref is the ref carried by the element being rendered.
func (r *Render) Ref() any {
	return r.inst.element.Ref
}

// Name is the name of the component being rendered.
func (r *Render) Name() string {
	return r.inst.element.Type.Name
}

// Root is the root the component is mounted in.
func (r *Render) Root() *Root {
	return r.inst.root
}

// Update schedules a re-render of the component.
func (r *Render) Update() {
	r.inst.root.scheduleUpdate(r.inst)
}

func use[T any](r *Render, init func() T) T {
	i := r.hookIndex
	r.hookIndex++

	inst := r.inst
	if i < len(inst.hooks) {
		h, ok := inst.hooks[i].(T)
		if !ok {
			panic(fmt.Errorf("%w: %s hook %d changed kind", ErrHookOrder, inst.path(), i))
		}
		return h
	}
	if inst.rendered {
		panic(fmt.Errorf("%w: %s used more hooks than before", ErrHookOrder, inst.path()))
	}

	h := init()
	inst.hooks = append(inst.hooks, h)
	return h
}

// Ref is a mutable box that lives as long as the component.
type Ref[T any] struct {
	Current T
}

// UseRef returns the component's ref, created holding initial.
func UseRef[T any](r *Render, initial T) *Ref[T] {
	return use(r, func() *Ref[T] { return &Ref[T]{Current: initial} })
}

type stateHook[T any] struct {
	value T
	set   func(T)
}

// UseState returns the current state value and a setter scheduling a
// re-render when the value changes under equal.Is.
func UseState[T any](r *Render, initial T) (T, func(T)) {
	inst := r.inst
	h := use(r, func() *stateHook[T] {
		h := &stateHook[T]{value: initial}
		h.set = func(next T) {
			if equal.Is(h.value, next) {
				return
			}
			h.value = next
			inst.root.scheduleUpdate(inst)
		}
		return h
	})
	return h.value, h.set
}

type memoHook[T any] struct {
	has   bool
	deps  []any
	value T
}

// UseMemo returns compute's result, recomputed when deps change. A nil deps
// recomputes on every render. Deps are compared with equal.Is, so a func
// literal built during render always counts as changed.
func UseMemo[T any](r *Render, deps []any, compute func() T) T {
	h := use(r, func() *memoHook[T] { return &memoHook[T]{} })
	if !h.has || !depsEqual(h.deps, deps) {
		h.value = compute()
		h.deps = deps
		h.has = true
	}
	return h.value
}

type effectHook struct {
	inst   *instance
	layout bool

	has     bool
	deps    []any
	cleanup func()

	next     func() func()
	nextDeps []any
}

func (h *effectHook) run() {
	if !h.inst.mounted || h.next == nil {
		return
	}
	h.destroy()

	fn := h.next
	h.next = nil
	h.deps = h.nextDeps
	h.has = true
	h.cleanup = fn()
}

func (h *effectHook) destroy() {
	if h.cleanup == nil {
		return
	}
	cleanup := h.cleanup
	h.cleanup = nil
	cleanup()
}

// UseEffect runs fn after the render commits, and again after commits where
// deps changed. The func fn returns, if any, runs before the next run and on
// unmount. A nil deps runs fn after every render.
func UseEffect(r *Render, deps []any, fn func() func()) {
	useEffect(r, false, deps, fn)
}

// UseLayoutEffect is UseEffect run before any passive effect of the same
// commit.
func UseLayoutEffect(r *Render, deps []any, fn func() func()) {
	useEffect(r, true, deps, fn)
}

func useEffect(r *Render, layout bool, deps []any, fn func() func()) {
	inst := r.inst
	h := use(r, func() *effectHook { return &effectHook{inst: inst, layout: layout} })
	if inst.root.opts.Server {
		return
	}
	if h.has && depsEqual(h.deps, deps) {
		return
	}
	h.next = fn
	h.nextDeps = deps
	inst.pending = append(inst.pending, h)
}

func depsEqual(prev, next []any) bool {
	if prev == nil || next == nil || len(prev) != len(next) {
		return false
	}
	for i := range prev {
		if !equal.Is(prev[i], next[i]) {
			return false
		}
	}
	return true
}
