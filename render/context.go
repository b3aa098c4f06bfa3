package render

import (
	"strconv"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/delaneyj/storebind/equal"
)

const (
	providerIDKey    = "context"
	providerValueKey = "value"
)

var contextSeq atomic.Uint64

// Context carries a value from a provider to every descendant reading it.
type Context[T any] struct {
	id           uint64
	name         string
	defaultValue T
}

// CreateContext creates a context returning defaultValue where no provider
// encloses the reader.
func CreateContext[T any](name string, defaultValue T) *Context[T] {
	seq := contextSeq.Add(1)
	return &Context[T]{
		id:           xxhash.Sum64String(name + "#" + strconv.FormatUint(seq, 10)),
		name:         name,
		defaultValue: defaultValue,
	}
}

func (c *Context[T]) String() string {
	return c.name
}

var providerComponent = NewComponent("ContextProvider", func(r *Render, props Props) ([]Element, error) {
	inst := r.inst
	id := props[providerIDKey].(uint64)
	value := props[providerValueKey]

	if inst.contexts == nil {
		inst.contexts = map[uint64]any{}
	}
	prev, had := inst.contexts[id]
	inst.contexts[id] = value
	if had && !equal.Is(prev, value) {
		inst.root.markConsumers(inst, id)
	}

	return Children(props), nil
})

// Provide makes value the current value of ctx for children and all their
// descendants. Consumers re-render when value changes under equal.Is, even
// below components that skipped rendering.
func Provide[T any](ctx *Context[T], value T, children ...Element) Element {
	return El(providerComponent, Props{
		providerIDKey:    ctx.id,
		providerValueKey: value,
	}, children...)
}

// UseContext returns the value of the nearest enclosing provider of ctx, and
// whether one was found.
func UseContext[T any](r *Render, ctx *Context[T]) (T, bool) {
	r.inst.consumed.Add(ctx.id)

	for p := r.inst.parent; p != nil; p = p.parent {
		v, ok := p.contexts[ctx.id]
		if !ok {
			continue
		}
		if v == nil {
			var zero T
			return zero, true
		}
		return v.(T), true
	}
	return ctx.defaultValue, false
}

func (rt *Root) markConsumers(provider *instance, id uint64) {
	var walk func(inst *instance)
	walk = func(inst *instance) {
		for _, child := range inst.children {
			if child.consumed.Contains(id) {
				rt.markDirty(child)
			}
			if _, shadowed := child.contexts[id]; shadowed {
				continue
			}
			walk(child)
		}
	}
	walk(provider)
}
