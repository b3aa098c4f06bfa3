// Package render is a headless component runtime: a tree of components that
// mount, update and unmount, with hooks, context propagation, batched
// updates and a tearing-safe external store hook.
//
// Rendering is synchronous and confined to one goroutine. A render pass runs
// every dirty component, then commits: unmount cleanups, layout effects and
// passive effects, children before parents.
package render

import (
	"fmt"

	"github.com/delaneyj/storebind/equal"
)

// ChildrenKey is the props key holding child elements.
const ChildrenKey = "children"

// Props are the inputs of a component.
type Props map[string]any

// RenderFunc renders a component into child elements.
type RenderFunc func(r *Render, props Props) ([]Element, error)

// Component is a named render function. Components are compared by pointer
// when reconciling, so create them once.
type Component struct {
	Name     string
	fn       RenderFunc
	areEqual func(prev, next Props) bool
}

// NewComponent creates a component.
func NewComponent(name string, fn RenderFunc) *Component {
	return &Component{Name: name, fn: fn}
}

// Memo returns a component that skips re-rendering while areEqual reports
// its props unchanged. A nil areEqual compares props with
// equal.ShallowEqual.
func Memo(c *Component, areEqual func(prev, next Props) bool) *Component {
	if areEqual == nil {
		areEqual = equal.Shallow[Props]
	}
	return &Component{
		Name:     c.Name,
		fn:       c.fn,
		areEqual: areEqual,
	}
}

func (c *Component) String() string {
	return c.Name
}

// Element describes one component occurrence in the tree.
type Element struct {
	Type  *Component
	Key   string
	Props Props
	// Ref is handed to the component through Render.Ref.
	Ref any

	text string
}

// IsZero reports whether e renders nothing.
func (e Element) IsZero() bool {
	return e.Type == nil
}

var (
	textComponent     = NewComponent("#text", nil)
	fragmentComponent = NewComponent("Fragment", func(r *Render, props Props) ([]Element, error) {
		return Children(props), nil
	})
	hostComponent = NewComponent("#root", func(r *Render, props Props) ([]Element, error) {
		return Children(props), nil
	})
)

// El creates an element of c. When children are given they are stored under
// ChildrenKey in a copy of props.
func El(c *Component, props Props, children ...Element) Element {
	if len(children) > 0 {
		next := make(Props, len(props)+1)
		for k, v := range props {
			next[k] = v
		}
		next[ChildrenKey] = children
		props = next
	}
	return Element{Type: c, Props: props}
}

// WithKey returns e keyed for reconciliation among its siblings.
func (e Element) WithKey(key string) Element {
	e.Key = key
	return e
}

// WithRef returns e carrying ref.
func (e Element) WithRef(ref any) Element {
	e.Ref = ref
	return e
}

// Text is a leaf element contributing s to the root's output.
func Text(s string) Element {
	return Element{Type: textComponent, text: s}
}

// Textf is Text with fmt formatting.
func Textf(format string, args ...any) Element {
	return Text(fmt.Sprintf(format, args...))
}

// Fragment groups children without a component of its own.
func Fragment(children ...Element) Element {
	return El(fragmentComponent, nil, children...)
}

// Children returns the child elements stored in props.
func Children(props Props) []Element {
	children, _ := props[ChildrenKey].([]Element)
	return children
}
