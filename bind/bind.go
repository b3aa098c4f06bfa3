// Package bind connects a store to a render tree.
//
// A Provider scopes a binding Context over its descendants. Components read
// derived state with UseSelector, which re-renders them only when their
// selection changes, and write through UseDispatch. WithConnectedProps
// composes the same primitives into a component wrapper.
package bind

import (
	"errors"
	"fmt"

	"github.com/delaneyj/storebind/render"
	"github.com/delaneyj/storebind/subscription"
)

var (
	ErrNoProvider = errors.New("could not find a binding context, wrap the component in a Provider")
	ErrStoreType  = errors.New("binding context holds a store of another type")
)

// Store is the store contract the bindings consume.
type Store[S, A any] interface {
	GetState() S
	Dispatch(action A) A
	Subscribe(listener func()) (unsubscribe func())
}

// Context is what a Provider makes available to its descendants.
type Context[S, A any] struct {
	Store        Store[S, A]
	Subscription *subscription.Node
	// nil unless the Provider was given a server state
	GetServerState func() S
}

// scope lets untyped code reach a Context whatever its type arguments.
type scope interface {
	storeRef() any
	node() *subscription.Node
}

type stateScope[S any] interface {
	scope
	sources() (getState, getServerState func() S)
}

type dispatchScope[A any] interface {
	scope
	dispatch(action A) A
}

func (c *Context[S, A]) storeRef() any {
	return c.Store
}

func (c *Context[S, A]) node() *subscription.Node {
	return c.Subscription
}

func (c *Context[S, A]) sources() (getState, getServerState func() S) {
	return c.Store.GetState, c.GetServerState
}

func (c *Context[S, A]) dispatch(action A) A {
	return c.Store.Dispatch(action)
}

var bindingContext = render.CreateContext[scope]("storebind", nil)

func lookup(r *render.Render) (scope, error) {
	sc, ok := render.UseContext(r, bindingContext)
	if !ok || sc == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoProvider, r.Name())
	}
	return sc, nil
}

// UseContext returns the binding context of the nearest Provider.
func UseContext[S, A any](r *render.Render) (*Context[S, A], error) {
	sc, err := lookup(r)
	if err != nil {
		return nil, err
	}
	ctx, ok := sc.(*Context[S, A])
	if !ok {
		return nil, fmt.Errorf("%w: %s wants %T", ErrStoreType, r.Name(), ctx)
	}
	return ctx, nil
}

func useStateScope[S any](r *render.Render) (stateScope[S], error) {
	sc, err := lookup(r)
	if err != nil {
		return nil, err
	}
	ss, ok := sc.(stateScope[S])
	if !ok {
		var zero S
		return nil, fmt.Errorf("%w: %s selects from state %T", ErrStoreType, r.Name(), zero)
	}
	return ss, nil
}

func useDispatchScope[A any](r *render.Render) (dispatchScope[A], error) {
	sc, err := lookup(r)
	if err != nil {
		return nil, err
	}
	ds, ok := sc.(dispatchScope[A])
	if !ok {
		var zero A
		return nil, fmt.Errorf("%w: %s dispatches %T", ErrStoreType, r.Name(), zero)
	}
	return ds, nil
}
