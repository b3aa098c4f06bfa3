package bind

import (
	"github.com/delaneyj/storebind/equal"
	"github.com/delaneyj/storebind/render"
	"github.com/delaneyj/storebind/subscription"
)

const providerPropsKey = "provider"

type provider interface {
	provide(r *render.Render, children []render.Element) render.Element
}

var providerComponent = render.NewComponent("Provider", func(r *render.Render, props render.Props) ([]render.Element, error) {
	p := props[providerPropsKey].(provider)
	return []render.Element{p.provide(r, render.Children(props))}, nil
})

type providerProps[S, A any] struct {
	store       Store[S, A]
	serverState S
	hasServer   bool
}

// Provider scopes a binding context for store over children.
//
// The context, and the subscription node inside it, live as long as the
// Provider stays mounted with the same store. A Provider nested inside
// another one for the same store chains its node to the enclosing node, so
// the store keeps a single listener per tree.
func Provider[S, A any](store Store[S, A], children ...render.Element) render.Element {
	return render.El(providerComponent, render.Props{
		providerPropsKey: &providerProps[S, A]{store: store},
	}, children...)
}

// ProviderWithServerState is Provider with a state snapshot used instead of
// the store's state for server renders and for the first render of a
// hydrating root.
func ProviderWithServerState[S, A any](store Store[S, A], serverState S, children ...render.Element) render.Element {
	return render.El(providerComponent, render.Props{
		providerPropsKey: &providerProps[S, A]{store: store, serverState: serverState, hasServer: true},
	}, children...)
}

func (p *providerProps[S, A]) provide(r *render.Render, children []render.Element) render.Element {
	var parentNode *subscription.Node
	if parent, ok := render.UseContext(r, bindingContext); ok && parent != nil && equal.Is(parent.storeRef(), p.store) {
		parentNode = parent.node()
	}

	ctx := render.UseMemo(r, []any{p.store, parentNode}, func() *Context[S, A] {
		ctx := &Context[S, A]{
			Store:        p.store,
			Subscription: subscription.New(p.store, parentNode),
		}
		if p.hasServer {
			serverState := p.serverState
			ctx.GetServerState = func() S { return serverState }
		}
		return ctx
	})

	initial := render.UseMemo(r, []any{p.store}, p.store.GetState)

	render.UseLayoutEffect(r, []any{ctx}, func() func() {
		node := ctx.Subscription
		node.StartListening()

		// catch dispatches made by descendants while rendering
		if !equal.Is(initial, p.store.GetState()) {
			node.OnStateUpdate()
		}
		return node.StopListening
	})

	return render.Provide[scope](bindingContext, ctx, children...)
}
