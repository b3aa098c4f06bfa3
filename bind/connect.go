package bind

import (
	"github.com/delaneyj/storebind/equal"
	"github.com/delaneyj/storebind/render"
)

// ShouldUpdateProp is the own prop that, set to false, pauses state updates
// for one connected instance.
const ShouldUpdateProp = "shouldUpdateWhenStateChanges"

// PropsEqual compares two sets of props.
type PropsEqual func(prev, next render.Props) bool

// ConnectOptions configures WithConnectedProps. Every field is optional.
type ConnectOptions[S, A any] struct {
	// SelectState derives state props. ownProps is nil unless
	// IncludeOwnProps is set.
	SelectState func(state S, ownProps render.Props) render.Props

	// ActionCreators are bound to dispatch once per store.
	ActionCreators ActionCreators[A]

	// ActionCreatorsFunc builds the action creators instead, once per
	// store, or once per own props when IncludeOwnProps is set. It wins
	// over ActionCreators.
	ActionCreatorsFunc func(ownProps render.Props) ActionCreators[A]

	// MergeProps combines the three prop sets. The default copies own
	// props, then dispatchers, then state props into a new map, later keys
	// winning.
	MergeProps func(own render.Props, actions Dispatchers, selected render.Props) render.Props

	// The equality checks default to equal.ShallowEqual.
	AreOwnPropsEqual    PropsEqual
	AreStatePropsEqual  PropsEqual
	AreMergedPropsEqual PropsEqual

	// ForwardRef passes the ref of the connected element to the wrapped
	// component.
	ForwardRef bool

	// IncludeOwnProps passes own props to SelectState and
	// ActionCreatorsFunc.
	IncludeOwnProps bool

	// ShouldUpdateWhenStateChanges defaults to SelectState != nil.
	ShouldUpdateWhenStateChanges *bool
}

// MergeProps is the default ConnectOptions.MergeProps.
func MergeProps(own render.Props, actions Dispatchers, selected render.Props) render.Props {
	merged := make(render.Props, len(own)+len(actions)+len(selected))
	for k, v := range own {
		merged[k] = v
	}
	for k, v := range actions {
		merged[k] = v
	}
	for k, v := range selected {
		merged[k] = v
	}
	return merged
}

type connector[S, A any] struct {
	ConnectOptions[S, A]
	shouldUpdate bool
}

// WithConnectedProps returns a wrapper that connects a component to the
// nearest Provider's store. The wrapped component receives the merged props;
// the connected component is named Connected(<name>) and skips rendering
// while its own props are unchanged.
func WithConnectedProps[S, A any](opts ConnectOptions[S, A]) func(c *render.Component) *render.Component {
	if opts.MergeProps == nil {
		opts.MergeProps = MergeProps
	}
	if opts.AreOwnPropsEqual == nil {
		opts.AreOwnPropsEqual = equal.Shallow[render.Props]
	}
	if opts.AreStatePropsEqual == nil {
		opts.AreStatePropsEqual = equal.Shallow[render.Props]
	}
	if opts.AreMergedPropsEqual == nil {
		opts.AreMergedPropsEqual = equal.Shallow[render.Props]
	}

	cn := &connector[S, A]{
		ConnectOptions: opts,
		shouldUpdate:   opts.SelectState != nil,
	}
	if opts.ShouldUpdateWhenStateChanges != nil {
		cn.shouldUpdate = *opts.ShouldUpdateWhenStateChanges
	}

	return func(c *render.Component) *render.Component {
		connected := render.NewComponent("Connected("+c.Name+")", func(r *render.Render, props render.Props) ([]render.Element, error) {
			merged, err := cn.useConnectedProps(r, props)
			if err != nil {
				return nil, err
			}

			var ref any
			if cn.ForwardRef {
				ref = r.Ref()
			}
			el := render.UseMemo(r, []any{ref, merged}, func() render.Element {
				return render.El(c, merged).WithRef(ref)
			})
			return []render.Element{el}, nil
		})
		return render.Memo(connected, cn.AreOwnPropsEqual)
	}
}

func (cn *connector[S, A]) useConnectedProps(r *render.Render, own render.Props) (render.Props, error) {
	selected, err := cn.useSelectedProps(r, own)
	if err != nil {
		return nil, err
	}
	actions, err := cn.useDispatchers(r, own)
	if err != nil {
		return nil, err
	}

	prev := render.UseRef[render.Props](r, nil)
	merged := cn.MergeProps(own, actions, selected)
	if prev.Current != nil && cn.AreMergedPropsEqual(prev.Current, merged) {
		merged = prev.Current
	}
	render.UseEffect(r, []any{merged}, func() func() {
		prev.Current = merged
		return nil
	})
	return merged, nil
}

func (cn *connector[S, A]) useSelectedProps(r *render.Render, own render.Props) (render.Props, error) {
	if cn.SelectState == nil {
		return nil, nil
	}

	var ownProps render.Props
	var deps []any
	if cn.IncludeOwnProps {
		ownProps = own
		deps = []any{own}
	}
	sel := func(state S) render.Props {
		return cn.SelectState(state, ownProps)
	}

	return UseSelectorWithOptions(r, sel, SelectorOptions[render.Props]{
		IsEqual:                      equal.Func[render.Props](cn.AreStatePropsEqual),
		ShouldUpdateWhenStateChanges: cn.shouldUpdate && own[ShouldUpdateProp] != false,
		Deps:                         deps,
	})
}

func (cn *connector[S, A]) useDispatchers(r *render.Render, own render.Props) (Dispatchers, error) {
	if cn.ActionCreatorsFunc == nil && cn.ActionCreators == nil {
		return nil, nil
	}

	ds, err := useDispatchScope[A](r)
	if err != nil {
		return nil, err
	}

	switch {
	case cn.ActionCreatorsFunc != nil && cn.IncludeOwnProps:
		return render.UseMemo(r, []any{ds, own}, func() Dispatchers {
			return BindActionCreators(cn.ActionCreatorsFunc(own), ds.dispatch)
		}), nil
	case cn.ActionCreatorsFunc != nil:
		return render.UseMemo(r, []any{ds}, func() Dispatchers {
			return BindActionCreators(cn.ActionCreatorsFunc(nil), ds.dispatch)
		}), nil
	default:
		return render.UseMemo(r, []any{ds}, func() Dispatchers {
			return BindActionCreators(cn.ActionCreators, ds.dispatch)
		}), nil
	}
}
