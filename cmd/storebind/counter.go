package main

import (
	"fmt"

	"github.com/delaneyj/storebind/bind"
	"github.com/delaneyj/storebind/render"
	"github.com/delaneyj/storebind/store"
)

type counterState struct {
	Count int
	Step  int
}

type action struct {
	Type   string `yaml:"type"`
	Amount int    `yaml:"amount,omitempty"`
}

func (a action) String() string {
	if a.Type == "step" {
		return fmt.Sprintf("step %d", a.Amount)
	}
	return a.Type
}

var actionTypes = []string{"increment", "decrement", "step", "reset", "touch"}

func reduce(s *counterState, a action) *counterState {
	switch a.Type {
	case "increment":
		return &counterState{Count: s.Count + s.Step, Step: s.Step}
	case "decrement":
		return &counterState{Count: s.Count - s.Step, Step: s.Step}
	case "step":
		return &counterState{Count: s.Count, Step: a.Amount}
	case "reset":
		return &counterState{Step: s.Step}
	case "touch":
		next := *s
		return &next
	default:
		return s
	}
}

// controls collects the dispatchers the mounted app hands out, so the script
// runner acts through the same hooks a component would.
type controls struct {
	dispatch func(action) action
	setStep  func(int)
	reset    *bind.Dispatcher
}

func (c *controls) run(a action) {
	switch a.Type {
	case "step":
		c.setStep(a.Amount)
	case "reset":
		c.reset.Dispatch()
	default:
		c.dispatch(a)
	}
}

var (
	countView = render.Memo(render.NewComponent("Count", func(r *render.Render, props render.Props) ([]render.Element, error) {
		count, err := bind.UseSelector(r, func(s *counterState) int { return s.Count })
		if err != nil {
			return nil, err
		}
		return []render.Element{render.Textf("count=%d ", count)}, nil
	}), nil)

	parityView = render.Memo(render.NewComponent("Parity", func(r *render.Render, props render.Props) ([]render.Element, error) {
		parity, err := bind.UseSelector(r, func(s *counterState) string {
			if s.Count%2 == 0 {
				return "even"
			}
			return "odd"
		})
		if err != nil {
			return nil, err
		}
		return []render.Element{render.Textf("parity=%s ", parity)}, nil
	}), nil)

	summaryView = bind.WithConnectedProps(bind.ConnectOptions[*counterState, action]{
		SelectState: func(s *counterState, _ render.Props) render.Props {
			return render.Props{"step": s.Step}
		},
		ActionCreators: bind.ActionCreators[action]{
			"reset": func(args ...any) action { return action{Type: "reset"} },
		},
		ForwardRef: true,
	})(render.NewComponent("Summary", func(r *render.Render, props render.Props) ([]render.Element, error) {
		if c, ok := r.Ref().(*controls); ok {
			c.reset = props["reset"].(*bind.Dispatcher)
		}
		return []render.Element{render.Textf("step=%d", props["step"])}, nil
	}))

	controlsView = render.NewComponent("Controls", func(r *render.Render, props render.Props) ([]render.Element, error) {
		c := r.Ref().(*controls)

		dispatch, err := bind.UseDispatch[action](r)
		if err != nil {
			return nil, err
		}
		setStep, err := bind.UseActionCreator(r, func(n int) action {
			return action{Type: "step", Amount: n}
		})
		if err != nil {
			return nil, err
		}

		c.dispatch = dispatch
		c.setStep = setStep
		return nil, nil
	})
)

func counterApp(st *store.Store[*counterState, action], c *controls) render.Element {
	return bind.Provider[*counterState, action](st,
		render.El(countView, nil),
		render.El(parityView, nil),
		render.El(summaryView, nil).WithRef(c),
		render.El(controlsView, nil).WithRef(c),
	)
}
