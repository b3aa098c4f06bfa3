package render

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/delaneyj/storebind/equal"
	"github.com/google/uuid"
)

var (
	ErrTooManyUpdates = errors.New("too many nested updates")
	ErrHookOrder      = errors.New("hooks called in a different order than the previous render")
)

// DefaultMaxNestedUpdates bounds how often one component may be re-rendered
// by updates within a single flush.
const DefaultMaxNestedUpdates = 50

// Options configures a Root. The zero value is an interactive root.
type Options struct {
	// Logger receives debug records about mounts, unmounts and commits.
	// Nil discards them.
	Logger *slog.Logger

	// OnError receives render errors raised while flushing updates that
	// were scheduled outside Render, Unmount and Flush, typically by a store
	// notification. When nil such errors panic on the notifying goroutine.
	OnError func(err error)

	// MaxNestedUpdates defaults to DefaultMaxNestedUpdates.
	MaxNestedUpdates int

	// Server renders non-interactively: server snapshots are used when
	// available and effects never run.
	Server bool

	// Hydrate uses server snapshots for the first render only, then
	// reconciles against client snapshots at commit.
	Hydrate bool
}

// Root owns one component tree.
type Root struct {
	id   uuid.UUID
	opts Options
	log  *slog.Logger

	host *instance

	dirty      mapset.Set[*instance]
	working    bool
	batchDepth int
	hydrating  bool

	unmountQueue []*effectHook
	layoutQueue  []*effectHook
	passiveQueue []*effectHook
}

// NewRoot creates an empty root.
func NewRoot(opts Options) *Root {
	if opts.MaxNestedUpdates <= 0 {
		opts.MaxNestedUpdates = DefaultMaxNestedUpdates
	}

	rt := &Root{
		id:    uuid.New(),
		opts:  opts,
		dirty: mapset.NewThreadUnsafeSet[*instance](),
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	rt.log = logger.With(slog.String("root", rt.id.String()))

	rt.host = rt.newInstance(nil, El(hostComponent, nil))
	return rt
}

// ID identifies the root in log records.
func (rt *Root) ID() uuid.UUID {
	return rt.id
}

// Render renders el as the only child of the root. Panics raised while
// rendering or committing are returned as errors.
func (rt *Root) Render(el Element) error {
	if rt.opts.Hydrate && !rt.host.rendered {
		rt.hydrating = true
	}
	rt.host.element = El(hostComponent, nil, el)
	rt.markDirty(rt.host)
	return rt.performWork()
}

// Unmount removes every component and runs their cleanups.
func (rt *Root) Unmount() error {
	rt.host.element = El(hostComponent, nil)
	rt.markDirty(rt.host)
	return rt.performWork()
}

// Flush renders and commits every pending update.
func (rt *Root) Flush() error {
	return rt.performWork()
}

// Batch runs fn and flushes the updates it scheduled once, after fn
// returns. It has the shape of batch.Func.
func (rt *Root) Batch(fn func()) {
	rt.batchDepth++
	completed := false
	defer func() {
		rt.batchDepth--
		if completed && rt.batchDepth == 0 {
			rt.flushSync()
		}
	}()

	fn()
	completed = true
}

func (rt *Root) scheduleUpdate(inst *instance) {
	if !inst.mounted {
		return
	}
	rt.markDirty(inst)
	if rt.batchDepth == 0 && !rt.working {
		rt.flushSync()
	}
}

func (rt *Root) markDirty(inst *instance) {
	inst.dirty = true
	rt.dirty.Add(inst)
}

func (rt *Root) flushSync() {
	if err := rt.performWork(); err != nil {
		if rt.opts.OnError == nil {
			panic(err)
		}
		rt.opts.OnError(err)
	}
}

func (rt *Root) performWork() (err error) {
	if rt.working {
		return nil
	}
	rt.working = true

	defer func() {
		rt.working = false
		if p := recover(); p != nil {
			err = asError(p)
		}
		if err != nil {
			rt.reset()
		}
	}()

	renders := map[*instance]int{}
	for pass := 1; rt.dirty.Cardinality() > 0; pass++ {
		rendered := 0
		for rt.dirty.Cardinality() > 0 {
			inst := rt.nextDirty()
			if inst == nil {
				break
			}

			renders[inst]++
			if renders[inst] > rt.opts.MaxNestedUpdates {
				return fmt.Errorf("%w: %s re-rendered %d times", ErrTooManyUpdates, inst.path(), renders[inst])
			}
			rt.renderInstance(inst, inst.element)
			rendered++
		}

		rt.log.Debug("commit",
			slog.Int("pass", pass),
			slog.Int("rendered", rendered),
			slog.Int("layout", len(rt.layoutQueue)),
			slog.Int("passive", len(rt.passiveQueue)),
			slog.Int("unmounted", len(rt.unmountQueue)),
		)
		rt.commit()
	}
	return nil
}

// nextDirty removes and returns the shallowest dirty instance.
func (rt *Root) nextDirty() *instance {
	var next *instance
	rt.dirty.Each(func(inst *instance) bool {
		if next == nil || inst.depth < next.depth {
			next = inst
		}
		return false
	})
	if next != nil {
		rt.dirty.Remove(next)
	}
	return next
}

func (rt *Root) reset() {
	rt.dirty.Each(func(inst *instance) bool {
		inst.dirty = false
		return false
	})
	rt.dirty.Clear()
	rt.unmountQueue = nil
	rt.layoutQueue = nil
	rt.passiveQueue = nil
	rt.hydrating = false
}

func (rt *Root) commit() {
	unmounted := rt.unmountQueue
	rt.unmountQueue = nil
	for _, h := range unmounted {
		h.destroy()
	}

	layout := rt.layoutQueue
	rt.layoutQueue = nil
	for _, h := range layout {
		h.run()
	}

	passive := rt.passiveQueue
	rt.passiveQueue = nil
	for _, h := range passive {
		h.run()
	}

	rt.hydrating = false
}

func (rt *Root) useServerSnapshot() bool {
	return rt.opts.Server || rt.hydrating
}

func (rt *Root) newInstance(parent *instance, el Element) *instance {
	inst := &instance{
		root:     rt,
		parent:   parent,
		element:  el,
		mounted:  true,
		consumed: mapset.NewThreadUnsafeSet[uint64](),
	}
	if parent != nil {
		inst.depth = parent.depth + 1
	}
	return inst
}

func (rt *Root) mount(parent *instance, el Element) *instance {
	inst := rt.newInstance(parent, el)
	rt.log.Debug("mount", slog.String("component", inst.path()))
	rt.renderInstance(inst, el)
	return inst
}

func (rt *Root) unmount(inst *instance) {
	for _, child := range inst.children {
		rt.unmount(child)
	}

	inst.mounted = false
	inst.dirty = false
	rt.dirty.Remove(inst)

	for _, h := range inst.hooks {
		if e, ok := h.(*effectHook); ok {
			rt.unmountQueue = append(rt.unmountQueue, e)
		}
	}
	rt.log.Debug("unmount", slog.String("component", inst.path()))
}

// update re-renders inst with el unless nothing it depends on changed.
func (rt *Root) update(inst *instance, el Element) {
	prev := inst.element
	if !inst.dirty && prev.Key == el.Key && equal.Is(prev.Ref, el.Ref) && sameProps(el.Type, prev, el) {
		inst.element = el
		return
	}
	rt.renderInstance(inst, el)
}

func sameProps(c *Component, prev, next Element) bool {
	if c == textComponent {
		return prev.text == next.text
	}
	if equal.Is(prev.Props, next.Props) {
		return true
	}
	return c.areEqual != nil && c.areEqual(prev.Props, next.Props)
}

func (rt *Root) renderInstance(inst *instance, el Element) {
	inst.element = el
	inst.dirty = false
	rt.dirty.Remove(inst)
	inst.renders++

	if el.Type == textComponent {
		inst.rendered = true
		return
	}

	r := &Render{inst: inst}
	inst.pending = inst.pending[:0]
	children := inst.call(r)

	if inst.rendered && r.hookIndex != len(inst.hooks) {
		panic(fmt.Errorf("%w: %s used %d hooks, previously %d", ErrHookOrder, inst.path(), r.hookIndex, len(inst.hooks)))
	}
	inst.rendered = true

	rt.reconcile(inst, children)

	for _, h := range inst.pending {
		if h.layout {
			rt.layoutQueue = append(rt.layoutQueue, h)
		} else {
			rt.passiveQueue = append(rt.passiveQueue, h)
		}
	}
	inst.pending = inst.pending[:0]
}

func (rt *Root) reconcile(inst *instance, elements []Element) {
	old := inst.children
	keyed := map[string]*instance{}
	for _, child := range old {
		if child.element.Key != "" {
			keyed[child.element.Key] = child
		}
	}

	used := mapset.NewThreadUnsafeSet[*instance]()
	next := make([]*instance, 0, len(elements))
	for i, el := range elements {
		if el.IsZero() {
			continue
		}

		var match *instance
		if el.Key != "" {
			match = keyed[el.Key]
		} else if i < len(old) && old[i].element.Key == "" {
			match = old[i]
		}

		if match != nil && match.element.Type == el.Type && !used.Contains(match) {
			used.Add(match)
			rt.update(match, el)
			next = append(next, match)
			continue
		}
		next = append(next, rt.mount(inst, el))
	}

	for _, child := range old {
		if !used.Contains(child) {
			rt.unmount(child)
		}
	}
	inst.children = next
}

// Output is the text content of the mounted tree.
func (rt *Root) Output() string {
	var sb strings.Builder
	var walk func(inst *instance)
	walk = func(inst *instance) {
		if inst.element.Type == textComponent {
			sb.WriteString(inst.element.text)
		}
		for _, child := range inst.children {
			walk(child)
		}
	}
	walk(rt.host)
	return sb.String()
}

// InstanceInfo describes one mounted component.
type InstanceInfo struct {
	Name    string
	Key     string
	Depth   int
	Renders int
	Hooks   int
}

// Instances lists the mounted components in tree order, excluding text.
func (rt *Root) Instances() []InstanceInfo {
	var infos []InstanceInfo
	var walk func(inst *instance)
	walk = func(inst *instance) {
		if inst.element.Type == textComponent {
			return
		}
		infos = append(infos, InstanceInfo{
			Name:    inst.element.Type.Name,
			Key:     inst.element.Key,
			Depth:   inst.depth,
			Renders: inst.renders,
			Hooks:   len(inst.hooks),
		})
		for _, child := range inst.children {
			walk(child)
		}
	}
	for _, child := range rt.host.children {
		walk(child)
	}
	return infos
}

type renderError struct {
	path string
	err  error
}

func (e *renderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.path, e.err)
}

func (e *renderError) Unwrap() error {
	return e.err
}

func asError(p any) error {
	if err, ok := p.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", p)
}
