package subscription

// entry is a node of the intrusive subscriber list. Removed entries keep
// their forward link so an in-flight notify can step past them.
type entry struct {
	prev, next *entry
	seq        uint64
	removed    bool
	callback   func()
}

// Registry is an ordered list of callbacks with O(1) add and remove.
//
// Callbacks may subscribe and unsubscribe (themselves or others) while being
// notified. Entries removed during a pass are not invoked, entries added during
// a pass wait for the next one. A Registry is not safe for concurrent use.
type Registry struct {
	head, tail *entry
	seq        uint64
	size       int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Subscribe appends callback to the tail and returns a function removing it.
// Calling the returned function more than once is a no-op.
func (r *Registry) Subscribe(callback func()) (unsubscribe func()) {
	r.seq++
	e := &entry{
		prev:     r.tail,
		seq:      r.seq,
		callback: callback,
	}

	if e.prev != nil {
		e.prev.next = e
	} else {
		r.head = e
	}
	r.tail = e
	r.size++

	return func() {
		r.remove(e)
	}
}

func (r *Registry) remove(e *entry) {
	if e.removed {
		return
	}
	e.removed = true
	r.size--

	if e.next != nil {
		e.next.prev = e.prev
	} else {
		r.tail = e.prev
	}

	if e.prev != nil {
		e.prev.next = e.next
	} else {
		r.head = e.next
	}
}

// Notify invokes every registered callback once, in subscription order.
// A panicking callback stops the pass; later callbacks are not invoked.
func (r *Registry) Notify() {
	last := r.seq
	for e := r.head; e != nil && e.seq <= last; e = e.next {
		if e.removed {
			continue
		}
		e.callback()
	}
}

// Clear detaches every entry without invoking it. Outstanding unsubscribe
// functions become no-ops.
func (r *Registry) Clear() {
	for e := r.head; e != nil; e = e.next {
		e.removed = true
	}
	r.head, r.tail = nil, nil
	r.size = 0
}

// Len is the number of registered callbacks.
func (r *Registry) Len() int {
	return r.size
}

// Entries returns the registered callbacks in notification order.
func (r *Registry) Entries() []func() {
	entries := make([]func(), 0, r.size)
	for e := r.head; e != nil; e = e.next {
		entries = append(entries, e.callback)
	}
	return entries
}
