package subscription

import "github.com/delaneyj/storebind/batch"

// Store is the part of a store a Node listens to.
type Store interface {
	Subscribe(listener func()) (unsubscribe func())
}

// Node fans a single upstream change signal out to its own subscribers.
//
// A root node listens to the store directly; a nested node listens to its
// parent node, so one store update costs one upstream callback per tree level
// no matter how many consumers sit below it. A node starts listening lazily,
// on the first AddSubscriber, and stays listening until StopListening.
type Node struct {
	store  Store
	parent *Node
	batch  batch.Func

	// nil while idle
	subscribers *Registry
	unsubscribe func()
}

// New creates an idle node rooted at store, or chained to parent when parent
// is not nil.
func New(store Store, parent *Node) *Node {
	return &Node{
		store:  store,
		parent: parent,
		batch:  batch.Get(),
	}
}

// AddSubscriber starts listening if needed and registers callback.
func (n *Node) AddSubscriber(callback func()) (unsubscribe func()) {
	n.StartListening()
	return n.subscribers.Subscribe(callback)
}

// OnStateUpdate is the callback the node registers upstream. It notifies
// every subscriber inside the installed batch function. An idle node ignores
// it.
func (n *Node) OnStateUpdate() {
	if n.subscribers == nil {
		return
	}
	n.batch(n.subscribers.Notify)
}

// StartListening subscribes the node upstream. It is a no-op while already
// listening.
func (n *Node) StartListening() {
	if n.unsubscribe != nil {
		return
	}

	// installed before subscribing so a synchronous upstream notification
	// finds a registry
	n.subscribers = NewRegistry()
	if n.parent != nil {
		n.unsubscribe = n.parent.AddSubscriber(n.OnStateUpdate)
	} else {
		n.unsubscribe = n.store.Subscribe(n.OnStateUpdate)
	}
}

// StopListening unsubscribes the node upstream and drops its subscribers.
// It is a no-op while idle.
func (n *Node) StopListening() {
	if n.unsubscribe == nil {
		return
	}

	unsubscribe := n.unsubscribe
	n.unsubscribe = nil
	unsubscribe()

	n.subscribers.Clear()
	n.subscribers = nil
}

// Listening reports whether the node holds an upstream subscription.
func (n *Node) Listening() bool {
	return n.unsubscribe != nil
}

// Parent is the enclosing node, nil for a root node.
func (n *Node) Parent() *Node {
	return n.parent
}

// Len is the number of subscribers registered on this node.
func (n *Node) Len() int {
	if n.subscribers == nil {
		return 0
	}
	return n.subscribers.Len()
}
