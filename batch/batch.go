// Package batch holds the process-wide function that wraps every
// subscription fan-out.
//
// The default runs the notification directly. A host renderer that can
// coalesce updates installs its own function once at startup, before the
// first subscription starts listening:
//
//	batch.Set(root.Batch)
//
// Nodes capture the current function when they are created, so replacing it
// after subscriptions exist only affects nodes created afterwards.
package batch

import "sync/atomic"

// Func runs fn, possibly deferring the work fn triggers until fn returns.
type Func func(fn func())

var current atomic.Pointer[Func]

func init() {
	Set(nil)
}

func direct(fn func()) {
	fn()
}

// Get returns the installed batch function.
func Get() Func {
	return *current.Load()
}

// Set installs next as the batch function. A nil next restores direct
// invocation.
func Set(next Func) {
	if next == nil {
		next = direct
	}
	current.Store(&next)
}
