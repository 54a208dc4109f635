// Package deferred provides promise-like values that settle exactly once.
//
// A Deferred is the producer side: it is resolved or rejected by whoever owns
// the asynchronous decision. A Promise is the read-only consumer side handed to
// other code, which subscribes with Then or waits on Done.
//
//	d := deferred.New()
//	d.Promise().Then(func() {
//	    // fulfilled
//	}, func(err error) {
//	    // rejected
//	})
//	d.Resolve()
//
// Callbacks run synchronously on the goroutine that settles the Deferred, or
// immediately inside Then when the promise has already settled.
package deferred

import (
	"errors"
	"sync"
)

// State is the settlement state of a promise.
type State int

const (
	// StatePending means the promise has not settled yet.
	StatePending State = iota

	// StateFulfilled means the promise was resolved.
	StateFulfilled

	// StateRejected means the promise was rejected.
	StateRejected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFulfilled:
		return "fulfilled"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ErrRejected is the rejection reason used when Reject is called with a nil error.
var ErrRejected = errors.New("deferred: rejected")

type callback struct {
	onFulfilled func()
	onRejected  func(error)
}

// Promise is the consumer view of a Deferred.
type Promise struct {
	mu        sync.Mutex
	state     State
	err       error
	callbacks []callback
	done      chan struct{}
}

// Deferred is the producer side of a Promise.
type Deferred struct {
	promise *Promise
}

// New creates a pending Deferred.
func New() *Deferred {
	return &Deferred{
		promise: &Promise{done: make(chan struct{})},
	}
}

// Resolved returns a promise that is already fulfilled.
func Resolved() *Promise {
	d := New()
	d.Resolve()
	return d.Promise()
}

// Rejected returns a promise that is already rejected with err.
func Rejected(err error) *Promise {
	d := New()
	d.Reject(err)
	return d.Promise()
}

// Promise returns the read-only promise for d.
func (d *Deferred) Promise() *Promise {
	return d.promise
}

// Resolve fulfils the promise. It reports false if the promise had already settled.
func (d *Deferred) Resolve() bool {
	return d.promise.settle(StateFulfilled, nil)
}

// Reject rejects the promise with err. A nil err is replaced by ErrRejected.
// It reports false if the promise had already settled.
func (d *Deferred) Reject(err error) bool {
	if err == nil {
		err = ErrRejected
	}
	return d.promise.settle(StateRejected, err)
}

func (p *Promise) settle(state State, err error) bool {
	p.mu.Lock()
	if p.state != StatePending {
		p.mu.Unlock()
		return false
	}
	p.state = state
	p.err = err
	callbacks := p.callbacks
	p.callbacks = nil
	close(p.done)
	p.mu.Unlock()

	for _, cb := range callbacks {
		p.fire(cb)
	}
	return true
}

func (p *Promise) fire(cb callback) {
	switch p.state {
	case StateFulfilled:
		if cb.onFulfilled != nil {
			cb.onFulfilled()
		}
	case StateRejected:
		if cb.onRejected != nil {
			cb.onRejected(p.err)
		}
	}
}

// Then subscribes to settlement. Either callback may be nil. Callbacks are
// invoked in subscription order.
func (p *Promise) Then(onFulfilled func(), onRejected func(error)) {
	cb := callback{onFulfilled: onFulfilled, onRejected: onRejected}

	p.mu.Lock()
	if p.state == StatePending {
		p.callbacks = append(p.callbacks, cb)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.fire(cb)
}

// State returns the current settlement state.
func (p *Promise) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err returns the rejection reason, or nil if the promise is pending or fulfilled.
func (p *Promise) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Done returns a channel that is closed once the promise settles.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}
