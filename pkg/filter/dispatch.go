package filter

import (
	"context"
	"sync"
	"time"
)

// Phase identifies the stage of a dispatch.
type Phase int

const (
	PhaseBefore Phase = iota
	PhaseHandler
	PhaseAfter
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseBefore:
		return "before"
	case PhaseHandler:
		return "handler"
	case PhaseAfter:
		return "after"
	default:
		return "unknown"
	}
}

// Status is the lifecycle state of a dispatch.
type Status int

const (
	// StatusRunning means hooks or the handler are executing.
	StatusRunning Status = iota

	// StatusPending means a before hook returned a promise that has not settled.
	StatusPending

	// StatusCompleted means before hooks, handler and after hooks all ran.
	StatusCompleted

	// StatusAborted means a before hook returned Abort or its promise was rejected.
	StatusAborted

	// StatusFailed means a hook or the handler returned an error or panicked.
	StatusFailed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusPending:
		return "pending"
	case StatusCompleted:
		return "completed"
	case StatusAborted:
		return "aborted"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Final reports whether s is a terminal status.
func (s Status) Final() bool {
	return s == StatusCompleted || s == StatusAborted || s == StatusFailed
}

// Dispatch is the state of a single navigation through the interceptor.
type Dispatch struct {
	ctx     context.Context
	route   string
	params  Params
	handler Handler
	before  []Resolved
	after   HookSpec
	started time.Time

	mu     sync.Mutex
	status Status
	err    error
	reason error
	done   chan struct{}
}

func newDispatch(ctx context.Context, route string, params Params, handler Handler, hooks Hooks) *Dispatch {
	return &Dispatch{
		ctx:     ctx,
		route:   route,
		params:  params,
		handler: handler,
		before:  hooks.Before.Resolve(route),
		after:   hooks.After,
		started: time.Now(),
		done:    make(chan struct{}),
	}
}

// Route returns the matched route pattern.
func (d *Dispatch) Route() string { return d.route }

// Params returns the ordered parameters passed to hooks and the handler.
func (d *Dispatch) Params() Params { return d.params }

// Context returns the context the dispatch was started with.
func (d *Dispatch) Context() context.Context { return d.ctx }

// Started returns when the dispatch began.
func (d *Dispatch) Started() time.Time { return d.started }

// Status returns the current status.
func (d *Dispatch) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Err returns the failure of a StatusFailed dispatch.
func (d *Dispatch) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Reason returns the rejection reason when a pending before hook's promise
// was rejected. It is nil for every other outcome.
func (d *Dispatch) Reason() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reason
}

// Done returns a channel closed when the dispatch reaches a final status.
// It is never closed for a dispatch whose promise never settles.
func (d *Dispatch) Done() <-chan struct{} {
	return d.done
}

// Wait blocks until the dispatch is final or ctx is done. Giving up on the
// wait does not cancel the dispatch.
func (d *Dispatch) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return d.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatch) setStatus(s Status) {
	d.mu.Lock()
	d.status = s
	d.mu.Unlock()
}

// finish moves the dispatch to a final status once.
func (d *Dispatch) finish(s Status, err, reason error) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.status.Final() {
		return false
	}
	d.status = s
	d.err = err
	d.reason = reason
	close(d.done)
	return true
}
