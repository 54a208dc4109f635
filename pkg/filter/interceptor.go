package filter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vango-dev/routefilter/pkg/deferred"
)

// Handler is the route handler wrapped by the interceptor.
type Handler func(ctx context.Context, params Params) error

// Interceptor runs before hooks, the handler and after hooks for each dispatch.
type Interceptor struct {
	exec      Executor
	observers []Observer
	logger    *slog.Logger
}

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithExecutor sets where continuations of suspended dispatches run.
// The default runs them inline on the settling goroutine.
func WithExecutor(exec Executor) Option {
	return func(i *Interceptor) {
		if exec != nil {
			i.exec = exec
		}
	}
}

// WithObserver adds an observer for dispatch events.
func WithObserver(o Observer) Option {
	return func(i *Interceptor) {
		if o != nil {
			i.observers = append(i.observers, o)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Interceptor) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// New creates an interceptor.
func New(opts ...Option) *Interceptor {
	i := &Interceptor{
		exec:   InlineExecutor{},
		logger: slog.Default().With("component", "filter"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Intercept dispatches route to handler through hooks.
//
// The returned Dispatch reports the status. A Pending dispatch continues when
// its promise settles. The error is non-nil only when a hook or the handler
// failed synchronously; it is also available from Dispatch.Err.
func (i *Interceptor) Intercept(ctx context.Context, route string, params Params, handler Handler, hooks Hooks) (*Dispatch, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d := newDispatch(ctx, route, params, handler, hooks)
	i.emit(Event{Kind: EventStarted, Dispatch: d})

	if err := i.run(d, 0); err != nil {
		return d, err
	}
	return d, nil
}

// run executes before hooks starting at index from, then commits.
func (i *Interceptor) run(d *Dispatch, from int) error {
	for n := from; n < len(d.before); n++ {
		out, err := i.call(d, PhaseBefore, d.before[n])
		if err != nil {
			i.fail(d, err)
			return err
		}

		switch {
		case out.IsAbort():
			i.abort(d, nil)
			return nil
		case out.IsPending():
			i.suspend(d, out.Promise(), n+1)
			return nil
		}
	}
	return i.commit(d)
}

func (i *Interceptor) suspend(d *Dispatch, p *deferred.Promise, next int) {
	d.setStatus(StatusPending)
	i.emit(Event{Kind: EventSuspended, Dispatch: d})
	i.logger.Debug("dispatch suspended", "route", d.route)

	p.Then(func() {
		i.exec.Execute(func() {
			d.setStatus(StatusRunning)
			i.emit(Event{Kind: EventResumed, Dispatch: d})
			if err := i.run(d, next); err != nil {
				i.logger.Warn("dispatch failed after resume", "route", d.route, "error", err)
			}
		})
	}, func(reason error) {
		i.exec.Execute(func() {
			i.abort(d, reason)
		})
	})
}

// commit invokes the handler and then the after hooks.
func (i *Interceptor) commit(d *Dispatch) error {
	if err := i.invoke(d); err != nil {
		i.fail(d, err)
		return err
	}

	for _, r := range d.after.Resolve(d.route) {
		if _, err := i.call(d, PhaseAfter, r); err != nil {
			i.fail(d, err)
			return err
		}
	}

	if d.finish(StatusCompleted, nil, nil) {
		i.emit(Event{Kind: EventCompleted, Dispatch: d, Duration: time.Since(d.started)})
	}
	return nil
}

func (i *Interceptor) call(d *Dispatch, phase Phase, r Resolved) (out Outcome, err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			out = Continue
			err = fmt.Errorf("%w: %v", ErrPanic, rec)
		}
		if err != nil {
			err = &DispatchError{Phase: phase, Route: d.route, Key: r.Key, Err: err}
		}
		i.logger.Debug("hook called",
			"phase", phase.String(),
			"route", d.route,
			"key", r.Key,
			"outcome", out.String(),
		)
		i.emit(Event{
			Kind:     EventHook,
			Dispatch: d,
			Phase:    phase,
			Key:      r.Key,
			Outcome:  out,
			Duration: time.Since(start),
			Err:      err,
		})
	}()
	return r.Hook.Call(d.ctx, d.route, d.params)
}

func (i *Interceptor) invoke(d *Dispatch) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, rec)
		}
		if err != nil {
			err = &DispatchError{Phase: PhaseHandler, Route: d.route, Err: err}
		}
	}()
	return d.handler(d.ctx, d.params)
}

func (i *Interceptor) abort(d *Dispatch, reason error) {
	if !d.finish(StatusAborted, nil, reason) {
		return
	}
	i.logger.Debug("dispatch aborted", "route", d.route, "reason", reason)
	i.emit(Event{Kind: EventAborted, Dispatch: d, Duration: time.Since(d.started), Err: reason})
}

func (i *Interceptor) fail(d *Dispatch, err error) {
	if !d.finish(StatusFailed, err, nil) {
		return
	}
	i.emit(Event{Kind: EventFailed, Dispatch: d, Duration: time.Since(d.started), Err: err})
}

func (i *Interceptor) emit(ev Event) {
	for _, o := range i.observers {
		o.Observe(ev)
	}
}
