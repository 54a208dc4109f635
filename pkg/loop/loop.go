// Package loop runs tasks one at a time on a single goroutine.
//
// A Loop gives the router a cooperative, single-threaded execution model:
// navigations submitted from HTTP handlers and dispatch continuations
// triggered by promises settled on other goroutines all run in submission
// order, so route and hook tables are never accessed concurrently.
package loop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrStopped indicates the loop is no longer running.
var ErrStopped = errors.New("loop: stopped")

// DefaultBuffer is the initial queue capacity used when New is given a
// value <= 0.
const DefaultBuffer = 64

// Loop is a single-goroutine task queue. The queue is unbounded, so tasks
// may queue further tasks without blocking the loop on itself.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool

	wake   chan struct{}
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

// New creates a loop with the given initial queue capacity.
func New(buffer int) *Loop {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Loop{
		queue:  make([]func(), 0, buffer),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: slog.Default().With("component", "loop"),
	}
}

// Run processes tasks until ctx is done. It must be called once.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stop()

	for {
		if fn, ok := l.next(); ok {
			if err := ctx.Err(); err != nil {
				return err
			}
			l.runTask(fn)
			continue
		}
		select {
		case <-l.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Loop) stop() {
	l.mu.Lock()
	l.stopped = true
	l.queue = nil
	l.mu.Unlock()
	l.once.Do(func() { close(l.done) })
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *Loop) enqueue(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

func (l *Loop) runTask(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			l.logger.Error("task panicked", "panic", rec)
		}
	}()
	fn()
}

// Execute queues fn without blocking, including from inside a running task.
// fn is dropped once the loop has stopped. Execute satisfies filter.Executor.
func (l *Loop) Execute(fn func()) {
	if !l.enqueue(fn) {
		l.logger.Warn("task dropped after loop stopped")
	}
}

// Do queues fn and waits for it to finish. It must not be called from a
// task running on the same loop.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}
	if !l.enqueue(task) {
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
