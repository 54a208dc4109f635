package filter

import "time"

// EventKind identifies a dispatch lifecycle event.
type EventKind int

const (
	EventStarted EventKind = iota
	EventHook
	EventSuspended
	EventResumed
	EventCompleted
	EventAborted
	EventFailed
)

// String returns the event name.
func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventHook:
		return "hook"
	case EventSuspended:
		return "suspended"
	case EventResumed:
		return "resumed"
	case EventCompleted:
		return "completed"
	case EventAborted:
		return "aborted"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event describes a step of a dispatch.
// Phase, Key, Outcome and Duration are set for EventHook. Err is the hook
// error for EventHook, the failure for EventFailed and the rejection reason,
// if any, for EventAborted. Duration of a final event is the dispatch time.
type Event struct {
	Kind     EventKind
	Dispatch *Dispatch
	Phase    Phase
	Key      string
	Outcome  Outcome
	Duration time.Duration
	Err      error
}

// Observer receives dispatch events. Observe runs synchronously inside the
// dispatch and must not block.
type Observer interface {
	Observe(ev Event)
}

// ObserverFunc is a function adapter for Observer.
type ObserverFunc func(ev Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(ev Event) {
	f(ev)
}

// Executor runs dispatch continuations after a pending promise is fulfilled.
type Executor interface {
	Execute(fn func())
}

// ExecutorFunc is a function adapter for Executor.
type ExecutorFunc func(fn func())

// Execute implements Executor.
func (f ExecutorFunc) Execute(fn func()) {
	f(fn)
}

// InlineExecutor runs continuations on the goroutine that settles the promise.
type InlineExecutor struct{}

// Execute implements Executor.
func (InlineExecutor) Execute(fn func()) {
	fn()
}
