package filter

import (
	"context"
	"sort"

	"github.com/vango-dev/routefilter/pkg/deferred"
)

// Wildcard is the keyed-registry key whose hook applies to every route.
const Wildcard = "*"

type outcomeKind int

const (
	outcomeContinue outcomeKind = iota
	outcomeAbort
	outcomePending
)

// Outcome is the result of a hook invocation.
// The zero value is Continue.
type Outcome struct {
	kind    outcomeKind
	promise *deferred.Promise
}

var (
	// Continue proceeds with the dispatch.
	Continue = Outcome{kind: outcomeContinue}

	// Abort stops the dispatch before the handler runs.
	Abort = Outcome{kind: outcomeAbort}
)

// Pending suspends the dispatch until p settles.
// A nil promise is treated as Continue.
func Pending(p *deferred.Promise) Outcome {
	if p == nil {
		return Continue
	}
	return Outcome{kind: outcomePending, promise: p}
}

// IsAbort reports whether o aborts the dispatch.
func (o Outcome) IsAbort() bool { return o.kind == outcomeAbort }

// IsPending reports whether o suspends the dispatch.
func (o Outcome) IsPending() bool { return o.kind == outcomePending }

// Promise returns the promise of a pending outcome, or nil.
func (o Outcome) Promise() *deferred.Promise { return o.promise }

// String returns "continue", "abort" or "pending".
func (o Outcome) String() string {
	switch o.kind {
	case outcomeAbort:
		return "abort"
	case outcomePending:
		return "pending"
	default:
		return "continue"
	}
}

// Hook runs before or after a route handler.
type Hook interface {
	// Call is invoked with the matched route pattern and its parameters.
	// Returning an error fails the dispatch.
	Call(ctx context.Context, route string, params Params) (Outcome, error)
}

// HookFunc is a function adapter for Hook.
type HookFunc func(ctx context.Context, route string, params Params) (Outcome, error)

// Call implements Hook.
func (f HookFunc) Call(ctx context.Context, route string, params Params) (Outcome, error) {
	return f(ctx, route, params)
}

type specKind int

const (
	specNone specKind = iota
	specSingle
	specKeyed
)

// HookSpec is a hook registry: nothing, a single hook for every route, or a
// mapping from route pattern to hook. The shape is fixed at construction.
type HookSpec struct {
	kind   specKind
	single Hook
	keyed  map[string]Hook
}

// None returns an empty registry.
func None() HookSpec {
	return HookSpec{}
}

// Single returns a registry that applies h to every route.
func Single(h Hook) HookSpec {
	if h == nil {
		return None()
	}
	return HookSpec{kind: specSingle, single: h}
}

// Keyed returns a registry keyed by route pattern. The map is copied and nil
// hooks are dropped.
func Keyed(hooks map[string]Hook) HookSpec {
	keyed := make(map[string]Hook, len(hooks))
	for key, h := range hooks {
		if h != nil {
			keyed[key] = h
		}
	}
	return HookSpec{kind: specKeyed, keyed: keyed}
}

// IsZero reports whether the registry holds no hooks.
func (s HookSpec) IsZero() bool {
	switch s.kind {
	case specSingle:
		return s.single == nil
	case specKeyed:
		return len(s.keyed) == 0
	default:
		return true
	}
}

// IsKeyed reports whether the registry is keyed by route pattern.
func (s HookSpec) IsKeyed() bool { return s.kind == specKeyed }

// Keys returns the registered keys in sorted order. A single-hook registry
// returns nil.
func (s HookSpec) Keys() []string {
	if s.kind != specKeyed {
		return nil
	}
	keys := make([]string, 0, len(s.keyed))
	for k := range s.keyed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolved is a hook selected for a dispatch.
// Key is the registry key it was found under, or "" for a single hook.
type Resolved struct {
	Key  string
	Hook Hook
}

// Resolve returns the hooks that apply to route in invocation order: the
// wildcard hook first, then the hook registered under route itself.
func (s HookSpec) Resolve(route string) []Resolved {
	switch s.kind {
	case specSingle:
		return []Resolved{{Hook: s.single}}
	case specKeyed:
		var out []Resolved
		if h, ok := s.keyed[Wildcard]; ok {
			out = append(out, Resolved{Key: Wildcard, Hook: h})
		}
		if route != Wildcard {
			if h, ok := s.keyed[route]; ok {
				out = append(out, Resolved{Key: route, Hook: h})
			}
		}
		return out
	default:
		return nil
	}
}

// Hooks groups the before and after registries for a dispatch.
type Hooks struct {
	Before HookSpec
	After  HookSpec
}
