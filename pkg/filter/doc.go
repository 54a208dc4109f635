// Package filter implements before and after hooks around route dispatch.
//
// An Interceptor wraps the "route matched, invoke handler" step of a router.
// For each dispatch it resolves the applicable before hooks, runs them in
// order, invokes the handler, and then runs the applicable after hooks.
//
// # Hook Registries
//
// Hooks are attached through a HookSpec, which is either a single hook applied
// to every route or a keyed mapping from route pattern to hook:
//
//	hooks := filter.Hooks{
//	    Before: filter.Keyed(map[string]filter.Hook{
//	        "*":        requireSession,
//	        "page/:id": loadPage,
//	    }),
//	    After: filter.Single(filter.LogHook(logger)),
//	}
//
// For a keyed registry the wildcard hook ("*") fires first, then the hook
// registered under the exact route pattern. Keys never match by prefix.
//
// # Outcomes
//
// A before hook returns an Outcome:
//
//	filter.Continue          // proceed to the next hook or the handler
//	filter.Abort             // stop; handler and after hooks never run
//	filter.Pending(promise)  // suspend until the promise settles
//
// A fulfilled promise resumes the dispatch through the Interceptor's Executor.
// A rejected promise aborts it. A promise that never settles leaves the
// dispatch pending forever; the interceptor imposes no timeout.
//
// After hook outcomes are ignored because the dispatch has already committed.
//
// # Errors
//
// A hook or handler that returns an error or panics fails the dispatch. The
// error is returned from Intercept as a *DispatchError. Failures that happen
// after a suspended dispatch resumes are recorded on the Dispatch and reported
// to observers.
package filter
