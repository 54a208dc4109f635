package router

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vango-dev/routefilter/pkg/filter"
	"github.com/vango-dev/routefilter/pkg/routepath"
)

// Router matches fragments against a route table and dispatches the matched
// handler through a filter.Interceptor.
//
// A Router is not safe for concurrent use. Navigations and route
// registration are expected to run on one goroutine (see package loop).
type Router struct {
	// Before is the before-hook registry, read at every navigation.
	Before filter.HookSpec

	// After is the after-hook registry, read at every navigation.
	After filter.HookSpec

	table       *Table
	handlers    map[string]filter.Handler
	funcs       map[string]filter.Handler // pattern -> handler for RouteFunc
	interceptor *filter.Interceptor
	fragment    string
	logger      *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithInterceptor sets the interceptor used for dispatch.
func WithInterceptor(ic *filter.Interceptor) Option {
	return func(r *Router) {
		if ic != nil {
			r.interceptor = ic
		}
	}
}

// WithBefore sets the initial before-hook registry.
func WithBefore(spec filter.HookSpec) Option {
	return func(r *Router) {
		r.Before = spec
	}
}

// WithAfter sets the initial after-hook registry.
func WithAfter(spec filter.HookSpec) Option {
	return func(r *Router) {
		r.After = spec
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates an empty router.
func New(opts ...Option) *Router {
	r := &Router{
		table:    NewTable(),
		handlers: make(map[string]filter.Handler),
		funcs:    make(map[string]filter.Handler),
		logger:   slog.Default().With("component", "router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.interceptor == nil {
		r.interceptor = filter.New(filter.WithLogger(r.logger))
	}
	return r
}

// NewFromTable creates a router with named handlers and an initial route
// table. Routes are registered in order.
func NewFromTable(routes []Route, handlers map[string]filter.Handler, opts ...Option) (*Router, error) {
	r := New(opts...)
	for name, h := range handlers {
		r.Handle(name, h)
	}
	for _, route := range routes {
		if err := r.Route(route.Pattern, route.Handler); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Handle registers a named handler. Registering a name again replaces it for
// all routes that use the name.
func (r *Router) Handle(name string, h filter.Handler) {
	if h == nil {
		delete(r.handlers, name)
		return
	}
	r.handlers[name] = h
}

// Route maps pattern to the named handler. The route is dispatch-eligible as
// soon as Route returns.
func (r *Router) Route(pattern, name string) error {
	if _, ok := r.handlers[name]; !ok {
		return fmt.Errorf("%w: %q for route %q", ErrUnknownHandler, name, pattern)
	}
	if err := r.table.Add(pattern, name); err != nil {
		return err
	}
	delete(r.funcs, pattern)
	r.logger.Debug("route registered", "pattern", pattern, "handler", name)
	return nil
}

// RouteFunc maps pattern to a handler function.
func (r *Router) RouteFunc(pattern string, h filter.Handler) error {
	if h == nil {
		return fmt.Errorf("%w: nil handler for route %q", ErrUnknownHandler, pattern)
	}
	if err := r.table.Add(pattern, ""); err != nil {
		return err
	}
	r.funcs[pattern] = h
	r.logger.Debug("route registered", "pattern", pattern)
	return nil
}

// Routes returns the route table in insertion order.
func (r *Router) Routes() []Route {
	return r.table.Routes()
}

// Match returns the route and params for fragment without dispatching.
func (r *Router) Match(fragment string) (Route, filter.Params, bool) {
	frag, err := routepath.NormalizeFragment(fragment)
	if err != nil {
		return Route{}, nil, false
	}
	path, _ := routepath.SplitPathAndQuery(frag)
	return r.table.Match(path)
}

// Fragment returns the fragment of the last navigation.
func (r *Router) Fragment() string {
	return r.fragment
}

// Navigate records fragment as the current location and, unless
// WithoutTrigger is given, dispatches its route.
//
// The returned dispatch is nil when nothing was dispatched. A dispatch with
// status pending resumes when its before hook's promise settles.
func (r *Router) Navigate(ctx context.Context, fragment string, opts ...NavigateOption) (*filter.Dispatch, error) {
	options := NavigateOptions{Trigger: true}
	for _, opt := range opts {
		opt(&options)
	}

	frag, err := routepath.NormalizeFragment(fragment)
	if err != nil {
		return nil, fmt.Errorf("router: navigate %q: %w", fragment, err)
	}
	r.fragment = frag

	if !options.Trigger {
		return nil, nil
	}
	return r.dispatch(ctx, frag)
}

// dispatch matches the path part of fragment; the query string is not routed
// and never becomes a parameter.
func (r *Router) dispatch(ctx context.Context, fragment string) (*filter.Dispatch, error) {
	path, _ := routepath.SplitPathAndQuery(fragment)
	route, params, ok := r.table.Match(path)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoMatch, fragment)
	}

	handler := r.handlerFor(route)
	if handler == nil {
		return nil, fmt.Errorf("%w: %q for route %q", ErrUnknownHandler, route.Handler, route.Pattern)
	}

	hooks := filter.Hooks{Before: r.Before, After: r.After}
	return r.interceptor.Intercept(ctx, route.Pattern, params, handler, hooks)
}

func (r *Router) handlerFor(route Route) filter.Handler {
	if route.Handler == "" {
		return r.funcs[route.Pattern]
	}
	return r.handlers[route.Handler]
}
