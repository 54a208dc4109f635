// Package app builds a router and its observers from configuration.
package app

import (
	"context"
	"log/slog"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/vango-dev/routefilter/internal/config"
	"github.com/vango-dev/routefilter/internal/errors"
	"github.com/vango-dev/routefilter/pkg/filter"
	"github.com/vango-dev/routefilter/pkg/loop"
	"github.com/vango-dev/routefilter/pkg/middleware"
	"github.com/vango-dev/routefilter/pkg/router"
	"github.com/vango-dev/routefilter/pkg/server"
	"go.opentelemetry.io/otel/trace"
)

// App is a configured router with its gate and observers.
type App struct {
	Config   *config.Config
	Router   *router.Router
	Gate     *filter.Gate
	Hub      *server.Hub
	Metrics  *middleware.Metrics
	Tracing  *middleware.Tracing
	Registry *prometheus.Registry

	// Loop is nil unless WithLoop was given.
	Loop *loop.Loop

	handlers       map[string]filter.Handler
	observers      []filter.Observer
	tracerProvider trace.TracerProvider
	logger         *slog.Logger
}

// Option configures Build.
type Option func(*App)

// WithHandler registers a handler under name. Handler names used by routes
// without a registered handler get a handler that logs the dispatch.
func WithHandler(name string, h filter.Handler) Option {
	return func(a *App) {
		a.handlers[name] = h
	}
}

// WithLoop runs dispatch continuations on l. The caller runs the loop.
func WithLoop(l *loop.Loop) Option {
	return func(a *App) {
		a.Loop = l
	}
}

// WithObserver adds an observer to the interceptor.
func WithObserver(o filter.Observer) Option {
	return func(a *App) {
		a.observers = append(a.observers, o)
	}
}

// WithRegistry sets the metrics registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *App) {
		a.Registry = reg
	}
}

// WithTracerProvider sets the tracer provider for dispatch spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(a *App) {
		a.tracerProvider = tp
	}
}

// Build creates the router described by cfg.
func Build(cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		Config:   cfg,
		Gate:     filter.NewGate(),
		Hub:      server.NewHub(),
		handlers: make(map[string]filter.Handler),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(a)
	}

	if origins := cfg.Server.EventsOrigins; len(origins) > 0 {
		a.Hub.SetCheckOrigin(server.AllowOrigins(origins...))
	}

	if a.Registry == nil {
		a.Registry = prometheus.NewRegistry()
		a.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	a.Metrics = middleware.Prometheus(
		middleware.WithRegistry(a.Registry),
		middleware.WithConstLabels(prometheus.Labels{"app": cfg.Name}),
	)

	tracingOpts := []middleware.OTelOption{middleware.WithTracerName(cfg.Name)}
	if a.tracerProvider != nil {
		tracingOpts = append(tracingOpts, middleware.WithTracerProvider(a.tracerProvider))
	}
	a.Tracing = middleware.OpenTelemetry(tracingOpts...)

	icOpts := []filter.Option{
		filter.WithLogger(logger.With("component", "filter")),
		filter.WithObserver(a.Metrics),
		filter.WithObserver(a.Tracing),
		filter.WithObserver(a.Hub),
	}
	for _, o := range a.observers {
		icOpts = append(icOpts, filter.WithObserver(o))
	}
	if a.Loop != nil {
		icOpts = append(icOpts, filter.WithExecutor(a.Loop))
	}

	before, err := a.hookSpec(cfg.Before, "before")
	if err != nil {
		return nil, err
	}
	after, err := a.hookSpec(cfg.After, "after")
	if err != nil {
		return nil, err
	}

	routes := make([]router.Route, len(cfg.Routes))
	for i, rc := range cfg.Routes {
		routes[i] = router.Route{Pattern: rc.Pattern, Handler: rc.Handler}
		if _, ok := a.handlers[rc.Handler]; !ok {
			a.handlers[rc.Handler] = a.logHandler(rc.Handler)
		}
	}

	r, err := router.NewFromTable(routes, a.handlers,
		router.WithInterceptor(filter.New(icOpts...)),
		router.WithBefore(before),
		router.WithAfter(after),
		router.WithLogger(logger.With("component", "router")),
	)
	if err != nil {
		return nil, errors.FromError(err, "R104")
	}
	a.Router = r
	return a, nil
}

// Handlers returns the registered handler names in sorted order.
func (a *App) Handlers() []string {
	names := make([]string, 0, len(a.handlers))
	for name := range a.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ServerConfig returns the HTTP settings from the configuration.
func (a *App) ServerConfig() server.Config {
	sc := server.DefaultConfig()
	sc.Address = a.Config.Server.Address
	sc.MetricsPath = a.Config.Server.MetricsEnabledPath()
	sc.Events = a.Config.Server.EventsEnabled()
	return sc
}

// Server creates the HTTP surface for the app. The app must have been built
// with WithLoop.
func (a *App) Server() (*server.Server, error) {
	if a.Loop == nil {
		return nil, errors.New("R300").WithDetail("no loop configured")
	}
	return server.New(a.ServerConfig(), a.Router, a.Loop,
		server.WithGate(a.Gate),
		server.WithHub(a.Hub),
		server.WithGatherer(a.Registry),
		server.WithLogger(a.logger.With("component", "server")),
	), nil
}

func (a *App) hookSpec(hc config.HooksConfig, phase string) (filter.HookSpec, error) {
	if hc.All != nil {
		h, err := a.hook(*hc.All, phase)
		if err != nil {
			return filter.None(), err
		}
		return filter.Single(h), nil
	}
	if len(hc.Routes) == 0 {
		return filter.None(), nil
	}

	hooks := make(map[string]filter.Hook, len(hc.Routes))
	for _, key := range hc.Keys() {
		h, err := a.hook(hc.Routes[key], phase)
		if err != nil {
			return filter.None(), err
		}
		hooks[key] = h
	}
	return filter.Keyed(hooks), nil
}

func (a *App) hook(hc config.HookConfig, phase string) (filter.Hook, error) {
	switch hc.Type {
	case config.HookLog:
		return filter.LogHook(a.logger.With("phase", phase)), nil
	case config.HookDeny:
		return filter.DenyParam(hc.Param, hc.Values...), nil
	case config.HookGate:
		return a.Gate.Hook(), nil
	default:
		return nil, errors.New("R102").WithDetailf("%s: %q", phase, hc.Type)
	}
}

func (a *App) logHandler(name string) filter.Handler {
	logger := a.logger.With("handler", name)
	return func(ctx context.Context, params filter.Params) error {
		logger.InfoContext(ctx, "route handled", "params", params.String())
		return nil
	}
}
