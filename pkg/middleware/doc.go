// Package middleware provides observability for route dispatch.
//
// Both observers plug into a filter.Interceptor:
//
//	ic := filter.New(
//	    filter.WithObserver(middleware.Prometheus(middleware.WithNamespace("myapp"))),
//	    filter.WithObserver(middleware.OpenTelemetry()),
//	)
//
// # Prometheus Metrics
//
//   - routefilter_dispatches_total: dispatches by route pattern and outcome
//   - routefilter_dispatch_duration_seconds: time from start to final outcome
//   - routefilter_hook_duration_seconds: hook call duration by phase and key
//   - routefilter_dispatch_errors_total: failed dispatches by phase
//   - routefilter_pending_dispatches: dispatches waiting on a before hook
//
// Expose them with promhttp:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # OpenTelemetry
//
// OpenTelemetry starts a span when a dispatch starts and ends it when the
// dispatch completes, aborts or fails. Each hook call is recorded as a span
// event. The tracer comes from the global provider unless
// WithTracerProvider is given.
package middleware
