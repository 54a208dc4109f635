package middleware

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/routefilter/pkg/filter"
)

// MetricsConfig configures the Prometheus observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "routefilter").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus observer.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "routefilter",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics is a filter.Observer that records dispatch metrics.
type Metrics struct {
	dispatches       *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	hookDuration     *prometheus.HistogramVec
	failures         *prometheus.CounterVec
	pending          prometheus.Gauge
}

// Prometheus creates and registers the dispatch metrics. It panics if the
// metrics are already registered with the chosen registry.
func Prometheus(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatches_total",
			Help:        "Total number of route dispatches by final outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "outcome"}),

		dispatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatch_duration_seconds",
			Help:        "Time from dispatch start to its final outcome in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route"}),

		hookDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "hook_duration_seconds",
			Help:        "Hook call duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"phase", "key"}),

		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatch_errors_total",
			Help:        "Total number of failed dispatches by phase",
			ConstLabels: config.ConstLabels,
		}, []string{"phase"}),

		pending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pending_dispatches",
			Help:        "Number of dispatches suspended on a before hook",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Observe implements filter.Observer.
func (m *Metrics) Observe(ev filter.Event) {
	switch ev.Kind {
	case filter.EventHook:
		m.hookDuration.WithLabelValues(ev.Phase.String(), hookLabel(ev.Key)).Observe(ev.Duration.Seconds())

	case filter.EventSuspended:
		m.pending.Inc()

	case filter.EventResumed:
		m.pending.Dec()

	case filter.EventCompleted:
		m.final(ev, "completed")

	case filter.EventAborted:
		// An abort carrying a reason comes from a rejected pending promise.
		if ev.Err != nil {
			m.pending.Dec()
		}
		m.final(ev, "aborted")

	case filter.EventFailed:
		phase := "unknown"
		var de *filter.DispatchError
		if errors.As(ev.Err, &de) {
			phase = de.Phase.String()
		}
		m.failures.WithLabelValues(phase).Inc()
		m.final(ev, "failed")
	}
}

func (m *Metrics) final(ev filter.Event, outcome string) {
	route := ev.Dispatch.Route()
	m.dispatches.WithLabelValues(route, outcome).Inc()
	m.dispatchDuration.WithLabelValues(route).Observe(ev.Duration.Seconds())
}

// hookLabel maps the single-hook key "" to a readable label.
func hookLabel(key string) string {
	if key == "" {
		return "all"
	}
	return key
}
