package middleware

import (
	"fmt"
	"sync"

	"github.com/vango-dev/routefilter/pkg/filter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for routefilter spans.
const defaultTracerName = "routefilter"

// OTelConfig configures the OpenTelemetry observer.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "routefilter").
	TracerName string

	// TracerProvider supplies the tracer. Defaults to the global provider.
	TracerProvider trace.TracerProvider

	// IncludeParams records the dispatch params as a span attribute.
	// Params may contain user data, so this is disabled by default.
	IncludeParams bool

	// AttributeExtractor adds custom attributes when a span starts.
	AttributeExtractor func(d *filter.Dispatch) []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry observer.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithIncludeParams enables recording params on spans.
func WithIncludeParams(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeParams = include
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(d *filter.Dispatch) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// Tracing is a filter.Observer that records one span per dispatch.
type Tracing struct {
	config OTelConfig
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[*filter.Dispatch]trace.Span
}

// OpenTelemetry creates the tracing observer.
//
// A span stays open while a dispatch is pending, so a dispatch whose promise
// never settles keeps its span until the process exits.
func OpenTelemetry(opts ...OTelOption) *Tracing {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}

	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Tracing{
		config: config,
		tracer: tp.Tracer(config.TracerName),
		spans:  make(map[*filter.Dispatch]trace.Span),
	}
}

// Observe implements filter.Observer.
func (t *Tracing) Observe(ev filter.Event) {
	d := ev.Dispatch
	switch ev.Kind {
	case filter.EventStarted:
		t.start(d)

	case filter.EventHook:
		attrs := []attribute.KeyValue{
			attribute.String("routefilter.phase", ev.Phase.String()),
			attribute.String("routefilter.key", hookLabel(ev.Key)),
			attribute.String("routefilter.outcome", ev.Outcome.String()),
			attribute.Int64("routefilter.duration_us", ev.Duration.Microseconds()),
		}
		if span := t.span(d); span != nil {
			span.AddEvent("hook", trace.WithAttributes(attrs...))
		}

	case filter.EventSuspended, filter.EventResumed:
		if span := t.span(d); span != nil {
			span.AddEvent(ev.Kind.String())
		}

	case filter.EventCompleted:
		t.end(d, func(span trace.Span) {
			span.SetStatus(codes.Ok, "")
		})

	case filter.EventAborted:
		t.end(d, func(span trace.Span) {
			span.SetAttributes(attribute.Bool("routefilter.aborted", true))
			if ev.Err != nil {
				span.SetAttributes(attribute.String("routefilter.abort_reason", ev.Err.Error()))
			}
		})

	case filter.EventFailed:
		t.end(d, func(span trace.Span) {
			span.RecordError(ev.Err)
			span.SetStatus(codes.Error, ev.Err.Error())
		})
	}
}

func (t *Tracing) start(d *filter.Dispatch) {
	attrs := []attribute.KeyValue{
		attribute.String("routefilter.route", d.Route()),
		attribute.Int("routefilter.param_count", len(d.Params())),
	}
	if t.config.IncludeParams {
		attrs = append(attrs, attribute.StringSlice("routefilter.params", d.Params().Strings()))
	}
	if t.config.AttributeExtractor != nil {
		attrs = append(attrs, t.config.AttributeExtractor(d)...)
	}

	_, span := t.tracer.Start(
		d.Context(),
		fmt.Sprintf("routefilter %s", d.Route()),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
		trace.WithTimestamp(d.Started()),
	)

	t.mu.Lock()
	t.spans[d] = span
	t.mu.Unlock()
}

func (t *Tracing) span(d *filter.Dispatch) trace.Span {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spans[d]
}

func (t *Tracing) end(d *filter.Dispatch, finish func(trace.Span)) {
	t.mu.Lock()
	span, ok := t.spans[d]
	delete(t.spans, d)
	t.mu.Unlock()

	if !ok {
		return
	}
	finish(span)
	span.End()
}

// Active returns the number of dispatches with an open span.
func (t *Tracing) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.spans)
}
