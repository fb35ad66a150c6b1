package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// SlogLogger adapts the standard library's structured logger to Logger.
// Production wiring goes through whatever slog handler the host process
// configures (JSON to stdout, OTEL log bridge, ...); this adapter just
// shapes the keyvals the same way every package in this module calls it.
type SlogLogger struct {
	base *slog.Logger
}

// NewSlogLogger wraps base, or slog.Default() if base is nil.
func NewSlogLogger(base *slog.Logger) Logger {
	if base == nil {
		base = slog.Default()
	}
	return SlogLogger{base: base}
}

func (l SlogLogger) Debug(ctx context.Context, msg string, keyvals ...any) {
	l.base.DebugContext(ctx, msg, keyvals...)
}

func (l SlogLogger) Info(ctx context.Context, msg string, keyvals ...any) {
	l.base.InfoContext(ctx, msg, keyvals...)
}

func (l SlogLogger) Warn(ctx context.Context, msg string, keyvals ...any) {
	l.base.WarnContext(ctx, msg, keyvals...)
}

func (l SlogLogger) Error(ctx context.Context, msg string, keyvals ...any) {
	l.base.ErrorContext(ctx, msg, keyvals...)
}

// OtelTracer implements Tracer over an otel/trace.Tracer obtained from the
// global provider.
type OtelTracer struct {
	tracer trace.Tracer
}

// NewOtelTracer builds an OtelTracer for the named instrumentation scope.
func NewOtelTracer(instrumentationName string) Tracer {
	return OtelTracer{tracer: otel.Tracer(instrumentationName)}
}

func (t OtelTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, opts...)
	return ctx, otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) End(opts ...trace.SpanEndOption) { s.span.End(opts...) }

func (s otelSpan) AddEvent(name string, attrs ...any) {
	s.span.AddEvent(name)
}

func (s otelSpan) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}

func (s otelSpan) RecordError(err error, opts ...trace.EventOption) {
	s.span.RecordError(err, opts...)
}

// OtelMetrics implements Metrics over otel/metric instruments, asking the
// meter for the named instrument on every call since the metric API has no
// notion of an ad hoc "record this named value" call; nothing is cached
// here.
type OtelMetrics struct {
	meter metric.Meter
}

// NewOtelMetrics builds an OtelMetrics for the named instrumentation scope.
func NewOtelMetrics(instrumentationName string) Metrics {
	return &OtelMetrics{meter: otel.Meter(instrumentationName)}
}

func (m *OtelMetrics) IncCounter(name string, value float64, tags ...string) {
	c, err := m.meter.Float64Counter(name)
	if err != nil {
		return
	}
	c.Add(context.Background(), value, metric.WithAttributes(tagsToAttrs(tags)...))
}

func (m *OtelMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {
	h, err := m.meter.Float64Histogram(name, metric.WithUnit("ms"))
	if err != nil {
		return
	}
	h.Record(context.Background(), float64(duration.Milliseconds()), metric.WithAttributes(tagsToAttrs(tags)...))
}

func (m *OtelMetrics) RecordGauge(name string, value float64, tags ...string) {
	g, err := m.meter.Float64Gauge(name)
	if err != nil {
		return
	}
	g.Record(context.Background(), value, metric.WithAttributes(tagsToAttrs(tags)...))
}
