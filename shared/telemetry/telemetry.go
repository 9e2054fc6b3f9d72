package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	metricSDK "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	traceSDK "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
)

const (
	metricExportInterval = 30 * time.Second
	shutdownTimeout      = 5 * time.Second
)

// Config holds telemetry configuration for a service
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	// SampleRatio is the fraction of root traces kept. Zero keeps every trace.
	SampleRatio float64
}

// ShutdownFunc flushes and stops the exporters
type ShutdownFunc func(ctx context.Context) error

// Telemetry bundles the tracer and meter of one service. Metric instruments
// are created once per name and reused.
type Telemetry struct {
	tracer trace.Tracer
	meter  metric.Meter
	config Config

	mu         sync.Mutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
	gauges     map[string]metric.Float64Gauge
}

// NewTelemetry creates a telemetry instance on the global providers
func NewTelemetry(config Config) *Telemetry {
	return NewTelemetryWithProviders(config, otel.GetTracerProvider(), otel.GetMeterProvider())
}

// NewTelemetryWithProviders creates a telemetry instance on explicit providers
func NewTelemetryWithProviders(config Config, tracerProvider trace.TracerProvider, meterProvider metric.MeterProvider) *Telemetry {
	return &Telemetry{
		config:     config,
		tracer:     tracerProvider.Tracer(config.ServiceName),
		meter:      meterProvider.Meter(config.ServiceName),
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
		gauges:     make(map[string]metric.Float64Gauge),
	}
}

// InitTelemetry installs global OTLP trace and metric providers, with a
// Prometheus reader next to the OTLP one so /metrics can be scraped
func InitTelemetry(ctx context.Context, config Config) (*Telemetry, ShutdownFunc, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceVersion(config.ServiceVersion),
	}
	if config.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(config.Environment))
	}

	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to build telemetry resource")
	}

	tracerProvider, err := newTracerProvider(ctx, res, config)
	if err != nil {
		return nil, nil, err
	}

	meterProvider, err := newMeterProvider(ctx, res, config.OTLPEndpoint)
	if err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		tracerProvider.Shutdown(shutdownCtx)
		return nil, nil, err
	}

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	shutdown := func(ctx context.Context) error {
		return multierr.Combine(
			errors.Wrap(tracerProvider.Shutdown(ctx), "failed to shut down tracer provider"),
			errors.Wrap(meterProvider.Shutdown(ctx), "failed to shut down meter provider"),
		)
	}

	return NewTelemetryWithProviders(config, tracerProvider, meterProvider), shutdown, nil
}

func newTracerProvider(ctx context.Context, res *resource.Resource, config Config) (*traceSDK.TracerProvider, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(config.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create OTLP trace exporter")
	}

	sampler := traceSDK.AlwaysSample()
	if config.SampleRatio > 0 && config.SampleRatio < 1 {
		sampler = traceSDK.ParentBased(traceSDK.TraceIDRatioBased(config.SampleRatio))
	}

	return traceSDK.NewTracerProvider(
		traceSDK.WithBatcher(exporter),
		traceSDK.WithResource(res),
		traceSDK.WithSampler(sampler),
	), nil
}

func newMeterProvider(ctx context.Context, res *resource.Resource, otlpEndpoint string) (*metricSDK.MeterProvider, error) {
	prometheusExporter, err := prometheus.New()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Prometheus exporter")
	}

	otlpExporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(otlpEndpoint),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create OTLP metric exporter")
	}

	return metricSDK.NewMeterProvider(
		metricSDK.WithResource(res),
		metricSDK.WithReader(prometheusExporter),
		metricSDK.WithReader(metricSDK.NewPeriodicReader(otlpExporter,
			metricSDK.WithInterval(metricExportInterval),
		)),
	), nil
}

// StartSpan starts a new trace span (method on Telemetry)
func (t *Telemetry) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// GetMeter returns the meter
func (t *Telemetry) GetMeter() metric.Meter {
	return t.meter
}

// GetServiceName returns the service name
func (t *Telemetry) GetServiceName() string {
	return t.config.ServiceName
}

func (t *Telemetry) counter(name, description string) (metric.Int64Counter, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if counter, ok := t.counters[name]; ok {
		return counter, nil
	}
	counter, err := t.meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		return nil, err
	}
	t.counters[name] = counter
	return counter, nil
}

func (t *Telemetry) histogram(name, description string) (metric.Float64Histogram, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if histogram, ok := t.histograms[name]; ok {
		return histogram, nil
	}
	histogram, err := t.meter.Float64Histogram(name, metric.WithDescription(description))
	if err != nil {
		return nil, err
	}
	t.histograms[name] = histogram
	return histogram, nil
}

func (t *Telemetry) gauge(name, description string) (metric.Float64Gauge, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gauge, ok := t.gauges[name]; ok {
		return gauge, nil
	}
	gauge, err := t.meter.Float64Gauge(name, metric.WithDescription(description))
	if err != nil {
		return nil, err
	}
	t.gauges[name] = gauge
	return gauge, nil
}

type contextKey string

const telemetryKey contextKey = "telemetry"

// WithTelemetry injects telemetry into context
func WithTelemetry(ctx context.Context, tel *Telemetry) context.Context {
	return context.WithValue(ctx, telemetryKey, tel)
}

// FromContext extracts telemetry from context
func FromContext(ctx context.Context) *Telemetry {
	if tel, ok := ctx.Value(telemetryKey).(*Telemetry); ok {
		return tel
	}
	return nil
}

// defaultTelemetry serves code running outside a request or consumer context.
// The global providers delegate to whatever InitTelemetry installs later.
var defaultTelemetry = sync.OnceValue(func() *Telemetry {
	return NewTelemetry(DefaultConfig)
})

func fromContextOrGlobal(ctx context.Context) *Telemetry {
	if tel := FromContext(ctx); tel != nil {
		return tel
	}
	return defaultTelemetry()
}

// StartSpan starts a new trace span using telemetry from context
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return fromContextOrGlobal(ctx).StartSpan(ctx, name, opts...)
}

// GetServiceName returns service name from context
func GetServiceName(ctx context.Context) string {
	if tel := FromContext(ctx); tel != nil {
		return tel.GetServiceName()
	}
	return "unknown"
}

// RecordCounter adds value to the named counter
func RecordCounter(ctx context.Context, name, description string, value int64, attrs ...attribute.KeyValue) {
	tel := fromContextOrGlobal(ctx)
	counter, err := tel.counter(name, description)
	if err != nil {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(withService(tel, attrs)...))
}

// RecordHistogram records one sample of the named histogram
func RecordHistogram(ctx context.Context, name, description string, value float64, attrs ...attribute.KeyValue) {
	tel := fromContextOrGlobal(ctx)
	histogram, err := tel.histogram(name, description)
	if err != nil {
		return
	}
	histogram.Record(ctx, value, metric.WithAttributes(withService(tel, attrs)...))
}

// RecordGauge sets the named gauge
func RecordGauge(ctx context.Context, name, description string, value float64, attrs ...attribute.KeyValue) {
	tel := fromContextOrGlobal(ctx)
	gauge, err := tel.gauge(name, description)
	if err != nil {
		return
	}
	gauge.Record(ctx, value, metric.WithAttributes(withService(tel, attrs)...))
}

func withService(tel *Telemetry, attrs []attribute.KeyValue) []attribute.KeyValue {
	return append(attrs, attribute.String("service", tel.GetServiceName()))
}
