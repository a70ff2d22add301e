package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig selects DireClaw's span exporters. Grounded on the
// teacher's tracing.ExporterConfig, narrowed to the two transports
// SPEC_FULL.md's dependency table names (stdout, OTLP) and dropping the
// teacher's SQLite-backed local storage exporter: this module carries no
// SQL driver (see DESIGN.md), and nothing in the spec reads spans back
// out of local storage, so traces flow to exporters only.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string

	// OTLPEndpoint, if set, adds an OTLP exporter alongside the always-on
	// stdout exporter. Empty means stdout-only.
	OTLPEndpoint string
	// OTLPProtocol is "grpc" (default) or "http".
	OTLPProtocol string
	OTLPInsecure bool
}

// Provider owns the process's TracerProvider and MeterProvider and their
// shutdown. Grounded on the teacher's tracing.OTelProvider, but returns
// otel's own trace.Tracer directly rather than wrapping it in a custom
// observability.Tracer interface: DireClaw has exactly one span consumer
// (otel's own SDK and exporters), so the teacher's abstraction over a
// second possible tracing backend has nothing to abstract here.
type Provider struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

// NewProvider builds a Provider wired per cfg and installs it as the
// process-global otel provider (otel.SetTracerProvider /
// otel.SetMeterProvider), so Tracer/Meter and any library instrumented
// against the global otel API pick it up automatically. metricsReg is the
// same Prometheus registry Metrics.Registry() returns, so otel-recorded
// metrics land in the same /metrics output as DireClaw's hand-built
// counters rather than needing a second listener.
func NewProvider(ctx context.Context, cfg TracingConfig, metricsReg *prometheus.Registry) (*Provider, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		return nil, err
	}

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	stdoutExp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tpOpts = append(tpOpts, sdktrace.WithBatcher(stdoutExp))

	if cfg.OTLPEndpoint != "" {
		otlpExp, err := buildSpanExporter(ctx, cfg)
		if err != nil {
			return nil, err
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(otlpExp))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)

	promExp, err := otelprom.New(otelprom.WithRegisterer(metricsReg))
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(promExp))
	otel.SetMeterProvider(mp)

	return &Provider{tp: tp, mp: mp}, nil
}

// buildSpanExporter returns the configured OTLP exporter for cfg. Callers
// must check cfg.OTLPEndpoint != "" first.
func buildSpanExporter(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	if cfg.OTLPProtocol == "http" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	}
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptracegrpc.New(ctx, opts...)
}

// Tracer returns a named tracer from the process's global TracerProvider.
// Safe to call even before NewProvider runs: otel's default no-op
// provider produces spans that are simply discarded.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Meter returns a named meter from the process's global MeterProvider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Shutdown flushes and releases both providers. Safe to call once at
// process exit.
func (p *Provider) Shutdown(ctx context.Context) error {
	if err := p.tp.Shutdown(ctx); err != nil {
		return err
	}
	return p.mp.Shutdown(ctx)
}

// ForceFlush forces any buffered spans out immediately, e.g. before the
// supervisor's shutdown deadline expires.
func (p *Provider) ForceFlush(ctx context.Context) error {
	return p.tp.ForceFlush(ctx)
}
