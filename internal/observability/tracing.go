// Package observability wires OpenTelemetry tracing and Prometheus metrics.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/joelkehle/venturefit"

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	Endpoint       string  `mapstructure:"endpoint"`
	SampleRate     float64 `mapstructure:"sample-rate"`
	ServiceName    string  `mapstructure:"service-name"`
	ServiceVersion string  `mapstructure:"-"`
}

type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NoopTracer returns a provider whose spans are discarded.
func NoopTracer() *TracerProvider {
	return &TracerProvider{tracer: noop.NewTracerProvider().Tracer(instrumentationName)}
}

// NewTracerProvider exports spans over OTLP/HTTP when enabled and falls back
// to a noop tracer otherwise.
func NewTracerProvider(ctx context.Context, cfg TracingConfig) (*TracerProvider, error) {
	if !cfg.Enabled {
		return NoopTracer(), nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "venturefit"
	}
	if cfg.SampleRate <= 0 || cfg.SampleRate > 1.0 {
		cfg.SampleRate = 1.0
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "localhost:4318"
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	)
	otel.SetTracerProvider(provider)

	return &TracerProvider{
		provider: provider,
		tracer:   provider.Tracer(instrumentationName),
	}, nil
}

func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp == nil || tp.provider == nil {
		return nil
	}
	return tp.provider.Shutdown(ctx)
}

func (tp *TracerProvider) Tracer() trace.Tracer {
	if tp == nil {
		return noop.NewTracerProvider().Tracer(instrumentationName)
	}
	return tp.tracer
}

// StartSpan is safe to call on a nil provider.
func (tp *TracerProvider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tp.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// Span names.
const (
	SpanSubmit      = "venturefit.submission.submit"
	SpanScore       = "venturefit.scoring.score"
	SpanMatch       = "venturefit.matching.match"
	SpanPersist     = "venturefit.submission.persist"
	SpanEnrich      = "venturefit.enrichment.publish"
	SpanRematch     = "venturefit.backfill.rematch"
	SpanHTTPRequest = "venturefit.http.request"
)

// Attribute keys.
const (
	AttrSessionID    = "venturefit.session_id"
	AttrResultID     = "venturefit.result_id"
	AttrOperatorType = "venturefit.operator_type"
	AttrVentureCount = "venturefit.venture_count"
	AttrIdempotent   = "venturefit.idempotent"
)

func SessionAttrs(sessionID string) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String(AttrSessionID, sessionID)}
}
