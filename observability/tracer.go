package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/flowkit/logger"
)

const instrumentationName = "github.com/kbukum/flowkit"

// Span names.
const (
	SpanSplit       = "flowkit.split"
	SpanJoinHandler = "flowkit.join.handler"
)

// Attribute keys shared by spans and metric instruments.
const (
	AttrServiceName = attribute.Key("service.name")
	AttrPipeline    = attribute.Key("flowkit.pipeline")
	AttrStage       = attribute.Key("flowkit.stage")
	AttrParentID    = attribute.Key("flowkit.parent.id")
	AttrChildren    = attribute.Key("flowkit.children")
	AttrFailed      = attribute.Key("flowkit.failed")
	AttrErrorCode   = attribute.Key("error.code")

	attrServiceVersion = attribute.Key("service.version")
	attrEnvironment    = attribute.Key("deployment.environment")
)

// TracerConfig configures OTLP trace export.
type TracerConfig struct {
	Exporter `yaml:",inline" mapstructure:",squash"`
	// SampleRate is the fraction of root spans kept, 0 to 1.
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// DefaultTracerConfig samples everything and exports to a local collector.
func DefaultTracerConfig(service string) TracerConfig {
	return TracerConfig{Exporter: defaultExporter(service), SampleRate: 1}
}

// InitTracer installs an OTLP/HTTP batch-exporting tracer provider and the
// W3C trace-context and baggage propagators as globals. The caller shuts
// the provider down on exit.
func InitTracer(ctx context.Context, cfg TracerConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(cfg.resource()),
		sdktrace.WithSampler(sdktrace.ParentBased(samplerFor(cfg.SampleRate))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracer initialized", logger.Fields(
		"endpoint", cfg.Endpoint,
		"sample_rate", cfg.SampleRate,
	))
	return tp, nil
}

func samplerFor(rate float64) sdktrace.Sampler {
	if rate >= 1 {
		return sdktrace.AlwaysSample()
	}
	if rate <= 0 {
		return sdktrace.NeverSample()
	}
	return sdktrace.TraceIDRatioBased(rate)
}

// StartSpan starts a span on the flowkit tracer of the global provider.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// Annotate adds attributes to the span in ctx, if it is recording.
func Annotate(ctx context.Context, attrs ...attribute.KeyValue) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attrs...)
	}
}

// Fail records err on the span in ctx and marks the span as failed.
func Fail(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
