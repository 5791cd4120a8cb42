package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/flowkit/logger"
)

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(config.resource()),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metric instrument names.
const (
	MetricItemsIn       = "flowkit.stage.items.in"
	MetricItemsOut      = "flowkit.stage.items.out"
	MetricStageErrors   = "flowkit.stage.errors"
	MetricStageDuration = "flowkit.stage.duration"
	MetricJoinsOpen     = "flowkit.join.open"
	MetricJoinsEmitted  = "flowkit.join.emitted"
)

// StageMetrics holds the instruments recorded by pipeline stages.
type StageMetrics struct {
	itemsIn   metric.Int64Counter
	itemsOut  metric.Int64Counter
	errors    metric.Int64Counter
	duration  metric.Float64Histogram
	joinsOpen metric.Int64UpDownCounter
	joins     metric.Int64Counter
}

// NewStageMetrics creates stage instruments on the given meter.
func NewStageMetrics(meter metric.Meter) (*StageMetrics, error) {
	itemsIn, err := meter.Int64Counter(MetricItemsIn,
		metric.WithDescription("Items admitted into a stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricItemsIn, err)
	}

	itemsOut, err := meter.Int64Counter(MetricItemsOut,
		metric.WithDescription("Items emitted by a stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricItemsOut, err)
	}

	errorTotal, err := meter.Int64Counter(MetricStageErrors,
		metric.WithDescription("Failures reported by a stage, by error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricStageErrors, err)
	}

	duration, err := meter.Float64Histogram(MetricStageDuration,
		metric.WithDescription("Time spent handling one item in a stage"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricStageDuration, err)
	}

	joinsOpen, err := meter.Int64UpDownCounter(MetricJoinsOpen,
		metric.WithDescription("Parents with an aggregation in progress"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s gauge: %w", MetricJoinsOpen, err)
	}

	joins, err := meter.Int64Counter(MetricJoinsEmitted,
		metric.WithDescription("Completed parent aggregations"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricJoinsEmitted, err)
	}

	return &StageMetrics{
		itemsIn:   itemsIn,
		itemsOut:  itemsOut,
		errors:    errorTotal,
		duration:  duration,
		joinsOpen: joinsOpen,
		joins:     joins,
	}, nil
}

// NoopStageMetrics returns instruments that record nothing.
func NoopStageMetrics() *StageMetrics {
	m, _ := NewStageMetrics(noop.NewMeterProvider().Meter("flowkit"))
	return m
}

func stageAttrs(pipeline, stage string) attribute.Set {
	return attribute.NewSet(AttrPipeline.String(pipeline), AttrStage.String(stage))
}

// RecordIn counts one item admitted into a stage.
func (m *StageMetrics) RecordIn(ctx context.Context, pipeline, stage string) {
	m.itemsIn.Add(ctx, 1, metric.WithAttributeSet(stageAttrs(pipeline, stage)))
}

// RecordOut counts n items emitted by a stage.
func (m *StageMetrics) RecordOut(ctx context.Context, pipeline, stage string, n int) {
	if n <= 0 {
		return
	}
	m.itemsOut.Add(ctx, int64(n), metric.WithAttributeSet(stageAttrs(pipeline, stage)))
}

// RecordError counts a failure reported by a stage.
func (m *StageMetrics) RecordError(ctx context.Context, pipeline, stage, code string) {
	m.errors.Add(ctx, 1, metric.WithAttributes(
		AttrPipeline.String(pipeline),
		AttrStage.String(stage),
		AttrErrorCode.String(code),
	))
}

// RecordDuration records the time spent on one item.
func (m *StageMetrics) RecordDuration(ctx context.Context, pipeline, stage string, d time.Duration) {
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributeSet(stageAttrs(pipeline, stage)))
}

// JoinOpened marks a new in-progress aggregation.
func (m *StageMetrics) JoinOpened(ctx context.Context, pipeline, stage string) {
	m.joinsOpen.Add(ctx, 1, metric.WithAttributeSet(stageAttrs(pipeline, stage)))
}

// JoinCompleted marks an aggregation as complete and emitted.
func (m *StageMetrics) JoinCompleted(ctx context.Context, pipeline, stage string) {
	attrs := metric.WithAttributeSet(stageAttrs(pipeline, stage))
	m.joinsOpen.Add(ctx, -1, attrs)
	m.joins.Add(ctx, 1, attrs)
}
