// Package observability provides OpenTelemetry tracing and metrics for
// flowkit pipelines.
//
// Stage metrics:
//
//	metrics, err := observability.NewStageMetrics(observability.Meter("flowkit"))
//	metrics.RecordIn(ctx, "words", "split")
//
// When no meter provider is configured the global noop provider is used,
// so instruments are always safe to call.
//
// Exporters (OTLP over HTTP):
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("flowkit"))
//	defer mp.Shutdown(ctx)
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("flowkit"))
//	defer tp.Shutdown(ctx)
package observability
