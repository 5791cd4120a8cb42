package main

import (
	"context"
	"errors"

	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/observability"
)

type shutdownFunc func(context.Context) error

// initTelemetry installs the OTLP meter and tracer providers when enabled and
// returns the stage metrics to build pipelines with.
func initTelemetry(ctx context.Context, cfg *AppConfig, log *logger.Logger) (*observability.StageMetrics, shutdownFunc, error) {
	if !cfg.Telemetry.Enabled {
		return observability.NoopStageMetrics(), func(context.Context) error { return nil }, nil
	}

	mc := observability.DefaultMeterConfig(cfg.Name)
	mc.ServiceVersion = cfg.Version
	mc.Environment = cfg.Environment
	mc.Endpoint = cfg.Telemetry.Endpoint
	mc.Insecure = cfg.Telemetry.Insecure
	mc.Interval = cfg.Telemetry.ExportInterval
	mp, err := observability.InitMeter(ctx, mc)
	if err != nil {
		return nil, nil, err
	}

	tc := observability.DefaultTracerConfig(cfg.Name)
	tc.ServiceVersion = cfg.Version
	tc.Environment = cfg.Environment
	tc.Endpoint = cfg.Telemetry.Endpoint
	tc.Insecure = cfg.Telemetry.Insecure
	tc.SampleRate = cfg.Telemetry.SampleRate
	tp, err := observability.InitTracer(ctx, tc)
	if err != nil {
		_ = mp.Shutdown(ctx)
		return nil, nil, err
	}

	metrics, err := observability.NewStageMetrics(observability.Meter("flowkit"))
	if err != nil {
		_ = mp.Shutdown(ctx)
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}

	log.Info("telemetry enabled", logger.Fields("endpoint", cfg.Telemetry.Endpoint))
	return metrics, func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}
