package metrics

import (
	"context"

	"go.uber.org/fx"

	config "github.com/tigerroll/nameforge/pkg/batch/core/config"
	metrics "github.com/tigerroll/nameforge/pkg/batch/core/metrics"
	logger "github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

// NewMetricRecorder returns a no-op recorder unless metrics are enabled. Enabled metrics always go to
// a PrometheusRecorder; a configured OTLP endpoint adds an OpenTelemetryRecorder next to it.
func NewMetricRecorder(lc fx.Lifecycle, cfg *config.Config) (metrics.MetricRecorder, error) {
	mc := cfg.Nameforge.Metrics
	if !mc.Enabled {
		return metrics.NewNoOpMetricRecorder(), nil
	}
	prom := NewPrometheusRecorder(mc.TextfilePath)
	if mc.OTLPEndpoint == "" {
		return prom, nil
	}

	otelRecorder, err := NewOpenTelemetryRecorder(context.Background(), mc, cfg.Nameforge.Tracing.ServiceName)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := otelRecorder.Shutdown(ctx); err != nil {
				logger.Warnf("Metrics: OTLP shutdown failed: %v", err)
			}
			return nil
		},
	})
	return MultiRecorder{prom, otelRecorder}, nil
}

// NewTracer returns an OpenTelemetryTracer when tracing is enabled, otherwise a no-op tracer.
// The tracer is shut down when the application stops.
func NewTracer(lc fx.Lifecycle, cfg *config.Config) (metrics.Tracer, error) {
	tc := cfg.Nameforge.Tracing
	if !tc.Enabled {
		return metrics.NewNoOpTracer(), nil
	}
	tracer, err := NewOpenTelemetryTracer(context.Background(), tc)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := tracer.Shutdown(ctx); err != nil {
				logger.Warnf("Tracer: shutdown failed: %v", err)
			}
			return nil
		},
	})
	return tracer, nil
}

// Module is an Fx module that provides the MetricRecorder and the Tracer.
var Module = fx.Options(
	fx.Provide(NewMetricRecorder),
	fx.Provide(NewTracer),
)
