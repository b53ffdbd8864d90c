package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	config "github.com/tigerroll/nameforge/pkg/batch/core/config"
	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/nameforge/pkg/batch/core/metrics"
	logger "github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

const meterName = "github.com/tigerroll/nameforge/pkg/batch"

var callDurationBuckets = []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160}

// OpenTelemetryRecorder pushes pipeline metrics through an OpenTelemetry MeterProvider.
// Run gauges are observed from the last recorded summary.
type OpenTelemetryRecorder struct {
	items        metric.Int64Counter
	failures     metric.Int64Counter
	skips        metric.Int64Counter
	callDuration metric.Float64Histogram

	mu   sync.Mutex
	last *model.RunSummary

	flush    func(ctx context.Context) error
	shutdown func(ctx context.Context) error
}

// NewOpenTelemetryRecorder exports metrics over OTLP to cfg.OTLPEndpoint using a periodic reader.
func NewOpenTelemetryRecorder(ctx context.Context, cfg config.MetricsConfig, serviceName string) (*OpenTelemetryRecorder, error) {
	exporter, err := newMetricExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", serviceName)))
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)
	r, err := NewOpenTelemetryRecorderWithProvider(mp, mp.ForceFlush, mp.Shutdown)
	if err != nil {
		_ = mp.Shutdown(ctx)
		return nil, err
	}
	logger.Infof("Metrics: exporting OTLP metrics to %s.", cfg.OTLPEndpoint)
	return r, nil
}

func newMetricExporter(ctx context.Context, cfg config.MetricsConfig) (sdkmetric.Exporter, error) {
	switch cfg.OTLPProtocol {
	case "http":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("create OTLP/HTTP metric exporter: %w", err)
		}
		return exporter, nil
	default:
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("create OTLP/gRPC metric exporter: %w", err)
		}
		return exporter, nil
	}
}

// NewOpenTelemetryRecorderWithProvider registers the instruments on mp. flush and shutdown may be nil.
func NewOpenTelemetryRecorderWithProvider(mp metric.MeterProvider, flush, shutdown func(ctx context.Context) error) (*OpenTelemetryRecorder, error) {
	mt := mp.Meter(meterName)
	r := &OpenTelemetryRecorder{flush: flush, shutdown: shutdown}

	var err error
	if r.items, err = mt.Int64Counter("nameforge.items",
		metric.WithDescription("Items resolved by pass and result"),
		metric.WithUnit("{item}"),
	); err != nil {
		return nil, fmt.Errorf("create nameforge.items: %w", err)
	}
	if r.failures, err = mt.Int64Counter("nameforge.item_failures",
		metric.WithDescription("Failed enrichment attempts by pass and error kind"),
		metric.WithUnit("{attempt}"),
	); err != nil {
		return nil, fmt.Errorf("create nameforge.item_failures: %w", err)
	}
	if r.skips, err = mt.Int64Counter("nameforge.items_skipped",
		metric.WithDescription("Items moved to the skipped set"),
		metric.WithUnit("{item}"),
	); err != nil {
		return nil, fmt.Errorf("create nameforge.items_skipped: %w", err)
	}
	if r.callDuration, err = mt.Float64Histogram("nameforge.enrichment.call_duration",
		metric.WithDescription("Duration of enrichment calls in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(callDurationBuckets...),
	); err != nil {
		return nil, fmt.Errorf("create nameforge.enrichment.call_duration: %w", err)
	}

	remaining, err := mt.Int64ObservableGauge("nameforge.run.remaining",
		metric.WithDescription("Items left for future runs after the last run"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create nameforge.run.remaining: %w", err)
	}
	enriched, err := mt.Int64ObservableGauge("nameforge.manifest.items",
		metric.WithDescription("Items with a durably stored record"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create nameforge.manifest.items: %w", err)
	}
	duration, err := mt.Float64ObservableGauge("nameforge.run.duration",
		metric.WithDescription("Wall time of the last run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create nameforge.run.duration: %w", err)
	}

	_, err = mt.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		r.mu.Lock()
		summary := r.last
		r.mu.Unlock()
		if summary == nil {
			return nil
		}
		attrs := metric.WithAttributes(attribute.String("run.id", summary.RunID))
		o.ObserveInt64(remaining, int64(summary.Remaining), attrs)
		o.ObserveInt64(enriched, int64(summary.Cumulative.TotalEnriched), attrs)
		o.ObserveFloat64(duration, summary.Duration().Seconds(), attrs)
		return nil
	}, remaining, enriched, duration)
	if err != nil {
		return nil, fmt.Errorf("register run gauges callback: %w", err)
	}
	return r, nil
}

// RecordItemSuccess records a succeeded item.
func (r *OpenTelemetryRecorder) RecordItemSuccess(ctx context.Context, pass model.Pass, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("pass", string(pass)), attribute.String("result", "succeeded"))
	r.items.Add(ctx, 1, attrs)
	r.callDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordItemFailure records a failed item.
func (r *OpenTelemetryRecorder) RecordItemFailure(ctx context.Context, pass model.Pass, kind string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("pass", string(pass)), attribute.String("result", "failed"))
	r.items.Add(ctx, 1, attrs)
	r.callDuration.Record(ctx, duration.Seconds(), attrs)
	r.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("pass", string(pass)), attribute.String("kind", kind)))
}

// RecordItemSkip records an item moved to the skipped set.
func (r *OpenTelemetryRecorder) RecordItemSkip(ctx context.Context, reason string) {
	r.skips.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordRunEnd keeps the summary for the run gauges.
func (r *OpenTelemetryRecorder) RecordRunEnd(ctx context.Context, summary *model.RunSummary) {
	r.mu.Lock()
	r.last = summary
	r.mu.Unlock()
}

// Flush forces the provider to export what it has collected.
func (r *OpenTelemetryRecorder) Flush(ctx context.Context) error {
	if r.flush == nil {
		return nil
	}
	if err := r.flush(ctx); err != nil {
		return fmt.Errorf("flush OTLP metrics: %w", err)
	}
	return nil
}

// Shutdown stops the exporter.
func (r *OpenTelemetryRecorder) Shutdown(ctx context.Context) error {
	if r.shutdown == nil {
		return nil
	}
	return r.shutdown(ctx)
}

var _ metrics.MetricRecorder = (*OpenTelemetryRecorder)(nil)
