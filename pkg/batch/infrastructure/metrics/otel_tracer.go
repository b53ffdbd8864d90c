package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	config "github.com/tigerroll/nameforge/pkg/batch/core/config"
	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/nameforge/pkg/batch/core/metrics"
	logger "github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

const tracerName = "github.com/tigerroll/nameforge/pkg/batch"

// OpenTelemetryTracer is an implementation of metrics.Tracer using OpenTelemetry.
type OpenTelemetryTracer struct {
	tracer   trace.Tracer
	shutdown func(ctx context.Context) error
}

// NewOpenTelemetryTracer exports spans over OTLP when an endpoint is configured and otherwise
// uses the global tracer provider.
func NewOpenTelemetryTracer(ctx context.Context, cfg config.TracingConfig) (*OpenTelemetryTracer, error) {
	if cfg.OTLPEndpoint == "" {
		logger.Debugf("Tracer: no OTLP endpoint configured, using the global tracer provider.")
		return NewOpenTelemetryTracerWithProvider(otel.GetTracerProvider(), nil), nil
	}

	exporter, err := newSpanExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", cfg.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	logger.Infof("Tracer: exporting spans to %s.", cfg.OTLPEndpoint)
	return NewOpenTelemetryTracerWithProvider(tp, tp.Shutdown), nil
}

func newSpanExporter(ctx context.Context, cfg config.TracingConfig) (sdktrace.SpanExporter, error) {
	var (
		exporter sdktrace.SpanExporter
		err      error
	)
	if cfg.Protocol == "http" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	} else {
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	return exporter, nil
}

// NewOpenTelemetryTracerWithProvider creates a tracer over tp. shutdown may be nil.
func NewOpenTelemetryTracerWithProvider(tp trace.TracerProvider, shutdown func(ctx context.Context) error) *OpenTelemetryTracer {
	return &OpenTelemetryTracer{tracer: tp.Tracer(tracerName), shutdown: shutdown}
}

// StartRunSpan starts a span covering a whole run.
func (t *OpenTelemetryTracer) StartRunSpan(ctx context.Context, runID string) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "nameforge.run", trace.WithAttributes(attribute.String("run.id", runID)))
	return ctx, func() { span.End() }
}

// StartItemSpan starts a span for one item attempt.
func (t *OpenTelemetryTracer) StartItemSpan(ctx context.Context, item model.WorkItem, pass model.Pass) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "nameforge.item", trace.WithAttributes(
		attribute.String("item.id", item.ID),
		attribute.Int("item.rank", item.Rank),
		attribute.String("item.pass", string(pass)),
	))
	return ctx, func() { span.End() }
}

// RecordError records an error in the current span.
func (t *OpenTelemetryTracer) RecordError(ctx context.Context, module string, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, trace.WithAttributes(attribute.String("module", module)))
	span.SetStatus(codes.Error, err.Error())
}

// RecordEvent records an event in the current span.
func (t *OpenTelemetryTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprint(val)))
		}
	}
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// Shutdown flushes pending spans.
func (t *OpenTelemetryTracer) Shutdown(ctx context.Context) error {
	if t.shutdown == nil {
		return nil
	}
	return t.shutdown(ctx)
}

var _ metrics.Tracer = (*OpenTelemetryTracer)(nil)
