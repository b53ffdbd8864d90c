package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
)

// NoOpMetricRecorder discards all metrics.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a NoOpMetricRecorder.
func NewNoOpMetricRecorder() *NoOpMetricRecorder {
	return &NoOpMetricRecorder{}
}

func (r *NoOpMetricRecorder) RecordItemSuccess(ctx context.Context, pass model.Pass, duration time.Duration) {
}
func (r *NoOpMetricRecorder) RecordItemFailure(ctx context.Context, pass model.Pass, kind string, duration time.Duration) {
}
func (r *NoOpMetricRecorder) RecordItemSkip(ctx context.Context, reason string)           {}
func (r *NoOpMetricRecorder) RecordRunEnd(ctx context.Context, summary *model.RunSummary) {}
func (r *NoOpMetricRecorder) Flush(ctx context.Context) error                             { return nil }

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)

// NoOpTracer creates no spans.
type NoOpTracer struct{}

// NewNoOpTracer creates a NoOpTracer.
func NewNoOpTracer() *NoOpTracer {
	return &NoOpTracer{}
}

func (t *NoOpTracer) StartRunSpan(ctx context.Context, runID string) (context.Context, func()) {
	return ctx, func() {}
}
func (t *NoOpTracer) StartItemSpan(ctx context.Context, item model.WorkItem, pass model.Pass) (context.Context, func()) {
	return ctx, func() {}
}
func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}
func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
}
func (t *NoOpTracer) Shutdown(ctx context.Context) error { return nil }

var _ Tracer = (*NoOpTracer)(nil)
