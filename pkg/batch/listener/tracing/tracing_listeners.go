package tracing

import (
	"context"

	port "github.com/tigerroll/nameforge/pkg/batch/core/application/port"
	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	"github.com/tigerroll/nameforge/pkg/batch/core/metrics"
)

// TracingItemListener annotates the item span started by the Driver.
type TracingItemListener struct {
	tracer metrics.Tracer
}

func NewTracingItemListener(tracer metrics.Tracer) *TracingItemListener {
	return &TracingItemListener{tracer: tracer}
}

func (l *TracingItemListener) BeforeItem(ctx context.Context, event model.ItemEvent) {}

func (l *TracingItemListener) OnItemSuccess(ctx context.Context, event model.ItemEvent) {
	l.tracer.RecordEvent(ctx, "item.succeeded", map[string]interface{}{"duration_ms": int(event.Duration.Milliseconds())})
}

func (l *TracingItemListener) OnItemFailure(ctx context.Context, event model.ItemEvent) {
	if event.Err != nil {
		l.tracer.RecordError(ctx, "enrich", event.Err)
	}
	l.tracer.RecordEvent(ctx, "item.failed", map[string]interface{}{"retries": event.Retries})
}

func (l *TracingItemListener) OnItemSkipped(ctx context.Context, event model.ItemEvent) {
	l.tracer.RecordEvent(ctx, "item.skipped", map[string]interface{}{"retries": event.Retries})
}

var _ port.ItemListener = (*TracingItemListener)(nil)

// TracingRunListener annotates the run span started by the Driver.
type TracingRunListener struct {
	tracer metrics.Tracer
}

func NewTracingRunListener(tracer metrics.Tracer) *TracingRunListener {
	return &TracingRunListener{tracer: tracer}
}

func (l *TracingRunListener) BeforeRun(ctx context.Context, summary *model.RunSummary) {
	l.tracer.RecordEvent(ctx, "run.selected", map[string]interface{}{
		"selected":  summary.Selected,
		"remaining": summary.Remaining,
	})
}

func (l *TracingRunListener) BeforeRetryPass(ctx context.Context, summary *model.RunSummary, candidates int) {
	l.tracer.RecordEvent(ctx, "run.retry_pass", map[string]interface{}{"candidates": candidates})
}

func (l *TracingRunListener) AfterRun(ctx context.Context, summary *model.RunSummary) {
	l.tracer.RecordEvent(ctx, "run.finished", map[string]interface{}{
		"succeeded":     summary.Succeeded,
		"failed":        summary.Failed,
		"skipped":       summary.Skipped,
		"stopped_early": summary.StoppedEarly,
	})
}

var _ port.RunListener = (*TracingRunListener)(nil)
