package metrics

import (
	"context"

	port "github.com/tigerroll/nameforge/pkg/batch/core/application/port"
	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	"github.com/tigerroll/nameforge/pkg/batch/core/metrics"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

// SkipReasonRetriesExhausted labels items skipped after using their retry budget.
const SkipReasonRetriesExhausted = "retries_exhausted"

// --- Item Listener ---

type MetricsItemListener struct {
	recorder metrics.MetricRecorder
}

func NewMetricsItemListener(recorder metrics.MetricRecorder) *MetricsItemListener {
	return &MetricsItemListener{recorder: recorder}
}

func (l *MetricsItemListener) BeforeItem(ctx context.Context, event model.ItemEvent) {}

func (l *MetricsItemListener) OnItemSuccess(ctx context.Context, event model.ItemEvent) {
	l.recorder.RecordItemSuccess(ctx, event.Pass, event.Duration)
}

func (l *MetricsItemListener) OnItemFailure(ctx context.Context, event model.ItemEvent) {
	kind := "transient"
	if exception.IsPermanentEnrichmentError(event.Err) {
		kind = "permanent"
	}
	l.recorder.RecordItemFailure(ctx, event.Pass, kind, event.Duration)
}

func (l *MetricsItemListener) OnItemSkipped(ctx context.Context, event model.ItemEvent) {
	l.recorder.RecordItemSkip(ctx, SkipReasonRetriesExhausted)
}

var _ port.ItemListener = (*MetricsItemListener)(nil)

// --- Run Listener ---

// MetricsRunListener records the summary and exports the collected metrics when a run ends.
type MetricsRunListener struct {
	recorder metrics.MetricRecorder
}

func NewMetricsRunListener(recorder metrics.MetricRecorder) *MetricsRunListener {
	return &MetricsRunListener{recorder: recorder}
}

func (l *MetricsRunListener) BeforeRun(ctx context.Context, summary *model.RunSummary) {}

func (l *MetricsRunListener) BeforeRetryPass(ctx context.Context, summary *model.RunSummary, candidates int) {
}

func (l *MetricsRunListener) AfterRun(ctx context.Context, summary *model.RunSummary) {
	l.recorder.RecordRunEnd(ctx, summary)
	if err := l.recorder.Flush(ctx); err != nil {
		logger.Warnf("Metrics: export failed: %v", err)
	}
}

var _ port.RunListener = (*MetricsRunListener)(nil)
