// Package metrics defines the metric and tracing contracts used by the pipeline.
package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
)

// MetricRecorder is an abstract interface for recording pipeline metrics.
type MetricRecorder interface {
	// RecordItemSuccess counts a succeeded item and observes its call duration.
	RecordItemSuccess(ctx context.Context, pass model.Pass, duration time.Duration)
	// RecordItemFailure counts a failed attempt. kind is "transient" or "permanent".
	RecordItemFailure(ctx context.Context, pass model.Pass, kind string, duration time.Duration)
	// RecordItemSkip counts an item moved to the Skipped set.
	RecordItemSkip(ctx context.Context, reason string)
	// RecordRunEnd records the final summary of a run.
	RecordRunEnd(ctx context.Context, summary *model.RunSummary)
	// Flush exports the collected metrics, if the backend needs an explicit export.
	Flush(ctx context.Context) error
}
