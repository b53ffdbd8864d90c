package metrics

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"

	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/nameforge/pkg/batch/core/metrics"
)

// MultiRecorder fans every call out to each recorder in order.
type MultiRecorder []metrics.MetricRecorder

func (m MultiRecorder) RecordItemSuccess(ctx context.Context, pass model.Pass, duration time.Duration) {
	for _, r := range m {
		r.RecordItemSuccess(ctx, pass, duration)
	}
}

func (m MultiRecorder) RecordItemFailure(ctx context.Context, pass model.Pass, kind string, duration time.Duration) {
	for _, r := range m {
		r.RecordItemFailure(ctx, pass, kind, duration)
	}
}

func (m MultiRecorder) RecordItemSkip(ctx context.Context, reason string) {
	for _, r := range m {
		r.RecordItemSkip(ctx, reason)
	}
}

func (m MultiRecorder) RecordRunEnd(ctx context.Context, summary *model.RunSummary) {
	for _, r := range m {
		r.RecordRunEnd(ctx, summary)
	}
}

// Flush flushes every recorder and returns all of their errors.
func (m MultiRecorder) Flush(ctx context.Context) error {
	var result *multierror.Error
	for _, r := range m {
		if err := r.Flush(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

var _ metrics.MetricRecorder = MultiRecorder(nil)
