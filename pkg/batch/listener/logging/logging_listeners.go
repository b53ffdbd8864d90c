package logging

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	port "github.com/tigerroll/nameforge/pkg/batch/core/application/port"
	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

// --- Run Listener ---

type LoggingRunListener struct{}

func NewLoggingRunListener() *LoggingRunListener {
	return &LoggingRunListener{}
}

func (l *LoggingRunListener) BeforeRun(ctx context.Context, summary *model.RunSummary) {
	logger.Infof("Run %s: starting with %d item(s) selected, %d remaining after this batch.", summary.RunID, summary.Selected, summary.Remaining)
}

func (l *LoggingRunListener) BeforeRetryPass(ctx context.Context, summary *model.RunSummary, candidates int) {
	logger.Infof("Run %s: retry pass over %d failure ledger entr(ies).", summary.RunID, candidates)
}

func (l *LoggingRunListener) AfterRun(ctx context.Context, summary *model.RunSummary) {
	logger.Infof("Run %s: finished in %s. Succeeded: %d, Failed: %d, Skipped: %d, Retry pass: %d/%d succeeded.",
		summary.RunID, summary.Duration().Round(time.Millisecond), summary.Succeeded, summary.Failed, summary.Skipped,
		summary.RetryPassSucceeded, summary.RetryPassAttempted)
	logger.Infof("Run %s: cumulative enriched: %s, skipped: %s, failure ledger: %s, remaining: %s.",
		summary.RunID,
		humanize.Comma(int64(summary.Cumulative.TotalEnriched)),
		humanize.Comma(int64(summary.Cumulative.TotalSkipped)),
		humanize.Comma(int64(summary.Cumulative.LedgerSize)),
		humanize.Comma(int64(summary.Remaining)))
	if summary.StoppedEarly {
		logger.Warnf("Run %s: stopped early: %s", summary.RunID, summary.StopReason)
	}
}

var _ port.RunListener = (*LoggingRunListener)(nil)

// --- Item Listener ---

type LoggingItemListener struct {
	maxRetries int
}

func NewLoggingItemListener(maxRetries int) *LoggingItemListener {
	return &LoggingItemListener{maxRetries: maxRetries}
}

func (l *LoggingItemListener) BeforeItem(ctx context.Context, event model.ItemEvent) {
	logger.Infof("[%s] Start item '%s' (rank %d, index %d).", event.Pass, event.Item.ID, event.Item.Rank, event.Index)
}

func (l *LoggingItemListener) OnItemSuccess(ctx context.Context, event model.ItemEvent) {
	logger.Infof("[%s] Item '%s' succeeded in %s.", event.Pass, event.Item.ID, event.Duration.Round(time.Millisecond))
}

func (l *LoggingItemListener) OnItemFailure(ctx context.Context, event model.ItemEvent) {
	kind := "transient"
	if exception.IsPermanentEnrichmentError(event.Err) {
		kind = "permanent"
	}
	logger.Warnf("[%s] Item '%s' failed (%s, retries %d/%d): %s", event.Pass, event.Item.ID, kind, event.Retries, l.maxRetries, exception.ExtractErrorMessage(event.Err))
}

func (l *LoggingItemListener) OnItemSkipped(ctx context.Context, event model.ItemEvent) {
	logger.Warnf("Item '%s' exhausted its retry budget (%d) and was moved to the skipped set.", event.Item.ID, event.Retries)
}

var _ port.ItemListener = (*LoggingItemListener)(nil)

// --- Progress Listener ---

type LoggingProgressListener struct{}

func NewLoggingProgressListener() *LoggingProgressListener {
	return &LoggingProgressListener{}
}

func (l *LoggingProgressListener) OnProgress(ctx context.Context, p model.Progress) {
	logger.Infof("Progress: %d/%d processed (%d remaining), success rate %.1f%%, elapsed %s, ETA %s.",
		p.Processed, p.Total, p.Remaining(), p.SuccessRate(),
		p.Elapsed.Round(time.Second), p.EstimatedIn.Round(time.Second))
}

var _ port.ProgressListener = (*LoggingProgressListener)(nil)
