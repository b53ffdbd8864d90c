package test

import (
	"context"
	"fmt"
	"sync"

	port "github.com/tigerroll/nameforge/pkg/batch/core/application/port"
	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
)

// RecordingListener records every listener callback as a short string, e.g. "success:alice".
type RecordingListener struct {
	mu        sync.Mutex
	events    []string
	summaries []*model.RunSummary
	progress  []model.Progress
}

var (
	_ port.RunListener      = (*RecordingListener)(nil)
	_ port.ItemListener     = (*RecordingListener)(nil)
	_ port.ProgressListener = (*RecordingListener)(nil)
)

// NewRecordingListener creates an empty RecordingListener.
func NewRecordingListener() *RecordingListener {
	return &RecordingListener{}
}

func (l *RecordingListener) add(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *RecordingListener) BeforeRun(ctx context.Context, summary *model.RunSummary) {
	l.add("run:start")
}

func (l *RecordingListener) BeforeRetryPass(ctx context.Context, summary *model.RunSummary, candidates int) {
	l.add("retrypass:%d", candidates)
}

func (l *RecordingListener) AfterRun(ctx context.Context, summary *model.RunSummary) {
	l.add("run:end")
	l.mu.Lock()
	l.summaries = append(l.summaries, summary)
	l.mu.Unlock()
}

func (l *RecordingListener) BeforeItem(ctx context.Context, event model.ItemEvent) {
	l.add("start:%s", event.Item.ID)
}

func (l *RecordingListener) OnItemSuccess(ctx context.Context, event model.ItemEvent) {
	l.add("success:%s", event.Item.ID)
}

func (l *RecordingListener) OnItemFailure(ctx context.Context, event model.ItemEvent) {
	l.add("failure:%s:%d", event.Item.ID, event.Retries)
}

func (l *RecordingListener) OnItemSkipped(ctx context.Context, event model.ItemEvent) {
	l.add("skipped:%s", event.Item.ID)
}

func (l *RecordingListener) OnProgress(ctx context.Context, progress model.Progress) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.progress = append(l.progress, progress)
}

// Events returns the recorded events in order.
func (l *RecordingListener) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// Summaries returns the summaries passed to AfterRun.
func (l *RecordingListener) Summaries() []*model.RunSummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*model.RunSummary(nil), l.summaries...)
}

// Progress returns the progress reports received.
func (l *RecordingListener) Progress() []model.Progress {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Progress(nil), l.progress...)
}
