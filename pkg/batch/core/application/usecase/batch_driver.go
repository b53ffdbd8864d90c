package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"

	port "github.com/tigerroll/nameforge/pkg/batch/core/application/port"
	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	retry "github.com/tigerroll/nameforge/pkg/batch/engine/step/retry"
	skip "github.com/tigerroll/nameforge/pkg/batch/engine/step/skip"
	exception "github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

// Reasons reported in RunSummary.StopReason.
const (
	StopReasonCanceled    = "canceled"
	StopReasonMaxDuration = "max duration reached"
	StopReasonStorage     = "storage failure"
)

// BatchDriver is the core state machine of the pipeline. Items move
// Pending -> InProgress -> Succeeded | Failed, and Failed items move to Skipped once their
// retry budget is used up. Processing is strictly sequential.
type BatchDriver struct {
	rc *RunContext
}

// NewBatchDriver creates a BatchDriver over rc.
func NewBatchDriver(rc *RunContext) *BatchDriver {
	return &BatchDriver{rc: rc}
}

var _ BatchLauncher = (*BatchDriver)(nil)

// indexedItem is a work item with its position in the source ordering.
type indexedItem struct {
	index int
	item  model.WorkItem
}

// batchRun holds the state of one invocation of Run.
type batchRun struct {
	rc         *RunContext
	skipPolicy skip.SkipPolicy
	items      []model.WorkItem
	byID       map[string]indexedItem
	cp         model.CheckpointState
	summary    *model.RunSummary

	// attempted and skippedIDs are the ids touched by this run, in order.
	attempted  []indexedItem
	seen       mapset.Set[string]
	skippedIDs []string
	processed  int
}

// Run implements BatchLauncher.
func (d *BatchDriver) Run(ctx context.Context, batchSize int) (*model.RunSummary, error) {
	rc := d.rc
	startedAt := rc.now()
	runID := uuid.NewString()

	runCtx, endSpan := rc.tracer().StartRunSpan(ctx, runID)
	defer endSpan()

	items, err := rc.Source.Load(runCtx)
	if err != nil {
		if !exception.IsDataSourceError(err) {
			err = exception.NewDataSourceError("failed to load work items", err)
		}
		logger.Errorf("Run %s: work item source unavailable: %v", runID, err)
		rc.tracer().RecordError(runCtx, "source", err)
		return nil, err
	}

	skipFactory := rc.SkipPolicyFactory
	if skipFactory == nil {
		skipFactory = skip.NewDefaultSkipPolicyFactory()
	}
	r := &batchRun{
		rc:         rc,
		skipPolicy: skipFactory.Create(rc.Stores.Ledger.MaxRetries()),
		items:      items,
		byID:       make(map[string]indexedItem, len(items)),
		seen:       mapset.NewThreadUnsafeSet[string](),
		summary: &model.RunSummary{
			RunID:     runID,
			StartedAt: startedAt,
		},
	}
	for i, item := range items {
		r.byID[item.ID] = indexedItem{index: i, item: item}
	}

	// State writes are not interrupted by cancellation; the run stops at the next item boundary instead.
	if err := r.prepare(context.WithoutCancel(runCtx)); err != nil {
		logger.Errorf("Run %s: failed to prepare durable state: %v", runID, err)
		rc.tracer().RecordError(runCtx, "driver", err)
		return nil, err
	}

	batch := r.selectBatch(batchSize)
	r.summary.Selected = len(batch)
	for _, l := range rc.RunListeners {
		l.BeforeRun(runCtx, r.summary)
	}

	if err := r.primaryPass(runCtx, batch); err != nil {
		return r.abort(runCtx, err)
	}
	if err := r.retryPass(runCtx); err != nil {
		return r.abort(runCtx, err)
	}
	return r.finish(runCtx), nil
}

// prepare loads durable state, reconciles it and opens a new run in the checkpoint.
func (r *batchRun) prepare(ctx context.Context) error {
	stores := r.rc.Stores
	if err := stores.LoadAll(ctx); err != nil {
		return err
	}
	cp, err := stores.Checkpoint.Load(ctx)
	if err != nil {
		return err
	}
	if cp.InProgress != "" {
		logger.Warnf("Checkpoint shows '%s' in progress from an interrupted run; it is unresolved and will be attempted again.", cp.InProgress)
		cp.InProgress = ""
	}
	cp.RunID = r.summary.RunID
	cp.Runs++
	r.cp = cp

	if err := r.reconcile(ctx); err != nil {
		return err
	}
	return stores.Checkpoint.Save(ctx, &r.cp)
}

// reconcile makes the manifest, the failure ledger and the Skipped set agree: an id in the
// manifest loses its ledger entry, and an exhausted ledger entry is moved to the Skipped set.
func (r *batchRun) reconcile(ctx context.Context) error {
	stores := r.rc.Stores
	for _, entry := range stores.Ledger.Entries() {
		if stores.Manifest.Contains(entry.ID) {
			logger.Infof("Reconcile: '%s' is in the manifest; removing its failure ledger entry.", entry.ID)
			if err := stores.Ledger.ClearSuccess(ctx, entry.ID); err != nil {
				return err
			}
			continue
		}
		ii, known := r.byID[entry.ID]
		if !known {
			logger.Warnf("Reconcile: failure ledger entry '%s' matches no work item; leaving it untouched.", entry.ID)
			continue
		}
		if stores.Ledger.IsExhausted(entry.ID) && !stores.Skipped.Contains(entry.ID) {
			if err := r.moveToSkipped(ctx, ii, model.PassPrimary, entry); err != nil {
				return err
			}
		}
	}
	return nil
}

// selectBatch returns remaining = items - manifest - skipped, in source order, capped at batchSize.
func (r *batchRun) selectBatch(batchSize int) []indexedItem {
	remaining := r.remaining()
	if batchSize > 0 && len(remaining) > batchSize {
		remaining = remaining[:batchSize]
	}
	return remaining
}

func (r *batchRun) remaining() []indexedItem {
	stores := r.rc.Stores
	var out []indexedItem
	for i, item := range r.items {
		if stores.Manifest.Contains(item.ID) || stores.Skipped.Contains(item.ID) {
			continue
		}
		out = append(out, indexedItem{index: i, item: item})
	}
	return out
}

func (r *batchRun) primaryPass(ctx context.Context, batch []indexedItem) error {
	started := r.rc.now()
	for i, ii := range batch {
		if r.shouldStop(ctx) {
			return nil
		}
		if err := r.processItem(ctx, ii, model.PassPrimary); err != nil {
			return err
		}
		r.processed++
		r.reportProgress(ctx, len(batch), started)

		if i < len(batch)-1 {
			// A canceled sleep is picked up by shouldStop on the next iteration.
			_ = r.rc.sleep(ctx, r.rc.PacingDelay)
		}
	}
	return nil
}

// retryPass gives every unresolved failure ledger entry one more attempt if its retry budget
// allows, including entries left by earlier runs outside this run's batch. Candidates run in
// source order. It is skipped when the run already stopped.
func (r *batchRun) retryPass(ctx context.Context) error {
	if !r.rc.RetryPass || r.summary.StoppedEarly {
		return nil
	}
	candidates := r.retryCandidates()
	if len(candidates) == 0 {
		return nil
	}

	for _, l := range r.rc.RunListeners {
		l.BeforeRetryPass(ctx, r.summary, len(candidates))
	}
	for _, ii := range candidates {
		if r.shouldStop(ctx) {
			return nil
		}
		_ = r.rc.sleep(ctx, r.rc.PacingDelay)
		if r.shouldStop(ctx) {
			return nil
		}
		r.summary.RetryPassAttempted++
		if err := r.processItem(ctx, ii, model.PassRetry); err != nil {
			return err
		}
	}
	return nil
}

func (r *batchRun) retryCandidates() []indexedItem {
	stores := r.rc.Stores
	var candidates []indexedItem
	for _, entry := range stores.Ledger.Entries() {
		ii, known := r.byID[entry.ID]
		if !known || stores.Manifest.Contains(entry.ID) || stores.Skipped.Contains(entry.ID) {
			continue
		}
		if r.skipPolicy.CanAttempt(entry) {
			candidates = append(candidates, ii)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].index < candidates[j].index })
	return candidates
}

// shouldStop reports whether the run must stop at this item boundary and records why.
func (r *batchRun) shouldStop(ctx context.Context) bool {
	if r.summary.StoppedEarly {
		return true
	}
	if ctx.Err() != nil {
		r.stop(StopReasonCanceled)
		return true
	}
	if r.rc.MaxDuration > 0 && r.rc.now().Sub(r.summary.StartedAt) >= r.rc.MaxDuration {
		r.stop(StopReasonMaxDuration)
		return true
	}
	return false
}

func (r *batchRun) stop(reason string) {
	if r.summary.StoppedEarly {
		return
	}
	logger.Warnf("Run %s stopping early: %s.", r.summary.RunID, reason)
	r.summary.StoppedEarly = true
	r.summary.StopReason = reason
}

// processItem runs one item through InProgress to Succeeded or Failed. A non-nil error is fatal:
// durable state could not be written and the item's transition was not completed.
func (r *batchRun) processItem(ctx context.Context, ii indexedItem, pass model.Pass) error {
	rc := r.rc
	id := ii.item.ID
	itemCtx, endSpan := rc.tracer().StartItemSpan(ctx, ii.item, pass)
	defer endSpan()
	storeCtx := context.WithoutCancel(itemCtx)

	event := model.ItemEvent{
		RunID: r.summary.RunID,
		Item:  ii.item,
		Index: ii.index,
		Pass:  pass,
		State: model.ItemInProgress,
	}
	if entry, ok := rc.Stores.Ledger.Get(id); ok {
		event.Retries = entry.Retries
	}

	r.cp.InProgress = id
	if err := rc.Stores.Checkpoint.Save(storeCtx, &r.cp); err != nil {
		return r.fatal(storeCtx, "checkpoint", fmt.Sprintf("failed to mark '%s' in progress", id), err)
	}
	for _, l := range rc.ItemListeners {
		l.BeforeItem(itemCtx, event)
	}
	if !r.seen.Contains(id) {
		r.seen.Add(id)
		r.attempted = append(r.attempted, ii)
	}
	r.summary.Attempted++

	callStarted := rc.now()
	record, _, callErr := retry.WithCap(itemCtx, rc.RetryPolicy, func(ctx context.Context, attempt int) (*model.EnrichedRecord, error) {
		if attempt > 1 {
			logger.Debugf("Item '%s': enrichment attempt %d.", id, attempt)
		}
		return r.call(ctx, ii.item)
	})
	event.Duration = rc.now().Sub(callStarted)

	if ctx.Err() != nil {
		// The in-progress marker stays; the next run clears it and attempts the item again.
		logger.Warnf("Item '%s': run canceled during the enrichment call; the item stays unresolved.", id)
		r.stop(StopReasonCanceled)
		return nil
	}
	if exception.IsFatal(callErr) {
		// Neither success nor failure is recorded; the in-progress marker stays for the next run.
		return r.fatal(storeCtx, "stages", fmt.Sprintf("enrichment of '%s' could not use its durable state", id), callErr)
	}
	if callErr == nil && record == nil {
		callErr = exception.NewPermanentEnrichmentError("enricher returned no record", nil)
	}
	if callErr != nil {
		return r.recordFailure(storeCtx, ii, event, callErr)
	}
	return r.recordSuccess(storeCtx, ii, event, record)
}

type callResult struct {
	record *model.EnrichedRecord
	err    error
}

// call runs one enrichment call under the hard call timeout. The timeout holds even if the
// enricher ignores its context; the abandoned call's result is discarded. An abandoned call may
// still be running while the next item starts, so enrichers must not write durable state once
// their context is done.
func (r *batchRun) call(ctx context.Context, item model.WorkItem) (*model.EnrichedRecord, error) {
	timeout := r.rc.CallTimeout
	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		record, err := r.rc.Enricher.Enrich(callCtx, item)
		done <- callResult{record: record, err: err}
	}()

	var res callResult
	select {
	case res = <-done:
	case <-callCtx.Done():
		res = callResult{err: callCtx.Err()}
	}
	if res.err == nil {
		return res.record, nil
	}
	if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return nil, exception.NewTransientEnrichmentError(fmt.Sprintf("enrichment call timed out after %s", timeout), res.err)
	}
	return nil, exception.ClassifyEnrichmentError(res.err)
}

func (r *batchRun) recordSuccess(ctx context.Context, ii indexedItem, event model.ItemEvent, record *model.EnrichedRecord) error {
	stores := r.rc.Stores
	id := ii.item.ID
	if record.ID != id {
		if record.ID != "" {
			logger.Warnf("Item '%s': enricher returned record id '%s'; storing it under the item id.", id, record.ID)
		}
		record.ID = id
	}

	// Order matters: the record is durable before the manifest claims it.
	if err := stores.Records.Put(ctx, record); err != nil {
		return r.fatal(ctx, "records", fmt.Sprintf("failed to store record for '%s'", id), err)
	}
	if err := stores.Manifest.RecordSuccess(ctx, id); err != nil {
		return r.fatal(ctx, "manifest", fmt.Sprintf("failed to record success of '%s'", id), err)
	}
	if err := stores.Ledger.ClearSuccess(ctx, id); err != nil {
		return r.fatal(ctx, "ledger", fmt.Sprintf("failed to clear failure history of '%s'", id), err)
	}
	r.cp.TotalProcessed++
	r.cp.InProgress = ""
	r.cp.Advance(ii.index, id)
	if err := stores.Checkpoint.Save(ctx, &r.cp); err != nil {
		return r.fatal(ctx, "checkpoint", fmt.Sprintf("failed to save checkpoint after '%s'", id), err)
	}

	if finalizer, ok := r.rc.Enricher.(port.Finalizer); ok {
		if err := finalizer.Finalize(ctx, id); err != nil {
			logger.Warnf("Item '%s': failed to clean up intermediate state: %v", id, err)
		}
	}

	r.summary.Succeeded++
	if event.Pass == model.PassRetry {
		r.summary.RetryPassSucceeded++
	}
	event.State = model.ItemSucceeded
	for _, l := range r.rc.ItemListeners {
		l.OnItemSuccess(ctx, event)
	}
	return nil
}

func (r *batchRun) recordFailure(ctx context.Context, ii indexedItem, event model.ItemEvent, callErr error) error {
	stores := r.rc.Stores
	id := ii.item.ID
	classified := exception.ClassifyEnrichmentError(callErr)
	transient := !exception.IsPermanentEnrichmentError(classified)

	entry, err := stores.Ledger.RecordFailure(ctx, id, exception.ExtractErrorMessage(classified), transient)
	if err != nil {
		return r.fatal(ctx, "ledger", fmt.Sprintf("failed to record failure of '%s'", id), err)
	}
	r.cp.TotalErrors++
	r.cp.InProgress = ""
	r.cp.Advance(ii.index, id)
	if err := stores.Checkpoint.Save(ctx, &r.cp); err != nil {
		return r.fatal(ctx, "checkpoint", fmt.Sprintf("failed to save checkpoint after '%s'", id), err)
	}

	r.rc.tracer().RecordError(ctx, "enrich", classified)
	event.State = model.ItemFailed
	event.Retries = entry.Retries
	event.Err = classified
	for _, l := range r.rc.ItemListeners {
		l.OnItemFailure(ctx, event)
	}

	if stores.Ledger.IsExhausted(id) {
		return r.moveToSkipped(ctx, ii, event.Pass, entry)
	}
	return nil
}

// moveToSkipped adds an exhausted item to the Skipped set. Its ledger entry is kept for reporting.
func (r *batchRun) moveToSkipped(ctx context.Context, ii indexedItem, pass model.Pass, entry model.FailureLedgerEntry) error {
	if err := r.rc.Stores.Skipped.Add(ctx, r.skipPolicy.NewSkippedEntry(entry)); err != nil {
		return r.fatal(ctx, "skipped", fmt.Sprintf("failed to skip '%s'", entry.ID), err)
	}
	r.skipPolicy.IncrementSkipCount()
	r.skippedIDs = append(r.skippedIDs, entry.ID)
	logger.Debugf("Item '%s': retry budget of %d used up.", entry.ID, r.skipPolicy.GetSkipLimit())

	event := model.ItemEvent{
		RunID:   r.summary.RunID,
		Item:    ii.item,
		Index:   ii.index,
		Pass:    pass,
		State:   model.ItemSkipped,
		Retries: entry.Retries,
		Err:     errors.New(entry.Error),
	}
	for _, l := range r.rc.ItemListeners {
		l.OnItemSkipped(ctx, event)
	}
	return nil
}

// fatal wraps err as a StorageError and records it.
func (r *batchRun) fatal(ctx context.Context, module, message string, err error) error {
	if !exception.IsStorageError(err) {
		err = exception.NewStorageError(module, message, err)
	}
	logger.Errorf("%s: %v", message, err)
	r.rc.tracer().RecordError(ctx, module, err)
	return err
}

func (r *batchRun) reportProgress(ctx context.Context, total int, started time.Time) {
	every := r.rc.ProgressEvery
	if every <= 0 || r.processed%every != 0 || len(r.rc.ProgressListeners) == 0 {
		return
	}
	elapsed := r.rc.now().Sub(started)
	progress := model.Progress{
		RunID:     r.summary.RunID,
		Processed: r.processed,
		Total:     total,
		Succeeded: r.summary.Succeeded,
		Failed:    r.processed - r.summary.Succeeded,
		Elapsed:   elapsed,
	}
	if remaining := progress.Remaining(); remaining > 0 {
		progress.EstimatedIn = elapsed / time.Duration(r.processed) * time.Duration(remaining)
	}
	for _, l := range r.rc.ProgressListeners {
		l.OnProgress(ctx, progress)
	}
}

// abort stops the run after a fatal error and still reports what was done.
func (r *batchRun) abort(ctx context.Context, err error) (*model.RunSummary, error) {
	r.stop(StopReasonStorage)
	return r.finish(ctx), err
}

// finish completes the summary with cumulative totals and notifies the run listeners.
// Listeners run even when ctx is canceled so the summary is never lost.
func (r *batchRun) finish(ctx context.Context) *model.RunSummary {
	stores := r.rc.Stores
	s := r.summary
	s.FinishedAt = r.rc.now()
	s.Remaining = len(r.remaining())
	s.SkippedIDs = r.skippedIDs
	s.Skipped = r.skipPolicy.GetSkipCount()
	for _, ii := range r.attempted {
		if !stores.Manifest.Contains(ii.item.ID) && stores.Ledger.Contains(ii.item.ID) {
			s.FailedIDs = append(s.FailedIDs, ii.item.ID)
		}
	}
	s.Failed = len(s.FailedIDs)
	s.Cumulative = model.Totals{
		TotalEnriched:  stores.Manifest.Size(),
		TotalSkipped:   stores.Skipped.Len(),
		LedgerSize:     stores.Ledger.Len(),
		TotalProcessed: r.cp.TotalProcessed,
		TotalErrors:    r.cp.TotalErrors,
	}

	listenerCtx := context.WithoutCancel(ctx)
	for _, l := range r.rc.RunListeners {
		l.AfterRun(listenerCtx, s)
	}
	return s
}
