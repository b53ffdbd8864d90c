package state_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	"github.com/tigerroll/nameforge/pkg/batch/infrastructure/repository/state"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
	"github.com/tigerroll/nameforge/pkg/batch/test"
)

var (
	errDisk = errors.New("disk full")
	epoch   = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

func newStores(docs *test.FaultyDocumentStore) *state.Stores {
	return state.NewStores(docs, state.Options{
		MaxRetries:      3,
		ManifestVersion: "v13",
		Now:             func() time.Time { return epoch },
	})
}

func TestCheckpointStore(t *testing.T) {
	ctx := context.Background()
	docs := test.NewFaultyDocumentStore()
	stores := newStores(docs)

	cp, err := stores.Checkpoint.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, -1, cp.LastProcessedIndex)

	cp.InProgress = "alice"
	cp.Advance(4, "eve")
	cp.Advance(2, "carol")
	require.NoError(t, stores.Checkpoint.Save(ctx, &cp))

	loaded, err := newStores(docs).Checkpoint.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.LastProcessedIndex)
	assert.Equal(t, "eve", loaded.LastProcessedID)
	assert.Equal(t, "alice", loaded.InProgress)
	assert.True(t, loaded.LastUpdated.Equal(epoch))
}

func TestCheckpointStore_CorruptDocument(t *testing.T) {
	ctx := context.Background()
	docs := test.NewFaultyDocumentStore()
	require.NoError(t, docs.Put(ctx, state.CheckpointKey, []byte("{not json")))

	_, err := newStores(docs).Checkpoint.Load(ctx)
	require.Error(t, err)
	assert.True(t, exception.IsStorageError(err))
}

func TestManifestStore_RecordSuccess(t *testing.T) {
	ctx := context.Background()
	docs := test.NewFaultyDocumentStore()
	stores := newStores(docs)
	require.NoError(t, stores.LoadAll(ctx))

	require.NoError(t, stores.Manifest.RecordSuccess(ctx, "bob"))
	require.NoError(t, stores.Manifest.RecordSuccess(ctx, "alice"))
	require.NoError(t, stores.Manifest.RecordSuccess(ctx, "alice"))
	assert.Equal(t, 2, docs.PutCount(state.ManifestKey), "a repeated id is not rewritten")

	raw, err := docs.Get(ctx, state.ManifestKey)
	require.NoError(t, err)
	var doc struct {
		Version       string   `json:"version"`
		TotalEnriched int      `json:"totalEnriched"`
		IDs           []string `json:"ids"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "v13", doc.Version)
	assert.Equal(t, 2, doc.TotalEnriched)
	assert.Equal(t, []string{"alice", "bob"}, doc.IDs)

	raw, err = docs.Get(ctx, state.ManifestSummaryKey)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"totalEnriched": 2`)
}

func TestManifestStore_FailedWriteIsNotRemembered(t *testing.T) {
	ctx := context.Background()
	docs := test.NewFaultyDocumentStore()
	stores := newStores(docs)
	require.NoError(t, stores.LoadAll(ctx))

	docs.FailPut(state.ManifestKey, errDisk)
	err := stores.Manifest.RecordSuccess(ctx, "alice")
	require.Error(t, err)
	assert.True(t, exception.IsStorageError(err))
	assert.False(t, stores.Manifest.Contains("alice"))
}

func TestManifestStore_SummaryFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	docs := test.NewFaultyDocumentStore()
	stores := newStores(docs)
	require.NoError(t, stores.LoadAll(ctx))

	docs.FailPut(state.ManifestSummaryKey, errDisk)
	require.NoError(t, stores.Manifest.RecordSuccess(ctx, "alice"))
	assert.True(t, stores.Manifest.Contains("alice"))
}

func TestManifestStore_Remove(t *testing.T) {
	ctx := context.Background()
	docs := test.NewFaultyDocumentStore()
	stores := newStores(docs)
	require.NoError(t, stores.LoadAll(ctx))
	require.NoError(t, stores.Manifest.RecordSuccess(ctx, "alice"))
	require.NoError(t, stores.Manifest.RecordSuccess(ctx, "bob"))

	docs.FailPut(state.ManifestKey, errDisk)
	_, err := stores.Manifest.Remove(ctx, "alice")
	require.Error(t, err)
	assert.True(t, stores.Manifest.Contains("alice"), "a failed remove is rolled back")

	docs.Heal()
	n, err := stores.Manifest.Remove(ctx, "alice", "zoe")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	reloaded := newStores(docs)
	require.NoError(t, reloaded.LoadAll(ctx))
	assert.Equal(t, []string{"bob"}, reloaded.Manifest.Manifest().SortedIDs())
}

func TestFailureLedger(t *testing.T) {
	ctx := context.Background()
	docs := test.NewFaultyDocumentStore()
	stores := newStores(docs)
	require.NoError(t, stores.LoadAll(ctx))

	entry, err := stores.Ledger.RecordFailure(ctx, "bob", "429 too many requests", true)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Retries)
	assert.True(t, entry.FirstFailure.Equal(epoch))

	entry, err = stores.Ledger.RecordFailure(ctx, "bob", "invalid JSON", false)
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Retries)
	assert.Equal(t, "invalid JSON", entry.Error)
	assert.False(t, entry.Transient)
	assert.False(t, stores.Ledger.IsExhausted("bob"))

	_, err = stores.Ledger.RecordFailure(ctx, "a/b", "timeout", true)
	require.NoError(t, err)

	reloaded := newStores(docs)
	require.NoError(t, reloaded.LoadAll(ctx))
	assert.Equal(t, 2, reloaded.Ledger.Len())
	got, ok := reloaded.Ledger.Get("a/b")
	require.True(t, ok, "ids are escaped into a single key segment")
	assert.Equal(t, "timeout", got.Error)

	_, err = reloaded.Ledger.RecordFailure(ctx, "bob", "still failing", true)
	require.NoError(t, err)
	assert.True(t, reloaded.Ledger.IsExhausted("bob"))

	require.NoError(t, reloaded.Ledger.ClearSuccess(ctx, "bob"))
	require.NoError(t, reloaded.Ledger.ClearSuccess(ctx, "bob"))
	assert.False(t, reloaded.Ledger.Contains("bob"))
	assert.Equal(t, []string{"a/b"}, ledgerIDs(reloaded.Ledger.Entries()))
}

func TestFailureLedger_WriteFailure(t *testing.T) {
	ctx := context.Background()
	docs := test.NewFaultyDocumentStore()
	stores := newStores(docs)
	require.NoError(t, stores.LoadAll(ctx))

	docs.FailPut("failures/", errDisk)
	_, err := stores.Ledger.RecordFailure(ctx, "bob", "429", true)
	require.Error(t, err)
	assert.True(t, exception.IsStorageError(err))
	assert.False(t, stores.Ledger.Contains("bob"))
}

func TestSkippedStore(t *testing.T) {
	ctx := context.Background()
	docs := test.NewFaultyDocumentStore()
	stores := newStores(docs)
	require.NoError(t, stores.LoadAll(ctx))

	require.NoError(t, stores.Skipped.Add(ctx, model.SkippedEntry{ID: "carol", Retries: 3, Error: "429"}))
	require.NoError(t, stores.Skipped.Add(ctx, model.SkippedEntry{ID: "bob", Retries: 3}))

	docs.FailPut(state.SkippedKey, errDisk)
	assert.Error(t, stores.Skipped.Add(ctx, model.SkippedEntry{ID: "dave"}))
	assert.False(t, stores.Skipped.Contains("dave"))
	_, err := stores.Skipped.Remove(ctx, "bob")
	assert.Error(t, err)
	assert.True(t, stores.Skipped.Contains("bob"))
	docs.Heal()

	reloaded := newStores(docs)
	require.NoError(t, reloaded.LoadAll(ctx))
	entries := reloaded.Skipped.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "bob", entries[0].ID)
	assert.True(t, entries[1].SkippedAt.Equal(epoch))

	removed, err := reloaded.Skipped.Remove(ctx, "bob", "zoe")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, removed)

	cleared, err := reloaded.Skipped.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, cleared)
	assert.Equal(t, 0, reloaded.Skipped.Len())
}

func TestRecordAndStageStores(t *testing.T) {
	ctx := context.Background()
	docs := test.NewFaultyDocumentStore()
	stores := newStores(docs)

	record := test.NewTestRecord(model.WorkItem{ID: "alice"})
	require.NoError(t, stores.Records.Put(ctx, record))
	got, found, err := stores.Records.Get(ctx, "alice")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "alice", got.ID)
	assert.Equal(t, "test meaning", got.Fields["meaning"])

	_, found, err = stores.Records.Get(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, stores.Stages.SaveOutput(ctx, "core", record))
	require.NoError(t, stores.Stages.SaveProgress(ctx, model.StageProgress{ID: "alice", Completed: []string{"core"}}))

	progress, err := stores.Stages.LoadProgress(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, progress.CompletedSet().Contains("core"))
	out, found, err := stores.Stages.LoadOutput(ctx, "core", "alice")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "alice", out.Fields["name"])

	require.NoError(t, stores.Stages.Clear(ctx, "alice", []string{"core", "songs"}))
	progress, err = stores.Stages.LoadProgress(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, progress.Completed)
	_, found, err = stores.Stages.LoadOutput(ctx, "core", "alice")
	require.NoError(t, err)
	assert.False(t, found)
}

func ledgerIDs(entries []model.FailureLedgerEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids
}
