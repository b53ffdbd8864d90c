package enrich_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/nameforge/pkg/batch/component/enrich"
	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	"github.com/tigerroll/nameforge/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/nameforge/pkg/batch/infrastructure/repository/state"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
)

// stageClient answers per stage and fails the stages listed in failures (consuming one per call).
type stageClient struct {
	mu       sync.Mutex
	calls    []string
	failures map[string][]error
	previous map[string]*model.EnrichedRecord
}

func newStageClient() *stageClient {
	return &stageClient{failures: make(map[string][]error), previous: make(map[string]*model.EnrichedRecord)}
}

func (c *stageClient) Complete(ctx context.Context, req enrich.Request) (*model.EnrichedRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, req.Stage)
	c.previous[req.Stage] = req.Previous
	if errs := c.failures[req.Stage]; len(errs) > 0 {
		c.failures[req.Stage] = errs[1:]
		return nil, errs[0]
	}
	fields := map[string]interface{}{req.Stage + "Done": true}
	if req.Stage == "base" {
		fields["name"] = req.Item.ID
		fields["origin"] = "Latin"
		fields["meaning"] = "test"
	}
	return &model.EnrichedRecord{Fields: fields}, nil
}

func newStagedEnricher(t *testing.T, client enrich.Client, stages []enrich.Stage) (*enrich.StagedEnricher, *state.StageStore, *inmemory.InMemoryDocumentStore) {
	t.Helper()
	docs := inmemory.NewInMemoryDocumentStore()
	store := state.NewStageStore(docs)
	e, err := enrich.NewStagedEnricher(
		client,
		stages,
		store,
		enrich.NewMerger("v13", nil, fixedNow),
		enrich.NewRequiredFieldsValidator([]string{"name", "origin", "meaning"}),
		fixedNow,
	)
	require.NoError(t, err)
	return e, store, docs
}

var threeStages = []enrich.Stage{
	{Name: "base"},
	{Name: "culture", Optional: true},
	{Name: "media"},
}

func TestStagedEnricherRunsStagesInOrder(t *testing.T) {
	client := newStageClient()
	e, _, _ := newStagedEnricher(t, client, threeStages)

	rec, err := e.Enrich(context.Background(), model.WorkItem{ID: "ada", Rank: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"base", "culture", "media"}, client.calls)
	assert.Equal(t, "ada", rec.ID)
	assert.Equal(t, true, rec.Fields["mediaDone"])
	assert.Equal(t, []interface{}{"base", "culture", "media"}, rec.Fields[enrich.FieldVersionsIncluded])

	assert.Nil(t, client.previous["base"])
	require.NotNil(t, client.previous["media"])
	assert.Equal(t, true, client.previous["media"].Fields["cultureDone"])
}

func TestStagedEnricherResumesAfterCompletedStages(t *testing.T) {
	ctx := context.Background()
	client := newStageClient()
	client.failures["media"] = []error{exception.NewTransientEnrichmentError("rate limited", nil)}
	e, store, _ := newStagedEnricher(t, client, threeStages)
	item := model.WorkItem{ID: "ada", Rank: 1}

	_, err := e.Enrich(ctx, item)
	require.Error(t, err)
	assert.True(t, exception.IsTemporary(err))

	progress, err := store.LoadProgress(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, []string{"base", "culture"}, progress.Completed)

	client.calls = nil
	rec, err := e.Enrich(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, []string{"media"}, client.calls, "completed stages are not redone")
	assert.Equal(t, true, rec.Fields["baseDone"])

	require.NoError(t, e.Finalize(ctx, "ada"))
	progress, err = store.LoadProgress(ctx, "ada")
	require.NoError(t, err)
	assert.Empty(t, progress.Completed)
	_, found, err := store.LoadOutput(ctx, "base", "ada")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStagedEnricherOptionalStageFailureContinues(t *testing.T) {
	client := newStageClient()
	client.failures["culture"] = []error{errors.New("HTTP 500 from upstream")}
	e, _, _ := newStagedEnricher(t, client, threeStages)

	rec, err := e.Enrich(context.Background(), model.WorkItem{ID: "ada", Rank: 1})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"base", "media"}, rec.Fields[enrich.FieldVersionsIncluded])
}

func TestStagedEnricherRequiredStageFailureFails(t *testing.T) {
	client := newStageClient()
	client.failures["base"] = []error{exception.NewPermanentEnrichmentError("bad json", nil)}
	e, _, _ := newStagedEnricher(t, client, threeStages)

	_, err := e.Enrich(context.Background(), model.WorkItem{ID: "ada", Rank: 1})
	require.Error(t, err)
	assert.True(t, exception.IsPermanentEnrichmentError(err))
	assert.Equal(t, []string{"base"}, client.calls)
}

func TestStagedEnricherValidatesMergedRecord(t *testing.T) {
	client := newStageClient()
	e, _, _ := newStagedEnricher(t, client, []enrich.Stage{{Name: "media"}})

	_, err := e.Enrich(context.Background(), model.WorkItem{ID: "ada", Rank: 1})
	require.Error(t, err)
	assert.True(t, exception.IsPermanentEnrichmentError(err))
}

func TestStagedEnricherSingleStageKeepsNoState(t *testing.T) {
	client := newStageClient()
	e, _, docs := newStagedEnricher(t, client, []enrich.Stage{{Name: "base"}})

	_, err := e.Enrich(context.Background(), model.WorkItem{ID: "ada", Rank: 1})
	require.NoError(t, err)
	keys, err := docs.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

type slowClient struct{}

func (slowClient) Complete(ctx context.Context, req enrich.Request) (*model.EnrichedRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestStagedEnricherStageTimeoutIsTransient(t *testing.T) {
	e, _, _ := newStagedEnricher(t, slowClient{}, []enrich.Stage{{Name: "base", Timeout: 10 * time.Millisecond}})

	_, err := e.Enrich(context.Background(), model.WorkItem{ID: "ada", Rank: 1})
	require.Error(t, err)
	assert.True(t, exception.IsTemporary(err))
	assert.False(t, exception.IsPermanentEnrichmentError(err))
}

// cancelingClient answers like its inner client after canceling the caller's context.
type cancelingClient struct {
	enrich.Client
	cancel context.CancelFunc
}

func (c cancelingClient) Complete(ctx context.Context, req enrich.Request) (*model.EnrichedRecord, error) {
	c.cancel()
	return c.Client.Complete(ctx, req)
}

func TestStagedEnricherWritesNothingAfterCallAbandoned(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := newStageClient()
	e, _, docs := newStagedEnricher(t, cancelingClient{Client: client, cancel: cancel}, threeStages)

	_, err := e.Enrich(ctx, model.WorkItem{ID: "ada", Rank: 1})
	require.Error(t, err)
	assert.True(t, exception.IsTemporary(err))
	assert.Equal(t, []string{"base"}, client.calls)

	keys, err := docs.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, keys, "no stage output or progress is written once the context is done")
}

func TestNewStagedEnricherRejectsBadStages(t *testing.T) {
	merger := enrich.NewMerger("", nil, nil)
	_, err := enrich.NewStagedEnricher(newStageClient(), nil, nil, merger, nil, nil)
	assert.Error(t, err)
	_, err = enrich.NewStagedEnricher(newStageClient(), []enrich.Stage{{Name: "a"}, {Name: "a"}}, state.NewStageStore(inmemory.NewInMemoryDocumentStore()), merger, nil, nil)
	assert.Error(t, err)
	_, err = enrich.NewStagedEnricher(newStageClient(), []enrich.Stage{{Name: "a"}, {Name: "b"}}, nil, merger, nil, nil)
	assert.Error(t, err)
}
