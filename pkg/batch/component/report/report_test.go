package report_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageConfig "github.com/tigerroll/nameforge/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/nameforge/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/nameforge/pkg/batch/component/report"
	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleSnapshot() *model.StatusSnapshot {
	failedAt := now.Add(-2 * time.Hour)
	return &model.StatusSnapshot{
		Checkpoint: model.CheckpointState{
			LastProcessedIndex: 2,
			LastProcessedID:    "carol",
			TotalProcessed:     1234,
			TotalErrors:        3,
			LastUpdated:        now.Add(-5 * time.Minute),
			Runs:               4,
		},
		Totals: model.Totals{TotalEnriched: 1234, TotalSkipped: 1, LedgerSize: 2},
		Ledger: []model.FailureLedgerEntry{
			{ID: "bob", Error: "429 too many requests", Retries: 1, Transient: true, LastAttempt: failedAt},
			{ID: "dave", Error: "missing field", Retries: 3, LastAttempt: failedAt},
		},
		Items: []model.ItemStatus{
			{ID: "alice", Rank: 1, State: model.ItemSucceeded},
			{ID: "bob", Rank: 2, State: model.ItemFailed, Retries: 1, LastError: "429 too many requests", LastAttempt: failedAt},
			{ID: "carol", Rank: 3, State: model.ItemPending},
			{ID: "dave", Rank: 4, State: model.ItemSkipped, Retries: 3, LastError: "missing field", LastAttempt: failedAt},
		},
		Orphans: []string{"zoe"},
	}
}

func TestNewStatusRows(t *testing.T) {
	rows := report.NewStatusRows(sampleSnapshot())
	require.Len(t, rows, 4)
	assert.Equal(t, report.StatusRow{ID: "alice", Rank: 1, State: "SUCCEEDED"}, rows[0])
	assert.Equal(t, int32(1), rows[1].Retries)
	assert.Equal(t, now.Add(-2*time.Hour).UnixMilli(), rows[1].LastAttempt)
	assert.Equal(t, "SKIPPED", rows[3].State)
}

func TestCountByState(t *testing.T) {
	counts := report.CountByState(sampleSnapshot())
	assert.Equal(t, 1, counts[model.ItemSucceeded])
	assert.Equal(t, 1, counts[model.ItemFailed])
	assert.Equal(t, 1, counts[model.ItemPending])
	assert.Equal(t, 1, counts[model.ItemSkipped])
}

func TestRenderStatus(t *testing.T) {
	var buf bytes.Buffer
	err := report.RenderStatus(&buf, sampleSnapshot(), report.RenderOptions{
		NoColor:   true,
		ShowItems: true,
		Now:       func() time.Time { return now },
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "1,234")
	assert.Contains(t, out, "#2 (carol)")
	assert.Contains(t, out, "5 minutes ago")
	assert.Contains(t, out, "429 too many requests")
	assert.Contains(t, out, "transient")
	assert.Contains(t, out, "permanent")
	assert.Contains(t, out, "SKIPPED")
	assert.NotContains(t, out, "\x1b[", "NoColor must not emit escape codes")
	assert.Contains(t, out, "[zoe]")
}

func TestRenderStatus_FreshState(t *testing.T) {
	var buf bytes.Buffer
	snapshot := &model.StatusSnapshot{Checkpoint: model.NewCheckpointState(now)}
	require.NoError(t, report.RenderStatus(&buf, snapshot, report.RenderOptions{NoColor: true}))
	assert.Contains(t, buf.String(), "never")
	assert.NotContains(t, buf.String(), "Failure ledger")
}

func TestParquetExporter_Export(t *testing.T) {
	dir := t.TempDir()
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: local.ProviderType, BaseDir: dir}, "exports")
	require.NoError(t, err)

	exporter, err := report.NewParquetExporter(conn, "GZIP")
	require.NoError(t, err)
	require.NoError(t, exporter.Export(context.Background(), "status/status.parquet", report.NewStatusRows(sampleSnapshot())))

	data, err := os.ReadFile(filepath.Join(dir, "status", "status.parquet"))
	require.NoError(t, err)
	require.Greater(t, len(data), 8)
	assert.Equal(t, "PAR1", string(data[:4]))
	assert.Equal(t, "PAR1", string(data[len(data)-4:]))
}

func TestNewParquetExporter_RejectsUnknownCompression(t *testing.T) {
	_, err := report.NewParquetExporter(nil, "LZMA")
	assert.Error(t, err)
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	summary := &model.RunSummary{
		RunID:              "run-1",
		StartedAt:          now,
		FinishedAt:         now.Add(90 * time.Second),
		Selected:           3,
		Attempted:          3,
		Succeeded:          2,
		Failed:             1,
		Skipped:            1,
		RetryPassAttempted: 1,
		Remaining:          1200,
		StoppedEarly:       true,
		StopReason:         "max duration reached",
		FailedIDs:          []string{"bob"},
		SkippedIDs:         []string{"bob"},
		Cumulative:         model.Totals{TotalEnriched: 2345, TotalSkipped: 1, LedgerSize: 1},
	}
	require.NoError(t, report.RenderSummary(&buf, summary, report.RenderOptions{NoColor: true}))

	out := buf.String()
	assert.Contains(t, out, "Run run-1")
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "0/1 recovered")
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "2,345")
	assert.Contains(t, out, "max duration reached")
	assert.Contains(t, out, "Newly skipped")
	assert.NotContains(t, out, "\x1b[")
}
