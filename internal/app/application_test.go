package app_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/nameforge/internal/app"
	_ "github.com/tigerroll/nameforge/pkg/batch/adapter/storage/local"
	config "github.com/tigerroll/nameforge/pkg/batch/core/config"
)

// enrichScript fails bob with a rate limit and answers every other item.
const enrichScript = `input=$(cat)
case "$input" in
  *'"bob"'*) echo "429 too many requests" >&2; exit 1 ;;
esac
echo '{"name":"n","origin":"o","meaning":"m"}'`

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "names.json")
	require.NoError(t, os.WriteFile(sourcePath, []byte(`[
		{"id": "alice", "rank": 1},
		{"id": "bob", "rank": 2},
		{"id": "carol", "rank": 3}
	]`), 0o644))

	cfg := config.NewConfig()
	nf := &cfg.Nameforge
	nf.Batch.MaxRetries = 2
	nf.Batch.PacingDelayMs = 0
	nf.Batch.PermanentBackoffMs = 0
	nf.Batch.CallTimeoutMs = 10000
	nf.Source.Path = sourcePath
	nf.Enrichment.Client = "command"
	nf.Enrichment.Command = "sh"
	nf.Enrichment.Args = []string{"-c", enrichScript}
	nf.System.Logging.Level = "ERROR"
	nf.Adapter.Storage["state"] = map[string]interface{}{"type": "local", "base_dir": filepath.Join(dir, "state")}
	nf.Adapter.Storage["exports"] = map[string]interface{}{"type": "local", "base_dir": filepath.Join(dir, "exports")}
	return cfg
}

func TestRunBatch_EndToEnd(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)

	var out bytes.Buffer
	code := app.RunBatch(ctx, cfg, app.RunRequest{BatchSize: 0, Out: &out, NoColor: true})
	assert.Equal(t, app.ExitOK, code, "per-item failures do not fail the process")
	assert.Contains(t, out.String(), "Newly skipped")

	out.Reset()
	require.NoError(t, app.Status(ctx, cfg, app.StatusRequest{Out: &out, NoColor: true, ShowItems: true}))
	assert.Contains(t, out.String(), "429 too many requests")
	assert.Contains(t, out.String(), "SKIPPED")

	out.Reset()
	code = app.RunBatch(ctx, cfg, app.RunRequest{BatchSize: 0, Out: &out, NoColor: true})
	assert.Equal(t, app.ExitOK, code)
	assert.Contains(t, out.String(), "Selected")

	out.Reset()
	require.NoError(t, app.Requeue(ctx, cfg, &out, []string{"BOB"}, false))
	assert.Contains(t, out.String(), "Requeued 1 item(s): bob")

	out.Reset()
	require.NoError(t, app.ClearSkipped(ctx, cfg, &out))
	assert.Contains(t, out.String(), "Released 0 skipped item(s).")

	out.Reset()
	require.NoError(t, app.Export(ctx, cfg, app.ExportRequest{Object: "status.parquet", StorageRef: "exports", Out: &out}))
	assert.Contains(t, out.String(), "Exported 3 row(s)")
	_, err := os.Stat(filepath.Join(filepath.Dir(cfg.Nameforge.Source.Path), "exports", "status.parquet"))
	assert.NoError(t, err)
}

func TestRunBatch_SourceUnavailableIsFatal(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Nameforge.Source.Path = filepath.Join(t.TempDir(), "missing.json")

	code := app.RunBatch(context.Background(), cfg, app.RunRequest{BatchSize: 1})
	assert.Equal(t, app.ExitFatal, code)
}

func TestRunBatch_CanceledContext(t *testing.T) {
	cfg := newTestConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code := app.RunBatch(ctx, cfg, app.RunRequest{BatchSize: 0})
	assert.Equal(t, app.ExitCanceled, code)
}

func TestExport_RequiresObject(t *testing.T) {
	err := app.Export(context.Background(), newTestConfig(t), app.ExportRequest{})
	assert.ErrorContains(t, err, "output object name is required")
}

func TestParseBatchSize(t *testing.T) {
	n, err := app.ParseBatchSize("", 50)
	require.NoError(t, err)
	assert.Equal(t, 50, n)

	n, err = app.ParseBatchSize("all", 50)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = app.ParseBatchSize("7", 50)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	for _, bad := range []string{"0", "-3", "ten"} {
		_, err := app.ParseBatchSize(bad, 50)
		assert.Error(t, err, bad)
	}
}

func TestLoadConfig_AppliesBatchOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "application.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nameforge:\n  batch:\n    batch_size: 5\n"), 0o644))

	cfg, err := app.LoadConfig(app.ConfigOptions{
		EnvFile:    filepath.Join(t.TempDir(), "none.env"),
		ConfigPath: path,
		BatchOverrides: func(b *config.BatchConfig) {
			b.MaxDuration = "45m"
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Nameforge.Batch.BatchSize)
	assert.Equal(t, "45m", cfg.Nameforge.Batch.MaxDuration)

	_, err = app.LoadConfig(app.ConfigOptions{
		ConfigPath:     path,
		BatchOverrides: func(b *config.BatchConfig) { b.MaxDuration = "soon" },
	})
	assert.Error(t, err)
}
