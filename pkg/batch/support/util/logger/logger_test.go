package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxevent"

	"github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

func TestParseLevel(t *testing.T) {
	lvl, ok := logger.ParseLevel("debug")
	assert.True(t, ok)
	assert.Equal(t, logger.LevelDebug, lvl)

	lvl, ok = logger.ParseLevel(" Warn ")
	assert.True(t, ok)
	assert.Equal(t, logger.LevelWarn, lvl)

	lvl, ok = logger.ParseLevel("verbose")
	assert.False(t, ok)
	assert.Equal(t, logger.LevelInfo, lvl)
}

func TestConfigureWriters_FansOutToConsoleAndRunLog(t *testing.T) {
	var console, runLog bytes.Buffer
	logger.ConfigureWriters("INFO", &console, &runLog)
	t.Cleanup(func() { logger.ConfigureWriters("INFO", os.Stderr, nil) })

	logger.Debugf("hidden %d", 1)
	logger.Infof("item %s succeeded", "alice")

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "item alice succeeded")

	lines := strings.Split(strings.TrimSpace(runLog.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "item alice succeeded", rec["msg"])
	assert.Equal(t, "INFO", rec["level"])
	assert.NotEmpty(t, rec["time"])
}

func TestSetLogLevel_ChangesThreshold(t *testing.T) {
	var console bytes.Buffer
	logger.ConfigureWriters("ERROR", &console, nil)
	t.Cleanup(func() { logger.ConfigureWriters("INFO", os.Stderr, nil) })

	logger.Warnf("quiet")
	assert.Empty(t, console.String())

	logger.SetLogLevel("DEBUG")
	logger.Debugf("loud")
	assert.Contains(t, console.String(), "loud")
	assert.Equal(t, logger.LevelDebug, logger.GetLogLevel())
}

func TestConfigure_AppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	cleanup, err := logger.Configure("INFO", path)
	require.NoError(t, err)

	logger.Infof("first")
	require.NoError(t, cleanup())

	cleanup, err = logger.Configure("INFO", path)
	require.NoError(t, err)
	logger.Infof("second")
	require.NoError(t, cleanup())
	logger.ConfigureWriters("INFO", os.Stderr, nil)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
	assert.Contains(t, string(data), "first")
	assert.Contains(t, string(data), "second")
}

func TestFxLoggerAdapter_FailuresAtError(t *testing.T) {
	var runLog bytes.Buffer
	logger.ConfigureWriters("INFO", nil, &runLog)
	t.Cleanup(func() { logger.ConfigureWriters("INFO", os.Stderr, nil) })

	adapter := logger.NewFxLoggerAdapter()
	adapter.LogEvent(&fxevent.Provided{OutputTypeNames: []string{"*config.Config"}})
	adapter.LogEvent(&fxevent.OnStartExecuted{
		FunctionName: "github.com/tigerroll/nameforge/internal/app.startBatchRun.func1",
		Err:          errors.New("boom"),
	})

	lines := strings.Split(strings.TrimSpace(runLog.String()), "\n")
	require.Len(t, lines, 1, "debug events are below the INFO threshold")
	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "fx on_start", rec["msg"])
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, "github.com/tigerroll/nameforge/internal/app.startBatchRun", rec["function"])
	assert.Equal(t, "boom", rec["error"])
}
