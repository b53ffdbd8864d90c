package enrich_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/nameforge/pkg/batch/component/enrich"
	config "github.com/tigerroll/nameforge/pkg/batch/core/config"
	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
)

func shellClient(t *testing.T, script string) *enrich.CommandClient {
	t.Helper()
	c, err := enrich.NewCommandClient(config.EnrichmentConfig{Command: "sh", Args: []string{"-c", script}})
	require.NoError(t, err)
	return c
}

var adaRequest = enrich.Request{Item: model.WorkItem{ID: "ada", Rank: 1}, Stage: enrich.DefaultStageName}

func TestCommandClientReadsStdout(t *testing.T) {
	// The script echoes the id it received on stdin back as the name.
	c := shellClient(t, `id=$(sed -n 's/.*"id":"\([^"]*\)".*/\1/p'); echo "{\"name\":\"$id\",\"origin\":\"x\"}"`)
	rec, err := c.Complete(context.Background(), adaRequest)
	require.NoError(t, err)
	assert.Equal(t, "ada", rec.Fields["name"])
	assert.Equal(t, "ada", rec.ID)
}

func TestCommandClientErrors(t *testing.T) {
	ctx := context.Background()

	_, err := shellClient(t, `echo "429 rate limit exceeded" >&2; exit 3`).Complete(ctx, adaRequest)
	require.Error(t, err)
	assert.True(t, exception.IsTemporary(err))

	_, err = shellClient(t, `echo "bad input" >&2; exit 2`).Complete(ctx, adaRequest)
	require.Error(t, err)
	assert.True(t, exception.IsPermanentEnrichmentError(err))

	_, err = shellClient(t, `echo "not json"`).Complete(ctx, adaRequest)
	require.Error(t, err)
	assert.True(t, exception.IsPermanentEnrichmentError(err))

	c, err := enrich.NewCommandClient(config.EnrichmentConfig{Command: "/nonexistent/enricher"})
	require.NoError(t, err)
	_, err = c.Complete(ctx, adaRequest)
	assert.True(t, exception.IsPermanentEnrichmentError(err))
}

func TestCommandClientTimeoutIsTransient(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := shellClient(t, `sleep 5`).Complete(ctx, adaRequest)
	require.Error(t, err)
	assert.True(t, exception.IsTemporary(err))
}

func TestCommandClientStageOverride(t *testing.T) {
	c, err := enrich.NewCommandClient(config.EnrichmentConfig{
		Command: "sh",
		Args:    []string{"-c", `echo '{"stage":"default"}'`},
		Stages:  []config.StageConfig{{Name: "media", Command: "sh", Args: []string{"-c", `echo '{"stage":"media"}'`}}},
	})
	require.NoError(t, err)

	rec, err := c.Complete(context.Background(), enrich.Request{Item: model.WorkItem{ID: "ada"}, Stage: "media"})
	require.NoError(t, err)
	assert.Equal(t, "media", rec.Fields["stage"])

	rec, err = c.Complete(context.Background(), enrich.Request{Item: model.WorkItem{ID: "ada"}, Stage: "base"})
	require.NoError(t, err)
	assert.Equal(t, "default", rec.Fields["stage"])
}

func TestNewCommandClientRequiresCommand(t *testing.T) {
	_, err := enrich.NewCommandClient(config.EnrichmentConfig{})
	assert.Error(t, err)
	_, err = enrich.NewCommandClient(config.EnrichmentConfig{Stages: []config.StageConfig{{Name: "base"}}})
	assert.Error(t, err)
}
