package repository_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gormAdapter "github.com/tigerroll/nameforge/pkg/batch/adapter/database/gorm"
	_ "github.com/tigerroll/nameforge/pkg/batch/adapter/database/gorm/sqlite"
	storageAdapter "github.com/tigerroll/nameforge/pkg/batch/adapter/storage"
	_ "github.com/tigerroll/nameforge/pkg/batch/adapter/storage/local"
	config "github.com/tigerroll/nameforge/pkg/batch/core/config"
	domain "github.com/tigerroll/nameforge/pkg/batch/core/domain/repository"
	"github.com/tigerroll/nameforge/pkg/batch/infrastructure/repository"
)

func openStore(t *testing.T, cfg *config.Config) (domain.DocumentStore, error) {
	t.Helper()
	storage := storageAdapter.NewResolver(cfg)
	db := gormAdapter.NewResolver(cfg)
	t.Cleanup(func() {
		_ = storage.CloseAll()
		_ = db.CloseAll()
	})
	return repository.NewDocumentStore(context.Background(), cfg, storage, db)
}

// roundTrip checks a backend through the state stores, which is how the pipeline uses it.
func roundTrip(t *testing.T, cfg *config.Config, docs domain.DocumentStore) {
	t.Helper()
	ctx := context.Background()
	stores := repository.NewStoresFromConfig(cfg, docs)
	require.NoError(t, stores.LoadAll(ctx))
	require.NoError(t, stores.Manifest.RecordSuccess(ctx, "alice"))
	_, err := stores.Ledger.RecordFailure(ctx, "bob", "429", true)
	require.NoError(t, err)

	reloaded := repository.NewStoresFromConfig(cfg, docs)
	require.NoError(t, reloaded.LoadAll(ctx))
	assert.True(t, reloaded.Manifest.Contains("alice"))
	assert.True(t, reloaded.Ledger.Contains("bob"))
	assert.Equal(t, cfg.Nameforge.Batch.MaxRetries, reloaded.Ledger.MaxRetries())
}

func TestNewDocumentStore_Memory(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Nameforge.State.Backend = repository.BackendMemory

	docs, err := openStore(t, cfg)
	require.NoError(t, err)
	roundTrip(t, cfg, docs)
}

func TestNewDocumentStore_LocalStorage(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Nameforge.State.Prefix = "pipeline"
	cfg.Nameforge.Adapter.Storage["state"] = map[string]interface{}{
		"type":     "local",
		"base_dir": filepath.Join(t.TempDir(), "state"),
	}

	docs, err := openStore(t, cfg)
	require.NoError(t, err)
	roundTrip(t, cfg, docs)
}

func TestNewDocumentStore_SQLiteDatabase(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Nameforge.State.Backend = repository.BackendDatabase
	cfg.Nameforge.State.DatabaseRef = "state"
	cfg.Nameforge.Adapter.Database["state"] = map[string]interface{}{
		"type":     "sqlite",
		"database": filepath.Join(t.TempDir(), "state.db"),
	}

	docs, err := openStore(t, cfg)
	require.NoError(t, err)
	roundTrip(t, cfg, docs)
}

func TestNewDocumentStore_Errors(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Nameforge.State.Backend = "etcd"
	_, err := openStore(t, cfg)
	assert.ErrorContains(t, err, "unknown state backend")

	cfg = config.NewConfig()
	cfg.Nameforge.State.StorageRef = "missing"
	_, err = openStore(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}
