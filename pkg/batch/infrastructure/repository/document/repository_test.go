package document_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageConfig "github.com/tigerroll/nameforge/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/nameforge/pkg/batch/adapter/storage/local"
	repository "github.com/tigerroll/nameforge/pkg/batch/core/domain/repository"
	"github.com/tigerroll/nameforge/pkg/batch/infrastructure/repository/document"
)

func TestStorageDocumentStore_LocalBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: local.ProviderType, BaseDir: dir}, "state")
	require.NoError(t, err)

	store := document.NewStorageDocumentStore(conn, "pipeline-a")

	_, err = store.Get(ctx, "checkpoint.json")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, store.Put(ctx, "checkpoint.json", []byte(`{"runs":1}`)))
	require.NoError(t, store.Put(ctx, "failures/bob.json", []byte(`{}`)))
	require.NoError(t, store.Put(ctx, "failures/alice.json", []byte(`{}`)))

	assert.FileExists(t, filepath.Join(dir, "pipeline-a", "checkpoint.json"))

	got, err := store.Get(ctx, "checkpoint.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"runs":1}`, string(got))

	keys, err := store.List(ctx, "failures/")
	require.NoError(t, err)
	assert.Equal(t, []string{"failures/alice.json", "failures/bob.json"}, keys)

	require.NoError(t, store.Delete(ctx, "failures/alice.json"))
	keys, err = store.List(ctx, "failures/")
	require.NoError(t, err)
	assert.Equal(t, []string{"failures/bob.json"}, keys)
}
