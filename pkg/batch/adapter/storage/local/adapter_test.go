package local

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageAdapter "github.com/tigerroll/nameforge/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/nameforge/pkg/batch/adapter/storage/config"
)

func newTestAdapter(t *testing.T) (storageAdapter.StorageConnection, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")
	conn, err := NewLocalAdapter(storageConfig.StorageConfig{Type: ProviderType, BaseDir: dir}, "state")
	require.NoError(t, err)
	return conn, dir
}

func TestNewLocalAdapter_CreatesBaseDir(t *testing.T) {
	_, dir := newTestAdapter(t)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewLocalAdapter_RequiresBaseDir(t *testing.T) {
	_, err := NewLocalAdapter(storageConfig.StorageConfig{Type: ProviderType}, "state")
	assert.Error(t, err)
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	conn, _ := newTestAdapter(t)

	require.NoError(t, conn.Upload(ctx, "", "records/alice.json", bytes.NewBufferString(`{"v":1}`), "application/json"))
	require.NoError(t, conn.Upload(ctx, "", "records/alice.json", bytes.NewBufferString(`{"v":2}`), "application/json"))

	rc, err := conn.Download(ctx, "", "records/alice.json")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(body))
}

func TestUpload_LeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	conn, dir := newTestAdapter(t)

	require.NoError(t, conn.Upload(ctx, "", "checkpoint.json", bytes.NewBufferString("{}"), "application/json"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "checkpoint.json", entries[0].Name())
}

func TestDownload_MissingObject(t *testing.T) {
	conn, _ := newTestAdapter(t)
	_, err := conn.Download(context.Background(), "", "nope.json")
	assert.ErrorIs(t, err, storageAdapter.ErrObjectNotFound)
}

func TestListObjects_PrefixAndOrder(t *testing.T) {
	ctx := context.Background()
	conn, _ := newTestAdapter(t)
	for _, name := range []string{"failures/b.json", "failures/a.json", "records/a.json", "manifest.json"} {
		require.NoError(t, conn.Upload(ctx, "", name, bytes.NewBufferString("{}"), "application/json"))
	}

	var got []string
	require.NoError(t, conn.ListObjects(ctx, "", "failures/", func(name string) error {
		got = append(got, name)
		return nil
	}))
	assert.Equal(t, []string{"failures/a.json", "failures/b.json"}, got)
}

func TestDeleteObject_Idempotent(t *testing.T) {
	ctx := context.Background()
	conn, _ := newTestAdapter(t)
	require.NoError(t, conn.Upload(ctx, "", "skipped.json", bytes.NewBufferString("{}"), "application/json"))

	require.NoError(t, conn.DeleteObject(ctx, "", "skipped.json"))
	require.NoError(t, conn.DeleteObject(ctx, "", "skipped.json"))

	_, err := conn.Download(ctx, "", "skipped.json")
	assert.ErrorIs(t, err, storageAdapter.ErrObjectNotFound)
}

func TestResolvePath_RejectsEscape(t *testing.T) {
	conn, _ := newTestAdapter(t)
	err := conn.Upload(context.Background(), "", "../outside.json", bytes.NewBufferString("{}"), "application/json")
	assert.Error(t, err)
}
