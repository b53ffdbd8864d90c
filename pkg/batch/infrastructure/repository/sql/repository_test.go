package sql_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tigerroll/nameforge/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/nameforge/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/nameforge/pkg/batch/adapter/database/gorm"
	_ "github.com/tigerroll/nameforge/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/nameforge/pkg/batch/component/tasklet/migration"
	repository "github.com/tigerroll/nameforge/pkg/batch/core/domain/repository"
	sqlrepo "github.com/tigerroll/nameforge/pkg/batch/infrastructure/repository/sql"
)

func openMigratedSQLite(t *testing.T) database.DBConnection {
	t.Helper()
	ctx := context.Background()
	cfg := dbconfig.DatabaseConfig{Type: "sqlite", Database: filepath.Join(t.TempDir(), "state.db")}

	conn, err := gormadapter.Open(cfg, "state")
	require.NoError(t, err)
	require.NoError(t, migration.ApplySchema(ctx, conn))

	// The migrator closes its connection; open a fresh one for the store.
	conn, err = gormadapter.Open(cfg, "state")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestSQLDocumentStore_SQLite(t *testing.T) {
	ctx := context.Background()
	store := sqlrepo.NewSQLDocumentStore(openMigratedSQLite(t), "pipeline-a")

	_, err := store.Get(ctx, "checkpoint.json")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, store.Put(ctx, "checkpoint.json", []byte(`{"runs":1}`)))
	require.NoError(t, store.Put(ctx, "checkpoint.json", []byte(`{"runs":2}`)))
	require.NoError(t, store.Put(ctx, "failures/bob.json", []byte(`{}`)))
	require.NoError(t, store.Put(ctx, "failures/alice.json", []byte(`{}`)))
	require.NoError(t, store.Put(ctx, "manifest.json", []byte(`{}`)))

	got, err := store.Get(ctx, "checkpoint.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"runs":2}`, string(got))

	keys, err := store.List(ctx, "failures/")
	require.NoError(t, err)
	assert.Equal(t, []string{"failures/alice.json", "failures/bob.json"}, keys)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	require.NoError(t, store.Delete(ctx, "failures/alice.json"))
	require.NoError(t, store.Delete(ctx, "failures/alice.json"))
	keys, err = store.List(ctx, "failures/")
	require.NoError(t, err)
	assert.Equal(t, []string{"failures/bob.json"}, keys)
}

func setupGormMock(t *testing.T) (sqlmock.Sqlmock, *sqlrepo.SQLDocumentStore) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	conn, err := gormadapter.NewGormDBAdapter(gormDB, dbconfig.DatabaseConfig{Type: "mysql"}, "mock_db")
	require.NoError(t, err)
	t.Cleanup(func() {
		mock.ExpectClose()
		_ = conn.Close()
	})
	return mock, sqlrepo.NewSQLDocumentStore(conn, "")
}

func TestSQLDocumentStore_GetPropagatesDBError(t *testing.T) {
	mock, store := setupGormMock(t)
	mock.ExpectQuery("SELECT .* FROM `durable_documents`").WillReturnError(errors.New("connection lost"))

	_, err := store.Get(context.Background(), "manifest.json")
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLDocumentStore_PutPropagatesDBError(t *testing.T) {
	mock, store := setupGormMock(t)
	mock.ExpectExec("INSERT INTO `durable_documents`").WillReturnError(errors.New("disk full"))

	err := store.Put(context.Background(), "manifest.json", []byte(`{}`))
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}
