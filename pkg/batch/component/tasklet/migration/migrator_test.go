package migration

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/nameforge/pkg/batch/component/tasklet/migration/filesystem"
)

func TestMigrationsFS_HasEveryDialect(t *testing.T) {
	migrations := filesystem.MigrationsFS()
	for _, dialect := range []string{"sqlite", "postgres", "mysql"} {
		entries, err := fs.ReadDir(migrations, dialect)
		require.NoError(t, err, dialect)

		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		assert.Contains(t, names, "000001_create_durable_documents.up.sql", dialect)
		assert.Contains(t, names, "000001_create_durable_documents.down.sql", dialect)
	}
}

func TestMigrationsFS_CreatesDocumentTable(t *testing.T) {
	body, err := fs.ReadFile(filesystem.MigrationsFS(), "sqlite/000001_create_durable_documents.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "durable_documents")
	assert.Contains(t, string(body), "doc_key")
}
