// Package filesystem embeds the SQL migrations for the durable document table.
package filesystem

import (
	"embed"
	"io/fs"

	"github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

//go:embed resource
var rawMigrationFS embed.FS

// MigrationsFS returns the embedded migrations, one directory per database type
// ("sqlite", "postgres", "mysql").
func MigrationsFS() fs.FS {
	subFS, err := fs.Sub(rawMigrationFS, "resource")
	if err != nil {
		logger.Fatalf("Failed to create subdirectory for migration FS: %v", err)
	}
	return subFS
}
