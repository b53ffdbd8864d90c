// Package migration applies the schema for the relational state backend with golang-migrate.
package migration

import (
	"context"
	"io/fs"
)

// MigrationsTable tracks applied schema versions.
const MigrationsTable = "nameforge_migrations"

// Migrator handles database schema migrations.
type Migrator interface {
	// Up applies all pending migrations found under path in migrationFS.
	Up(ctx context.Context, migrationFS fs.FS, path string, tableName string) error
	// Down rolls back all applied migrations.
	Down(ctx context.Context, migrationFS fs.FS, path string, tableName string) error
}
