// Package sqlite registers the SQLite dialector with the GORM adapter.
package sqlite

import (
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/nameforge/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/nameforge/pkg/batch/adapter/database/gorm"
)

// ProviderType is the adapter.database type handled by this package.
const ProviderType = "sqlite"

func init() {
	gormadapter.RegisterDialector(ProviderType, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Database == "" {
			return nil, errors.New("SQLite database path cannot be empty")
		}
		return sqlite.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString returns the SQLite DSN. WAL journaling lets status commands read while a run writes.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	if c.Database == ":memory:" {
		return c.Database
	}
	return "file:" + c.Database + "?_journal_mode=WAL&_busy_timeout=5000"
}
