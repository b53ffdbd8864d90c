// Package database defines the connection contract for relational state backends.
package database

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/nameforge/pkg/batch/adapter/database/config"
	coreAdapter "github.com/tigerroll/nameforge/pkg/batch/core/adapter"
)

// DBConnection represents an abstraction of a database connection.
type DBConnection interface {
	coreAdapter.ResourceConnection // Embeds Type(), Name(), Close()

	// DB returns a GORM session bound to ctx.
	DB(ctx context.Context) *gorm.DB
	// GetSQLDB returns the underlying *sql.DB connection.
	GetSQLDB() (*sql.DB, error)
	// Config returns the database configuration associated with this connection.
	Config() dbconfig.DatabaseConfig
}
