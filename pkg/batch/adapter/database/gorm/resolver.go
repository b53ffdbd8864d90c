package gorm

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/nameforge/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/nameforge/pkg/batch/adapter/database/config"
	config "github.com/tigerroll/nameforge/pkg/batch/core/config"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

// Resolver opens and caches the named connections declared under adapter.database.
type Resolver struct {
	cfg         *config.Config
	connections map[string]database.DBConnection
	mu          sync.Mutex
}

// NewResolver creates a Resolver over the application configuration.
func NewResolver(cfg *config.Config) *Resolver {
	return &Resolver{
		cfg:         cfg,
		connections: make(map[string]database.DBConnection),
	}
}

// DecodeDatabaseConfig decodes a raw adapter.database entry using its yaml tags.
func DecodeDatabaseConfig(raw interface{}) (dbconfig.DatabaseConfig, error) {
	var cfg dbconfig.DatabaseConfig
	if err := configbinder.BindProperties(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode database config: %w", err)
	}
	return cfg, nil
}

// Resolve returns the connection named name. A cached connection that fails to ping is reopened.
func (r *Resolver) Resolve(ctx context.Context, name string) (database.DBConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.connections[name]; ok {
		sqlDB, err := conn.GetSQLDB()
		if err == nil && sqlDB.PingContext(ctx) == nil {
			return conn, nil
		}
		logger.Warnf("DB connection '%s' is no longer valid. Reconnecting.", name)
		if err := conn.Close(); err != nil {
			logger.Warnf("Failed to close stale DB connection '%s': %v", name, err)
		}
		delete(r.connections, name)
	}

	raw, ok := r.cfg.Nameforge.Adapter.Database[name]
	if !ok {
		return nil, fmt.Errorf("database connection '%s' not found in adapter.database configuration", name)
	}
	dbCfg, err := DecodeDatabaseConfig(raw)
	if err != nil {
		return nil, fmt.Errorf("database connection '%s': %w", name, err)
	}
	conn, err := Open(dbCfg, name)
	if err != nil {
		return nil, fmt.Errorf("database connection '%s': %w", name, err)
	}
	r.connections[name] = conn
	return conn, nil
}

// CloseAll closes every connection opened by the resolver.
func (r *Resolver) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result *multierror.Error
	for name, conn := range r.connections {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close DB connection '%s': %w", name, err))
		}
		delete(r.connections, name)
	}
	return result.ErrorOrNil()
}
