// Package main is the entry point of the nameforge batch enrichment CLI.
package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	// Database dialects and storage adapters register themselves in init.
	_ "github.com/tigerroll/nameforge/pkg/batch/adapter/database/gorm/mysql"
	_ "github.com/tigerroll/nameforge/pkg/batch/adapter/database/gorm/postgres"
	_ "github.com/tigerroll/nameforge/pkg/batch/adapter/database/gorm/sqlite"
	_ "github.com/tigerroll/nameforge/pkg/batch/adapter/storage/gcs"
	_ "github.com/tigerroll/nameforge/pkg/batch/adapter/storage/local"
	_ "github.com/tigerroll/nameforge/pkg/batch/adapter/storage/s3"

	"github.com/tigerroll/nameforge/internal/app"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

// embeddedConfig is used when --config is not given.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// main cancels the application context on SIGINT/SIGTERM so the driver stops at the next item boundary.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Stopping after the current item...", sig)
		cancel()
	}()

	root := newRootCommand()
	err := root.ExecuteContext(ctx)
	if err == nil {
		return
	}
	var exitErr *exitCodeError
	if errors.As(err, &exitErr) {
		cancel()
		os.Exit(exitErr.code)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	cancel()
	os.Exit(app.ExitFatal)
}
