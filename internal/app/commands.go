package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/nameforge/pkg/batch/adapter/storage"
	"github.com/tigerroll/nameforge/pkg/batch/component/report"
	usecase "github.com/tigerroll/nameforge/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/nameforge/pkg/batch/core/config"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

// stateDeps are the components the operator commands use.
type stateDeps struct {
	fx.In

	Config   *config.Config
	Explorer usecase.BatchExplorer
	Operator usecase.BatchOperator
	Storage  *storageAdapter.Resolver
}

// withState builds the state-only application, runs fn and stops the application again.
func withState(appCtx context.Context, cfg *config.Config, fn func(ctx context.Context, deps stateDeps) error) (err error) {
	var deps stateDeps
	app := newApp(appCtx, cfg, StateModule, fx.Populate(&deps))
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(appCtx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
		defer cancelStop()
		if stopErr := app.Stop(stopCtx); stopErr != nil {
			logger.Warnf("Application did not stop cleanly: %v", stopErr)
		}
	}()
	return fn(appCtx, deps)
}

// StatusRequest describes one invocation of the status command.
type StatusRequest struct {
	Out       io.Writer
	NoColor   bool
	ShowItems bool
}

// Status prints the pipeline totals and the failure ledger.
func Status(appCtx context.Context, cfg *config.Config, req StatusRequest) error {
	return withState(appCtx, cfg, func(ctx context.Context, deps stateDeps) error {
		snapshot, err := deps.Explorer.Snapshot(ctx)
		if err != nil {
			return err
		}
		return report.RenderStatus(req.Out, snapshot, report.RenderOptions{
			NoColor:   req.NoColor,
			ShowItems: req.ShowItems,
		})
	})
}

// Requeue makes ids eligible for processing again. force also removes them from the Manifest.
func Requeue(appCtx context.Context, cfg *config.Config, out io.Writer, ids []string, force bool) error {
	return withState(appCtx, cfg, func(ctx context.Context, deps stateDeps) error {
		changed, err := deps.Operator.Requeue(ctx, ids, force)
		if err != nil {
			return err
		}
		if len(changed) == 0 {
			_, err = fmt.Fprintln(out, "Nothing to requeue.")
			return err
		}
		_, err = fmt.Fprintf(out, "Requeued %d item(s): %s\n", len(changed), strings.Join(changed, ", "))
		return err
	})
}

// ClearSkipped empties the Skipped set.
func ClearSkipped(appCtx context.Context, cfg *config.Config, out io.Writer) error {
	return withState(appCtx, cfg, func(ctx context.Context, deps stateDeps) error {
		released, err := deps.Operator.ClearSkipped(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "Released %d skipped item(s).\n", len(released))
		return err
	})
}

// ExportRequest describes one invocation of the export command.
type ExportRequest struct {
	// Object is the object name written in the storage connection's default bucket.
	Object string
	// StorageRef names the adapter.storage connection. Empty uses state.storage_ref.
	StorageRef  string
	Compression string
	Out         io.Writer
}

// Export writes per-item status rows as Parquet to a storage connection.
func Export(appCtx context.Context, cfg *config.Config, req ExportRequest) error {
	if req.Object == "" {
		return exception.NewBatchError("export", "an output object name is required", nil, false, false)
	}
	return withState(appCtx, cfg, func(ctx context.Context, deps stateDeps) error {
		ref := req.StorageRef
		if ref == "" {
			ref = deps.Config.Nameforge.State.StorageRef
		}
		conn, err := deps.Storage.Resolve(ctx, ref)
		if err != nil {
			return exception.NewStorageError("export", "failed to open export storage", err)
		}
		exporter, err := report.NewParquetExporter(conn, req.Compression)
		if err != nil {
			return err
		}

		snapshot, err := deps.Explorer.Snapshot(ctx)
		if err != nil {
			return err
		}
		rows := report.NewStatusRows(snapshot)
		if err := exporter.Export(ctx, req.Object, rows); err != nil {
			return err
		}
		_, err = fmt.Fprintf(writerOrDiscard(req.Out), "Exported %d row(s) to %s:%s\n", len(rows), conn.Name(), req.Object)
		return err
	})
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
