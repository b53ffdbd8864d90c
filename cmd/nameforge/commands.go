package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tigerroll/nameforge/internal/app"
	config "github.com/tigerroll/nameforge/pkg/batch/core/config"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	envFile    string
	noColor    bool
}

// exitCodeError carries a non-zero exit code that has already been reported.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "nameforge",
		Short: "Resumable batch enrichment pipeline",
		Long: `nameforge enriches a ranked list of work items through a rate-limited client.

Every item is checkpointed durably, so a run can be interrupted at any point
and the next run continues with the items that are not done yet.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "configuration file (defaults to the embedded application.yaml)")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", os.Getenv("ENV_FILE_PATH"), ".env file to load before reading the configuration")
	root.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newRunCommand(flags),
		newStatusCommand(flags),
		newRequeueCommand(flags),
		newClearSkippedCommand(flags),
		newExportCommand(flags),
	)
	return root
}

func (f *globalFlags) load(overrides func(*config.BatchConfig)) (*config.Config, error) {
	return app.LoadConfig(app.ConfigOptions{
		EnvFile:        f.envFile,
		ConfigPath:     f.configPath,
		Embedded:       embeddedConfig,
		BatchOverrides: overrides,
	})
}

func newRunCommand(flags *globalFlags) *cobra.Command {
	var (
		noRetryPass bool
		maxDuration time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run [batchSize|all]",
		Short: "Enrich the next batch of remaining work items",
		Long: `Run takes the next batchSize items that are neither enriched nor skipped,
enriches them one at a time and finishes with a retry pass over this run's failures.

The process exits 0 whenever the run completes, even when some items failed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(func(b *config.BatchConfig) {
				if noRetryPass {
					disabled := false
					b.RetryPass = &disabled
				}
				if maxDuration > 0 {
					b.MaxDuration = maxDuration.String()
				}
			})
			if err != nil {
				return err
			}

			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			batchSize, err := app.ParseBatchSize(arg, cfg.Nameforge.Batch.BatchSize)
			if err != nil {
				return err
			}

			code := app.RunBatch(cmd.Context(), cfg, app.RunRequest{
				BatchSize: batchSize,
				Out:       cmd.OutOrStdout(),
				NoColor:   flags.noColor,
			})
			if code != app.ExitOK {
				return &exitCodeError{code: code}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noRetryPass, "no-retry-pass", false, "skip the retry pass at the end of the run")
	cmd.Flags().DurationVar(&maxDuration, "max-duration", 0, "stop at the next item boundary after this long (e.g. 45m)")
	return cmd
}

func newStatusCommand(flags *globalFlags) *cobra.Command {
	var showItems bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pipeline totals and the failure ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load(nil)
			if err != nil {
				return err
			}
			return app.Status(cmd.Context(), cfg, app.StatusRequest{
				Out:       cmd.OutOrStdout(),
				NoColor:   flags.noColor,
				ShowItems: showItems,
			})
		},
	}
	cmd.Flags().BoolVar(&showItems, "items", false, "list every item that is not pending")
	return cmd
}

func newRequeueCommand(flags *globalFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "requeue <id>...",
		Short: "Make items eligible for processing again",
		Long: `Requeue removes the given ids from the skipped set and the failure ledger.
With --force they are also removed from the manifest, so enriched items are processed again.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(nil)
			if err != nil {
				return err
			}
			return app.Requeue(cmd.Context(), cfg, cmd.OutOrStdout(), args, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "also drop the items from the manifest")
	return cmd
}

func newClearSkippedCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-skipped",
		Short: "Release every skipped item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load(nil)
			if err != nil {
				return err
			}
			return app.ClearSkipped(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
}

func newExportCommand(flags *globalFlags) *cobra.Command {
	req := app.ExportRequest{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write per-item status rows as Parquet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load(nil)
			if err != nil {
				return err
			}
			req.Out = cmd.OutOrStdout()
			return app.Export(cmd.Context(), cfg, req)
		},
	}
	cmd.Flags().StringVarP(&req.Object, "out", "o", "", "object name to write (required)")
	cmd.Flags().StringVar(&req.StorageRef, "storage", "", "adapter.storage connection (defaults to state.storage_ref)")
	cmd.Flags().StringVar(&req.Compression, "compression", "SNAPPY", "SNAPPY, GZIP or NONE")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
