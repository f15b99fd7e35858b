package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/weiihann/hooktarget/config"
	"github.com/weiihann/hooktarget/extension"
	"github.com/weiihann/hooktarget/harness"
	"github.com/weiihann/hooktarget/workload"
)

func newRunCmd(
	logger *slog.Logger,
	std streams,
	configPath *string,
) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [extension-path]",
		Short: "Run workloads, optionally after loading a native extension",
		Long: `Load the native extension at extension-path (if given), then run the
registered workloads once, in a polling loop, or on a pool of parallel
workers. Looping modes run until interrupted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, cmd, args)
			if err != nil {
				return err
			}

			return runTarget(cmd.Context(), logger, std, cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("mode", harness.Once.String(),
		"Dispatch mode: once, poll, parallel")
	flags.Duration("poll-interval", harness.DefaultPollInterval,
		"Pause between passes in poll and parallel modes")
	flags.Int("workers", harness.DefaultWorkers,
		"Number of workers in parallel mode")
	flags.StringSlice("workloads", nil,
		"Workloads to run, in order (default: all registered)")
	flags.String("parallel-workload", harness.DefaultParallelWorkload,
		"Workload executed by each parallel worker")
	flags.Bool("wait", false,
		"Wait for ENTER on stdin before loading the extension")
	addExtensionFlags(flags, 0)

	return cmd
}

// addExtensionFlags registers the flags shared by commands that load an
// extension.
func addExtensionFlags(flags *pflag.FlagSet, settle time.Duration) {
	flags.String("entry", "",
		"Exported void(void) symbol to call after loading the extension")
	flags.Duration("settle", settle,
		"Pause after loading the extension before running workloads")
}

// loadConfig resolves the configuration for cmd. A positional argument
// overrides the configured extension path.
func loadConfig(
	path string,
	cmd *cobra.Command,
	args []string,
) (*config.Config, error) {
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, err
	}

	if len(args) > 0 {
		cfg.Extension = args[0]
	}

	return cfg, nil
}

func runTarget(
	ctx context.Context,
	logger *slog.Logger,
	std streams,
	cfg *config.Config,
) error {
	hc, err := cfg.Harness()
	if err != nil {
		return err
	}

	registry := workload.Builtin(std.out, workload.NewState())
	loader := extension.NewLoader(logger,
		extension.WithEntrySymbol(cfg.Entry),
		extension.WithSettle(cfg.Run.Settle),
	)

	h, err := harness.New(hc, registry, loader, logger, std.in, std.out)
	if err != nil {
		return err
	}

	return h.Run(ctx)
}
