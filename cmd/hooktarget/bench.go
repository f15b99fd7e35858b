package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/weiihann/hooktarget/bench"
	"github.com/weiihann/hooktarget/config"
	"github.com/weiihann/hooktarget/extension"
	"github.com/weiihann/hooktarget/history"
	"github.com/weiihann/hooktarget/report"
	"github.com/weiihann/hooktarget/workload"
)

func newBenchCmd(
	logger *slog.Logger,
	std streams,
	configPath *string,
) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench <extension-path>",
		Short: "Time a workload before and after loading a native extension",
		Long: `Run a workload a fixed number of times with no extension loaded, load the
extension, then run it the same number of times again and report the
elapsed time of both phases.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, cmd, args)
			if err != nil {
				return err
			}

			return runBench(cmd.Context(), logger, std, cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("workload", "calc",
		"Workload to benchmark")
	flags.Uint64("iterations", 0,
		"Iterations per phase (default: the workload's own count, or 100000)")
	flags.Bool("quiet", false,
		"Discard workload output during the timed phases")
	flags.Bool("json", false,
		"Output results as JSON instead of a table")
	flags.String("history", "",
		"SQLite database to record the run in")
	addExtensionFlags(flags, config.DefaultBenchSettle)

	return cmd
}

func runBench(
	ctx context.Context,
	logger *slog.Logger,
	std streams,
	cfg *config.Config,
) error {
	fmt.Fprintln(std.out, "[*] Started Performance Test")

	if err := cfg.RequireExtension(); err != nil {
		return err
	}

	if err := extension.Check(cfg.Extension); err != nil {
		return err
	}

	payload := std.out
	if cfg.Bench.Quiet {
		payload = io.Discard
	}

	registry := workload.Builtin(payload, workload.NewState())

	spec, ok := registry.Get(cfg.Bench.Workload)
	if !ok {
		return fmt.Errorf("unknown workload %q", cfg.Bench.Workload)
	}

	loader := extension.NewLoader(logger,
		extension.WithEntrySymbol(cfg.Entry),
		extension.WithSettle(cfg.Bench.Settle),
	)

	b := bench.New(loader, std.out, logger)

	result, err := b.Run(ctx, spec, bench.Iterations(spec, cfg.Bench.Iterations), cfg.Extension)
	if err != nil {
		return err
	}

	fmt.Fprintln(std.out, "[*] Finished Performance Test")

	if cfg.Bench.History != "" {
		if err := recordRun(ctx, logger, cfg.Bench.History, result); err != nil {
			return err
		}
	}

	results := []bench.Comparison{result}

	if cfg.Bench.JSON {
		if err := report.GenerateJSON(std.out, results); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}

		return nil
	}

	if err := report.Generate(std.out, results); err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	return nil
}

func recordRun(
	ctx context.Context,
	logger *slog.Logger,
	path string,
	result bench.Comparison,
) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.Record(ctx, result)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "run recorded",
		slog.String("id", id),
		slog.String("history", path),
	)

	return nil
}
