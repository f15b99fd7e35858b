package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/weiihann/hooktarget/config"
	"github.com/weiihann/hooktarget/extension"
	"github.com/weiihann/hooktarget/history"
	"github.com/weiihann/hooktarget/report"
	"github.com/weiihann/hooktarget/workload"
)

func newWorkloadsCmd(std streams) *cobra.Command {
	return &cobra.Command{
		Use:   "workloads",
		Short: "List the registered workloads in dispatch order",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			registry := workload.Builtin(std.out, workload.NewState())

			tw := tabwriter.NewWriter(std.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tBENCH ITERATIONS")

			for _, spec := range registry.Specs() {
				iterations := "-"
				if spec.Iterations > 0 {
					iterations = fmt.Sprintf("%d", spec.Iterations)
				}

				fmt.Fprintf(tw, "%s\t%s\n", spec.Name, iterations)
			}

			return tw.Flush()
		},
	}
}

func newHistoryCmd(std streams) *cobra.Command {
	var (
		dbPath     string
		limit      int
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show benchmark runs recorded with bench --history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dbPath == "" {
				return errors.New("a history database must be specified via --db")
			}

			store, err := history.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if outputJSON {
				enc := json.NewEncoder(std.out)
				enc.SetIndent("", "  ")

				return enc.Encode(runs)
			}

			return report.GenerateHistory(std.out, runs)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&dbPath, "db", "",
		"Path to the history database")
	flags.IntVar(&limit, "limit", 20,
		"Maximum number of runs to show (0 = all)")
	flags.BoolVar(&outputJSON, "json", false,
		"Output runs as JSON instead of a table")

	return cmd
}

func newConfigCmd(std streams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect hooktarget configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Print the default configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return config.WriteDefault(std.out)
		},
	})

	return cmd
}

func newBuildExtensionCmd(logger *slog.Logger) *cobra.Command {
	var (
		srcDir  string
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "build-extension",
		Short: "Build the sample probe extension as a shared library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := extension.Build(cmd.Context(), logger, srcDir, outPath)

			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&srcDir, "source", "extensions/probe",
		"Directory of the extension's Go module")
	flags.StringVar(&outPath, "output", "",
		"Output library path (default: inside the source directory)")

	return cmd
}
