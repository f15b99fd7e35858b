// Package main provides the CLI entry point for hooktarget, a target process
// for validating native instrumentation extensions.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// streams carries the process standard streams so tests can replace them.
type streams struct {
	in  io.Reader
	out io.Writer
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)

	root := newRootCmd(logger, streams{in: os.Stdin, out: os.Stdout})
	err := root.ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger, std streams) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "hooktarget",
		Short: "Target process for validating native instrumentation extensions",
		Long: `Hooktarget starts a process, optionally loads a native extension into it,
and runs representative workloads so that a hooking tool can be validated
against them before and after the extension is attached.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a TOML config file (default: ./hooktarget.toml if present)")

	root.AddCommand(
		newRunCmd(logger, std, &configPath),
		newBenchCmd(logger, std, &configPath),
		newWorkloadsCmd(std),
		newHistoryCmd(std),
		newConfigCmd(std),
		newBuildExtensionCmd(logger),
	)

	return root
}
