// Package harness drives the lifecycle of a target process: an optional
// start gate, an optional extension load, then workload dispatch once, in a
// polling loop, or across a pool of workers.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weiihann/hooktarget/workload"
)

// Mode selects how workloads are dispatched.
type Mode int

const (
	// Once runs the workload sequence a single time.
	Once Mode = iota
	// Poll runs the workload sequence repeatedly, pausing between passes.
	Poll
	// Parallel runs one workload repeatedly on several workers.
	Parallel
)

func (m Mode) String() string {
	switch m {
	case Once:
		return "once"
	case Poll:
		return "poll"
	case Parallel:
		return "parallel"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "once":
		return Once, nil
	case "poll":
		return Poll, nil
	case "parallel":
		return Parallel, nil
	default:
		return Once, fmt.Errorf("unknown mode %q (want once, poll or parallel)", s)
	}
}

// Defaults applied by Config.Validate.
const (
	DefaultPollInterval     = time.Second
	DefaultWorkers          = 2
	DefaultParallelWorkload = "counter"
)

// Config holds parameters for a harness run.
type Config struct {
	ExtensionPath    string
	Mode             Mode
	PollInterval     time.Duration
	Workers          int
	Workloads        []string
	ParallelWorkload string
	Wait             bool
}

// Validate fills zero values with defaults and rejects invalid settings.
func (c *Config) Validate() error {
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}

	if c.PollInterval < 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}

	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}

	if c.Workers < 0 {
		return fmt.Errorf("worker count must be positive, got %d", c.Workers)
	}

	if c.ParallelWorkload == "" {
		c.ParallelWorkload = DefaultParallelWorkload
	}

	return nil
}

// Loader attaches an extension to the process.
type Loader interface {
	Load(ctx context.Context, path string) error
}

// Harness runs workloads from a registry according to a Config.
type Harness struct {
	cfg      Config
	sequence []workload.Spec
	parallel workload.Spec
	loader   Loader
	logger   *slog.Logger
	in       io.Reader
	out      io.Writer

	passes   atomic.Uint64
	failures atomic.Uint64
}

// New creates a Harness. Status lines are written to out and the start gate,
// when enabled, reads from in.
func New(
	cfg Config,
	registry *workload.Registry,
	loader Loader,
	logger *slog.Logger,
	in io.Reader,
	out io.Writer,
) (*Harness, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	h := &Harness{
		cfg:    cfg,
		loader: loader,
		logger: logger.With(slog.String("mode", cfg.Mode.String())),
		in:     in,
		out:    out,
	}

	switch cfg.Mode {
	case Once, Poll:
		seq, err := registry.Select(cfg.Workloads)
		if err != nil {
			return nil, err
		}

		h.sequence = seq

	case Parallel:
		spec, ok := registry.Get(cfg.ParallelWorkload)
		if !ok {
			return nil, fmt.Errorf("unknown workload %q", cfg.ParallelWorkload)
		}

		h.parallel = spec

	default:
		return nil, fmt.Errorf("unsupported mode %s", cfg.Mode)
	}

	return h, nil
}

// Passes returns the number of completed dispatch passes. In parallel mode
// every worker iteration counts as one pass.
func (h *Harness) Passes() uint64 { return h.passes.Load() }

// Failures returns the number of workload executions that returned an error.
func (h *Harness) Failures() uint64 { return h.failures.Load() }

// Run executes the harness. The extension, if configured, is loaded before
// the first workload dispatch; a load failure is returned without running
// any workload. Looping modes return nil once ctx is canceled.
func (h *Harness) Run(ctx context.Context) error {
	h.logger.InfoContext(ctx, "target started", slog.Int("pid", os.Getpid()))
	fmt.Fprintln(h.out, "[*] Started target")

	if h.cfg.Wait {
		if err := Gate(ctx, h.in, h.out); err != nil {
			return err
		}
	}

	if h.cfg.ExtensionPath != "" {
		fmt.Fprintln(h.out, "Loading library...")
	}

	if err := h.loader.Load(ctx, h.cfg.ExtensionPath); err != nil {
		return err
	}

	if h.cfg.ExtensionPath != "" {
		fmt.Fprintln(h.out, "Loaded")
	}

	switch h.cfg.Mode {
	case Poll:
		h.poll(ctx)
	case Parallel:
		if err := h.runParallel(ctx); err != nil {
			return err
		}
	default:
		h.runSequence(ctx)
	}

	h.logger.InfoContext(ctx, "target finished",
		slog.Uint64("passes", h.Passes()),
		slog.Uint64("failures", h.Failures()),
	)

	return nil
}

func (h *Harness) runSequence(ctx context.Context) {
	for _, spec := range h.sequence {
		h.dispatch(ctx, spec)
	}

	h.passes.Add(1)
}

func (h *Harness) poll(ctx context.Context) {
	for {
		h.runSequence(ctx)

		if !sleep(ctx, h.cfg.PollInterval) {
			return
		}
	}
}

// runParallel starts the workers and blocks until all of them return. The
// workers share whatever state the workload touches; no synchronization is
// added around it.
func (h *Harness) runParallel(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < h.cfg.Workers; i++ {
		worker := i

		g.Go(func() error {
			h.logger.DebugContext(gctx, "worker started", slog.Int("worker", worker))

			for {
				h.dispatch(gctx, h.parallel)
				h.passes.Add(1)

				if !sleep(gctx, h.cfg.PollInterval) {
					return nil
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("parallel workers: %w", err)
	}

	return nil
}

// dispatch runs spec once. Errors are logged and counted; the caller keeps
// going.
func (h *Harness) dispatch(ctx context.Context, spec workload.Spec) {
	err := spec.Run(ctx)
	if err == nil {
		return
	}

	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return
	}

	h.failures.Add(1)

	werr := &workload.Error{Workload: spec.Name, Err: err}
	h.logger.WarnContext(ctx, "workload failed",
		slog.String("workload", spec.Name),
		slog.String("error", werr.Error()),
	)
}

// sleep waits for d and reports false if ctx was canceled first.
func sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
