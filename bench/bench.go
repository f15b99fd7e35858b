package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/weiihann/hooktarget/workload"
)

// cancelCheckMask sets how often the timed loop polls for cancellation.
const cancelCheckMask = 1<<12 - 1

// DefaultIterations is used when neither the caller nor the workload
// specifies an iteration count.
const DefaultIterations = 100_000

// Loader attaches an extension to the process.
type Loader interface {
	Load(ctx context.Context, path string) error
}

// Benchmark runs the clean and hooked phases of a workload.
type Benchmark struct {
	Loader Loader
	Out    io.Writer
	Logger *slog.Logger
}

// New creates a Benchmark that prints phase markers to out.
func New(loader Loader, out io.Writer, logger *slog.Logger) *Benchmark {
	return &Benchmark{
		Loader: loader,
		Out:    out,
		Logger: logger,
	}
}

// Iterations resolves the iteration count for spec: an explicit count wins,
// then the workload default, then DefaultIterations.
func Iterations(spec workload.Spec, explicit uint64) uint64 {
	switch {
	case explicit > 0:
		return explicit
	case spec.Iterations > 0:
		return spec.Iterations
	default:
		return DefaultIterations
	}
}

// Run measures spec for iterations calls, loads the extension at path, then
// measures the same number of calls again. A load failure is returned
// unchanged and the hooked phase is not run. Run does not compare the two
// results.
func (b *Benchmark) Run(
	ctx context.Context,
	spec workload.Spec,
	iterations uint64,
	path string,
) (Comparison, error) {
	if iterations == 0 {
		return Comparison{}, errors.New("iterations must be at least 1")
	}

	logger := b.Logger.With(slog.String("workload", spec.Name))
	cmp := Comparison{Workload: spec.Name, Extension: path}

	logger.InfoContext(ctx, "starting benchmark",
		slog.Uint64("iterations", iterations),
		slog.String("extension", path),
	)

	fmt.Fprintln(b.Out, "[CLEAN]")

	clean, err := Measure(ctx, Clean, spec, iterations)
	if err != nil {
		return cmp, fmt.Errorf("clean phase: %w", err)
	}

	cmp.Clean = clean
	b.printElapsed(clean)

	fmt.Fprintln(b.Out, "Loading library...")

	if err := b.Loader.Load(ctx, path); err != nil {
		return cmp, err
	}

	fmt.Fprintln(b.Out, "Loaded")
	fmt.Fprintln(b.Out, "[HOOKED]")

	hooked, err := Measure(ctx, Hooked, spec, iterations)
	if err != nil {
		return cmp, fmt.Errorf("hooked phase: %w", err)
	}

	cmp.Hooked = hooked
	b.printElapsed(hooked)

	logger.InfoContext(ctx, "benchmark finished",
		slog.Duration("clean", clean.Elapsed),
		slog.Duration("hooked", hooked.Elapsed),
	)

	return cmp, nil
}

func (b *Benchmark) printElapsed(r Result) {
	fmt.Fprintln(b.Out)
	fmt.Fprintf(b.Out, "Time to run: %dms\n", r.ElapsedMs())
	fmt.Fprintln(b.Out)
}

// Measure calls spec.Run exactly iterations times and reports the elapsed
// monotonic time between the first call and the return of the last. A
// workload error aborts the measurement.
func Measure(
	ctx context.Context,
	phase Phase,
	spec workload.Spec,
	iterations uint64,
) (Result, error) {
	var mem runtime.MemStats

	runtime.ReadMemStats(&mem)
	allocBefore := mem.TotalAlloc

	start := time.Now()

	for i := uint64(0); i < iterations; i++ {
		if i&cancelCheckMask == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, fmt.Errorf(
					"canceled after %d iterations: %w", i, err,
				)
			}
		}

		if err := spec.Run(ctx); err != nil {
			return Result{}, &workload.Error{Workload: spec.Name, Err: err}
		}
	}

	elapsed := time.Since(start)

	runtime.ReadMemStats(&mem)

	return Result{
		Phase:      phase,
		Iterations: iterations,
		Elapsed:    elapsed,
		AllocBytes: mem.TotalAlloc - allocBefore,
	}, nil
}
