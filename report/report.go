// Package report formats clean and hooked benchmark measurements.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/weiihann/hooktarget/bench"
)

// Generate writes a markdown comparison table for the given results.
func Generate(w io.Writer, results []bench.Comparison) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to report")
	}

	fmt.Fprintln(w, "## Benchmark Results")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "| Workload | Iterations | Clean | Hooked | Delta "+
		"| Per Call (clean) | Per Call (hooked) |")
	fmt.Fprintln(w, "|----------|------------|-------|--------|-------"+
		"|------------------|-------------------|")

	for _, r := range results {
		fmt.Fprintf(w, "| %s | %d | %s | %s | %s | %s | %s |\n",
			r.Workload,
			r.Clean.Iterations,
			formatMs(r.Clean.ElapsedMs()),
			formatMs(r.Hooked.ElapsedMs()),
			formatDelta(r.Hooked.Elapsed-r.Clean.Elapsed),
			perCall(r.Clean),
			perCall(r.Hooked),
		)
	}

	fmt.Fprintln(w)

	fmt.Fprintln(w, "| Workload | Extension | Alloc (clean) | Alloc (hooked) |")
	fmt.Fprintln(w, "|----------|-----------|---------------|----------------|")

	for _, r := range results {
		ext := r.Extension
		if ext == "" {
			ext = "-"
		}

		fmt.Fprintf(w, "| %s | %s | %s | %s |\n",
			r.Workload,
			ext,
			formatBytes(r.Clean.AllocBytes),
			formatBytes(r.Hooked.AllocBytes),
		)
	}

	return nil
}

// GenerateJSON writes results as JSON to w.
func GenerateJSON(w io.Writer, results []bench.Comparison) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(results)
}

func perCall(r bench.Result) string {
	if r.Iterations == 0 {
		return "-"
	}

	return (r.Elapsed / time.Duration(r.Iterations)).String()
}

func formatDelta(d time.Duration) string {
	ms := d.Milliseconds()
	if ms >= 0 {
		return "+" + formatMs(ms)
	}

	return "-" + formatMs(-ms)
}

func formatMs(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}

	return fmt.Sprintf("%.2fs", float64(ms)/1000)
}

func formatBytes(b uint64) string {
	if b == 0 {
		return "-"
	}

	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(b)
	unit := 0

	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}

	formatted := fmt.Sprintf("%.1f", size)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimRight(formatted, ".")

	return formatted + " " + units[unit]
}
