package report

import (
	"fmt"
	"io"
	"time"

	"github.com/weiihann/hooktarget/history"
)

// GenerateHistory writes a markdown table of recorded runs.
func GenerateHistory(w io.Writer, runs []history.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No recorded runs.")

		return nil
	}

	fmt.Fprintln(w, "| ID | Recorded | Workload | Iterations | Clean | Hooked | Delta |")
	fmt.Fprintln(w, "|----|----------|----------|------------|-------|--------|-------|")

	for _, r := range runs {
		c := r.Comparison

		fmt.Fprintf(w, "| %s | %s | %s | %d | %s | %s | %s |\n",
			r.ID,
			r.RecordedAt.UTC().Format(time.RFC3339),
			c.Workload,
			c.Clean.Iterations,
			formatMs(c.Clean.ElapsedMs()),
			formatMs(c.Hooked.ElapsedMs()),
			formatDelta(c.Hooked.Elapsed-c.Clean.Elapsed),
		)
	}

	return nil
}
