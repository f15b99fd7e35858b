// Package bench measures the wall-clock cost of a workload before and after
// a native extension is attached to the process.
package bench

import (
	"fmt"
	"time"
)

// Phase identifies one half of a benchmark run.
type Phase int

const (
	// Clean is the phase measured with no extension loaded.
	Clean Phase = iota
	// Hooked is the phase measured after the extension is loaded.
	Hooked
)

func (p Phase) String() string {
	switch p {
	case Clean:
		return "CLEAN"
	case Hooked:
		return "HOOKED"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "CLEAN":
		*p = Clean
	case "HOOKED":
		*p = Hooked
	default:
		return fmt.Errorf("unknown phase %q", b)
	}

	return nil
}

// Result holds the measurement of a single phase.
type Result struct {
	Phase      Phase         `json:"phase"`
	Iterations uint64        `json:"iterations"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	AllocBytes uint64        `json:"alloc_bytes"`
}

// ElapsedMs returns the elapsed time in whole milliseconds.
func (r Result) ElapsedMs() int64 {
	return r.Elapsed.Milliseconds()
}

// Comparison pairs the clean and hooked measurements of one workload.
type Comparison struct {
	Workload  string `json:"workload"`
	Extension string `json:"extension"`
	Clean     Result `json:"clean"`
	Hooked    Result `json:"hooked"`
}
