package harness

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
)

// GatePrompt is printed before the gate blocks.
const GatePrompt = "Press [ENTER] to begin running..."

// Gate prints GatePrompt to out and blocks until a line (or EOF) is read
// from in, or ctx is done. It lets an external tool attach to the process
// before any workload runs.
func Gate(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprint(out, GatePrompt)

	done := make(chan error, 1)

	go func() {
		_, err := bufio.NewReader(in).ReadString('\n')
		done <- err
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("wait for start signal: %w", ctx.Err())
	case err := <-done:
		fmt.Fprintln(out)

		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("wait for start signal: %w", err)
		}

		return nil
	}
}
