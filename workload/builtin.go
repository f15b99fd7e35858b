package workload

import (
	"context"
	"fmt"
	"io"
	"time"
)

// State holds the mutable payload state shared by the builtin workloads.
//
// Counter is intentionally unsynchronized: when the counter workload runs on
// several workers at once, the resulting data race is what the
// instrumentation under test is expected to observe.
type State struct {
	Counter int

	ticks     uint64
	singleton *target
}

// NewState creates a State with its singleton initialized.
func NewState() *State {
	return &State{singleton: &target{greeting: "Hello from the singleton!"}}
}

// Error reports a failed workload execution.
type Error struct {
	Workload string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("workload %s: %v", e.Workload, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type target struct {
	greeting string
}

func newTarget() *target {
	return &target{greeting: "Hello from Target object!"}
}

func returnTarget(t *target) *target {
	return t
}

func (t *target) sayHello(w io.Writer) {
	fmt.Fprintln(w, t.greeting)
}

type account struct {
	number int
}

func (a *account) Number() int { return a.number }

func (a *account) SetNumber(n int) { a.number = n }

func (a *account) String() string {
	return fmt.Sprintf("account{number: %d}", a.number)
}

type outer struct {
	name string
}

type inner struct {
	parent *outer
	depth  int
}

func (o *outer) inner() inner {
	return inner{parent: o, depth: 1}
}

func (i inner) describe() string {
	return fmt.Sprintf("%s.inner(depth=%d)", i.parent.name, i.depth)
}

type greeter interface {
	greet(name string) string
}

type greeterFunc func(name string) string

func (f greeterFunc) greet(name string) string { return f(name) }

// Builtin returns a registry with the standard payloads, in dispatch order.
// Payload output is written to out.
func Builtin(out io.Writer, state *State) *Registry {
	r := NewRegistry()

	r.MustRegister(Spec{
		Name: "target",
		Run: func(context.Context) error {
			returnTarget(newTarget()).sayHello(out)

			return nil
		},
	})

	acct := &account{}
	r.MustRegister(Spec{
		Name: "accessor",
		Run: func(context.Context) error {
			acct.SetNumber(acct.Number() + 1)
			fmt.Fprintln(out, acct)

			return nil
		},
	})

	r.MustRegister(Spec{
		Name: "singleton",
		Run: func(context.Context) error {
			cp := *state.singleton
			cp.sayHello(out)

			return nil
		},
	})

	r.MustRegister(Spec{
		Name: "nested",
		Run: func(context.Context) error {
			o := &outer{name: "outer"}
			fmt.Fprintln(out, o.inner().describe())

			return nil
		},
	})

	r.MustRegister(Spec{
		Name: "anonymous",
		Run: func(context.Context) error {
			var g greeter = greeterFunc(func(name string) string {
				return "Hello, " + name + "!"
			})
			fmt.Fprintln(out, g.greet("anonymous"))

			return nil
		},
	})

	var calls int
	r.MustRegister(Spec{
		Name: "calc",
		Run: func(context.Context) error {
			calls++
			fmt.Fprintf(out, " <CALCULATION: %d>", calls*2)

			return nil
		},
		Iterations: 1_000_000,
	})

	r.MustRegister(Spec{
		Name: "increment",
		Run: func(context.Context) error {
			state.ticks++

			return nil
		},
		Iterations: 100_000,
	})

	r.MustRegister(Spec{
		Name: "counter",
		Run: func(context.Context) error {
			state.Counter++
			fmt.Fprintf(out, "counter: %d\n", state.Counter)

			return nil
		},
	})

	r.MustRegister(Spec{
		Name: "nap",
		Run: func(ctx context.Context) error {
			timer := time.NewTimer(10 * time.Millisecond)
			defer timer.Stop()

			select {
			case <-ctx.Done():
				return fmt.Errorf("nap interrupted: %w", ctx.Err())
			case <-timer.C:
				return nil
			}
		},
	})

	return r
}
