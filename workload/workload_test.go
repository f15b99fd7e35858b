package workload

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func noop(context.Context) error { return nil }

func TestRegisterPreservesOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"b", "a", "c"} {
		if err := r.Register(Spec{Name: name, Run: noop}); err != nil {
			t.Fatalf("Register(%q) failed: %v", name, err)
		}
	}

	if diff := cmp.Diff([]string{"b", "a", "c"}, r.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestRegisterRejects(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{name: "empty name", spec: Spec{Run: noop}},
		{name: "nil func", spec: Spec{Name: "x"}},
		{name: "duplicate", spec: Spec{Name: "dup", Run: noop}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			r.MustRegister(Spec{Name: "dup", Run: noop})

			if err := r.Register(tt.spec); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSelect(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Spec{Name: "one", Run: noop})
	r.MustRegister(Spec{Name: "two", Run: noop})
	r.MustRegister(Spec{Name: "three", Run: noop})

	specs, err := r.Select([]string{"three", "one"})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	got := make([]string, 0, len(specs))
	for _, s := range specs {
		got = append(got, s.Name)
	}

	if diff := cmp.Diff([]string{"three", "one"}, got); diff != "" {
		t.Errorf("Select order mismatch (-want +got):\n%s", diff)
	}

	all, err := r.Select(nil)
	if err != nil {
		t.Fatalf("Select(nil) failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Select(nil) returned %d specs, want 3", len(all))
	}

	if _, err := r.Select([]string{"missing"}); err == nil {
		t.Error("expected error for unknown workload")
	}
}

func TestNamesReturnsCopy(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Spec{Name: "a", Run: noop})

	names := r.Names()
	names[0] = "mutated"

	if _, ok := r.Get("a"); !ok {
		t.Error("registry mutated through Names() result")
	}
	if r.Names()[0] != "a" {
		t.Errorf("Names()[0] = %q, want a", r.Names()[0])
	}
}

func TestBuiltinOrder(t *testing.T) {
	r := Builtin(&bytes.Buffer{}, NewState())

	want := []string{
		"target", "accessor", "singleton", "nested", "anonymous",
		"calc", "increment", "counter", "nap",
	}
	if diff := cmp.Diff(want, r.Names()); diff != "" {
		t.Errorf("builtin names mismatch (-want +got):\n%s", diff)
	}
}

func TestBuiltinPayloads(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"target", "Hello from Target object!"},
		{"accessor", "account{number: 1}"},
		{"singleton", "Hello from the singleton!"},
		{"nested", "outer.inner(depth=1)"},
		{"anonymous", "Hello, anonymous!"},
		{"calc", "<CALCULATION: 2>"},
		{"counter", "counter: 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			r := Builtin(&out, NewState())

			spec, ok := r.Get(tt.name)
			if !ok {
				t.Fatalf("workload %q not registered", tt.name)
			}

			if err := spec.Run(context.Background()); err != nil {
				t.Fatalf("run failed: %v", err)
			}

			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output = %q, want it to contain %q", out.String(), tt.want)
			}
		})
	}
}

func TestCounterSharesState(t *testing.T) {
	state := NewState()
	r := Builtin(&bytes.Buffer{}, state)

	spec, _ := r.Get("counter")
	for i := 0; i < 5; i++ {
		if err := spec.Run(context.Background()); err != nil {
			t.Fatalf("run failed: %v", err)
		}
	}

	if state.Counter != 5 {
		t.Errorf("counter = %d, want 5", state.Counter)
	}
}

func TestNapHonorsCancellation(t *testing.T) {
	r := Builtin(&bytes.Buffer{}, NewState())
	spec, _ := r.Get("nap")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := spec.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := error(&Error{Workload: "nap", Err: cause})

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to match wrapped cause")
	}
	if err.Error() != "workload nap: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
}
