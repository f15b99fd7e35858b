// Package workload defines the named units of work a target process runs
// while an instrumentation tool observes it. Each workload is a small,
// repeatable function registered under a unique name.
package workload

import (
	"context"
	"errors"
	"fmt"
)

// Func is a single execution of a workload.
type Func func(ctx context.Context) error

// Spec describes a registered workload.
type Spec struct {
	Name string
	Run  Func
	// Iterations is the default iteration count used when the workload is
	// benchmarked. Zero means no preference.
	Iterations uint64
}

// Registry maps workload names to specs, preserving registration order.
type Registry struct {
	order []string
	specs map[string]Spec
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]Spec)}
}

// Register adds spec to the registry. Names are unique.
func (r *Registry) Register(spec Spec) error {
	if spec.Name == "" {
		return errors.New("register workload: empty name")
	}

	if spec.Run == nil {
		return fmt.Errorf("register workload %q: nil run func", spec.Name)
	}

	if _, ok := r.specs[spec.Name]; ok {
		return fmt.Errorf("register workload %q: already registered", spec.Name)
	}

	r.order = append(r.order, spec.Name)
	r.specs[spec.Name] = spec

	return nil
}

// MustRegister is like Register but panics on error. It is meant for
// static registration at program start.
func (r *Registry) MustRegister(spec Spec) {
	if err := r.Register(spec); err != nil {
		panic(err)
	}
}

// Get returns the spec registered under name.
func (r *Registry) Get(name string) (Spec, bool) {
	spec, ok := r.specs[name]

	return spec, ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)

	return names
}

// Specs returns all registered specs in registration order.
func (r *Registry) Specs() []Spec {
	specs := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.specs[name])
	}

	return specs
}

// Select returns the specs for names, in the order given. An empty names
// list selects every registered workload.
func (r *Registry) Select(names []string) ([]Spec, error) {
	if len(names) == 0 {
		return r.Specs(), nil
	}

	specs := make([]Spec, 0, len(names))

	for _, name := range names {
		spec, ok := r.specs[name]
		if !ok {
			return nil, fmt.Errorf("unknown workload %q", name)
		}

		specs = append(specs, spec)
	}

	return specs, nil
}
