package stamper

import (
	"fmt"
	"reflect"
	"sort"
)

// Invoker is one registration entry: an operation name, the signature it
// accepts, and the executor that runs it.
type Invoker struct {
	Name string
	Sig  Signature
	Exec Executor
}

// Registry maps operation names to their registered invokers. It is built
// once and never mutated afterwards, so a registry may be read from
// multiple goroutines.
//
// Entries for a name keep their registration order in a slice; map
// iteration order is not stable, so the slice carries the resolution
// order.
type Registry struct {
	byName map[string][]Invoker
}

// NewRegistry builds a registry from the given invokers, preserving their
// order per name. Two entries with the same name and an identical
// signature are a configuration mistake (the second could never be
// reached) and yield an error.
func NewRegistry(invokers []Invoker) (*Registry, error) {
	byName := make(map[string][]Invoker)
	for _, inv := range invokers {
		if inv.Name == "" {
			return nil, fmt.Errorf("invoker with empty name")
		}
		if inv.Exec == nil {
			return nil, fmt.Errorf("invoker %s%s has no executor", inv.Name, inv.Sig)
		}
		for _, existing := range byName[inv.Name] {
			if existing.Sig.Equal(inv.Sig) {
				return nil, fmt.Errorf("duplicate registration for %s%s", inv.Name, inv.Sig)
			}
		}
		byName[inv.Name] = append(byName[inv.Name], inv)
	}
	return &Registry{byName: byName}, nil
}

// Resolve finds the executor for a call with the given name and argument
// types. Nil entries in argTypes mean the dynamic type is unknown (a nil
// argument value) and match any parameter.
//
// The first registered invoker whose signature validates wins, not the
// most specific one. With an exact entry registered before a wildcard
// entry of the same name and arity, calls compatible with both dispatch
// to the exact entry; flip the registration order and the wildcard
// shadows it.
//
// A miss returns (nil, false) rather than an error; whether a missing
// operation is fatal is the caller's call.
func (r *Registry) Resolve(name string, argTypes []reflect.Type) (Executor, bool) {
	for _, inv := range r.byName[name] {
		if inv.Sig.Validate(argTypes) {
			return inv.Exec, true
		}
	}
	return nil, false
}

// Contains reports whether any invoker is registered under the name,
// regardless of signature.
func (r *Registry) Contains(name string) bool {
	return len(r.byName[name]) > 0
}

// Names returns all registered operation names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Signatures returns the registered signatures for a name in registration
// order. Used by diagnostics and the CLI catalog listing.
func (r *Registry) Signatures(name string) []Signature {
	invokers := r.byName[name]
	sigs := make([]Signature, len(invokers))
	for i, inv := range invokers {
		sigs[i] = inv.Sig
	}
	return sigs
}
