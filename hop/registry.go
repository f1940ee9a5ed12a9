package hop

import (
	"maps"
	"slices"
)

// NativeFunc is a host-implemented procedure. It receives the running
// context, pops the arguments it needs from the pass stack, and may push one
// result. A returned error is fatal to the run.
type NativeFunc func(c *Context) error

// Registry maps native function names to their implementations. Natives are
// consulted before labels when a call is resolved.
type Registry struct {
	funcs map[string]NativeFunc
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]NativeFunc)}
}

// Register binds name to fn, replacing any existing binding. It reports
// whether a binding was replaced.
func (r *Registry) Register(name string, fn NativeFunc) bool {
	if _, ok := r.funcs[name]; ok {
		r.funcs[name] = fn
		return true
	}
	r.funcs[name] = fn
	r.order = append(r.order, name)
	return false
}

// Lookup returns the native bound to name.
func (r *Registry) Lookup(name string) (NativeFunc, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	return &Registry{funcs: maps.Clone(r.funcs), order: slices.Clone(r.order)}
}

// Merge copies every binding of other into r, later bindings winning. It
// returns the names that were not bound in r before.
func (r *Registry) Merge(other *Registry) []string {
	var added []string
	for _, name := range other.order {
		if !r.Register(name, other.funcs[name]) {
			added = append(added, name)
		}
	}
	return added
}
