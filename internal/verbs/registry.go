package verbs

import (
	"fmt"
	"sort"
)

// Module is implemented by every group of verbs compiled into the binary.
type Module interface {
	Register(r *Registry)
}

// Registry maps verb names to their descriptors.
type Registry struct {
	verbs map[Verb]*Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{verbs: make(map[Verb]*Descriptor)}
}

// Register adds a descriptor. Registering the same verb twice is a
// programming error and panics.
func (r *Registry) Register(d *Descriptor) {
	if _, exists := r.verbs[d.Verb]; exists {
		panic(fmt.Sprintf("verb '%s' already registered", d.Verb))
	}
	if d.NewArgs == nil || d.Fn == nil {
		panic(fmt.Sprintf("verb '%s' registered without args or executor", d.Verb))
	}
	r.verbs[d.Verb] = d
}

// Lookup returns the descriptor of v.
func (r *Registry) Lookup(v Verb) (*Descriptor, error) {
	d, ok := r.verbs[v]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVerb, v)
	}
	return d, nil
}

// Verbs lists registered verbs in name order.
func (r *Registry) Verbs() []Verb {
	out := make([]Verb, 0, len(r.verbs))
	for v := range r.verbs {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ColumnTransformVerbs lists verbs that only add or rewrite one column.
func (r *Registry) ColumnTransformVerbs() []Verb {
	var out []Verb
	for _, v := range r.Verbs() {
		d := r.verbs[v]
		if d.OutputColumn && !d.RowModifying {
			out = append(out, v)
		}
	}
	return out
}

// coreModules is the list of verb groups compiled into the binary.
var coreModules = []Module{
	columnModule{},
	rowModule{},
	aggregateModule{},
	joinModule{},
	setModule{},
	shapeModule{},
	parseModule{},
	chainModule{},
}

// Default returns a registry holding every built-in verb. Extra modules are
// registered after the built-ins; a *FetchModule among them replaces the
// default fetch configuration.
func Default(extra ...Module) *Registry {
	r := NewRegistry()
	for _, m := range coreModules {
		m.Register(r)
	}
	var fetch Module = &FetchModule{}
	for _, m := range extra {
		if f, ok := m.(*FetchModule); ok {
			fetch = f
			continue
		}
		m.Register(r)
	}
	fetch.Register(r)
	return r
}
