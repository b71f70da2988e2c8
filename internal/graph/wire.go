package graph

import (
	"fmt"

	"github.com/vk/wrangler/internal/dataflow"
	"github.com/vk/wrangler/internal/workflow"
)

// wiring is a resolved set of bindings, ready for Node.BindAll.
type wiring struct {
	named  map[string]dataflow.Source
	others []dataflow.Source
}

// wire resolves the bindings of a step without touching the graph. inputs
// are the slots of the step's verb, prev the id of the preceding step. self
// is set when an existing node is rewired: sources downstream of it would
// close a cycle and are rejected here, before anything is unbound.
func (m *Manager) wire(step workflow.Step, inputs []string, prev, self string) (wiring, error) {
	var w wiring
	if !step.HasDefinedInputs() {
		if prev == "" || len(inputs) == 0 {
			return w, nil
		}
		src, err := m.source(workflow.Binding{Node: prev})
		if err != nil {
			return wiring{}, err
		}
		w.named = map[string]dataflow.Source{inputs[0]: src}
		return w, m.checkCycles(w, self)
	}

	w.named = make(map[string]dataflow.Source, len(step.Inputs))
	for _, slot := range step.SortedSlots() {
		src, err := m.source(step.Inputs[slot])
		if err != nil {
			return wiring{}, fmt.Errorf("step %q, input %q: %w", step.ID, slot, err)
		}
		w.named[slot] = src
	}
	if len(step.Others) > 0 {
		w.others = make([]dataflow.Source, 0, len(step.Others))
		for i, b := range step.Others {
			src, err := m.source(b)
			if err != nil {
				return wiring{}, fmt.Errorf("step %q, %s[%d]: %w", step.ID, dataflow.VariadicSlot, i, err)
			}
			w.others = append(w.others, src)
		}
	}
	return w, m.checkCycles(w, self)
}

func (m *Manager) source(b workflow.Binding) (dataflow.Source, error) {
	node, err := m.resolve(b.Node)
	if err != nil {
		return dataflow.Source{}, err
	}
	if _, err := node.Output(b.Output); err != nil {
		return dataflow.Source{}, err
	}
	return dataflow.Source{Node: node, Output: b.Output}, nil
}

// resolve looks an id up as a live node first, then as a declared input,
// which is wrapped in a static node holding the registered table.
func (m *Manager) resolve(id string) (*dataflow.Node, error) {
	if m.graph.HasNode(id) {
		return m.graph.Node(id)
	}
	if m.workflow.HasInput(id) {
		return dataflow.NewStaticNode(id, m.inputs[id]), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownReference, id)
}

func (m *Manager) checkCycles(w wiring, self string) error {
	if self == "" {
		return nil
	}
	downstream := map[string]bool{self: true}
	queue := []string{self}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		dependents, err := m.graph.DependentsOf(id)
		if err != nil {
			return err
		}
		for _, d := range dependents {
			if !downstream[d] {
				downstream[d] = true
				queue = append(queue, d)
			}
		}
	}

	sources := make([]dataflow.Source, 0, len(w.named)+len(w.others))
	for _, src := range w.named {
		sources = append(sources, src)
	}
	sources = append(sources, w.others...)
	for _, src := range sources {
		if m.graph.HasNode(src.Node.ID()) && downstream[src.Node.ID()] {
			return fmt.Errorf("%w: %q cannot consume %q", dataflow.ErrCycle, self, src.Node.ID())
		}
	}
	return nil
}
