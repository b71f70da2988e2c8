// internal/workflow/workflow.go
package workflow

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
	"github.com/vk/wrangler/internal/nodeid"
	"github.com/vk/wrangler/internal/verbs"
)

var (
	ErrDuplicateStep   = errors.New("duplicate step id")
	ErrRename          = errors.New("step rename not supported")
	ErrIndexOutOfRange = errors.New("step index out of range")
	ErrDuplicateOutput = errors.New("duplicate output name")
	ErrInvalidID       = errors.New("invalid id")
)

// Binding references the output of a step or a declared input. An empty
// Output selects the source's default output.
type Binding struct {
	Node   string
	Output string
}

// Step is one declared transformation.
type Step struct {
	ID          string
	Verb        verbs.Verb
	Description string
	// Args is the verb-specific argument record: either the verb's argument
	// struct or a JSON-like value (maps, slices, scalars) decoded into it.
	Args any
	// Inputs maps named slots to their sources.
	Inputs map[string]Binding
	// Others is the ordered variadic list, serialized under the reserved
	// "others" slot.
	Others []Binding
}

// HasDefinedInputs reports whether the step carries explicit bindings.
// Steps without them are auto-bound to their predecessor.
func (s Step) HasDefinedInputs() bool {
	return len(s.Inputs) > 0 || len(s.Others) > 0
}

func (s Step) clone() Step {
	s.Inputs = maps.Clone(s.Inputs)
	s.Others = slices.Clone(s.Others)
	return s
}

// Output names a graph sink.
type Output struct {
	Name   string
	Node   string
	Output string
}

// Workflow is the ordered step list plus the declared inputs and named
// outputs. It is not safe for concurrent use.
type Workflow struct {
	inputs  []string
	steps   []Step
	outputs []Output
}

// New creates an empty workflow.
func New() *Workflow {
	return &Workflow{}
}

// AddInput declares an external input. Declaring an existing id is a no-op.
func (w *Workflow) AddInput(id string) {
	if !w.HasInput(id) {
		w.inputs = append(w.inputs, id)
	}
}

// RemoveInput drops a declared input. Bindings that still reference it are
// left untouched.
func (w *Workflow) RemoveInput(id string) {
	w.inputs = slices.DeleteFunc(w.inputs, func(in string) bool { return in == id })
}

func (w *Workflow) HasInput(id string) bool {
	return slices.Contains(w.inputs, id)
}

// Inputs returns the declared input ids in declaration order.
func (w *Workflow) Inputs() []string {
	return slices.Clone(w.inputs)
}

// AddStep appends a step, assigning a fresh id when it has none.
func (w *Workflow) AddStep(s Step) (Step, error) {
	if s.ID == "" {
		s.ID = NewID()
	}
	if err := nodeid.Validate(s.ID); err != nil {
		return Step{}, fmt.Errorf("%w: %w", ErrInvalidID, err)
	}
	if w.HasStep(s.ID) {
		return Step{}, fmt.Errorf("%w: %q", ErrDuplicateStep, s.ID)
	}
	s = s.clone()
	w.steps = append(w.steps, s)
	return s.clone(), nil
}

// UpdateStep replaces the step at index. An empty id keeps the current one;
// any other id change fails with ErrRename and leaves the workflow as is.
func (w *Workflow) UpdateStep(s Step, index int) (Step, error) {
	current, err := w.StepAt(index)
	if err != nil {
		return Step{}, err
	}
	if s.ID == "" {
		s.ID = current.ID
	}
	if s.ID != current.ID {
		return Step{}, fmt.Errorf("%w: %q -> %q", ErrRename, current.ID, s.ID)
	}
	w.steps[index] = s.clone()
	return s.clone(), nil
}

// RemoveStep removes the step at index and returns it. Surviving bindings
// are not rewired.
func (w *Workflow) RemoveStep(index int) (Step, error) {
	removed, err := w.StepAt(index)
	if err != nil {
		return Step{}, err
	}
	w.steps = slices.Delete(w.steps, index, index+1)
	return removed, nil
}

func (w *Workflow) StepAt(index int) (Step, error) {
	if index < 0 || index >= len(w.steps) {
		return Step{}, fmt.Errorf("%w: %d (have %d steps)", ErrIndexOutOfRange, index, len(w.steps))
	}
	return w.steps[index].clone(), nil
}

// Steps returns a copy of the step list.
func (w *Workflow) Steps() []Step {
	out := make([]Step, len(w.steps))
	for i, s := range w.steps {
		out[i] = s.clone()
	}
	return out
}

func (w *Workflow) Len() int { return len(w.steps) }

// IndexOf returns the position of the step with the given id, or -1.
func (w *Workflow) IndexOf(id string) int {
	return slices.IndexFunc(w.steps, func(s Step) bool { return s.ID == id })
}

func (w *Workflow) HasStep(id string) bool { return w.IndexOf(id) >= 0 }

// AddOutput registers a named output. An empty name defaults to the node id.
func (w *Workflow) AddOutput(o Output) (Output, error) {
	if o.Name == "" {
		o.Name = o.Node
	}
	if o.Name == "" {
		return Output{}, fmt.Errorf("%w: output needs a name or node", ErrInvalidID)
	}
	if _, ok := w.Output(o.Name); ok {
		return Output{}, fmt.Errorf("%w: %q", ErrDuplicateOutput, o.Name)
	}
	w.outputs = append(w.outputs, o)
	return o, nil
}

// RemoveOutput drops a named output and reports whether it existed.
func (w *Workflow) RemoveOutput(name string) bool {
	before := len(w.outputs)
	w.outputs = slices.DeleteFunc(w.outputs, func(o Output) bool { return o.Name == name })
	return len(w.outputs) != before
}

func (w *Workflow) Output(name string) (Output, bool) {
	i := slices.IndexFunc(w.outputs, func(o Output) bool { return o.Name == name })
	if i < 0 {
		return Output{}, false
	}
	return w.outputs[i], true
}

// Outputs returns the named outputs in registration order.
func (w *Workflow) Outputs() []Output {
	return slices.Clone(w.outputs)
}

// Clear drops all steps, inputs and outputs.
func (w *Workflow) Clear() {
	w.inputs = nil
	w.steps = nil
	w.outputs = nil
}

// NewID returns a fresh step id.
func NewID() string { return uuid.NewString() }
