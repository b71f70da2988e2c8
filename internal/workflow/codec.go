// internal/workflow/codec.go
package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/vk/wrangler/internal/verbs"
	"gopkg.in/yaml.v3"
)

type bindingJSON struct {
	Node   string `json:"node"`
	Output string `json:"output,omitempty"`
}

func (b Binding) MarshalJSON() ([]byte, error) {
	return json.Marshal(bindingJSON(b))
}

// UnmarshalJSON accepts the object form or a bare node id.
func (b *Binding) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*b = Binding{Node: id}
		return nil
	}
	var raw bindingJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("binding: %w", err)
	}
	*b = Binding(raw)
	return nil
}

type stepJSON struct {
	ID          string                     `json:"id,omitempty"`
	Verb        verbs.Verb                 `json:"verb"`
	Description string                     `json:"description,omitempty"`
	Args        any                        `json:"args,omitempty"`
	Inputs      map[string]json.RawMessage `json:"inputs,omitempty"`
}

func (s Step) MarshalJSON() ([]byte, error) {
	raw := stepJSON{
		ID:          s.ID,
		Verb:        s.Verb,
		Description: s.Description,
		Args:        s.Args,
	}
	if s.HasDefinedInputs() {
		raw.Inputs = make(map[string]json.RawMessage, len(s.Inputs)+1)
		for slot, b := range s.Inputs {
			data, err := json.Marshal(b)
			if err != nil {
				return nil, err
			}
			raw.Inputs[slot] = data
		}
		if len(s.Others) > 0 {
			data, err := json.Marshal(s.Others)
			if err != nil {
				return nil, err
			}
			raw.Inputs[verbs.OthersSlot] = data
		}
	}
	return json.Marshal(raw)
}

// UnmarshalJSON reads `{id, verb, description, args, inputs}` where the
// reserved "others" slot holds a list of bindings.
func (s *Step) UnmarshalJSON(data []byte) error {
	var raw stepJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Verb == "" {
		return fmt.Errorf("step %q: verb is required", raw.ID)
	}
	out := Step{
		ID:          raw.ID,
		Verb:        raw.Verb,
		Description: raw.Description,
		Args:        raw.Args,
	}
	for slot, value := range raw.Inputs {
		if slot == verbs.OthersSlot {
			if err := json.Unmarshal(value, &out.Others); err != nil {
				return fmt.Errorf("step %q: %s: %w", raw.ID, slot, err)
			}
			continue
		}
		var b Binding
		if err := json.Unmarshal(value, &b); err != nil {
			return fmt.Errorf("step %q: input %q: %w", raw.ID, slot, err)
		}
		if out.Inputs == nil {
			out.Inputs = make(map[string]Binding)
		}
		out.Inputs[slot] = b
	}
	*s = out
	return nil
}

type outputJSON struct {
	Name   string `json:"name"`
	Node   string `json:"node"`
	Output string `json:"output,omitempty"`
}

func (o Output) MarshalJSON() ([]byte, error) {
	return json.Marshal(outputJSON(o))
}

// UnmarshalJSON accepts the object form or a bare node id, which names the
// output after the node.
func (o *Output) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*o = Output{Name: id, Node: id}
		return nil
	}
	var raw outputJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	*o = Output(raw)
	return nil
}

// InputRef is a declared input as written in a document. Only the id
// matters to the workflow; hosts use Path and Delimiter to load the table.
type InputRef struct {
	ID        string `json:"id"`
	Path      string `json:"path,omitempty"`
	Delimiter string `json:"delimiter,omitempty"`
}

// UnmarshalJSON accepts the object form or a bare id.
func (r *InputRef) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*r = InputRef{ID: id}
		return nil
	}
	type plain InputRef
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	*r = InputRef(raw)
	return nil
}

// Document is the serialized workflow shape.
type Document struct {
	Input  []InputRef `json:"input,omitempty"`
	Steps  []Step     `json:"steps"`
	Output []Output   `json:"output,omitempty"`
}

// Workflow builds a workflow from the document, applying the same checks as
// the mutation methods.
func (d Document) Workflow() (*Workflow, error) {
	w := New()
	for _, in := range d.Input {
		if in.ID == "" {
			return nil, fmt.Errorf("%w: input without id", ErrInvalidID)
		}
		w.AddInput(in.ID)
	}
	for i, s := range d.Steps {
		if _, err := w.AddStep(s); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}
	for _, o := range d.Output {
		if _, err := w.AddOutput(o); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Document returns the serializable form of the workflow.
func (w *Workflow) Document() Document {
	d := Document{Steps: w.Steps(), Output: w.Outputs()}
	for _, id := range w.inputs {
		d.Input = append(d.Input, InputRef{ID: id})
	}
	return d
}

func (w *Workflow) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.Document())
}

func (w *Workflow) UnmarshalJSON(data []byte) error {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	parsed, err := d.Workflow()
	if err != nil {
		return err
	}
	*w = *parsed
	return nil
}

// DecodeDocument reads a JSON document, rejecting unknown top-level fields.
func DecodeDocument(data []byte) (Document, error) {
	var d Document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return Document{}, fmt.Errorf("decode workflow: %w", err)
	}
	return d, nil
}

// DecodeYAMLDocument reads the YAML rendition of the JSON document.
func DecodeYAMLDocument(data []byte) (Document, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return Document{}, fmt.Errorf("decode workflow yaml: %w", err)
	}
	if tree == nil {
		return Document{}, fmt.Errorf("decode workflow yaml: document is empty")
	}
	data, err := json.Marshal(tree)
	if err != nil {
		return Document{}, fmt.Errorf("decode workflow yaml: %w", err)
	}
	return DecodeDocument(data)
}

// Parse decodes a JSON workflow.
func Parse(data []byte) (*Workflow, error) {
	d, err := DecodeDocument(data)
	if err != nil {
		return nil, err
	}
	return d.Workflow()
}

// SortedSlots returns the named input slots of a step in a stable order.
func (s Step) SortedSlots() []string {
	slots := make([]string, 0, len(s.Inputs))
	for slot := range s.Inputs {
		slots = append(slots, slot)
	}
	slices.Sort(slots)
	return slots
}
