package config

import (
	"path/filepath"

	"github.com/vk/wrangler/internal/workflow"
)

// Definition is a loaded workflow definition.
type Definition struct {
	// Source is the file the definition was read from. Relative input
	// paths are resolved against its directory.
	Source  string
	Inputs  []workflow.InputRef
	Steps   []workflow.Step
	Outputs []workflow.Output
}

// FromDocument wraps a decoded workflow document.
func FromDocument(source string, d workflow.Document) *Definition {
	return &Definition{
		Source:  source,
		Inputs:  d.Input,
		Steps:   d.Steps,
		Outputs: d.Output,
	}
}

// Document returns the definition in the workflow's serialized shape.
func (d *Definition) Document() workflow.Document {
	return workflow.Document{Input: d.Inputs, Steps: d.Steps, Output: d.Outputs}
}

// Workflow builds the workflow described by the definition.
func (d *Definition) Workflow() (*workflow.Workflow, error) {
	return d.Document().Workflow()
}

// InputPaths maps each declared input that names a path to that path,
// resolved against the directory of Source.
func (d *Definition) InputPaths() map[string]string {
	paths := make(map[string]string, len(d.Inputs))
	for _, in := range d.Inputs {
		if in.Path == "" {
			continue
		}
		p := in.Path
		if !filepath.IsAbs(p) && d.Source != "" {
			p = filepath.Join(filepath.Dir(d.Source), p)
		}
		paths[in.ID] = p
	}
	return paths
}

// Delimiter returns the delimiter declared for an input, if any.
func (d *Definition) Delimiter(id string) string {
	for _, in := range d.Inputs {
		if in.ID == id {
			return in.Delimiter
		}
	}
	return ""
}
