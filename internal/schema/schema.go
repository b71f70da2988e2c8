// Package schema holds the gohcl struct tags of the HCL workflow format.
package schema

import "github.com/hashicorp/hcl/v2"

// Input is an `input "id" { ... }` block declaring an input table.
type Input struct {
	ID        string `hcl:"id,label"`
	Path      string `hcl:"path,optional"`
	Delimiter string `hcl:"delimiter,optional"`
}

// Binding is an `input "slot" { ... }` block inside a step.
type Binding struct {
	Slot   string `hcl:"slot,label"`
	Node   string `hcl:"node"`
	Output string `hcl:"output,optional"`
}

// Step is a `step "id" { ... }` block. Args is any HCL object; it is
// converted to JSON and decoded into the verb's argument struct. Others
// lists "node" or "node.output" references for variadic verbs.
type Step struct {
	ID          string         `hcl:"id,label"`
	Verb        string         `hcl:"verb"`
	Description string         `hcl:"description,optional"`
	Args        hcl.Expression `hcl:"args,optional"`
	Inputs      []*Binding     `hcl:"input,block"`
	Others      []string       `hcl:"others,optional"`
}

// Output is an `output "name" { ... }` block.
type Output struct {
	Name   string `hcl:"name,label"`
	Node   string `hcl:"node"`
	Output string `hcl:"output,optional"`
}

// File is the top level of a workflow file.
type File struct {
	Inputs  []*Input  `hcl:"input,block"`
	Steps   []*Step   `hcl:"step,block"`
	Outputs []*Output `hcl:"output,block"`
}
