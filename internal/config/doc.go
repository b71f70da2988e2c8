// Package config defines the format-agnostic workflow definition and the
// Loader interface that turns a file into one.
//
// A Definition carries everything needed to start a pipeline: the declared
// inputs with the paths their tables are read from, the ordered steps and
// the named outputs. Concrete loaders live next to their format: the JSON
// and YAML loader in this package, the HCL loader in internal/hcl.
package config
