package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/wrangler/internal/config"
	"github.com/vk/wrangler/internal/ctxlog"
	"github.com/vk/wrangler/internal/schema"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

// Load reads one .hcl file, or every .hcl file below a directory, into a
// single definition.
func (l *Loader) Load(ctx context.Context, path string) (*config.Definition, error) {
	logger := ctxlog.FromContext(ctx)
	files, err := findHCLFiles(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %s", path)
	}
	logger.Debugw("Discovered HCL files.", "path", path, "count", len(files))

	def := &config.Definition{Source: path}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		// Input paths resolve against the directory itself.
		def.Source = filepath.Join(path, filepath.Base(files[0]))
	}

	parser := hclparse.NewParser()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root schema.File
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, in := range root.Inputs {
			def.Inputs = append(def.Inputs, translateInput(in))
		}
		for _, s := range root.Steps {
			step, err := translateStep(ctx, s)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			def.Steps = append(def.Steps, step)
		}
		for _, out := range root.Outputs {
			def.Outputs = append(def.Outputs, translateOutput(out))
		}
	}

	logger.Debugw("HCL loading complete.", "inputs", len(def.Inputs), "steps", len(def.Steps), "outputs", len(def.Outputs))
	return def, nil
}

func findHCLFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(p) == ".hcl" {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}
