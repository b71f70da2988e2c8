package app

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/vk/wrangler/internal/config"
	"github.com/vk/wrangler/internal/ctxlog"
	"github.com/vk/wrangler/internal/graph"
	"github.com/vk/wrangler/internal/hcl"
	"github.com/vk/wrangler/internal/table"
	"github.com/vk/wrangler/internal/tableio"
)

func defaultLoaders() config.Loaders {
	doc := config.NewDocumentLoader()
	return config.Loaders{
		".json": doc,
		".yaml": doc,
		".yml":  doc,
		".hcl":  hcl.NewLoader(),
	}
}

// LoadDefinition reads the configured workflow. A directory is read as a
// set of HCL files.
func (a *App) LoadDefinition(ctx context.Context) (*config.Definition, error) {
	logger := ctxlog.FromContext(ctx)
	path := a.config.WorkflowPath
	logger.Debugw("Loading workflow definition...", "path", path)

	var (
		def *config.Definition
		err error
	)
	if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
		def, err = a.loaders[".hcl"].Load(ctx, path)
	} else {
		def, err = a.loaders.Load(ctx, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}
	logger.Infow("Workflow loaded.", "steps", len(def.Steps), "inputs", len(def.Inputs), "outputs", len(def.Outputs))
	return def, nil
}

// LoadInputs reads every input table named by the definition or by the
// configured overrides.
func (a *App) LoadInputs(ctx context.Context, def *config.Definition) (map[string]*table.Table, error) {
	logger := ctxlog.FromContext(ctx)
	paths := def.InputPaths()
	for id, p := range a.config.InputPaths {
		paths[id] = p
	}

	ids := make([]string, 0, len(paths))
	for id := range paths {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	tables := make(map[string]*table.Table, len(paths))
	for _, id := range ids {
		t, err := tableio.Open(paths[id], tableio.Options{Delimiter: def.Delimiter(id)})
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", id, err)
		}
		logger.Debugw("Input table read.", "input", id, "path", paths[id], "rows", t.NumRows(), "columns", t.NumCols())
		tables[id] = t
	}
	return tables, nil
}

// NewPipeline loads the workflow and its inputs and builds the graph
// manager. The caller closes it.
func (a *App) NewPipeline(ctx context.Context) (*graph.Manager, *config.Definition, error) {
	def, err := a.LoadDefinition(ctx)
	if err != nil {
		return nil, nil, err
	}
	wf, err := def.Workflow()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid workflow: %w", err)
	}
	inputs, err := a.LoadInputs(ctx, def)
	if err != nil {
		return nil, nil, err
	}
	m, err := graph.New(ctx, inputs, wf, a.registry, graph.WithWorkers(int64(a.config.Workers)))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	return m, def, nil
}
