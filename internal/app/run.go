package app

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/vk/wrangler/internal/ctxlog"
	"github.com/vk/wrangler/internal/graph"
	"github.com/vk/wrangler/internal/table"
	"github.com/vk/wrangler/internal/tableio"
)

// Run loads the workflow, waits for async steps, prints the selected
// outputs and optionally exports them to SQLite. Step failures are
// reported after printing whatever did compute.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debugw("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(ctx)
		defer a.closeHealthcheckServer(ctx)
	}

	m, _, err := a.NewPipeline(ctx)
	if err != nil {
		return err
	}
	defer m.Close()

	if pending := m.Pending(); pending > 0 {
		a.logger.Infow("Waiting for async steps.", "pending", pending)
		settleCtx, cancel := context.WithTimeout(ctx, a.config.SettleTimeout)
		defer cancel()
		if err := m.Settle(settleCtx); err != nil {
			return fmt.Errorf("waiting for async steps: %w", err)
		}
	}

	failures := stepFailures(m)
	names, err := a.selectOutputs(m)
	if err != nil {
		return err
	}

	results := make(map[string]*table.Table, len(names))
	for _, name := range names {
		t, ok := m.Latest(name)
		if !ok {
			failures = append(failures, fmt.Errorf("output %q produced no table", name))
			continue
		}
		results[name] = t
		if err := a.printTable(name, t, len(names) > 1); err != nil {
			return err
		}
	}

	if a.config.SQLitePath != "" && len(results) > 0 {
		if err := a.exportSQLite(ctx, results); err != nil {
			return err
		}
	}

	if len(failures) > 0 {
		return errors.Join(failures...)
	}
	a.logger.Debugw("App.Run method finished.")
	return nil
}

// Validate loads and wires the workflow without waiting for results.
func (a *App) Validate(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	m, def, err := a.NewPipeline(ctx)
	if err != nil {
		return err
	}
	defer m.Close()
	fmt.Fprintf(a.outW, "%s: %d steps, %d outputs, ok\n", def.Source, m.Len(), len(m.Outputs()))
	return nil
}

func stepFailures(p graph.Pipeline) []error {
	var failures []error
	for _, step := range p.Steps() {
		if err := p.StepError(step.ID); err != nil {
			failures = append(failures, fmt.Errorf("step %q: %w", step.ID, err))
		}
	}
	return failures
}

func (a *App) selectOutputs(p graph.Pipeline) ([]string, error) {
	available := p.Outputs()
	if len(a.config.Outputs) == 0 {
		return available, nil
	}
	for _, name := range a.config.Outputs {
		if !slices.Contains(available, name) {
			return nil, fmt.Errorf("%w: %q", graph.ErrUnknownOutput, name)
		}
	}
	return a.config.Outputs, nil
}

func (a *App) printTable(name string, t *table.Table, withHeader bool) error {
	switch a.config.Format {
	case FormatCSV:
		if withHeader {
			fmt.Fprintf(a.outW, "# %s\n", name)
		}
		return tableio.WriteCSV(a.outW, t)
	default:
		if withHeader {
			fmt.Fprintf(a.outW, "== %s ==\n", name)
		}
		return tableio.WriteText(a.outW, t, a.config.MaxRows)
	}
}
