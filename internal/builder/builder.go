package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/wrangler/internal/ctxlog"
	"github.com/vk/wrangler/internal/dataflow"
	"github.com/vk/wrangler/internal/table"
	"github.com/vk/wrangler/internal/verbs"
	"github.com/vk/wrangler/internal/workflow"
)

// ErrUnknownSlot is returned when a step binds a slot its verb lacks.
var ErrUnknownSlot = errors.New("verb has no such input")

// DefaultBuilder builds nodes from the verbs of a registry.
type DefaultBuilder struct {
	registry *verbs.Registry
}

// New creates a builder over the given registry.
func New(registry *verbs.Registry) Builder {
	return &DefaultBuilder{registry: registry}
}

// NewNode implements the Builder interface.
func (b *DefaultBuilder) NewNode(ctx context.Context, step workflow.Step) (*dataflow.Node, error) {
	opts, err := b.Options(ctx, step)
	if err != nil {
		return nil, err
	}
	return dataflow.NewNode(step.ID, opts), nil
}

// Options implements the Builder interface.
func (b *DefaultBuilder) Options(ctx context.Context, step workflow.Step) (dataflow.NodeOptions, error) {
	d, err := b.registry.Lookup(step.Verb)
	if err != nil {
		return dataflow.NodeOptions{}, fmt.Errorf("step %q: %w", step.ID, err)
	}
	for slot := range step.Inputs {
		if !d.HasInput(slot) {
			return dataflow.NodeOptions{}, fmt.Errorf("%w: step %q, verb %s, slot %q", ErrUnknownSlot, step.ID, d.Verb, slot)
		}
	}
	if len(step.Others) > 0 && !d.Variadic {
		return dataflow.NodeOptions{}, fmt.Errorf("%w: step %q, verb %s, slot %q", ErrUnknownSlot, step.ID, d.Verb, verbs.OthersSlot)
	}

	ctxlog.FromContext(ctx).Debugw("Building node.", "step", step.ID, "verb", d.Verb)
	return dataflow.NodeOptions{
		Inputs:   d.Inputs,
		Variadic: d.Variadic,
		Async:    d.Async,
		Compute:  compute(ctx, step.ID, d, step.Args),
	}, nil
}

// compute decodes the arguments once and adapts the verb executor to the
// dataflow signature.
func compute(ctx context.Context, id string, d *verbs.Descriptor, raw any) dataflow.ComputeFunc {
	logger := ctxlog.FromContext(ctx).With("step", id, "verb", d.Verb)
	args, argsErr := d.DecodeArgs(raw)
	if argsErr != nil {
		logger.Warnw("Step arguments are invalid.", "error", argsErr)
	}

	return func(ctx context.Context, in dataflow.Inputs) (*table.Table, error) {
		if argsErr != nil {
			return nil, fmt.Errorf("step %q: %w", id, argsErr)
		}
		logger.Debugw("Running verb.")
		out, err := d.Fn(ctx, verbs.Input{Named: in.Named, Variadic: in.Variadic}, args)
		if err != nil {
			return nil, fmt.Errorf("step %q: %s: %w", id, d.Verb, err)
		}
		return out, nil
	}
}
