package verbs

import (
	"context"
	"fmt"

	"github.com/vk/wrangler/internal/ctxlog"
	"github.com/vk/wrangler/internal/table"
)

// chainModule registers chain, which runs a list of verbs as one step.
// The first verb gets no input, so chains usually start with fetch.
type chainModule struct{}

func (chainModule) Register(r *Registry) {
	r.Register(&Descriptor{
		Verb:    Chain,
		Async:   true,
		NewArgs: argsOf(ChainArgs{}),
		Fn: typed(func(ctx context.Context, _ Input, a *ChainArgs) (*table.Table, error) {
			return chain(ctx, r, a)
		}),
	})
}

func chain(ctx context.Context, r *Registry, a *ChainArgs) (*table.Table, error) {
	if len(a.Steps) == 0 {
		return nil, fmt.Errorf("%w: chain requires steps", ErrInvalidArgs)
	}
	logger := ctxlog.FromContext(ctx).With("verb", Chain)

	var current *table.Table
	for i, step := range a.Steps {
		if step.Verb == Chain {
			return nil, fmt.Errorf("%w: chain step %d: chains do not nest", ErrInvalidArgs, i)
		}
		d, err := r.Lookup(step.Verb)
		if err != nil {
			return nil, fmt.Errorf("chain step %d: %w", i, err)
		}
		args, err := d.DecodeArgs(step.Args)
		if err != nil {
			return nil, fmt.Errorf("chain step %d: %w", i, err)
		}
		in := Input{Named: map[string]*table.Table{}}
		if current != nil {
			in.Named[SourceSlot] = current
		}
		if current, err = d.Fn(ctx, in, args); err != nil {
			return nil, fmt.Errorf("chain step %d (%s): %w", i, step.Verb, err)
		}
		logger.Debugw("Chain step done.", "step", i, "step_verb", step.Verb, "rows", current.NumRows())
	}
	return current, nil
}
