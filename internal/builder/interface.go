package builder

import (
	"context"

	"github.com/vk/wrangler/internal/dataflow"
	"github.com/vk/wrangler/internal/workflow"
)

// Builder turns step descriptors into dataflow nodes.
//
// # Usage Pattern
//
// The graph manager asks for a new node when a step is added and for fresh
// options when a step is reconfigured, so the existing node keeps its
// downstream subscribers:
//
//	n, err := b.NewNode(ctx, step)
//	...
//	opts, err := b.Options(ctx, updated)
//	n.Configure(opts)
//
// # Error Conditions
//
// Both methods fail for an unknown verb and for explicit bindings naming a
// slot the verb does not have. Malformed arguments are not a build error:
// the node is created and every computation fails until the step is
// reconfigured.
type Builder interface {
	// NewNode creates a detached node for the step.
	NewNode(ctx context.Context, step workflow.Step) (*dataflow.Node, error)

	// Options returns the node options for the step.
	Options(ctx context.Context, step workflow.Step) (dataflow.NodeOptions, error)
}
