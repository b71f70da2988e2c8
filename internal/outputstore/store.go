// Package outputstore defines the interface for the mutable values a graph
// manager caches: the latest table of every named output and the latest
// computation failure of every step.
//
// # Why Output Store Exists
//
// The output store isolates **cached results** (what each named output last
// emitted, which step last failed) from the **graph structure** managed by
// topologystore. The graph manager writes to it from its subscriptions; hosts
// read from it to render snapshots without touching the graph.
//
// # Lifecycle and Usage
//
// The output store is:
//  1. **Created** once per graph manager
//  2. **Written** whenever a named output emits or a step computation fails
//  3. **Queried** through Manager.Latest, Manager.ToMap and Manager.StepError
//  4. **Reset** when the manager is cleared or closed
//
// An output that was registered but never emitted is absent: GetOutput
// reports ok == false, which is different from an emitted nil.
package outputstore

import (
	"context"

	"github.com/vk/wrangler/internal/table"
)

// Store is the interface for caching output values and step failures.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent use. The manager writes from
// its owner goroutine while hosts may read snapshots from request handlers.
type Store interface {
	// SetOutput records the latest value of a named output.
	SetOutput(ctx context.Context, name string, t *table.Table) error

	// GetOutput returns the cached value. ok is false until the output has
	// emitted at least once.
	GetOutput(ctx context.Context, name string) (t *table.Table, ok bool)

	// DeleteOutput drops the cache entry. Deleting a missing entry is a no-op.
	DeleteOutput(ctx context.Context, name string)

	// Outputs returns a snapshot of every cached output.
	Outputs(ctx context.Context) map[string]*table.Table

	// SetError records the latest failure of a step.
	SetError(ctx context.Context, stepID string, err error) error

	// GetError returns the recorded failure, or nil.
	GetError(ctx context.Context, stepID string) error

	// ClearError forgets the failure of a step.
	ClearError(ctx context.Context, stepID string)

	// Reset drops everything.
	Reset(ctx context.Context)
}
