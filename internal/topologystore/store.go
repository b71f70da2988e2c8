// Package topologystore defines the interface for storing and querying the
// dependency structure of a dataflow graph.
//
// # Why Topology Store Exists
//
// The topology store isolates the **edge bookkeeping** (which node feeds
// which) from the **live values** flowing through the graph. The dataflow
// graph owns nodes and their streams; the topology store only knows ids and
// directed edges between them.
//
// This separation provides several benefits:
//   - **Cycle guard:** a binding is checked against the whole graph before any
//     subscription is touched, so a rejected binding leaves no trace
//   - **Queries:** dependents, dependencies and a topological order are
//     available without walking subscription lists
//   - **Testability:** the structure can be validated independently of values
//
// # Lifecycle and Usage
//
// The topology store is:
//  1. **Created** once per dataflow graph
//  2. **Mutated** on every node add/remove and every bind/unbind
//  3. **Queried** by the graph manager when describing the pipeline
//  4. **Discarded** with the graph
//
// Edges are reference counted. A node bound twice to the same source (for
// example as `source` and as one of its `others`) holds two references, and
// the edge disappears only when both bindings are gone.
package topologystore

import (
	"context"
	"errors"
)

var (
	// ErrCycle is returned when an edge would close a cycle.
	ErrCycle = errors.New("edge would create a cycle")
	// ErrNodeNotFound is returned when an id is not in the topology.
	ErrNodeNotFound = errors.New("node not found in topology")
)

// Store is the interface for managing the topology of a dataflow graph.
//
// An edge `from -> to` means that `to` consumes an output of `from`.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent use. The graph manager mutates
// from a single goroutine, but hosts may query (for example to describe the
// pipeline to a client) from elsewhere.
//
// # Typical Implementation
//
// See internal/inmemorytopology for the in-memory implementation backed by a
// directed graph library with cycle prevention.
type Store interface {
	// AddNode registers a node. Adding the same id twice is idempotent.
	AddNode(ctx context.Context, id string) error

	// RemoveNode removes a node together with every edge touching it.
	// Returns ErrNodeNotFound for an unknown id.
	RemoveNode(ctx context.Context, id string) error

	// AddEdge adds one reference to the edge `from -> to`.
	//
	// Both nodes must exist. If the edge would create a cycle (including a
	// self loop) the store is left unchanged and the error wraps ErrCycle.
	AddEdge(ctx context.Context, from, to string) error

	// RemoveEdge drops one reference to the edge `from -> to`. Removing an
	// edge that does not exist is a no-op.
	RemoveEdge(ctx context.Context, from, to string) error

	// HasNode reports whether the id is registered.
	HasNode(ctx context.Context, id string) bool

	// DependenciesOf returns the ids `id` consumes from, sorted.
	DependenciesOf(ctx context.Context, id string) ([]string, error)

	// DependentsOf returns the ids consuming from `id`, sorted.
	DependentsOf(ctx context.Context, id string) ([]string, error)

	// Order returns every id in a topological order. Ties are broken by
	// insertion order so the result is deterministic.
	Order(ctx context.Context) ([]string, error)
}
