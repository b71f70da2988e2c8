// Package dataflow implements a push-based graph of table computations.
//
// A Node owns a ComputeFunc, a set of named input bindings plus an optional
// ordered variadic list, and one output Stream. Binding an input subscribes
// to the source's stream; every emission on a bound source recomputes the
// node and emits the result downstream. Streams replay their latest value to
// new subscribers, so binding to a source that has already computed
// triggers an immediate recomputation.
//
// The Graph keys nodes by id and mirrors every binding as an edge in a
// topologystore.Store, which rejects bindings that would close a cycle
// before any subscription changes.
//
// Everything runs on the goroutine that owns the Graph. Nodes marked Async
// compute on a separate goroutine, bounded by a weighted semaphore; their
// results queue on Completions and take effect when the owner calls Apply
// or Settle. A completion older than one already applied to the same node
// is discarded, so a stale result never replaces a newer one.
package dataflow
