// Package table provides the in-memory table type that flows through the
// dataflow graph. Tables are immutable: every operation returns a new value,
// so a table emitted by one node can be shared by any number of downstream
// nodes without copying.
package table
