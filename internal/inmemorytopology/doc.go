// Package inmemorytopology provides a thread-safe, in-memory implementation
// of the topologystore.Store interface, built on a directed graph that
// refuses edges closing a cycle. It is designed for graphs that fit
// comfortably in memory and live as long as one dataflow graph.
package inmemorytopology
