// Package inmemorystore provides a thread-safe, in-memory implementation
// of the outputstore.Store interface. It is suitable for interactive sessions,
// one-shot runs and tests, where cached outputs do not need to be persisted.
package inmemorystore
