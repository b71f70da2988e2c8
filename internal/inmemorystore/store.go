// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the outputstore.Store interface.
//
// # Purpose
//
// This package caches the values of named outputs and the latest failure of
// every step for one graph manager. It uses sync.Map for fine-grained
// concurrent access without global lock contention.
//
// # Concurrency Model
//
// Unlike inmemorytopology which uses RWMutex, this store uses sync.Map because:
//   - **Write-Heavy Workload:** every emission of a named output rewrites its entry
//   - **Independent Keys:** outputs and steps are cached independently
//   - **Concurrent Reads + Writes:** hosts read snapshots while the manager writes
//
// # When to Use
//
// This implementation is suitable for interactive sessions and one-shot runs
// where every cached table fits comfortably in memory.
package inmemorystore

import (
	"context"
	"sync"

	"github.com/vk/wrangler/internal/outputstore"
	"github.com/vk/wrangler/internal/table"
)

// Store is an in-memory implementation of outputstore.Store.
//
// The store maintains two independent sync.Maps:
//   - outputs: Maps output names to the latest *table.Table
//   - errors: Maps step ids to the latest computation error
type Store struct {
	outputs sync.Map // Key: output name, Value: *table.Table
	errors  sync.Map // Key: step id, Value: error
}

// New creates a new, empty in-memory output store.
func New() outputstore.Store {
	return &Store{}
}

// SetOutput records the latest value of a named output.
func (s *Store) SetOutput(ctx context.Context, name string, t *table.Table) error {
	s.outputs.Store(name, t)
	return nil
}

// GetOutput retrieves the cached value of a named output.
func (s *Store) GetOutput(ctx context.Context, name string) (*table.Table, bool) {
	v, ok := s.outputs.Load(name)
	if !ok {
		return nil, false
	}
	return v.(*table.Table), true
}

// DeleteOutput drops a cached output.
func (s *Store) DeleteOutput(ctx context.Context, name string) {
	s.outputs.Delete(name)
}

// Outputs returns a snapshot of all cached outputs.
func (s *Store) Outputs(ctx context.Context) map[string]*table.Table {
	out := make(map[string]*table.Table)
	s.outputs.Range(func(k, v any) bool {
		out[k.(string)] = v.(*table.Table)
		return true
	})
	return out
}

// SetError records the failure of a step.
func (s *Store) SetError(ctx context.Context, stepID string, err error) error {
	s.errors.Store(stepID, err)
	return nil
}

// GetError retrieves the recorded failure of a step.
func (s *Store) GetError(ctx context.Context, stepID string) error {
	err, ok := s.errors.Load(stepID)
	if !ok {
		return nil // If not found, there is no error.
	}
	return err.(error)
}

// ClearError forgets the failure of a step.
func (s *Store) ClearError(ctx context.Context, stepID string) {
	s.errors.Delete(stepID)
}

// Reset drops all outputs and errors.
func (s *Store) Reset(ctx context.Context) {
	s.outputs.Clear()
	s.errors.Clear()
}
