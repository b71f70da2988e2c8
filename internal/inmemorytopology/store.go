package inmemorytopology

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dominikbraun/graph"
	"github.com/vk/wrangler/internal/topologystore"
)

type edgeKey struct{ from, to string }

// Store implements the topologystore.Store interface on top of a directed
// graph with cycle prevention, guarded by a mutex.
type Store struct {
	mu    sync.RWMutex
	g     graph.Graph[string, string]
	refs  map[edgeKey]int
	added map[string]int // insertion sequence, used to stabilise Order
	seq   int
}

// New creates a new, empty in-memory topology store.
func New() topologystore.Store {
	return &Store{
		g:     graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles()),
		refs:  make(map[edgeKey]int),
		added: make(map[string]int),
	}
}

// AddNode adds a node to the store.
func (s *Store) AddNode(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.g.AddVertex(id); err != nil {
		if errors.Is(err, graph.ErrVertexAlreadyExists) {
			// Adding the same node twice is not an error, it's idempotent.
			return nil
		}
		return fmt.Errorf("add node %q: %w", id, err)
	}
	s.seq++
	s.added[id] = s.seq
	return nil
}

// RemoveNode detaches every incident edge, then removes the node.
func (s *Store) RemoveNode(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.added[id]; !ok {
		return fmt.Errorf("%w: %q", topologystore.ErrNodeNotFound, id)
	}
	for key := range s.refs {
		if key.from != id && key.to != id {
			continue
		}
		if err := s.g.RemoveEdge(key.from, key.to); err != nil && !errors.Is(err, graph.ErrEdgeNotFound) {
			return fmt.Errorf("remove edge %s -> %s: %w", key.from, key.to, err)
		}
		delete(s.refs, key)
	}
	if err := s.g.RemoveVertex(id); err != nil {
		return fmt.Errorf("remove node %q: %w", id, err)
	}
	delete(s.added, id)
	return nil
}

// AddEdge adds a reference to the edge from -> to.
func (s *Store) AddEdge(ctx context.Context, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range []string{from, to} {
		if _, ok := s.added[id]; !ok {
			return fmt.Errorf("%w: %q", topologystore.ErrNodeNotFound, id)
		}
	}

	key := edgeKey{from, to}
	if s.refs[key] > 0 {
		s.refs[key]++
		return nil
	}
	if err := s.g.AddEdge(from, to); err != nil {
		if errors.Is(err, graph.ErrEdgeCreatesCycle) {
			return fmt.Errorf("%w: %s -> %s", topologystore.ErrCycle, from, to)
		}
		return fmt.Errorf("add edge %s -> %s: %w", from, to, err)
	}
	s.refs[key] = 1
	return nil
}

// RemoveEdge drops a reference to the edge from -> to.
func (s *Store) RemoveEdge(ctx context.Context, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := edgeKey{from, to}
	switch n := s.refs[key]; {
	case n == 0:
		return nil
	case n > 1:
		s.refs[key] = n - 1
		return nil
	}
	if err := s.g.RemoveEdge(from, to); err != nil && !errors.Is(err, graph.ErrEdgeNotFound) {
		return fmt.Errorf("remove edge %s -> %s: %w", from, to, err)
	}
	delete(s.refs, key)
	return nil
}

// HasNode reports whether the node exists.
func (s *Store) HasNode(ctx context.Context, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.added[id]
	return ok
}

// DependenciesOf returns the predecessors of id.
func (s *Store) DependenciesOf(ctx context.Context, id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.added[id]; !ok {
		return nil, fmt.Errorf("%w: %q", topologystore.ErrNodeNotFound, id)
	}
	pm, err := s.g.PredecessorMap()
	if err != nil {
		return nil, err
	}
	return sortedKeys(pm[id]), nil
}

// DependentsOf returns the successors of id.
func (s *Store) DependentsOf(ctx context.Context, id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.added[id]; !ok {
		return nil, fmt.Errorf("%w: %q", topologystore.ErrNodeNotFound, id)
	}
	am, err := s.g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	return sortedKeys(am[id]), nil
}

// Order returns a topological order, breaking ties by insertion.
func (s *Store) Order(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, err := graph.StableTopologicalSort(s.g, func(a, b string) bool {
		return s.added[a] < s.added[b]
	})
	if err != nil {
		return nil, fmt.Errorf("topological sort: %w", err)
	}
	return order, nil
}

func sortedKeys(m map[string]graph.Edge[string]) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
