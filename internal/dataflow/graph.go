package dataflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/wrangler/internal/ctxlog"
	"github.com/vk/wrangler/internal/inmemorytopology"
	"github.com/vk/wrangler/internal/table"
	"github.com/vk/wrangler/internal/topologystore"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var (
	ErrDuplicateNode = errors.New("node already exists")
	ErrNodeNotFound  = errors.New("node not found")
	ErrUnknownInput  = errors.New("unknown input")
	ErrUnknownOutput = errors.New("unknown output")
	ErrCycle         = errors.New("binding would create a cycle")
	ErrNoResult      = errors.New("computation produced no table")
)

const (
	defaultWorkers    = 4
	completionBacklog = 64
)

// Completion is the result of an async computation waiting to be applied.
type Completion struct {
	node *Node
	gen  uint64
	out  *table.Table
	err  error
}

// NodeID returns the id of the node the completion belongs to.
func (c Completion) NodeID() string { return c.node.id }

// Graph is a mutable set of nodes keyed by id.
//
// All methods must be called from the goroutine that owns the graph. Async
// computations run elsewhere but their results only take effect in Apply.
type Graph struct {
	ctx         context.Context
	cancel      context.CancelFunc
	logger      *zap.SugaredLogger
	nodes       map[string]*Node
	topo        topologystore.Store
	sem         *semaphore.Weighted
	workers     int64
	completions chan Completion
	inflight    int
	onFailure   func(id string, err error)
	onEmit      func(id string)
}

// Option configures a Graph.
type Option func(*Graph)

// WithTopology sets the topology store. Defaults to an in-memory store.
func WithTopology(ts topologystore.Store) Option {
	return func(g *Graph) { g.topo = ts }
}

// WithWorkers bounds the number of async computations running at once.
func WithWorkers(n int64) Option {
	return func(g *Graph) {
		if n > 0 {
			g.workers = n
		}
	}
}

// WithFailureHandler is called on the owner goroutine when a computation
// fails.
func WithFailureHandler(fn func(id string, err error)) Option {
	return func(g *Graph) { g.onFailure = fn }
}

// WithEmitHandler is called on the owner goroutine right before a node
// emits a new value.
func WithEmitHandler(fn func(id string)) Option {
	return func(g *Graph) { g.onEmit = fn }
}

// New creates an empty graph. Async computations run under a context
// derived from ctx and are cancelled by Close.
func New(ctx context.Context, opts ...Option) *Graph {
	ctx, cancel := context.WithCancel(ctx)
	g := &Graph{
		ctx:         ctx,
		cancel:      cancel,
		logger:      ctxlog.FromContext(ctx),
		nodes:       make(map[string]*Node),
		workers:     defaultWorkers,
		completions: make(chan Completion, completionBacklog),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.topo == nil {
		g.topo = inmemorytopology.New()
	}
	g.sem = semaphore.NewWeighted(g.workers)
	return g
}

// Add inserts a node and runs its first computation if it is ready.
func (g *Graph) Add(n *Node) error {
	if _, exists := g.nodes[n.id]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, n.id)
	}
	if n.graph != nil {
		return fmt.Errorf("%w: %q belongs to another graph", ErrDuplicateNode, n.id)
	}
	if err := g.topo.AddNode(g.ctx, n.id); err != nil {
		return fmt.Errorf("add node %q: %w", n.id, err)
	}
	g.nodes[n.id] = n
	n.graph = g
	g.logger.Debugw("Node added.", "node", n.id)
	n.recompute()
	return nil
}

// Remove deletes a node and cancels its own input subscriptions. Nodes
// bound to it keep their subscriptions until they are rebound.
func (g *Graph) Remove(id string) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}
	if err := g.topo.RemoveNode(g.ctx, id); err != nil {
		return fmt.Errorf("remove node %q: %w", id, err)
	}
	delete(g.nodes, id)
	n.graph = nil
	n.UnbindAll()
	g.logger.Debugw("Node removed.", "node", id)
	return nil
}

func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns the node with the given id or ErrNodeNotFound.
func (g *Graph) Node(id string) (*Node, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}
	return n, nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Order returns node ids in dependency order.
func (g *Graph) Order() ([]string, error) {
	return g.topo.Order(g.ctx)
}

// DependentsOf returns the ids of nodes bound to id.
func (g *Graph) DependentsOf(id string) ([]string, error) {
	return g.topo.DependentsOf(g.ctx, id)
}

// Pending returns the number of async computations not yet applied.
func (g *Graph) Pending() int { return g.inflight }

// Completions delivers finished async computations. Pass each one to
// Apply on the owner goroutine.
func (g *Graph) Completions() <-chan Completion { return g.completions }

// Apply lands a completion. Results older than one already applied to the
// same node are dropped.
func (g *Graph) Apply(c Completion) {
	g.inflight--
	g.land(c.node, c.gen, c.out, c.err)
}

// Settle applies completions until no async computation is pending.
func (g *Graph) Settle(ctx context.Context) error {
	for g.inflight > 0 {
		select {
		case c := <-g.completions:
			g.Apply(c)
		case <-ctx.Done():
			return ctx.Err()
		case <-g.ctx.Done():
			return g.ctx.Err()
		}
	}
	return nil
}

// Close cancels running async computations and detaches every node.
func (g *Graph) Close() {
	g.cancel()
	for id, n := range g.nodes {
		n.graph = nil
		n.UnbindAll()
		delete(g.nodes, id)
	}
}

func (g *Graph) compute(n *Node, gen uint64, opts NodeOptions, in Inputs) {
	if !opts.Async {
		out, err := opts.Compute(g.ctx, in)
		g.land(n, gen, out, err)
		return
	}

	g.inflight++
	g.logger.Debugw("Async computation scheduled.", "node", n.id, "pending", g.inflight)
	go func() {
		c := Completion{node: n, gen: gen}
		if err := g.sem.Acquire(g.ctx, 1); err != nil {
			c.err = err
		} else {
			c.out, c.err = opts.Compute(g.ctx, in)
			g.sem.Release(1)
		}
		select {
		case g.completions <- c:
		case <-g.ctx.Done():
		}
	}()
}

func (g *Graph) land(n *Node, gen uint64, out *table.Table, err error) {
	if n.graph != g || gen <= n.applied {
		return
	}
	n.applied = gen
	if err == nil && out == nil {
		err = fmt.Errorf("%w: node %q", ErrNoResult, n.id)
	}
	if err != nil {
		n.err = err
		g.logger.Debugw("Node computation failed.", "node", n.id, "error", err)
		if g.onFailure != nil {
			g.onFailure(n.id, err)
		}
		return
	}
	n.err = nil
	g.logger.Debugw("Node recomputed.", "node", n.id, "rows", out.NumRows(), "cols", out.NumCols())
	if g.onEmit != nil {
		g.onEmit(n.id)
	}
	n.output.emit(out)
}
