package dataflow

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/vk/wrangler/internal/table"
	"github.com/vk/wrangler/internal/topologystore"
)

const (
	// DefaultOutput is the output every node exposes.
	DefaultOutput = "target"
	// VariadicSlot names the ordered list input in bindings and Unbind.
	VariadicSlot = "others"
)

// Inputs are the resolved values handed to a ComputeFunc.
type Inputs struct {
	Named    map[string]*table.Table
	Variadic []*table.Table
}

// ComputeFunc produces a node's output from its inputs. It must not touch
// the graph.
type ComputeFunc func(ctx context.Context, in Inputs) (*table.Table, error)

// NodeOptions configures a node.
type NodeOptions struct {
	// Inputs lists the named slots. The first one is the default slot used
	// when Bind is called without a slot name.
	Inputs []string
	// Variadic enables the VariadicSlot list.
	Variadic bool
	Compute  ComputeFunc
	// Async runs Compute off the owner goroutine. The result is applied
	// through Graph.Apply or Graph.Settle.
	Async bool
}

// Source points at an output of another node. An empty Output selects
// DefaultOutput.
type Source struct {
	Node   *Node
	Output string
}

// Binding describes one bound input.
type Binding struct {
	Input  string
	Node   string
	Output string
}

type binding struct {
	source Source
	sub    *Subscription
	value  *table.Table
	has    bool
}

// Node wraps one computation. A node recomputes whenever one of its bound
// sources emits, once every bound source has emitted at least once.
//
// Nodes belong to the goroutine that owns their graph and are not safe for
// concurrent use.
type Node struct {
	id       string
	opts     NodeOptions
	output   *Stream
	graph    *Graph
	named    map[string]*binding
	variadic []*binding
	err      error
	hold     int
	gen      uint64
	applied  uint64
}

// NewNode creates a detached node.
func NewNode(id string, opts NodeOptions) *Node {
	return &Node{
		id:     id,
		opts:   opts,
		output: &Stream{},
		named:  make(map[string]*binding),
	}
}

// NewStaticNode creates a node without inputs whose output already holds t,
// so subscribers receive it even if the node is never added to a graph.
func NewStaticNode(id string, t *table.Table) *Node {
	n := NewNode(id, NodeOptions{
		Compute: func(context.Context, Inputs) (*table.Table, error) { return t, nil },
	})
	n.output.value, n.output.has = t, true
	return n
}

func (n *Node) ID() string { return n.id }

// Inputs returns the declared named slots.
func (n *Node) Inputs() []string { return slices.Clone(n.opts.Inputs) }

func (n *Node) Variadic() bool { return n.opts.Variadic }

// HasPossibleInputs reports whether the node can be bound at all.
func (n *Node) HasPossibleInputs() bool {
	return len(n.opts.Inputs) > 0 || n.opts.Variadic
}

// Err returns the error of the last computation, if it failed.
func (n *Node) Err() error { return n.err }

// Output returns the stream for a named output. An empty name selects
// DefaultOutput.
func (n *Node) Output(name string) (*Stream, error) {
	if name == "" || name == DefaultOutput {
		return n.output, nil
	}
	return nil, fmt.Errorf("%w: node %q has no output %q", ErrUnknownOutput, n.id, name)
}

// Bindings lists the bound inputs: named slots sorted by name, then the
// variadic entries in order.
func (n *Node) Bindings() []Binding {
	slots := make([]string, 0, len(n.named))
	for slot := range n.named {
		slots = append(slots, slot)
	}
	slices.Sort(slots)

	out := make([]Binding, 0, len(slots)+len(n.variadic))
	for _, slot := range slots {
		out = append(out, n.named[slot].info(slot))
	}
	for _, b := range n.variadic {
		out = append(out, b.info(VariadicSlot))
	}
	return out
}

func (b *binding) info(slot string) Binding {
	output := b.source.Output
	if output == "" {
		output = DefaultOutput
	}
	return Binding{Input: slot, Node: b.source.Node.id, Output: output}
}

// Bind wires one named slot to a source, replacing any previous binding of
// that slot. An empty input selects the default slot.
func (n *Node) Bind(input string, src Source) error {
	return n.rebind(map[string]Source{input: src}, nil, false)
}

// BindVariadic replaces the variadic list. Order is preserved.
func (n *Node) BindVariadic(srcs []Source) error {
	return n.rebind(nil, srcs, true)
}

// BindAll binds several named slots and, when others is not nil, the
// variadic list, recomputing once at the end. Nothing changes if any
// binding is invalid. An empty set of bindings is a no-op and does not
// recompute.
func (n *Node) BindAll(named map[string]Source, others []Source) error {
	return n.rebind(named, others, others != nil)
}

type planned struct {
	slot   string
	src    Source
	stream *Stream
}

func (n *Node) rebind(named map[string]Source, others []Source, setVariadic bool) error {
	if len(named) == 0 && !setVariadic {
		return nil
	}
	inputs := make([]string, 0, len(named))
	for input := range named {
		inputs = append(inputs, input)
	}
	slices.Sort(inputs)

	var plan, vplan []planned
	for _, input := range inputs {
		slot, err := n.slot(input)
		if err != nil {
			return err
		}
		stream, err := named[input].stream()
		if err != nil {
			return err
		}
		plan = append(plan, planned{slot: slot, src: named[input], stream: stream})
	}
	if setVariadic {
		if !n.opts.Variadic {
			return fmt.Errorf("%w: node %q has no %q slot", ErrUnknownInput, n.id, VariadicSlot)
		}
		for _, src := range others {
			stream, err := src.stream()
			if err != nil {
				return err
			}
			vplan = append(vplan, planned{slot: VariadicSlot, src: src, stream: stream})
		}
	}

	var linked []Source
	for _, p := range slices.Concat(plan, vplan) {
		if err := n.link(p.src); err != nil {
			for _, src := range linked {
				n.unlink(src)
			}
			return err
		}
		linked = append(linked, p.src)
	}

	n.hold++
	for _, p := range plan {
		if old := n.named[p.slot]; old != nil {
			n.release(old)
		}
		n.named[p.slot] = n.subscribe(p)
	}
	if setVariadic {
		for _, old := range n.variadic {
			n.release(old)
		}
		n.variadic = nil
		for _, p := range vplan {
			n.variadic = append(n.variadic, n.subscribe(p))
		}
	}
	n.hold--
	n.recompute()
	return nil
}

func (n *Node) subscribe(p planned) *binding {
	b := &binding{source: p.src}
	b.sub = p.stream.Subscribe(func(t *table.Table) {
		b.value, b.has = t, true
		n.recompute()
	})
	return b
}

// Unbind detaches a named slot, or the whole variadic list for
// VariadicSlot. Unbinding a free slot is a no-op.
func (n *Node) Unbind(input string) error {
	if input == VariadicSlot && n.opts.Variadic {
		for _, b := range n.variadic {
			n.release(b)
		}
		n.variadic = nil
		return nil
	}
	slot, err := n.slot(input)
	if err != nil {
		return err
	}
	if b := n.named[slot]; b != nil {
		n.release(b)
		delete(n.named, slot)
	}
	return nil
}

// UnbindAll detaches every input.
func (n *Node) UnbindAll() {
	for slot, b := range n.named {
		n.release(b)
		delete(n.named, slot)
	}
	for _, b := range n.variadic {
		n.release(b)
	}
	n.variadic = nil
}

// Configure replaces the node's computation while keeping its output
// stream, so downstream subscribers survive. All inputs are unbound.
func (n *Node) Configure(opts NodeOptions) {
	n.UnbindAll()
	n.opts = opts
	n.err = nil
	n.recompute()
}

func (n *Node) slot(input string) (string, error) {
	if input == "" {
		if len(n.opts.Inputs) == 0 {
			return "", fmt.Errorf("%w: node %q has no default input", ErrUnknownInput, n.id)
		}
		return n.opts.Inputs[0], nil
	}
	if !slices.Contains(n.opts.Inputs, input) {
		return "", fmt.Errorf("%w: node %q has no input %q", ErrUnknownInput, n.id, input)
	}
	return input, nil
}

func (s Source) stream() (*Stream, error) {
	if s.Node == nil {
		return nil, fmt.Errorf("%w: source without node", ErrNodeNotFound)
	}
	return s.Node.Output(s.Output)
}

// link records the edge src -> n in the topology when both are live nodes
// of the same graph.
func (n *Node) link(src Source) error {
	g := n.graph
	if g == nil || g.nodes[src.Node.id] != src.Node {
		return nil
	}
	if err := g.topo.AddEdge(g.ctx, src.Node.id, n.id); err != nil {
		if errors.Is(err, topologystore.ErrCycle) {
			return fmt.Errorf("%w: binding %q to %q", ErrCycle, n.id, src.Node.id)
		}
		return fmt.Errorf("binding %q to %q: %w", n.id, src.Node.id, err)
	}
	return nil
}

func (n *Node) unlink(src Source) {
	g := n.graph
	if g == nil || g.nodes[src.Node.id] != src.Node {
		return
	}
	if err := g.topo.RemoveEdge(g.ctx, src.Node.id, n.id); err != nil {
		g.logger.Warnw("Failed to remove edge.", "from", src.Node.id, "to", n.id, "error", err)
	}
}

func (n *Node) release(b *binding) {
	b.sub.Unsubscribe()
	n.unlink(b.source)
}

func (n *Node) ready() bool {
	bound := 0
	for _, b := range n.named {
		if !b.has {
			return false
		}
		bound++
	}
	for _, b := range n.variadic {
		if !b.has {
			return false
		}
		bound++
	}
	return bound > 0 || !n.HasPossibleInputs()
}

func (n *Node) snapshot() Inputs {
	in := Inputs{Named: make(map[string]*table.Table, len(n.named))}
	for slot, b := range n.named {
		in.Named[slot] = b.value
	}
	for _, b := range n.variadic {
		in.Variadic = append(in.Variadic, b.value)
	}
	return in
}

func (n *Node) recompute() {
	if n.graph == nil || n.hold > 0 || !n.ready() {
		return
	}
	n.gen++
	n.graph.compute(n, n.gen, n.opts, n.snapshot())
}
