package graph

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/vk/wrangler/internal/builder"
	"github.com/vk/wrangler/internal/ctxlog"
	"github.com/vk/wrangler/internal/dataflow"
	"github.com/vk/wrangler/internal/inmemorystore"
	"github.com/vk/wrangler/internal/outputstore"
	"github.com/vk/wrangler/internal/table"
	"github.com/vk/wrangler/internal/topologystore"
	"github.com/vk/wrangler/internal/verbs"
	"github.com/vk/wrangler/internal/workflow"
	"go.uber.org/zap"
)

var (
	ErrUnknownReference = errors.New("unknown node id or declared input")
	ErrRename           = errors.New("node rename not supported")
	ErrUnknownOutput    = errors.New("unknown output")
	ErrIndexOutOfRange  = workflow.ErrIndexOutOfRange
)

// Manager keeps a workflow and a live dataflow graph in step. Every
// mutation goes to the workflow first and is mirrored into the graph before
// the method returns.
//
// A Manager is owned by one goroutine and is not safe for concurrent use.
type Manager struct {
	ctx      context.Context
	logger   *zap.SugaredLogger
	workflow *workflow.Workflow
	inputs   map[string]*table.Table
	graph    *dataflow.Graph
	builder  builder.Builder
	store    outputstore.Store
	outputs  map[string]*registration
	handlers []*handler
}

type registration struct {
	stream *dataflow.Stream
	sub    *dataflow.Subscription
}

type handler struct {
	fn     func()
	active bool
}

// StepInfo describes one live step.
type StepInfo struct {
	ID       string
	Verb     verbs.Verb
	Bindings []dataflow.Binding
	Err      error
}

type options struct {
	topology topologystore.Store
	store    outputstore.Store
	builder  builder.Builder
	workers  int64
}

// Option configures a Manager.
type Option func(*options)

// WithTopology sets the topology store used by the graph.
func WithTopology(ts topologystore.Store) Option {
	return func(o *options) { o.topology = ts }
}

// WithOutputStore sets the store caching outputs and step failures.
func WithOutputStore(s outputstore.Store) Option {
	return func(o *options) { o.store = s }
}

// WithBuilder replaces the node factory.
func WithBuilder(b builder.Builder) Option {
	return func(o *options) { o.builder = b }
}

// WithWorkers bounds concurrently running async verbs.
func WithWorkers(n int64) Option {
	return func(o *options) { o.workers = n }
}

// New creates a manager and replays the workflow into a fresh graph:
// declared inputs first, then every step in order, then every named output.
// Input tables are registered with the workflow as declared inputs.
func New(ctx context.Context, inputs map[string]*table.Table, wf *workflow.Workflow, registry *verbs.Registry, opts ...Option) (*Manager, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		o.store = inmemorystore.New()
	}
	if o.builder == nil {
		o.builder = builder.New(registry)
	}

	m := &Manager{
		ctx:      ctx,
		logger:   ctxlog.FromContext(ctx),
		workflow: wf,
		inputs:   make(map[string]*table.Table, len(inputs)),
		builder:  o.builder,
		store:    o.store,
		outputs:  make(map[string]*registration),
	}
	graphOpts := []dataflow.Option{
		dataflow.WithFailureHandler(m.onFailure),
		dataflow.WithEmitHandler(m.onEmit),
		dataflow.WithWorkers(o.workers),
	}
	if o.topology != nil {
		graphOpts = append(graphOpts, dataflow.WithTopology(o.topology))
	}
	m.graph = dataflow.New(ctx, graphOpts...)

	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		wf.AddInput(name)
		m.inputs[name] = inputs[name]
	}

	for i, step := range wf.Steps() {
		node, err := m.builder.NewNode(ctx, step)
		if err != nil {
			m.graph.Close()
			return nil, err
		}
		w, err := m.wire(step, node.Inputs(), m.previousID(i), "")
		if err == nil {
			err = m.graph.Add(node)
		}
		if err == nil {
			err = node.BindAll(w.named, w.others)
		}
		if err != nil {
			m.graph.Close()
			return nil, fmt.Errorf("step %d (%q): %w", i, step.ID, err)
		}
	}

	for _, out := range wf.Outputs() {
		stream, err := m.outputStream(out)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("output %q: %w", out.Name, err)
		}
		m.bindOutput(out.Name, stream)
	}

	m.logger.Debugw("Graph manager ready.", "steps", wf.Len(), "inputs", len(names), "outputs", len(m.outputs))
	return m, nil
}

// Steps returns a copy of the workflow steps.
func (m *Manager) Steps() []workflow.Step { return m.workflow.Steps() }

// Len returns the number of steps.
func (m *Manager) Len() int { return m.workflow.Len() }

// Inputs returns the declared input ids.
func (m *Manager) Inputs() []string { return m.workflow.Inputs() }

// Document returns the serializable form of the workflow.
func (m *Manager) Document() workflow.Document { return m.workflow.Document() }

// AddInput registers an input table under id.
func (m *Manager) AddInput(id string, t *table.Table) {
	m.workflow.AddInput(id)
	m.inputs[id] = t
	m.logger.Debugw("Input added.", "input", id)
	m.notify()
}

// RemoveInput drops a declared input. Steps bound to it keep their current
// binding; the dangling reference surfaces when they are next rewired.
func (m *Manager) RemoveInput(id string) {
	m.workflow.RemoveInput(id)
	delete(m.inputs, id)
	m.logger.Debugw("Input removed.", "input", id)
	m.notify()
}

// AddStep appends a step, creates its node and wires it: explicit bindings
// when the step has any, otherwise the default slot is bound to the
// previous step, if there is one. Nothing changes when an error is
// returned.
func (m *Manager) AddStep(step workflow.Step) (workflow.Step, error) {
	if step.ID == "" {
		step.ID = workflow.NewID()
	}
	node, err := m.builder.NewNode(m.ctx, step)
	if err != nil {
		return workflow.Step{}, err
	}
	w, err := m.wire(step, node.Inputs(), m.previousID(m.workflow.Len()), "")
	if err != nil {
		return workflow.Step{}, err
	}

	stored, err := m.workflow.AddStep(step)
	if err != nil {
		return workflow.Step{}, err
	}
	if err := m.graph.Add(node); err != nil {
		m.workflow.RemoveStep(m.workflow.Len() - 1)
		return workflow.Step{}, err
	}
	if err := node.BindAll(w.named, w.others); err != nil {
		m.graph.Remove(stored.ID)
		m.workflow.RemoveStep(m.workflow.Len() - 1)
		return workflow.Step{}, err
	}

	m.logger.Debugw("Step added.", "step", stored.ID, "verb", stored.Verb, "index", m.workflow.Len()-1)
	m.notify()
	return stored, nil
}

// RemoveStep removes the step at index. When the removed step was
// auto-bound, could take inputs and sits between two steps, the default
// slot of the next step is rebound to the previous one so the chain stays
// connected. The next step must declare a named input slot.
func (m *Manager) RemoveStep(index int) error {
	step, err := m.workflow.StepAt(index)
	if err != nil {
		return err
	}
	node, err := m.graph.Node(step.ID)
	if err != nil {
		return err
	}

	if !step.HasDefinedInputs() && node.HasPossibleInputs() && index > 0 && index+1 < m.workflow.Len() {
		prev, _ := m.workflow.StepAt(index - 1)
		next, _ := m.workflow.StepAt(index + 1)
		nextNode, err := m.graph.Node(next.ID)
		if err != nil {
			return err
		}
		if len(nextNode.Inputs()) > 0 {
			prevNode, err := m.graph.Node(prev.ID)
			if err != nil {
				return err
			}
			if err := nextNode.Bind("", dataflow.Source{Node: prevNode}); err != nil {
				return fmt.Errorf("rebind %q to %q: %w", next.ID, prev.ID, err)
			}
			m.logger.Debugw("Chain repaired.", "step", next.ID, "source", prev.ID)
		}
	}

	if err := m.graph.Remove(step.ID); err != nil {
		return err
	}
	if _, err := m.workflow.RemoveStep(index); err != nil {
		return err
	}
	m.store.ClearError(m.ctx, step.ID)
	m.logger.Debugw("Step removed.", "step", step.ID, "index", index)
	m.notify()
	return nil
}

// ReconfigureStep replaces the step at index. The node keeps its identity
// and downstream subscribers; its computation is replaced, all inputs are
// unbound and then rewired from the new descriptor. Changing the id fails
// with ErrRename and nothing changes.
func (m *Manager) ReconfigureStep(index int, step workflow.Step) (workflow.Step, error) {
	current, err := m.workflow.StepAt(index)
	if err != nil {
		return workflow.Step{}, err
	}
	if step.ID == "" {
		step.ID = current.ID
	}
	if step.ID != current.ID {
		return workflow.Step{}, fmt.Errorf("%w: %q -> %q", ErrRename, current.ID, step.ID)
	}

	node, err := m.graph.Node(current.ID)
	if err != nil {
		return workflow.Step{}, err
	}
	opts, err := m.builder.Options(m.ctx, step)
	if err != nil {
		return workflow.Step{}, err
	}
	w, err := m.wire(step, opts.Inputs, m.previousID(index), step.ID)
	if err != nil {
		return workflow.Step{}, err
	}

	updated, err := m.workflow.UpdateStep(step, index)
	if err != nil {
		return workflow.Step{}, err
	}
	m.store.ClearError(m.ctx, updated.ID)
	node.Configure(opts)
	if err := node.BindAll(w.named, w.others); err != nil {
		return workflow.Step{}, err
	}

	m.logger.Debugw("Step reconfigured.", "step", updated.ID, "verb", updated.Verb, "index", index)
	m.notify()
	return updated, nil
}

// AddOutput registers a named output and starts caching its values.
func (m *Manager) AddOutput(out workflow.Output) (workflow.Output, error) {
	if out.Name == "" {
		out.Name = out.Node
	}
	if _, exists := m.outputs[out.Name]; exists {
		return workflow.Output{}, fmt.Errorf("%w: %q", workflow.ErrDuplicateOutput, out.Name)
	}
	stream, err := m.outputStream(out)
	if err != nil {
		return workflow.Output{}, err
	}
	stored, err := m.workflow.AddOutput(out)
	if err != nil {
		return workflow.Output{}, err
	}
	m.bindOutput(stored.Name, stream)
	m.logger.Debugw("Output added.", "output", stored.Name, "node", stored.Node)
	m.notify()
	return stored, nil
}

// RemoveOutput cancels the output subscription and drops its cache entry.
func (m *Manager) RemoveOutput(name string) error {
	reg, ok := m.outputs[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOutput, name)
	}
	reg.sub.Unsubscribe()
	delete(m.outputs, name)
	m.store.DeleteOutput(m.ctx, name)
	m.workflow.RemoveOutput(name)
	m.logger.Debugw("Output removed.", "output", name)
	m.notify()
	return nil
}

// Output returns the live stream of a named output.
func (m *Manager) Output(name string) (*dataflow.Stream, error) {
	reg, ok := m.outputs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOutput, name)
	}
	return reg.stream, nil
}

// Outputs returns the registered output names in registration order.
func (m *Manager) Outputs() []string {
	var names []string
	for _, out := range m.workflow.Outputs() {
		if _, ok := m.outputs[out.Name]; ok {
			names = append(names, out.Name)
		}
	}
	return names
}

// Latest returns the cached value of a named output. ok is false until the
// output has emitted.
func (m *Manager) Latest(name string) (*table.Table, bool) {
	if _, registered := m.outputs[name]; !registered {
		return nil, false
	}
	return m.store.GetOutput(m.ctx, name)
}

// ToMap returns every registered output with its cached value, nil for
// outputs that have not emitted yet.
func (m *Manager) ToMap() map[string]*table.Table {
	snapshot := make(map[string]*table.Table, len(m.outputs))
	for name := range m.outputs {
		snapshot[name], _ = m.store.GetOutput(m.ctx, name)
	}
	return snapshot
}

// StepError returns the last computation failure of a step, or nil.
func (m *Manager) StepError(id string) error {
	return m.store.GetError(m.ctx, id)
}

// OnChange registers a handler fired after every mutation and every output
// emission. The returned function unregisters it.
func (m *Manager) OnChange(fn func()) func() {
	h := &handler{fn: fn, active: true}
	m.handlers = append(m.handlers, h)
	return func() {
		h.active = false
		m.handlers = slices.DeleteFunc(m.handlers, func(other *handler) bool { return other == h })
	}
}

// Clear removes every step, input and output, tearing down the graph to
// match the now empty workflow.
func (m *Manager) Clear() {
	m.unbindOutputs()
	for _, step := range m.workflow.Steps() {
		if err := m.graph.Remove(step.ID); err != nil {
			m.logger.Warnw("Failed to remove node.", "step", step.ID, "error", err)
		}
	}
	m.workflow.Clear()
	clear(m.inputs)
	m.store.Reset(m.ctx)
	m.logger.Debugw("Pipeline cleared.")
	m.notify()
}

// Close cancels async computations and output subscriptions and drops all
// change handlers. The manager must not be used afterwards.
func (m *Manager) Close() {
	m.unbindOutputs()
	m.graph.Close()
	m.handlers = nil
	m.store.Reset(m.ctx)
}

// Settle waits for in-flight async verbs and applies their results.
func (m *Manager) Settle(ctx context.Context) error {
	return m.graph.Settle(ctx)
}

// Pending returns the number of async computations not yet applied.
func (m *Manager) Pending() int { return m.graph.Pending() }

// Completions exposes finished async computations for event loops that
// cannot block in Settle.
func (m *Manager) Completions() <-chan dataflow.Completion { return m.graph.Completions() }

// Apply lands one completion received from Completions.
func (m *Manager) Apply(c dataflow.Completion) { m.graph.Apply(c) }

// Describe lists the live steps in dependency order with their bindings.
func (m *Manager) Describe() ([]StepInfo, error) {
	order, err := m.graph.Order()
	if err != nil {
		return nil, err
	}
	infos := make([]StepInfo, 0, len(order))
	for _, id := range order {
		node, err := m.graph.Node(id)
		if err != nil {
			return nil, err
		}
		info := StepInfo{ID: id, Bindings: node.Bindings(), Err: node.Err()}
		if i := m.workflow.IndexOf(id); i >= 0 {
			step, _ := m.workflow.StepAt(i)
			info.Verb = step.Verb
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (m *Manager) previousID(index int) string {
	if index <= 0 {
		return ""
	}
	prev, err := m.workflow.StepAt(index - 1)
	if err != nil {
		return ""
	}
	return prev.ID
}

func (m *Manager) bindOutput(name string, stream *dataflow.Stream) {
	reg := &registration{stream: stream}
	m.outputs[name] = reg
	reg.sub = stream.Subscribe(func(t *table.Table) {
		m.store.SetOutput(m.ctx, name, t)
		m.notify()
	})
}

func (m *Manager) unbindOutputs() {
	for name, reg := range m.outputs {
		reg.sub.Unsubscribe()
		delete(m.outputs, name)
	}
}

func (m *Manager) outputStream(out workflow.Output) (*dataflow.Stream, error) {
	node, err := m.resolve(out.Node)
	if err != nil {
		return nil, err
	}
	return node.Output(out.Output)
}

func (m *Manager) notify() {
	for _, h := range slices.Clone(m.handlers) {
		if h.active {
			h.fn()
		}
	}
}

func (m *Manager) onFailure(id string, err error) {
	m.store.SetError(m.ctx, id, err)
	m.logger.Warnw("Step computation failed.", "step", id, "error", err)
	m.notify()
}

func (m *Manager) onEmit(id string) {
	m.store.ClearError(m.ctx, id)
}
