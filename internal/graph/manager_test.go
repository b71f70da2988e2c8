package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/wrangler/internal/ctxlog"
	"github.com/vk/wrangler/internal/dataflow"
	"github.com/vk/wrangler/internal/table"
	"github.com/vk/wrangler/internal/verbs"
	"github.com/vk/wrangler/internal/workflow"
	"go.uber.org/zap/zaptest"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	return ctxlog.WithLogger(context.Background(), zaptest.NewLogger(t).Sugar())
}

func newManager(t *testing.T, inputs map[string]*table.Table, wf *workflow.Workflow) *Manager {
	t.Helper()
	if wf == nil {
		wf = workflow.New()
	}
	m, err := New(testContext(t), inputs, wf, verbs.Default())
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func ids(vals ...int) *table.Table {
	rows := make([][]any, len(vals))
	for i, v := range vals {
		rows[i] = []any{float64(v)}
	}
	return table.MustNew([]string{"ID"}, rows)
}

func fill(id, to string, value any) workflow.Step {
	return workflow.Step{ID: id, Verb: verbs.Fill, Args: verbs.FillArgs{To: to, Value: value}}
}

func from(step workflow.Step, node string) workflow.Step {
	step.Inputs = map[string]workflow.Binding{verbs.SourceSlot: {Node: node}}
	return step
}

func bindingsOf(t *testing.T, m *Manager, id string) []dataflow.Binding {
	t.Helper()
	infos, err := m.Describe()
	require.NoError(t, err)
	for _, info := range infos {
		if info.ID == id {
			return info.Bindings
		}
	}
	t.Fatalf("step %q is not in the graph", id)
	return nil
}

func latest(t *testing.T, m *Manager, name string) *table.Table {
	t.Helper()
	v, ok := m.Latest(name)
	require.True(t, ok, "output %q has not emitted", name)
	return v
}

func assertSameTable(t *testing.T, want, got *table.Table) {
	t.Helper()
	assert.Equal(t, want.Columns(), got.Columns())
	if diff := cmp.Diff(want.Records(), got.Records()); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_AutoBindChain(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("%d steps", n), func(t *testing.T) {
			m := newManager(t, nil, nil)
			var stepIDs []string
			for k := 0; k < n; k++ {
				s, err := m.AddStep(workflow.Step{Verb: verbs.Fill, Args: verbs.FillArgs{To: "x"}})
				require.NoError(t, err)
				stepIDs = append(stepIDs, s.ID)
			}

			assert.Empty(t, bindingsOf(t, m, stepIDs[0]))
			for k := 1; k < n; k++ {
				expected := []dataflow.Binding{{Input: verbs.SourceSlot, Node: stepIDs[k-1], Output: dataflow.DefaultOutput}}
				assert.Equal(t, expected, bindingsOf(t, m, stepIDs[k]), "step %d", k)
			}
		})
	}

	t.Run("source-only verbs take no binding", func(t *testing.T) {
		m := newManager(t, map[string]*table.Table{"table1": ids(1)}, nil)
		_, err := m.AddStep(from(fill("a", "x", 1), "table1"))
		require.NoError(t, err)
		_, err = m.AddStep(workflow.Step{ID: "f", Verb: verbs.Fetch, Args: verbs.FetchArgs{URL: "http://127.0.0.1:0/x.csv"}})
		require.NoError(t, err)
		assert.Empty(t, bindingsOf(t, m, "f"))
	})
}

func TestManager_RemoveStepRepairsChain(t *testing.T) {
	inputs := map[string]*table.Table{"table1": ids(1, 2)}

	m := newManager(t, inputs, nil)
	_, err := m.AddStep(from(fill("a", "a", 1), "table1"))
	require.NoError(t, err)
	_, err = m.AddStep(fill("b", "b", 2))
	require.NoError(t, err)
	_, err = m.AddStep(fill("c", "c", 3))
	require.NoError(t, err)
	_, err = m.AddOutput(workflow.Output{Name: "out", Node: "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "a", "b", "c"}, latest(t, m, "out").Columns())

	require.NoError(t, m.RemoveStep(1))

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []dataflow.Binding{{Input: verbs.SourceSlot, Node: "a", Output: dataflow.DefaultOutput}}, bindingsOf(t, m, "c"))

	// Same result as a pipeline that never had b.
	direct := newManager(t, inputs, nil)
	_, err = direct.AddStep(from(fill("a", "a", 1), "table1"))
	require.NoError(t, err)
	_, err = direct.AddStep(fill("c", "c", 3))
	require.NoError(t, err)
	_, err = direct.AddOutput(workflow.Output{Name: "out", Node: "c"})
	require.NoError(t, err)

	assertSameTable(t, latest(t, direct, "out"), latest(t, m, "out"))
}

func TestManager_RemoveStepDeleteAndRewire(t *testing.T) {
	m := newManager(t, nil, nil)
	var stepIDs []string
	for _, to := range []string{"A", "B", "C"} {
		s, err := m.AddStep(workflow.Step{Verb: verbs.Fill, Args: verbs.FillArgs{To: to}})
		require.NoError(t, err)
		stepIDs = append(stepIDs, s.ID)
	}

	require.NoError(t, m.RemoveStep(1))

	assert.Len(t, m.Steps(), 2)
	assert.Equal(t, stepIDs[2], m.Steps()[1].ID)
	assert.Equal(t, stepIDs[0], bindingsOf(t, m, stepIDs[2])[0].Node)
}

func TestManager_RemoveStepRepairsExplicitNext(t *testing.T) {
	inputs := map[string]*table.Table{"table1": ids(1), "table2": ids(2)}
	m := newManager(t, inputs, nil)
	_, err := m.AddStep(from(fill("a", "a", 1), "table1"))
	require.NoError(t, err)
	_, err = m.AddStep(fill("b", "b", 1))
	require.NoError(t, err)
	_, err = m.AddStep(from(fill("c", "c", 1), "table2"))
	require.NoError(t, err)
	_, err = m.AddOutput(workflow.Output{Name: "out", Node: "c"})
	require.NoError(t, err)

	require.NoError(t, m.RemoveStep(1))
	assert.Equal(t, "a", bindingsOf(t, m, "c")[0].Node)
	assert.Equal(t, []string{"ID", "a", "c"}, latest(t, m, "out").Columns())
}

func TestManager_RemoveStepWithoutRepair(t *testing.T) {
	inputs := map[string]*table.Table{"table1": ids(1), "table2": ids(2)}

	t.Run("explicitly bound middle step", func(t *testing.T) {
		m := newManager(t, inputs, nil)
		_, err := m.AddStep(from(fill("a", "a", 1), "table1"))
		require.NoError(t, err)
		_, err = m.AddStep(from(fill("b", "b", 1), "table2"))
		require.NoError(t, err)
		_, err = m.AddStep(fill("c", "c", 1))
		require.NoError(t, err)

		require.NoError(t, m.RemoveStep(1))
		// c keeps its stale binding to the removed node.
		assert.Equal(t, "b", bindingsOf(t, m, "c")[0].Node)
	})

	t.Run("removed step takes no input", func(t *testing.T) {
		m := newManager(t, inputs, nil)
		_, err := m.AddStep(from(fill("a", "a", 1), "table1"))
		require.NoError(t, err)
		_, err = m.AddStep(workflow.Step{ID: "load", Verb: verbs.Fetch, Args: verbs.FetchArgs{URL: "http://127.0.0.1:1/t.csv"}})
		require.NoError(t, err)
		_, err = m.AddStep(fill("c", "c", 1))
		require.NoError(t, err)

		require.NoError(t, m.RemoveStep(1))
		assert.Equal(t, "load", bindingsOf(t, m, "c")[0].Node)
	})

	t.Run("last step", func(t *testing.T) {
		m := newManager(t, inputs, nil)
		_, err := m.AddStep(from(fill("a", "a", 1), "table1"))
		require.NoError(t, err)
		_, err = m.AddStep(fill("b", "b", 1))
		require.NoError(t, err)

		require.NoError(t, m.RemoveStep(1))
		assert.Equal(t, 1, m.Len())
		assert.ErrorIs(t, m.RemoveStep(5), ErrIndexOutOfRange)
	})
}

func TestManager_ReconfigureStep(t *testing.T) {
	inputs := map[string]*table.Table{"table1": ids(1, 2), "table2": ids(3)}

	t.Run("rename is rejected without mutation", func(t *testing.T) {
		m := newManager(t, inputs, nil)
		_, err := m.AddStep(from(fill("a", "x", 1), "table1"))
		require.NoError(t, err)
		stepsBefore := m.Steps()
		graphBefore, err := m.Describe()
		require.NoError(t, err)

		_, err = m.ReconfigureStep(0, from(fill("renamed", "y", 2), "table2"))
		require.ErrorIs(t, err, ErrRename)

		assert.Equal(t, stepsBefore, m.Steps())
		graphAfter, err := m.Describe()
		require.NoError(t, err)
		assert.Equal(t, graphBefore, graphAfter)
		assert.False(t, m.graph.HasNode("renamed"))
	})

	t.Run("rewires and recomputes while keeping subscribers", func(t *testing.T) {
		m := newManager(t, inputs, nil)
		_, err := m.AddStep(from(fill("a", "x", 1), "table1"))
		require.NoError(t, err)
		_, err = m.AddOutput(workflow.Output{Name: "out", Node: "a"})
		require.NoError(t, err)

		stream, err := m.Output("out")
		require.NoError(t, err)
		var rows []int
		sub := stream.Subscribe(func(v *table.Table) { rows = append(rows, v.NumRows()) })
		defer sub.Unsubscribe()

		updated, err := m.ReconfigureStep(0, workflow.Step{
			Verb:   verbs.Fill,
			Args:   verbs.FillArgs{To: "y", Value: 2},
			Inputs: map[string]workflow.Binding{verbs.SourceSlot: {Node: "table2"}},
		})
		require.NoError(t, err)
		assert.Equal(t, "a", updated.ID)

		assert.Equal(t, []int{2, 1}, rows)
		assert.Equal(t, []string{"ID", "y"}, latest(t, m, "out").Columns())
		assert.Equal(t, "table2", bindingsOf(t, m, "a")[0].Node)
	})

	t.Run("auto-bound reconfiguration binds the preceding step", func(t *testing.T) {
		m := newManager(t, inputs, nil)
		_, err := m.AddStep(from(fill("a", "x", 1), "table1"))
		require.NoError(t, err)
		_, err = m.AddStep(from(fill("b", "y", 1), "table2"))
		require.NoError(t, err)
		_, err = m.AddStep(fill("c", "z", 1))
		require.NoError(t, err)

		_, err = m.ReconfigureStep(1, fill("b", "y", 5))
		require.NoError(t, err)
		assert.Equal(t, "a", bindingsOf(t, m, "b")[0].Node)
	})

	t.Run("cycles are rejected without mutation", func(t *testing.T) {
		m := newManager(t, inputs, nil)
		_, err := m.AddStep(from(fill("a", "x", 1), "table1"))
		require.NoError(t, err)
		_, err = m.AddStep(fill("b", "y", 1))
		require.NoError(t, err)

		_, err = m.ReconfigureStep(0, from(fill("a", "x", 1), "b"))
		require.ErrorIs(t, err, dataflow.ErrCycle)
		assert.Equal(t, "table1", bindingsOf(t, m, "a")[0].Node)
		step := m.Steps()[0]
		assert.Equal(t, "table1", step.Inputs[verbs.SourceSlot].Node)
	})
}

func TestManager_UnknownReference(t *testing.T) {
	m := newManager(t, map[string]*table.Table{"table1": ids(1)}, nil)
	_, err := m.AddStep(from(fill("a", "x", 1), "table1"))
	require.NoError(t, err)
	graphBefore, err := m.Describe()
	require.NoError(t, err)

	_, err = m.AddStep(from(fill("b", "x", 1), "nope"))
	require.ErrorIs(t, err, ErrUnknownReference)
	assert.ErrorContains(t, err, `unknown node id or declared input: "nope"`)

	_, err = m.AddStep(workflow.Step{
		ID:     "c",
		Verb:   verbs.Concat,
		Inputs: map[string]workflow.Binding{verbs.SourceSlot: {Node: "table1"}},
		Others: []workflow.Binding{{Node: "a"}, {Node: "ghost"}},
	})
	require.ErrorIs(t, err, ErrUnknownReference)

	_, err = m.ReconfigureStep(0, from(fill("a", "x", 1), "nope"))
	require.ErrorIs(t, err, ErrUnknownReference)

	_, err = m.AddOutput(workflow.Output{Name: "out", Node: "nope"})
	require.ErrorIs(t, err, ErrUnknownReference)

	assert.Equal(t, 1, m.Len())
	assert.Equal(t, "table1", m.Steps()[0].Inputs[verbs.SourceSlot].Node)
	assert.Empty(t, m.Outputs())
	graphAfter, err := m.Describe()
	require.NoError(t, err)
	assert.Equal(t, graphBefore, graphAfter)
}

func TestManager_OutputCache(t *testing.T) {
	m := newManager(t, nil, nil)
	_, err := m.AddStep(fill("a", "flag", true))
	require.NoError(t, err)
	_, err = m.AddOutput(workflow.Output{Name: "out", Node: "a"})
	require.NoError(t, err)

	_, ok := m.Latest("out")
	assert.False(t, ok, "no data has flowed yet")
	assert.Equal(t, map[string]*table.Table{"out": nil}, m.ToMap())

	input := ids(1, 2, 3)
	m.AddInput("table1", input)
	_, err = m.ReconfigureStep(0, from(fill("a", "flag", true), "table1"))
	require.NoError(t, err)

	d, err := verbs.Default().Lookup(verbs.Fill)
	require.NoError(t, err)
	args, err := d.DecodeArgs(verbs.FillArgs{To: "flag", Value: true})
	require.NoError(t, err)
	want, err := d.Fn(context.Background(), verbs.Input{Named: map[string]*table.Table{verbs.SourceSlot: input}}, args)
	require.NoError(t, err)

	assertSameTable(t, want, latest(t, m, "out"))
	assert.Same(t, latest(t, m, "out"), m.ToMap()["out"])

	t.Run("removing the output drops the cache", func(t *testing.T) {
		require.NoError(t, m.RemoveOutput("out"))
		_, ok := m.Latest("out")
		assert.False(t, ok)
		assert.Empty(t, m.ToMap())
		_, err := m.Output("out")
		assert.ErrorIs(t, err, ErrUnknownOutput)
		assert.ErrorIs(t, m.RemoveOutput("out"), ErrUnknownOutput)
	})

	t.Run("duplicate names are rejected", func(t *testing.T) {
		_, err := m.AddOutput(workflow.Output{Node: "a"})
		require.NoError(t, err)
		_, err = m.AddOutput(workflow.Output{Name: "a", Node: "table1"})
		assert.ErrorIs(t, err, workflow.ErrDuplicateOutput)
	})
}

func TestManager_ChangeNotification(t *testing.T) {
	m := newManager(t, nil, nil)
	var first, second int
	m.OnChange(func() { first++ })
	stop := m.OnChange(func() { second++ })

	fires := func(name string, op func()) {
		t.Helper()
		beforeFirst, beforeSecond := first, second
		op()
		assert.Greater(t, first, beforeFirst, name)
		assert.Greater(t, second, beforeSecond, name)
	}

	fires("addInput", func() { m.AddInput("table1", ids(1)) })
	fires("addStep", func() {
		_, err := m.AddStep(from(fill("a", "x", 1), "table1"))
		require.NoError(t, err)
	})
	fires("addStep auto-bound", func() {
		_, err := m.AddStep(fill("b", "y", 1))
		require.NoError(t, err)
	})
	fires("reconfigureStep", func() {
		_, err := m.ReconfigureStep(1, fill("b", "y", 2))
		require.NoError(t, err)
	})
	fires("addOutput", func() {
		_, err := m.AddOutput(workflow.Output{Name: "out", Node: "b"})
		require.NoError(t, err)
	})
	fires("removeOutput", func() { require.NoError(t, m.RemoveOutput("out")) })
	fires("removeStep", func() { require.NoError(t, m.RemoveStep(1)) })
	fires("removeInput", func() { m.RemoveInput("table1") })

	stop()
	before := second
	m.AddInput("table2", ids(2))
	assert.Equal(t, before, second, "stopped handlers are not called")
}

func TestManager_ConcatScenario(t *testing.T) {
	inputs := map[string]*table.Table{
		"table1": ids(1, 2, 3),
		"table2": ids(4, 5),
	}
	m := newManager(t, inputs, nil)

	s, err := m.AddStep(workflow.Step{
		Verb:   verbs.Concat,
		Inputs: map[string]workflow.Binding{verbs.SourceSlot: {Node: "table1"}},
		Others: []workflow.Binding{{Node: "table2"}},
	})
	require.NoError(t, err)
	_, err = m.AddOutput(workflow.Output{Name: "result", Node: s.ID})
	require.NoError(t, err)

	got := latest(t, m, "result")
	assert.Equal(t, 5, got.NumRows())
	col, err := got.Column("ID")
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0, 3.0, 4.0, 5.0}, col)
}

func TestManager_VerbFailure(t *testing.T) {
	m := newManager(t, map[string]*table.Table{"table1": ids(1)}, nil)
	changes := 0
	m.OnChange(func() { changes++ })

	_, err := m.AddStep(from(fill("bad", "", 1), "table1"))
	require.NoError(t, err, "verb failures are not structural")
	assert.ErrorIs(t, m.StepError("bad"), verbs.ErrInvalidArgs)
	assert.GreaterOrEqual(t, changes, 2, "the failure and the mutation both notify")

	_, err = m.AddOutput(workflow.Output{Name: "out", Node: "bad"})
	require.NoError(t, err)
	_, ok := m.Latest("out")
	assert.False(t, ok)

	infos, err := m.Describe()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Error(t, infos[0].Err)
	assert.Equal(t, verbs.Fill, infos[0].Verb)

	_, err = m.ReconfigureStep(0, from(fill("bad", "ok", 1), "table1"))
	require.NoError(t, err)
	assert.NoError(t, m.StepError("bad"))
	assert.Equal(t, []string{"ID", "ok"}, latest(t, m, "out").Columns())
}

func TestManager_AsyncFetch(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "ID,name\n1,a\n2,b\n")
	}))
	defer srv.Close()

	m := newManager(t, nil, nil)
	_, err := m.AddStep(workflow.Step{ID: "load", Verb: verbs.Fetch, Args: verbs.FetchArgs{URL: srv.URL + "/data.csv"}})
	require.NoError(t, err)
	_, err = m.AddStep(fill("flagged", "flag", true))
	require.NoError(t, err)
	_, err = m.AddOutput(workflow.Output{Name: "out", Node: "flagged"})
	require.NoError(t, err)

	_, ok := m.Latest("out")
	assert.False(t, ok)
	assert.Equal(t, 1, m.Pending())
	emissions := 0
	stream, err := m.Output("out")
	require.NoError(t, err)
	sub := stream.Subscribe(func(*table.Table) { emissions++ })
	defer sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, m.Settle(ctx))

	got := latest(t, m, "out")
	assert.Equal(t, []string{"ID", "name", "flag"}, got.Columns())
	assert.Equal(t, 2, got.NumRows())
	assert.Equal(t, int64(1), hits.Load())
	assert.Equal(t, 1, emissions)

	t.Run("reconfigure fetches once", func(t *testing.T) {
		_, err := m.ReconfigureStep(0, workflow.Step{ID: "load", Verb: verbs.Fetch, Args: verbs.FetchArgs{URL: srv.URL + "/other.csv"}})
		require.NoError(t, err)
		assert.Equal(t, 1, m.Pending())
		require.NoError(t, m.Settle(ctx))
		assert.Equal(t, int64(2), hits.Load())
		assert.Equal(t, 2, emissions)
	})
}

func TestManager_ReplayFetchesOnce(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "ID\n1\n")
	}))
	defer srv.Close()

	wf := workflow.New()
	_, err := wf.AddStep(workflow.Step{ID: "load", Verb: verbs.Fetch, Args: map[string]any{"url": srv.URL + "/t.csv"}})
	require.NoError(t, err)
	_, err = wf.AddOutput(workflow.Output{Name: "load", Node: "load"})
	require.NoError(t, err)

	m := newManager(t, nil, wf)
	assert.Equal(t, 1, m.Pending())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, m.Settle(ctx))
	assert.Equal(t, int64(1), hits.Load())
	assert.Equal(t, 1, latest(t, m, "load").NumRows())
}

func TestManager_ReplaysWorkflow(t *testing.T) {
	wf, err := workflow.Parse([]byte(`{
	  "input": ["table1", "table2"],
	  "steps": [
	    {"id": "cat", "verb": "concat", "inputs": {"source": "table1", "others": ["table2"]}},
	    {"id": "flag", "verb": "fill", "args": {"to": "flag", "value": 1}},
	    {"id": "big", "verb": "filter", "args": {"column": "ID", "criteria": [{"operator": ">", "value": 2}]}}
	  ],
	  "output": ["big", {"name": "all", "node": "cat"}]
	}`))
	require.NoError(t, err)

	m := newManager(t, map[string]*table.Table{"table1": ids(1, 2, 3), "table2": ids(4)}, wf)

	assert.Equal(t, []string{"big", "all"}, m.Outputs())
	assert.Equal(t, 4, latest(t, m, "all").NumRows())
	big := latest(t, m, "big")
	assert.Equal(t, 2, big.NumRows())
	assert.Equal(t, []string{"ID", "flag"}, big.Columns())
	assert.Equal(t, "flag", bindingsOf(t, m, "big")[0].Node)

	t.Run("broken references fail construction", func(t *testing.T) {
		broken, err := workflow.Parse([]byte(`{"steps": [{"id": "a", "verb": "fill", "inputs": {"source": "missing"}}]}`))
		require.NoError(t, err)
		_, err = New(testContext(t), nil, broken, verbs.Default())
		assert.ErrorIs(t, err, ErrUnknownReference)
	})
}

func TestManager_Clear(t *testing.T) {
	m := newManager(t, map[string]*table.Table{"table1": ids(1)}, nil)
	_, err := m.AddStep(from(fill("a", "x", 1), "table1"))
	require.NoError(t, err)
	_, err = m.AddOutput(workflow.Output{Node: "a"})
	require.NoError(t, err)

	changed := false
	m.OnChange(func() { changed = true })
	m.Clear()

	assert.True(t, changed)
	assert.Zero(t, m.Len())
	assert.Empty(t, m.Inputs())
	assert.Empty(t, m.Outputs())
	assert.Empty(t, m.ToMap())
	infos, err := m.Describe()
	require.NoError(t, err)
	assert.Empty(t, infos)

	// The pipeline is usable again.
	m.AddInput("table1", ids(2))
	_, err = m.AddStep(from(fill("a", "x", 1), "table1"))
	require.NoError(t, err)
}

func TestManager_RemoveInputLeavesDanglingBinding(t *testing.T) {
	m := newManager(t, map[string]*table.Table{"table1": ids(1, 2)}, nil)
	_, err := m.AddStep(from(fill("a", "x", 1), "table1"))
	require.NoError(t, err)
	_, err = m.AddOutput(workflow.Output{Name: "out", Node: "a"})
	require.NoError(t, err)

	m.RemoveInput("table1")
	assert.Empty(t, m.Inputs())
	assert.Equal(t, "table1", bindingsOf(t, m, "a")[0].Node, "the existing binding stays live")
	assert.Equal(t, 2, latest(t, m, "out").NumRows())

	stepsBefore := m.Steps()
	_, err = m.ReconfigureStep(0, from(fill("a", "y", 2), "table1"))
	require.ErrorIs(t, err, ErrUnknownReference)
	assert.Equal(t, stepsBefore, m.Steps())
	assert.Equal(t, "table1", bindingsOf(t, m, "a")[0].Node)
	assert.Equal(t, []string{"ID", "x"}, latest(t, m, "out").Columns())

	m.AddInput("table1", ids(5))
	_, err = m.ReconfigureStep(0, from(fill("a", "y", 2), "table1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "y"}, latest(t, m, "out").Columns())
	assert.Equal(t, 1, latest(t, m, "out").NumRows())
}
