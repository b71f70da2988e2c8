// internal/workflow/workflow_test.go
package workflow

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/wrangler/internal/verbs"
)

func TestWorkflow_Steps(t *testing.T) {
	t.Run("add step assigns an id when absent", func(t *testing.T) {
		w := New()
		s, err := w.AddStep(Step{Verb: verbs.Fill})
		require.NoError(t, err)
		assert.Len(t, s.ID, 36)
		assert.True(t, w.HasStep(s.ID))
		assert.Equal(t, 0, w.IndexOf(s.ID))
	})

	t.Run("duplicate and invalid ids are rejected", func(t *testing.T) {
		w := New()
		_, err := w.AddStep(Step{ID: "a", Verb: verbs.Fill})
		require.NoError(t, err)

		_, err = w.AddStep(Step{ID: "a", Verb: verbs.Fill})
		assert.ErrorIs(t, err, ErrDuplicateStep)

		_, err = w.AddStep(Step{ID: "has space", Verb: verbs.Fill})
		assert.ErrorIs(t, err, ErrInvalidID)
		assert.Equal(t, 1, w.Len())
	})

	t.Run("update keeps the id and refuses renames", func(t *testing.T) {
		w := New()
		_, err := w.AddStep(Step{ID: "a", Verb: verbs.Fill})
		require.NoError(t, err)

		updated, err := w.UpdateStep(Step{Verb: verbs.Erase}, 0)
		require.NoError(t, err)
		assert.Equal(t, "a", updated.ID)
		assert.Equal(t, verbs.Erase, updated.Verb)

		_, err = w.UpdateStep(Step{ID: "b", Verb: verbs.Fill}, 0)
		assert.ErrorIs(t, err, ErrRename)
		current, err := w.StepAt(0)
		require.NoError(t, err)
		assert.Equal(t, verbs.Erase, current.Verb)

		_, err = w.UpdateStep(Step{Verb: verbs.Fill}, 3)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
	})

	t.Run("remove by index keeps order", func(t *testing.T) {
		w := New()
		for _, id := range []string{"a", "b", "c"} {
			_, err := w.AddStep(Step{ID: id, Verb: verbs.Fill})
			require.NoError(t, err)
		}
		removed, err := w.RemoveStep(1)
		require.NoError(t, err)
		assert.Equal(t, "b", removed.ID)

		var ids []string
		for _, s := range w.Steps() {
			ids = append(ids, s.ID)
		}
		assert.Equal(t, []string{"a", "c"}, ids)

		_, err = w.RemoveStep(-1)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
	})

	t.Run("returned steps are copies", func(t *testing.T) {
		w := New()
		_, err := w.AddStep(Step{ID: "a", Verb: verbs.Fill, Inputs: map[string]Binding{"source": {Node: "t"}}})
		require.NoError(t, err)

		s := w.Steps()[0]
		s.Inputs["source"] = Binding{Node: "other"}

		stored, err := w.StepAt(0)
		require.NoError(t, err)
		assert.Equal(t, "t", stored.Inputs["source"].Node)
	})
}

func TestWorkflow_InputsAndOutputs(t *testing.T) {
	w := New()
	w.AddInput("table1")
	w.AddInput("table1")
	w.AddInput("table2")
	assert.Equal(t, []string{"table1", "table2"}, w.Inputs())

	w.RemoveInput("table1")
	assert.False(t, w.HasInput("table1"))

	o, err := w.AddOutput(Output{Node: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "s1", o.Name)

	_, err = w.AddOutput(Output{Name: "s1", Node: "s2"})
	assert.ErrorIs(t, err, ErrDuplicateOutput)

	assert.True(t, w.RemoveOutput("s1"))
	assert.False(t, w.RemoveOutput("s1"))

	w.AddInput("x")
	_, err = w.AddStep(Step{Verb: verbs.Fill})
	require.NoError(t, err)
	w.Clear()
	assert.Empty(t, w.Inputs())
	assert.Zero(t, w.Len())
	assert.Empty(t, w.Outputs())
}

func TestStep_HasDefinedInputs(t *testing.T) {
	assert.False(t, Step{}.HasDefinedInputs())
	assert.True(t, Step{Inputs: map[string]Binding{"source": {Node: "a"}}}.HasDefinedInputs())
	assert.True(t, Step{Others: []Binding{{Node: "a"}}}.HasDefinedInputs())
}

const concatDocument = `{
  "input": ["table1", {"id": "table2", "path": "t2.csv"}],
  "steps": [
    {
      "id": "combined",
      "verb": "concat",
      "inputs": {"source": {"node": "table1"}, "others": [{"node": "table2"}, "table3"]}
    },
    {"id": "filled", "verb": "fill", "args": {"to": "flag", "value": true}}
  ],
  "output": ["filled", {"name": "all", "node": "combined", "output": "target"}]
}`

func TestParse(t *testing.T) {
	w, err := Parse([]byte(concatDocument))
	require.NoError(t, err)

	assert.Equal(t, []string{"table1", "table2"}, w.Inputs())

	steps := w.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, map[string]Binding{"source": {Node: "table1"}}, steps[0].Inputs)
	assert.Equal(t, []Binding{{Node: "table2"}, {Node: "table3"}}, steps[0].Others)
	assert.False(t, steps[1].HasDefinedInputs())
	assert.Equal(t, map[string]any{"to": "flag", "value": true}, steps[1].Args)

	expectedOutputs := []Output{
		{Name: "filled", Node: "filled"},
		{Name: "all", Node: "combined", Output: "target"},
	}
	if diff := cmp.Diff(expectedOutputs, w.Outputs()); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}

	t.Run("round trips through json", func(t *testing.T) {
		data, err := json.Marshal(w)
		require.NoError(t, err)

		again, err := Parse(data)
		require.NoError(t, err)
		if diff := cmp.Diff(w.Document(), again.Document()); diff != "" {
			t.Errorf("document mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		_, err := Parse([]byte(`{"steps": [], "extra": 1}`))
		assert.Error(t, err)
	})

	t.Run("steps need a verb", func(t *testing.T) {
		_, err := Parse([]byte(`{"steps": [{"id": "a"}]}`))
		assert.ErrorContains(t, err, "verb is required")
	})

	t.Run("duplicate step ids are rejected", func(t *testing.T) {
		_, err := Parse([]byte(`{"steps": [{"id": "a", "verb": "fill"}, {"id": "a", "verb": "fill"}]}`))
		assert.ErrorIs(t, err, ErrDuplicateStep)
	})
}

func TestDecodeYAMLDocument(t *testing.T) {
	doc := `
input:
  - id: table1
    path: t1.csv
steps:
  - id: derived
    verb: derive
    args:
      column1: a
      column2: b
      operator: "*"
      to: product
    inputs:
      source: table1
output:
  - derived
`
	d, err := DecodeYAMLDocument([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []InputRef{{ID: "table1", Path: "t1.csv"}}, d.Input)

	w, err := d.Workflow()
	require.NoError(t, err)
	s, err := w.StepAt(0)
	require.NoError(t, err)
	assert.Equal(t, verbs.Derive, s.Verb)
	assert.Equal(t, Binding{Node: "table1"}, s.Inputs["source"])

	args, err := verbs.Default().Lookup(verbs.Derive)
	require.NoError(t, err)
	decoded, err := args.DecodeArgs(s.Args)
	require.NoError(t, err)
	assert.Equal(t, &verbs.DeriveArgs{Column1: "a", Column2: "b", Operator: "*", To: "product"}, decoded)

	_, err = DecodeYAMLDocument([]byte(""))
	assert.Error(t, err)
}
