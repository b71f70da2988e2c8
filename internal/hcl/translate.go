package hcl

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/wrangler/internal/ctxlog"
	"github.com/vk/wrangler/internal/nodeid"
	"github.com/vk/wrangler/internal/schema"
	"github.com/vk/wrangler/internal/verbs"
	"github.com/vk/wrangler/internal/workflow"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

func translateInput(in *schema.Input) workflow.InputRef {
	return workflow.InputRef{ID: in.ID, Path: in.Path, Delimiter: in.Delimiter}
}

func translateOutput(out *schema.Output) workflow.Output {
	return workflow.Output{Name: out.Name, Node: out.Node, Output: out.Output}
}

func translateStep(ctx context.Context, s *schema.Step) (workflow.Step, error) {
	step := workflow.Step{
		ID:          s.ID,
		Verb:        verbs.Verb(s.Verb),
		Description: s.Description,
	}

	args, err := decodeArgs(ctx, s.Args)
	if err != nil {
		return workflow.Step{}, fmt.Errorf("step %q: %w", s.ID, err)
	}
	step.Args = args

	if len(s.Inputs) > 0 {
		step.Inputs = make(map[string]workflow.Binding, len(s.Inputs))
		for _, b := range s.Inputs {
			if _, dup := step.Inputs[b.Slot]; dup {
				return workflow.Step{}, fmt.Errorf("step %q: input %q declared twice", s.ID, b.Slot)
			}
			step.Inputs[b.Slot] = workflow.Binding{Node: b.Node, Output: b.Output}
		}
	}
	for _, raw := range s.Others {
		ref, err := nodeid.Parse(raw)
		if err != nil {
			return workflow.Step{}, fmt.Errorf("step %q, others: %w", s.ID, err)
		}
		step.Others = append(step.Others, workflow.Binding{Node: ref.Node, Output: ref.Output})
	}
	return step, nil
}

// decodeArgs evaluates the args expression and converts it to plain Go
// values (maps, slices, float64, string, bool) through its JSON form.
func decodeArgs(ctx context.Context, expr hcl.Expression) (any, error) {
	if !isExprDefined(ctx, expr, "args") {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("args must be known at load time")
	}

	data, err := ctyjson.Marshal(val, val.Type())
	if err != nil {
		return nil, fmt.Errorf("args: %w", err)
	}
	var args any
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, fmt.Errorf("args: %w", err)
	}
	if _, ok := args.(map[string]any); !ok {
		return nil, fmt.Errorf("args must be an object, got %s", val.Type().FriendlyName())
	}
	return args, nil
}

// isExprDefined reports whether an optional attribute was written in the
// source. gohcl fills omitted expressions with a zero-width placeholder.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	defined := r.End.Byte > r.Start.Byte
	ctxlog.FromContext(ctx).Debugw("Checked optional HCL attribute.", "attribute", attrName, "range", r.String(), "defined", defined)
	return defined
}
