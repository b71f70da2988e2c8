package verbs

import (
	"fmt"
	"sort"

	"github.com/vk/wrangler/internal/table"
)

// Field aggregate operations.
const (
	AggCount    = "count"
	AggValid    = "valid"
	AggDistinct = "distinct"
	AggSum      = "sum"
	AggMean     = "mean"
	AggMedian   = "median"
	AggMin      = "min"
	AggMax      = "max"
	AggFirst    = "first"
	AggLast     = "last"
	AggArray    = "array_agg"
	AggAny      = "any"
)

type aggregateModule struct{}

func (aggregateModule) Register(r *Registry) {
	one := []string{SourceSlot}
	r.Register(&Descriptor{Verb: Rollup, Inputs: one, RowModifying: true,
		NewArgs: argsOf(RollupArgs{Operation: AggCount, To: "output"}), Fn: sourceOnly(rollup)})
	r.Register(&Descriptor{Verb: Aggregate, Inputs: one, RowModifying: true,
		NewArgs: argsOf(AggregateArgs{Operation: AggCount, To: "output"}), Fn: sourceOnly(aggregate)})
}

// rollup reduces Column to one value, or to one row per group when the
// table is grouped.
func rollup(t *table.Table, a *RollupArgs) (*table.Table, error) {
	vals, err := t.Column(a.Column)
	if err != nil {
		return nil, err
	}
	groups := t.Groups()
	var rows [][]any
	for _, part := range t.Partition() {
		picked := make([]any, len(part))
		for i, r := range part {
			picked[i] = vals[r]
		}
		v, err := reduce(picked, a.Operation)
		if err != nil {
			return nil, err
		}
		rows = append(rows, append(groupValues(t, groups, part), v))
	}
	return table.New(append(groups, a.To), rows)
}

// groupValues returns the grouping cells of a partition.
func groupValues(t *table.Table, groups []string, part []int) []any {
	out := make([]any, 0, len(groups)+1)
	for _, g := range groups {
		v, _ := t.Get(g, part[0])
		out = append(out, v)
	}
	return out
}

// aggregate groups rows by Groupby, in first-seen order, and reduces Column
// within each group.
func aggregate(t *table.Table, a *AggregateArgs) (*table.Table, error) {
	if err := t.RequireColumns(a.Groupby, a.Column); err != nil {
		return nil, err
	}
	keys, _ := t.Column(a.Groupby)
	vals, _ := t.Column(a.Column)

	var order []string
	groups := map[string][]any{}
	firstKey := map[string]any{}
	for i, k := range keys {
		id := table.KeyOf(k)
		if _, ok := groups[id]; !ok {
			order = append(order, id)
			firstKey[id] = k
			groups[id] = []any{}
		}
		groups[id] = append(groups[id], vals[i])
	}

	rows := make([][]any, 0, len(order))
	for _, id := range order {
		v, err := reduce(groups[id], a.Operation)
		if err != nil {
			return nil, err
		}
		rows = append(rows, []any{firstKey[id], v})
	}
	return table.New([]string{a.Groupby, a.To}, rows)
}

func reduce(vals []any, op string) (any, error) {
	switch op {
	case AggCount:
		return float64(len(vals)), nil
	case AggValid:
		n := 0
		for _, v := range vals {
			if !table.IsEmpty(v) {
				n++
			}
		}
		return float64(n), nil
	case AggDistinct:
		seen := map[string]struct{}{}
		for _, v := range vals {
			seen[table.KeyOf(v)] = struct{}{}
		}
		return float64(len(seen)), nil
	case AggAny:
		for _, v := range vals {
			if !table.IsEmpty(v) {
				return v, nil
			}
		}
		return nil, nil
	case AggFirst:
		if len(vals) == 0 {
			return nil, nil
		}
		return vals[0], nil
	case AggLast:
		if len(vals) == 0 {
			return nil, nil
		}
		return vals[len(vals)-1], nil
	case AggArray:
		out := make([]any, len(vals))
		copy(out, vals)
		return out, nil
	case AggMin, AggMax:
		var best any
		for _, v := range vals {
			if table.IsEmpty(v) {
				continue
			}
			c := 0
			if best != nil {
				c = table.Compare(v, best)
			}
			if best == nil || (op == AggMin && c < 0) || (op == AggMax && c > 0) {
				best = v
			}
		}
		return best, nil
	case AggSum, AggMean, AggMedian:
		var nums []float64
		for _, v := range vals {
			if f, ok := table.Number(v); ok && !table.IsEmpty(v) {
				nums = append(nums, f)
			}
		}
		if len(nums) == 0 {
			if op == AggSum {
				return 0.0, nil
			}
			return nil, nil
		}
		sum := 0.0
		for _, f := range nums {
			sum += f
		}
		switch op {
		case AggSum:
			return sum, nil
		case AggMean:
			return sum / float64(len(nums)), nil
		}
		sort.Float64s(nums)
		mid := len(nums) / 2
		if len(nums)%2 == 1 {
			return nums[mid], nil
		}
		return (nums[mid-1] + nums[mid]) / 2, nil
	}
	return nil, fmt.Errorf("%w: aggregate operation %q", ErrUnsupportedOp, op)
}
