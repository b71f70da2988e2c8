package verbs

import (
	"fmt"
	"slices"

	"github.com/vk/wrangler/internal/table"
)

type shapeModule struct{}

func (shapeModule) Register(r *Registry) {
	one := []string{SourceSlot}
	r.Register(&Descriptor{Verb: Groupby, Inputs: one,
		NewArgs: argsOf(ColumnListArgs{}), Fn: sourceOnly(groupby)})
	r.Register(&Descriptor{Verb: Ungroup, Inputs: one,
		NewArgs: argsOf(struct{}{}), Fn: sourceOnly(func(t *table.Table, _ *struct{}) (*table.Table, error) {
			return t.Ungroup(), nil
		})})
	r.Register(&Descriptor{Verb: Unorder, Inputs: one, RowModifying: true,
		NewArgs: argsOf(struct{}{}), Fn: sourceOnly(func(t *table.Table, _ *struct{}) (*table.Table, error) {
			return t.Unorder(), nil
		})})
	r.Register(&Descriptor{Verb: Spread, Inputs: one,
		NewArgs: argsOf(SpreadArgs{}), Fn: sourceOnly(spread)})
	r.Register(&Descriptor{Verb: Pivot, Inputs: one, RowModifying: true,
		NewArgs: argsOf(PivotArgs{Operation: AggAny}), Fn: sourceOnly(pivot)})
	r.Register(&Descriptor{Verb: Onehot, Inputs: one,
		NewArgs: argsOf(OnehotArgs{}), Fn: sourceOnly(onehot)})
}

func groupby(t *table.Table, a *ColumnListArgs) (*table.Table, error) {
	if len(a.Columns) == 0 {
		return nil, fmt.Errorf("%w: groupby requires 'columns'", ErrInvalidArgs)
	}
	return t.GroupBy(a.Columns...)
}

// spread replaces an array column with one column per element. A scalar
// cell counts as a one element array.
func spread(t *table.Table, a *SpreadArgs) (*table.Table, error) {
	vals, err := t.Column(a.Column)
	if err != nil {
		return nil, err
	}
	names := slices.Clone(a.To)
	if len(names) == 0 {
		width := 0
		for _, v := range vals {
			width = max(width, len(elements(v)))
		}
		for i := range width {
			names = append(names, fmt.Sprintf("%s_%d", a.Column, i+1))
		}
	}

	out, err := t.Drop(a.Column)
	if err != nil {
		return nil, err
	}
	for i, name := range names {
		row := 0
		out, err = out.WithColumn(name, func(table.Row) (any, error) {
			el := elements(vals[row])
			row++
			if i < len(el) {
				return el[i], nil
			}
			return nil, nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func elements(v any) []any {
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		return x
	}
	return []any{v}
}

// pivot makes one column per distinct Key value, in first-seen order, and
// one row per group. Cells reduce the Value entries sharing that key.
func pivot(t *table.Table, a *PivotArgs) (*table.Table, error) {
	if err := t.RequireColumns(a.Key, a.Value); err != nil {
		return nil, err
	}
	keys, _ := t.Column(a.Key)
	vals, _ := t.Column(a.Value)

	var columns []string
	seen := map[string]bool{}
	for _, k := range keys {
		name := table.Format(k)
		if !seen[name] {
			seen[name] = true
			columns = append(columns, name)
		}
	}

	groups := t.Groups()
	var rows [][]any
	for _, part := range t.Partition() {
		cells := map[string][]any{}
		for _, i := range part {
			name := table.Format(keys[i])
			cells[name] = append(cells[name], vals[i])
		}
		row := groupValues(t, groups, part)
		for _, c := range columns {
			if len(cells[c]) == 0 {
				row = append(row, nil)
				continue
			}
			v, err := reduce(cells[c], a.Operation)
			if err != nil {
				return nil, err
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return table.New(append(groups, columns...), rows)
}

// onehot adds a 1/0 column per distinct non-empty value of Column. Rows
// with an empty source cell get empty indicators.
func onehot(t *table.Table, a *OnehotArgs) (*table.Table, error) {
	vals, err := t.Column(a.Column)
	if err != nil {
		return nil, err
	}
	var distinct []string
	seen := map[string]bool{}
	for _, v := range vals {
		if table.IsEmpty(v) {
			continue
		}
		s := table.Format(v)
		if !seen[s] {
			seen[s] = true
			distinct = append(distinct, s)
		}
	}

	out := t
	for _, s := range distinct {
		out, err = out.WithColumn(a.Prefix+s, func(r table.Row) (any, error) {
			switch {
			case table.IsEmpty(r[a.Column]):
				return nil, nil
			case table.Format(r[a.Column]) == s:
				return 1.0, nil
			}
			return 0.0, nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
