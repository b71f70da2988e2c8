package verbs

import (
	"context"
	"fmt"

	"github.com/vk/wrangler/internal/table"
)

// Join strategies.
const (
	JoinInner = "inner"
	JoinLeft  = "left"
	JoinRight = "right"
	JoinFull  = "full"
)

type joinModule struct{}

func (joinModule) Register(r *Registry) {
	two := []string{SourceSlot, OtherSlot}
	r.Register(&Descriptor{Verb: Join, Inputs: two, RowModifying: true,
		NewArgs: argsOf(JoinArgs{Strategy: JoinInner}), Fn: typed(join)})
	r.Register(&Descriptor{Verb: Lookup, Inputs: two,
		NewArgs: argsOf(LookupArgs{}), Fn: typed(lookup)})
}

func pair(in Input) (*table.Table, *table.Table, error) {
	left, err := in.Table(SourceSlot)
	if err != nil {
		return nil, nil, err
	}
	right, err := in.Table(OtherSlot)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func keys(on []string) (string, string, error) {
	switch len(on) {
	case 1:
		return on[0], on[0], nil
	case 2:
		return on[0], on[1], nil
	}
	return "", "", fmt.Errorf("%w: 'on' needs one or two column names", ErrInvalidArgs)
}

func indexBy(t *table.Table, column string) map[string][]int {
	idx := map[string][]int{}
	for i := 0; i < t.NumRows(); i++ {
		k := t.Key(i, column)
		idx[k] = append(idx[k], i)
	}
	return idx
}

func join(_ context.Context, in Input, a *JoinArgs) (*table.Table, error) {
	left, right, err := pair(in)
	if err != nil {
		return nil, err
	}
	lk, rk, err := keys(a.On)
	if err != nil {
		return nil, err
	}
	if err := left.RequireColumns(lk); err != nil {
		return nil, err
	}
	if err := right.RequireColumns(rk); err != nil {
		return nil, err
	}
	switch a.Strategy {
	case JoinInner, JoinLeft, JoinRight, JoinFull:
	default:
		return nil, fmt.Errorf("%w: join strategy %q", ErrUnsupportedOp, a.Strategy)
	}

	// The right key is dropped when both sides share the name.
	var rightCols []string
	for _, c := range right.Columns() {
		if !(c == rk && lk == rk) {
			rightCols = append(rightCols, c)
		}
	}
	cols := make([]string, 0, left.NumCols()+len(rightCols))
	for _, c := range left.Columns() {
		if c != lk && contains(rightCols, c) {
			c += "_1"
		}
		cols = append(cols, c)
	}
	for _, c := range rightCols {
		if left.HasColumn(c) {
			c += "_2"
		}
		cols = append(cols, c)
	}

	rightRow := func(i int) []any {
		out := make([]any, len(rightCols))
		for j, c := range rightCols {
			out[j], _ = right.Get(c, i)
		}
		return out
	}
	nilRow := func(n int) []any { return make([]any, n) }

	idx := indexBy(right, rk)
	matched := make([]bool, right.NumRows())
	var rows [][]any
	for i := 0; i < left.NumRows(); i++ {
		hits := idx[left.Key(i, lk)]
		if table.IsEmpty(mustGet(left, lk, i)) {
			hits = nil
		}
		for _, h := range hits {
			matched[h] = true
			rows = append(rows, append(left.Values(i), rightRow(h)...))
		}
		if len(hits) == 0 && (a.Strategy == JoinLeft || a.Strategy == JoinFull) {
			rows = append(rows, append(left.Values(i), nilRow(len(rightCols))...))
		}
	}
	if a.Strategy == JoinRight || a.Strategy == JoinFull {
		keyPos, _ := left.ColumnIndex(lk)
		for h := 0; h < right.NumRows(); h++ {
			if matched[h] {
				continue
			}
			l := nilRow(left.NumCols())
			if lk == rk {
				l[keyPos] = mustGet(right, rk, h)
			}
			rows = append(rows, append(l, rightRow(h)...))
		}
	}
	return table.New(cols, rows)
}

func lookup(_ context.Context, in Input, a *LookupArgs) (*table.Table, error) {
	left, right, err := pair(in)
	if err != nil {
		return nil, err
	}
	lk, rk, err := keys(a.On)
	if err != nil {
		return nil, err
	}
	if err := left.RequireColumns(lk); err != nil {
		return nil, err
	}
	if err := right.RequireColumns(append([]string{rk}, a.Columns...)...); err != nil {
		return nil, err
	}

	idx := indexBy(right, rk)
	out := left
	for _, c := range a.Columns {
		col := c
		out, err = out.WithColumn(col, func(r table.Row) (any, error) {
			hits := idx[table.KeyOf(r[lk])]
			if len(hits) == 0 || table.IsEmpty(r[lk]) {
				return nil, nil
			}
			return right.Get(col, hits[0])
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func mustGet(t *table.Table, column string, row int) any {
	v, _ := t.Get(column, row)
	return v
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
