package table

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Filter keeps the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	var idx []int
	for i := range t.rows {
		if keep(t.Row(i)) {
			idx = append(idx, i)
		}
	}
	return t.Take(idx)
}

// Take returns the rows at the given indexes, in the given order.
func (t *Table) Take(indexes []int) *Table {
	out := make([][]any, len(indexes))
	var origin []int
	if t.origin != nil {
		origin = make([]int, len(indexes))
	}
	for i, idx := range indexes {
		out[i] = t.rows[idx]
		if origin != nil {
			origin[i] = t.origin[idx]
		}
	}
	return &Table{columns: t.columns, index: t.index, rows: out, groups: t.groups, origin: origin}
}

// WithColumn returns a copy with column name set to fn(row) for every row.
// An existing column is replaced in place, a new one is appended.
func (t *Table) WithColumn(name string, fn func(Row) (any, error)) (*Table, error) {
	cols := t.columns
	pos, exists := t.index[name]
	if !exists {
		cols = append(slices.Clone(t.columns), name)
		pos = len(cols) - 1
	}
	rows := make([][]any, len(t.rows))
	for i, r := range t.rows {
		v, err := fn(t.Row(i))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		nr := make([]any, len(cols))
		copy(nr, r)
		nr[pos] = v
		rows[i] = nr
	}
	nt, err := New(cols, rows)
	if err != nil {
		return nil, err
	}
	return t.carry(nt), nil
}

// Select projects the named columns in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	idx := make([]int, len(names))
	for i, n := range names {
		j, err := t.ColumnIndex(n)
		if err != nil {
			return nil, err
		}
		idx[i] = j
	}
	rows := make([][]any, len(t.rows))
	for r, row := range t.rows {
		nr := make([]any, len(idx))
		for i, j := range idx {
			nr[i] = row[j]
		}
		rows[r] = nr
	}
	nt, err := New(names, rows)
	if err != nil {
		return nil, err
	}
	return t.carry(nt), nil
}

// Drop removes the named columns.
func (t *Table) Drop(names ...string) (*Table, error) {
	if err := t.RequireColumns(names...); err != nil {
		return nil, err
	}
	keep := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		if !slices.Contains(names, c) {
			keep = append(keep, c)
		}
	}
	return t.Select(keep...)
}

// Rename renames columns according to mapping old -> new.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	for old := range mapping {
		if !t.HasColumn(old) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, old)
		}
	}
	cols := make([]string, len(t.columns))
	for i, c := range t.columns {
		if n, ok := mapping[c]; ok && n != "" {
			cols[i] = n
		} else {
			cols[i] = c
		}
	}
	nt, err := New(cols, t.rows)
	if err != nil {
		return nil, err
	}
	nt.origin = t.origin
	for _, g := range t.groups {
		if n, ok := mapping[g]; ok && n != "" {
			g = n
		}
		nt.groups = append(nt.groups, g)
	}
	return nt, nil
}

// SortStable orders rows with a stable sort using less on records. The
// previous order is remembered for Unorder.
func (t *Table) SortStable(less func(a, b Row) bool) *Table {
	idx := make([]int, len(t.rows))
	recs := t.Records()
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return less(recs[idx[i]], recs[idx[j]]) })
	out := t.Take(idx)
	if out.origin == nil {
		out.origin = idx
	}
	return out
}

// Concat appends the rows of others, matched by column name. The result keeps
// the columns of t; cells missing from an other table become nil.
func (t *Table) Concat(others ...*Table) *Table {
	rows := slices.Clone(t.rows)
	for _, o := range others {
		for i := range o.rows {
			nr := make([]any, len(t.columns))
			for j, c := range t.columns {
				if k, ok := o.index[c]; ok {
					nr[j] = o.rows[i][k]
				}
			}
			rows = append(rows, nr)
		}
	}
	return &Table{columns: t.columns, index: t.index, rows: rows, groups: t.groups}
}

// Dedupe drops rows whose key over the named columns (all columns when
// none are given) was already seen. First occurrence wins.
func (t *Table) Dedupe(names ...string) (*Table, error) {
	if len(names) == 0 {
		names = t.columns
	}
	if err := t.RequireColumns(names...); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(t.rows))
	var keep []int
	for i := range t.rows {
		k := t.Key(i, names...)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keep = append(keep, i)
	}
	return t.Take(keep), nil
}

// Key returns a string identity for row i over the named columns, suitable
// for hashing. Names must exist.
func (t *Table) Key(i int, names ...string) string {
	var sb strings.Builder
	for n, c := range names {
		if n > 0 {
			sb.WriteByte(0x1f)
		}
		sb.WriteString(KeyOf(t.rows[i][t.index[c]]))
	}
	return sb.String()
}

// Equal reports whether two tables have the same columns and cells.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if !slices.Equal(t.columns, o.columns) || len(t.rows) != len(o.rows) {
		return false
	}
	for i := range t.rows {
		for j := range t.rows[i] {
			if Compare(t.rows[i][j], o.rows[i][j]) != 0 {
				return false
			}
		}
	}
	return true
}
