package table

import (
	"slices"
	"sort"
)

// GroupBy returns the table marked as grouped by the named columns.
// Grouping does not move rows; aggregating verbs read it.
func (t *Table) GroupBy(names ...string) (*Table, error) {
	if err := t.RequireColumns(names...); err != nil {
		return nil, err
	}
	out := *t
	out.groups = slices.Clone(names)
	return &out, nil
}

// Groups returns the grouping columns, or nil for an ungrouped table.
func (t *Table) Groups() []string { return slices.Clone(t.groups) }

// Ungroup drops the grouping.
func (t *Table) Ungroup() *Table {
	out := *t
	out.groups = nil
	return &out
}

// Ordered reports whether the rows were sorted by SortStable since the
// table was built.
func (t *Table) Ordered() bool { return t.origin != nil }

// Unorder puts rows back into the order they had before they were first
// sorted. Rows dropped since then stay dropped.
func (t *Table) Unorder() *Table {
	if t.origin == nil {
		return t
	}
	idx := make([]int, len(t.rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return t.origin[idx[i]] < t.origin[idx[j]] })
	out := t.Take(idx)
	out.origin = nil
	return out
}

// Partition splits row indexes by the grouping columns, in first-seen order.
// An ungrouped table is a single partition holding every row.
func (t *Table) Partition() [][]int {
	if len(t.groups) == 0 {
		all := make([]int, len(t.rows))
		for i := range all {
			all[i] = i
		}
		return [][]int{all}
	}
	var order []string
	parts := make(map[string][]int)
	for i := range t.rows {
		k := t.Key(i, t.groups...)
		if _, ok := parts[k]; !ok {
			order = append(order, k)
		}
		parts[k] = append(parts[k], i)
	}
	out := make([][]int, len(order))
	for i, k := range order {
		out[i] = parts[k]
	}
	return out
}

// carry copies the grouping and ordering of t onto nt, which must have the
// same rows. Grouping is dropped when a grouping column is gone.
func (t *Table) carry(nt *Table) *Table {
	nt.origin = t.origin
	if len(t.groups) > 0 && nt.RequireColumns(t.groups...) == nil {
		nt.groups = t.groups
	}
	return nt
}
