package verbs

import (
	"fmt"
	"strings"

	"github.com/vk/wrangler/internal/table"
)

// Derive operators.
const (
	OpAdd      = "+"
	OpSubtract = "-"
	OpMultiply = "*"
	OpDivide   = "/"
	OpConcat   = "concat"
)

// Merge strategies.
const (
	MergeFirstOneWins = "first one wins"
	MergeLastOneWins  = "last one wins"
	MergeConcat       = "concat"
	MergeArray        = "array"
)

type columnModule struct{}

func (columnModule) Register(r *Registry) {
	one := []string{SourceSlot}
	r.Register(&Descriptor{Verb: Fill, Inputs: one, OutputColumn: true,
		NewArgs: argsOf(FillArgs{To: "output"}), Fn: sourceOnly(fill)})
	r.Register(&Descriptor{Verb: Erase, Inputs: one,
		NewArgs: argsOf(EraseArgs{}), Fn: sourceOnly(erase)})
	r.Register(&Descriptor{Verb: Impute, Inputs: one,
		NewArgs: argsOf(ImputeArgs{}), Fn: sourceOnly(impute)})
	r.Register(&Descriptor{Verb: Derive, Inputs: one, OutputColumn: true,
		NewArgs: argsOf(DeriveArgs{Operator: OpAdd, To: "output"}), Fn: sourceOnly(derive)})
	r.Register(&Descriptor{Verb: Recode, Inputs: one, OutputColumn: true,
		NewArgs: argsOf(RecodeArgs{}), Fn: sourceOnly(recode)})
	r.Register(&Descriptor{Verb: Rename, Inputs: one,
		NewArgs: argsOf(RenameArgs{}), Fn: sourceOnly(rename)})
	r.Register(&Descriptor{Verb: Select, Inputs: one,
		NewArgs: argsOf(ColumnListArgs{}), Fn: sourceOnly(selectColumns)})
	r.Register(&Descriptor{Verb: Merge, Inputs: one, OutputColumn: true,
		NewArgs: argsOf(MergeArgs{Strategy: MergeFirstOneWins, To: "output"}), Fn: sourceOnly(merge)})
}

func fill(t *table.Table, a *FillArgs) (*table.Table, error) {
	if a.To == "" {
		return nil, fmt.Errorf("%w: fill requires 'to'", ErrInvalidArgs)
	}
	v := table.Normalize(a.Value)
	return t.WithColumn(a.To, func(table.Row) (any, error) { return v, nil })
}

func erase(t *table.Table, a *EraseArgs) (*table.Table, error) {
	if err := t.RequireColumns(a.Column); err != nil {
		return nil, err
	}
	target := table.Normalize(a.Value)
	return t.WithColumn(a.Column, func(r table.Row) (any, error) {
		if table.Compare(r[a.Column], target) == 0 {
			return nil, nil
		}
		return r[a.Column], nil
	})
}

func impute(t *table.Table, a *ImputeArgs) (*table.Table, error) {
	if err := t.RequireColumns(a.Column); err != nil {
		return nil, err
	}
	v := table.Normalize(a.Value)
	return t.WithColumn(a.Column, func(r table.Row) (any, error) {
		if table.IsEmpty(r[a.Column]) {
			return v, nil
		}
		return r[a.Column], nil
	})
}

func derive(t *table.Table, a *DeriveArgs) (*table.Table, error) {
	if err := t.RequireColumns(a.Column1, a.Column2); err != nil {
		return nil, err
	}
	switch a.Operator {
	case OpAdd, OpSubtract, OpMultiply, OpDivide:
	case OpConcat:
		return t.WithColumn(a.To, func(r table.Row) (any, error) {
			return table.Format(r[a.Column1]) + table.Format(r[a.Column2]), nil
		})
	default:
		return nil, fmt.Errorf("%w: derive operator %q", ErrUnsupportedOp, a.Operator)
	}
	return t.WithColumn(a.To, func(r table.Row) (any, error) {
		x, okx := table.Number(r[a.Column1])
		y, oky := table.Number(r[a.Column2])
		if !okx || !oky {
			return nil, nil
		}
		switch a.Operator {
		case OpAdd:
			return x + y, nil
		case OpSubtract:
			return x - y, nil
		case OpMultiply:
			return x * y, nil
		case OpDivide:
			if y == 0 {
				return nil, nil
			}
			return x / y, nil
		}
		return nil, nil
	})
}

func recode(t *table.Table, a *RecodeArgs) (*table.Table, error) {
	if err := t.RequireColumns(a.Column); err != nil {
		return nil, err
	}
	to := a.To
	if to == "" {
		to = a.Column
	}
	return t.WithColumn(to, func(r table.Row) (any, error) {
		if v, ok := a.Map[table.Format(r[a.Column])]; ok {
			return table.Normalize(v), nil
		}
		return r[a.Column], nil
	})
}

func rename(t *table.Table, a *RenameArgs) (*table.Table, error) {
	return t.Rename(a.Columns)
}

func selectColumns(t *table.Table, a *ColumnListArgs) (*table.Table, error) {
	return t.Select(a.Columns...)
}

func merge(t *table.Table, a *MergeArgs) (*table.Table, error) {
	if len(a.Columns) == 0 {
		return nil, fmt.Errorf("%w: merge requires columns", ErrInvalidArgs)
	}
	if err := t.RequireColumns(a.Columns...); err != nil {
		return nil, err
	}
	sameKind := sameKinds(t, a.Columns)
	return t.WithColumn(a.To, func(r table.Row) (any, error) {
		var present []any
		for _, c := range a.Columns {
			if r[c] != nil {
				present = append(present, r[c])
			}
		}
		switch a.Strategy {
		case MergeArray:
			if present == nil {
				present = []any{}
			}
			return present, nil
		case MergeConcat:
			parts := make([]string, len(present))
			for i, v := range present {
				parts[i] = table.Format(v)
			}
			return strings.Join(parts, a.Delimiter), nil
		case MergeLastOneWins:
			return pick(present, len(present)-1, r[a.Columns[0]], sameKind), nil
		case MergeFirstOneWins, "":
			return pick(present, 0, r[a.Columns[0]], sameKind), nil
		}
		return nil, fmt.Errorf("%w: merge strategy %q", ErrUnsupportedOp, a.Strategy)
	})
}

func pick(present []any, i int, fallback any, sameKind bool) any {
	v := fallback
	if len(present) > 0 {
		v = present[i]
	}
	if sameKind || v == nil {
		return v
	}
	return table.Format(v)
}

// sameKinds reports whether the first non-empty cell of each column has the
// same Go type.
func sameKinds(t *table.Table, columns []string) bool {
	var first string
	for i, c := range columns {
		kind := "nil"
		vals, _ := t.Column(c)
		for _, v := range vals {
			if v != nil {
				kind = fmt.Sprintf("%T", v)
				break
			}
		}
		if i == 0 {
			first = kind
		} else if kind != first {
			return false
		}
	}
	return true
}
