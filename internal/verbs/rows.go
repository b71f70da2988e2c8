package verbs

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"slices"
	"strings"

	"github.com/vk/wrangler/internal/table"
)

// Filter operators.
const (
	OpEquals         = "="
	OpNotEquals      = "!="
	OpLess           = "<"
	OpLessOrEqual    = "<="
	OpGreater        = ">"
	OpGreaterOrEqual = ">="
	OpIsEmpty        = "is empty"
	OpIsNotEmpty     = "is not empty"
	OpContains       = "contains"
	OpStartsWith     = "starts with"
	OpEndsWith       = "ends with"
	OpRegex          = "regex"
	OpEqualsText     = "equals"
	OpNotEqualsText  = "is not equal"
)

// Logical combinators for filter criteria.
const (
	LogicalOr   = "or"
	LogicalAnd  = "and"
	LogicalNor  = "nor"
	LogicalNand = "nand"
	LogicalXor  = "xor"
)

// Criterion types.
const (
	CompareValue  = "value"
	CompareColumn = "column"
)

type rowModule struct{}

func (rowModule) Register(r *Registry) {
	one := []string{SourceSlot}
	r.Register(&Descriptor{Verb: Filter, Inputs: one, RowModifying: true,
		NewArgs: argsOf(FilterArgs{Logical: LogicalOr}), Fn: sourceOnly(filter)})
	r.Register(&Descriptor{Verb: Orderby, Inputs: one, RowModifying: true,
		NewArgs: argsOf(OrderbyArgs{}), Fn: sourceOnly(orderby)})
	r.Register(&Descriptor{Verb: Dedupe, Inputs: one, RowModifying: true,
		NewArgs: argsOf(ColumnListArgs{}), Fn: sourceOnly(dedupe)})
	r.Register(&Descriptor{Verb: Sample, Inputs: one, RowModifying: true,
		NewArgs: argsOf(SampleArgs{}), Fn: sourceOnly(sample)})
	r.Register(&Descriptor{Verb: Unroll, Inputs: one, RowModifying: true,
		NewArgs: argsOf(UnrollArgs{}), Fn: sourceOnly(unroll)})
	r.Register(&Descriptor{Verb: Fold, Inputs: one, RowModifying: true,
		NewArgs: argsOf(FoldArgs{To: [2]string{"key", "value"}}), Fn: sourceOnly(fold)})
}

func filter(t *table.Table, a *FilterArgs) (*table.Table, error) {
	match, err := matcher(t, a)
	if err != nil {
		return nil, err
	}
	return t.Filter(match), nil
}

// matcher validates the criteria against t and returns the row predicate
// shared by filter and binarize.
func matcher(t *table.Table, a *FilterArgs) (func(table.Row) bool, error) {
	if err := t.RequireColumns(a.Column); err != nil {
		return nil, err
	}
	for _, c := range a.Criteria {
		if c.Type == CompareColumn {
			if err := t.RequireColumns(table.Format(c.Value)); err != nil {
				return nil, err
			}
		}
		if !knownOperator(c.Operator) {
			return nil, fmt.Errorf("%w: filter operator %q", ErrUnsupportedOp, c.Operator)
		}
	}
	switch a.Logical {
	case LogicalOr, LogicalAnd, LogicalNor, LogicalNand, LogicalXor, "":
	default:
		return nil, fmt.Errorf("%w: logical %q", ErrUnsupportedOp, a.Logical)
	}

	return func(r table.Row) bool {
		matches := 0
		for _, c := range a.Criteria {
			right := c.Value
			if c.Type == CompareColumn {
				right = r[table.Format(c.Value)]
			}
			if compareCell(r[a.Column], table.Normalize(right), c.Operator) {
				matches++
			}
		}
		switch a.Logical {
		case LogicalAnd:
			return matches == len(a.Criteria)
		case LogicalNor:
			return matches == 0
		case LogicalNand:
			return matches < len(a.Criteria)
		case LogicalXor:
			return matches == 1
		}
		return matches > 0
	}, nil
}

func knownOperator(op string) bool {
	switch op {
	case OpEquals, OpNotEquals, OpLess, OpLessOrEqual, OpGreater, OpGreaterOrEqual,
		OpIsEmpty, OpIsNotEmpty, OpContains, OpStartsWith, OpEndsWith, OpRegex,
		OpEqualsText, OpNotEqualsText:
		return true
	}
	return false
}

// compareCell applies op to a cell. Empty cells never match a value
// comparison; numbers compare numerically, text case-insensitively.
func compareCell(left, right any, op string) bool {
	switch op {
	case OpIsEmpty:
		return table.IsEmpty(left)
	case OpIsNotEmpty:
		return !table.IsEmpty(left)
	}
	if table.IsEmpty(left) || table.IsEmpty(right) {
		return false
	}

	switch l := left.(type) {
	case float64, bool:
		var r float64
		if b, ok := right.(bool); ok {
			r, _ = table.Number(b)
		} else if s, ok := right.(string); ok && isBool(l) {
			r, _ = table.Number(strings.EqualFold(s, "true"))
		} else {
			var ok bool
			if r, ok = table.Number(right); !ok {
				return false
			}
		}
		lf, _ := table.Number(l)
		return compareOrdered(lf, r, op)
	case string:
		ll, rl := strings.ToLower(l), strings.ToLower(table.Format(right))
		switch op {
		case OpContains:
			return strings.Contains(ll, rl)
		case OpRegex:
			re, err := regexp.Compile("(?i)" + table.Format(right))
			return err == nil && re.MatchString(l)
		case OpStartsWith:
			return strings.HasPrefix(ll, rl)
		case OpEndsWith:
			return strings.HasSuffix(ll, rl)
		}
		return compareOrdered(ll, rl, op)
	}
	return false
}

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

func compareOrdered[T float64 | string](l, r T, op string) bool {
	switch op {
	case OpEquals, OpEqualsText:
		return l == r
	case OpNotEquals, OpNotEqualsText:
		return l != r
	case OpLess:
		return l < r
	case OpLessOrEqual:
		return l <= r
	case OpGreater:
		return l > r
	case OpGreaterOrEqual:
		return l >= r
	}
	return false
}

func orderby(t *table.Table, a *OrderbyArgs) (*table.Table, error) {
	for _, o := range a.Orders {
		if err := t.RequireColumns(o.Column); err != nil {
			return nil, err
		}
	}
	return t.SortStable(func(x, y table.Row) bool {
		for _, o := range a.Orders {
			c := table.Compare(x[o.Column], y[o.Column])
			if strings.EqualFold(o.Direction, "desc") {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	}), nil
}

func dedupe(t *table.Table, a *ColumnListArgs) (*table.Table, error) {
	return t.Dedupe(a.Columns...)
}

// sample keeps Size rows, or Proportion of the rows, chosen with a seeded
// generator. Surviving rows keep their original order.
func sample(t *table.Table, a *SampleArgs) (*table.Table, error) {
	n := a.Size
	if n <= 0 && a.Proportion > 0 {
		n = int(float64(t.NumRows())*a.Proportion + 0.5)
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: sample requires size or proportion", ErrInvalidArgs)
	}
	if n >= t.NumRows() {
		return t, nil
	}
	rng := rand.New(rand.NewPCG(uint64(a.Seed), uint64(a.Seed)>>1|1))
	idx := rng.Perm(t.NumRows())[:n]
	slices.Sort(idx)
	return t.Take(idx), nil
}

func unroll(t *table.Table, a *UnrollArgs) (*table.Table, error) {
	pos, err := t.ColumnIndex(a.Column)
	if err != nil {
		return nil, err
	}
	var rows [][]any
	for i := 0; i < t.NumRows(); i++ {
		vals := t.Values(i)
		arr, ok := vals[pos].([]any)
		if !ok {
			rows = append(rows, vals)
			continue
		}
		for _, e := range arr {
			nr := slices.Clone(vals)
			nr[pos] = table.Normalize(e)
			rows = append(rows, nr)
		}
	}
	return table.New(t.Columns(), rows)
}

func fold(t *table.Table, a *FoldArgs) (*table.Table, error) {
	if len(a.Columns) == 0 {
		return nil, fmt.Errorf("%w: fold requires columns", ErrInvalidArgs)
	}
	rest, err := t.Drop(a.Columns...)
	if err != nil {
		return nil, err
	}
	cols := append(rest.Columns(), a.To[0], a.To[1])
	var rows [][]any
	for i := 0; i < t.NumRows(); i++ {
		rec := t.Row(i)
		base := rest.Values(i)
		for _, c := range a.Columns {
			nr := append(slices.Clone(base), c, rec[c])
			rows = append(rows, nr)
		}
	}
	return table.New(cols, rows)
}
