package verbs

import (
	"context"
	"fmt"

	"github.com/vk/wrangler/internal/table"
)

type setModule struct{}

func (setModule) Register(r *Registry) {
	for v, fn := range map[Verb]func(*table.Table, []*table.Table) (*table.Table, error){
		Concat:     concat,
		Union:      union,
		Difference: difference,
		Intersect:  intersect,
	} {
		r.Register(&Descriptor{
			Verb:         v,
			Inputs:       []string{SourceSlot},
			Variadic:     true,
			RowModifying: true,
			NewArgs:      argsOf(SetOperationArgs{}),
			Fn:           setOp(fn),
		})
	}
}

func setOp(fn func(*table.Table, []*table.Table) (*table.Table, error)) Executor {
	return typed(func(_ context.Context, in Input, _ *SetOperationArgs) (*table.Table, error) {
		src, err := in.Table(SourceSlot)
		if err != nil {
			return nil, err
		}
		for i, o := range in.Variadic {
			if o == nil {
				return nil, missingOther(i)
			}
		}
		return fn(src, in.Variadic)
	})
}

func missingOther(i int) error {
	return fmt.Errorf("%w: %q entry %d", ErrMissingInput, OthersSlot, i)
}

// concat appends the others in binding order; the source fixes the schema.
func concat(src *table.Table, others []*table.Table) (*table.Table, error) {
	return src.Concat(others...), nil
}

func union(src *table.Table, others []*table.Table) (*table.Table, error) {
	return src.Concat(others...).Dedupe()
}

// difference keeps distinct source rows found in none of the others.
func difference(src *table.Table, others []*table.Table) (*table.Table, error) {
	sets := rowSets(src, others)
	out := src.Filter(func(r table.Row) bool {
		k := recordKey(src, r)
		for _, s := range sets {
			if _, ok := s[k]; ok {
				return false
			}
		}
		return true
	})
	return out.Dedupe()
}

// intersect keeps distinct source rows found in every other.
func intersect(src *table.Table, others []*table.Table) (*table.Table, error) {
	sets := rowSets(src, others)
	out := src.Filter(func(r table.Row) bool {
		k := recordKey(src, r)
		for _, s := range sets {
			if _, ok := s[k]; !ok {
				return false
			}
		}
		return true
	})
	return out.Dedupe()
}

// rowSets keys every row of the others over the source's columns.
func rowSets(src *table.Table, others []*table.Table) []map[string]struct{} {
	sets := make([]map[string]struct{}, len(others))
	for i, o := range others {
		aligned := table.Empty(src.Columns()...).Concat(o)
		s := make(map[string]struct{}, aligned.NumRows())
		for r := 0; r < aligned.NumRows(); r++ {
			s[aligned.Key(r, src.Columns()...)] = struct{}{}
		}
		sets[i] = s
	}
	return sets
}

func recordKey(src *table.Table, r table.Row) string {
	one := table.FromRecords(src.Columns(), []table.Row{r})
	return one.Key(0, src.Columns()...)
}
