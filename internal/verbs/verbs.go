package verbs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/vk/wrangler/internal/table"
)

// Verb names a table transformation.
type Verb string

const (
	Aggregate  Verb = "aggregate"
	Bin        Verb = "bin"
	Binarize   Verb = "binarize"
	Chain      Verb = "chain"
	Concat     Verb = "concat"
	Convert    Verb = "convert"
	Dedupe     Verb = "dedupe"
	Derive     Verb = "derive"
	Difference Verb = "difference"
	Erase      Verb = "erase"
	Fetch      Verb = "fetch"
	Fill       Verb = "fill"
	Filter     Verb = "filter"
	Fold       Verb = "fold"
	Groupby    Verb = "groupby"
	Impute     Verb = "impute"
	Intersect  Verb = "intersect"
	Join       Verb = "join"
	Lookup     Verb = "lookup"
	Merge      Verb = "merge"
	Onehot     Verb = "onehot"
	Orderby    Verb = "orderby"
	Pivot      Verb = "pivot"
	Recode     Verb = "recode"
	Rename     Verb = "rename"
	Rollup     Verb = "rollup"
	Sample     Verb = "sample"
	Select     Verb = "select"
	Spread     Verb = "spread"
	Ungroup    Verb = "ungroup"
	Union      Verb = "union"
	Unorder    Verb = "unorder"
	Unroll     Verb = "unroll"
)

// Input slot names.
const (
	// SourceSlot is the primary table input and the default slot.
	SourceSlot = "source"
	// OtherSlot is the secondary table of a join or lookup.
	OtherSlot = "other"
	// OthersSlot is reserved for the ordered list of extra tables taken by
	// set operations.
	OthersSlot = "others"
)

var (
	ErrUnknownVerb   = errors.New("unknown verb")
	ErrInvalidArgs   = errors.New("invalid verb arguments")
	ErrMissingInput  = errors.New("missing input table")
	ErrUnsupportedOp = errors.New("unsupported operation")
)

// Input carries the resolved tables for one execution.
type Input struct {
	Named    map[string]*table.Table
	Variadic []*table.Table
}

// Table returns the table bound to slot or ErrMissingInput.
func (in Input) Table(slot string) (*table.Table, error) {
	t := in.Named[slot]
	if t == nil {
		return nil, fmt.Errorf("%w: %q", ErrMissingInput, slot)
	}
	return t, nil
}

// Executor runs one verb. args is the value produced by the descriptor's
// NewArgs, already populated.
type Executor func(ctx context.Context, in Input, args any) (*table.Table, error)

// Descriptor describes a registered verb.
type Descriptor struct {
	Verb Verb
	// Inputs lists the named slots in order; the first one is the default.
	Inputs []string
	// Variadic marks verbs that also take the OthersSlot list.
	Variadic bool
	// Async verbs may block on I/O and are run off the owner goroutine.
	Async bool
	// RowModifying verbs change the number or order of rows.
	RowModifying bool
	// OutputColumn verbs write a single new column named by their args.
	OutputColumn bool
	// NewArgs returns a pointer to a fresh, defaulted argument struct.
	NewArgs func() any
	Fn      Executor
}

// InputTable reports whether the verb consumes at least one table.
func (d *Descriptor) InputTable() bool { return len(d.Inputs) > 0 || d.Variadic }

// HasInput reports whether slot is one of the verb's named slots.
func (d *Descriptor) HasInput(slot string) bool {
	for _, s := range d.Inputs {
		if s == slot {
			return true
		}
	}
	return false
}

// DecodeArgs turns a loosely typed argument value into the verb's argument
// struct. A value already of that type is used as is; anything else goes
// through a JSON round trip on top of the defaults.
func (d *Descriptor) DecodeArgs(raw any) (any, error) {
	args := d.NewArgs()
	if raw == nil {
		return args, nil
	}
	if reflect.TypeOf(raw) == reflect.TypeOf(args) {
		return raw, nil
	}
	if rv := reflect.ValueOf(raw); rv.Kind() != reflect.Pointer && reflect.PointerTo(rv.Type()) == reflect.TypeOf(args) {
		p := reflect.New(rv.Type())
		p.Elem().Set(rv)
		return p.Interface(), nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w for %s: %v", ErrInvalidArgs, d.Verb, err)
	}
	if err := json.Unmarshal(data, args); err != nil {
		return nil, fmt.Errorf("%w for %s: %v", ErrInvalidArgs, d.Verb, err)
	}
	return args, nil
}

// typed adapts a function over a concrete argument type to an Executor.
func typed[A any](fn func(ctx context.Context, in Input, args *A) (*table.Table, error)) Executor {
	return func(ctx context.Context, in Input, args any) (*table.Table, error) {
		a, ok := args.(*A)
		if !ok {
			return nil, fmt.Errorf("%w: expected %T, got %T", ErrInvalidArgs, a, args)
		}
		return fn(ctx, in, a)
	}
}

// sourceOnly adapts a single-table function to an Executor.
func sourceOnly[A any](fn func(t *table.Table, args *A) (*table.Table, error)) Executor {
	return typed(func(_ context.Context, in Input, args *A) (*table.Table, error) {
		src, err := in.Table(SourceSlot)
		if err != nil {
			return nil, err
		}
		return fn(src, args)
	})
}

func argsOf[A any](defaults A) func() any {
	return func() any {
		a := defaults
		return &a
	}
}
