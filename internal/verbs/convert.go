package verbs

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/vk/wrangler/internal/table"
)

// Convert target types.
const (
	ParseBoolean = "boolean"
	ParseDate    = "date"
	ParseInt     = "int"
	ParseFloat   = "float"
)

// Bin strategies.
const (
	BinAuto       = "auto"
	BinFixedCount = "fixed count"
	BinFixedWidth = "fixed width"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
}

type parseModule struct{}

func (parseModule) Register(r *Registry) {
	one := []string{SourceSlot}
	r.Register(&Descriptor{Verb: Convert, Inputs: one,
		NewArgs: argsOf(ConvertArgs{Radix: 10}), Fn: sourceOnly(convert)})
	r.Register(&Descriptor{Verb: Bin, Inputs: one, OutputColumn: true,
		NewArgs: argsOf(BinArgs{To: "output", Strategy: BinAuto, Fixedcount: 10}), Fn: sourceOnly(bin)})
	r.Register(&Descriptor{Verb: Binarize, Inputs: one, OutputColumn: true,
		NewArgs: argsOf(BinarizeArgs{FilterArgs: FilterArgs{Logical: LogicalOr}, To: "output"}), Fn: sourceOnly(binarize)})
}

func convert(t *table.Table, a *ConvertArgs) (*table.Table, error) {
	var parse func(any) any
	switch a.Type {
	case ParseBoolean:
		parse = toBool
	case ParseInt:
		radix := a.Radix
		if radix == 0 {
			radix = 10
		}
		parse = func(v any) any { return toInt(v, radix) }
	case ParseFloat:
		parse = toFloat
	case ParseDate:
		parse = toDate
	default:
		return nil, fmt.Errorf("%w: convert type %q", ErrUnsupportedOp, a.Type)
	}
	if err := t.RequireColumns(a.Columns...); err != nil {
		return nil, err
	}
	out := t
	for _, c := range a.Columns {
		var err error
		out, err = out.WithColumn(c, func(r table.Row) (any, error) { return parse(r[c]), nil })
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// toBool treats the text "false", zero and empty cells as false.
func toBool(v any) any {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x != "" && !strings.EqualFold(strings.TrimSpace(x), "false")
	case float64:
		return x != 0 && !math.IsNaN(x)
	}
	return v != nil
}

func toInt(v any, radix int) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return math.Trunc(x)
	case bool:
		return boolFloat(x)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), radix, 64)
		if err != nil {
			return nil
		}
		return float64(n)
	}
	return nil
}

func toFloat(v any) any {
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil
	}
	if f, ok := table.Number(v); ok {
		return f
	}
	return nil
}

// toDate renders a parsed date as RFC 3339 in UTC. Numbers are epoch
// milliseconds.
func toDate(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		return time.UnixMilli(int64(x)).UTC().Format(time.RFC3339)
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, s); err == nil {
				return d.UTC().Format(time.RFC3339)
			}
		}
	}
	return nil
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// bin writes the lower edge of the bin holding each value of Column. A
// value equal to the upper bound gets its own last bin. Values outside the
// bounds are empty unless Clamped.
func bin(t *table.Table, a *BinArgs) (*table.Table, error) {
	vals, err := t.Column(a.Column)
	if err != nil {
		return nil, err
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		if f, ok := table.Number(v); ok && !table.IsEmpty(v) {
			lo, hi = math.Min(lo, f), math.Max(hi, f)
		}
	}
	if a.Min != nil {
		lo = *a.Min
	}
	if a.Max != nil {
		hi = *a.Max
	}

	var width float64
	switch a.Strategy {
	case BinAuto, BinFixedCount, "":
		if a.Fixedcount <= 0 {
			return nil, fmt.Errorf("%w: bin requires a positive 'fixedcount'", ErrInvalidArgs)
		}
		width = (hi - lo) / float64(a.Fixedcount)
	case BinFixedWidth:
		if a.Fixedwidth <= 0 {
			return nil, fmt.Errorf("%w: bin requires a positive 'fixedwidth'", ErrInvalidArgs)
		}
		width = a.Fixedwidth
	default:
		return nil, fmt.Errorf("%w: bin strategy %q", ErrUnsupportedOp, a.Strategy)
	}

	return t.WithColumn(a.To, func(r table.Row) (any, error) {
		v := r[a.Column]
		f, ok := table.Number(v)
		if !ok || table.IsEmpty(v) || math.IsInf(lo, 0) {
			return nil, nil
		}
		switch {
		case f < lo:
			if !a.Clamped {
				return nil, nil
			}
			f = lo
		case f > hi:
			if !a.Clamped {
				return nil, nil
			}
			f = hi
		}
		if width <= 0 {
			return lo, nil
		}
		return lo + math.Floor((f-lo)/width)*width, nil
	})
}

func binarize(t *table.Table, a *BinarizeArgs) (*table.Table, error) {
	match, err := matcher(t, &a.FilterArgs)
	if err != nil {
		return nil, err
	}
	return t.WithColumn(a.To, func(r table.Row) (any, error) { return match(r), nil })
}
