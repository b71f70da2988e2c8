package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// IsEmpty reports whether v counts as a missing cell: nil, NaN or "".
func IsEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case string:
		return x == ""
	}
	return false
}

// Number converts v to float64. Strings are parsed, booleans map to 0/1.
func Number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x)
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// Normalize maps Go numeric types onto float64 so cells compare uniformly.
func Normalize(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case uint:
		return float64(x)
	case uint64:
		return float64(x)
	}
	return v
}

// Format renders a cell as text. nil renders as "".
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = Format(e)
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	return fmt.Sprint(v)
}

// KeyOf renders a cell with its kind, so 1 and "1" hash differently.
func KeyOf(v any) string {
	switch Normalize(v).(type) {
	case nil:
		return "n:"
	case float64:
		return "f:" + Format(Normalize(v))
	case bool:
		return "b:" + Format(v)
	case string:
		return "s:" + v.(string)
	}
	return "x:" + Format(v)
}

// Compare orders two cells. Empty cells sort first, numbers before strings,
// strings compare lexically.
func Compare(a, b any) int {
	a, b = Normalize(a), Normalize(b)
	ae, be := IsEmpty(a), IsEmpty(b)
	switch {
	case ae && be:
		return 0
	case ae:
		return -1
	case be:
		return 1
	}
	af, aNum := a.(float64)
	bf, bNum := b.(float64)
	if ab, ok := a.(bool); ok {
		af, aNum = boolNum(ab), true
	}
	if bb, ok := b.(bool); ok {
		bf, bNum = boolNum(bb), true
	}
	switch {
	case aNum && bNum:
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	case aNum:
		return -1
	case bNum:
		return 1
	}
	return strings.Compare(Format(a), Format(b))
}

func boolNum(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Infer converts a text cell read from a delimited file into a typed cell.
func Infer(s string) any {
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
