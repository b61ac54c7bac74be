package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Value is a numeric cell that may be missing.
// Missing values come from empty or non-numeric text and are a normal
// outcome of coercion, not an error.
type Value struct {
	V     float64
	Valid bool
}

// Some wraps a present number.
func Some(v float64) Value { return Value{V: v, Valid: true} }

// Missing is the missing-value marker.
var Missing = Value{}

// ParseValue coerces a cell to a Value. Anything strconv cannot parse is
// Missing, and so are NaN and the infinities.
func ParseValue(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Missing
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Missing
	}
	return Some(f)
}

// ParseValues coerces a whole column.
func ParseValues(cells []string) []Value {
	out := make([]Value, len(cells))
	for i, c := range cells {
		out[i] = ParseValue(c)
	}
	return out
}

// Present drops missing entries and returns the remaining numbers.
func Present(vals []Value) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if v.Valid {
			out = append(out, v.V)
		}
	}
	return out
}

func (v Value) String() string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.V, 'f', -1, 64)
}

// MarshalJSON encodes Missing as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.V)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Missing
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}
