package etl

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Transformer rewrites one record on its way to the destination.
// keep=false drops the record.
type Transformer interface {
	Transform(Record) (Record, bool)
}

// TransformerFunc lets a closure act as a Transformer.
type TransformerFunc func(Record) (Record, bool)

func (f TransformerFunc) Transform(r Record) (Record, bool) { return f(r) }

// ── Row filters ────────────────────────────────────────────

// numericOps are the filter operators that compare cells as numbers.
var numericOps = map[string]func(a, b float64) bool{
	"gt":  func(a, b float64) bool { return a > b },
	"gte": func(a, b float64) bool { return a >= b },
	"lt":  func(a, b float64) bool { return a < b },
	"lte": func(a, b float64) bool { return a <= b },
}

// FilterTransform keeps rows whose Field satisfies Op against Value.
// Ops: eq, neq, contains, present, missing, gt, gte, lt, lte.
// A row without the field is dropped, and a missing cell never passes a
// numeric comparison.
type FilterTransform struct {
	Field string
	Op    string
	Value any
}

func (t *FilterTransform) Transform(r Record) (Record, bool) {
	cell, ok := r.Data[t.Field]
	if !ok {
		return r, false
	}
	return r, t.match(cell)
}

func (t *FilterTransform) match(cell any) bool {
	empty := cell == nil || cell == ""
	switch t.Op {
	case "present":
		return !empty
	case "missing":
		return empty
	case "eq":
		return fmt.Sprint(cell) == fmt.Sprint(t.Value)
	case "neq":
		return fmt.Sprint(cell) != fmt.Sprint(t.Value)
	case "contains":
		return cell != nil && strings.Contains(fmt.Sprint(cell), fmt.Sprint(t.Value))
	}
	cmp, known := numericOps[t.Op]
	if !known {
		return true
	}
	a, aOk := toFloatSafe(cell)
	b, bOk := toFloatSafe(t.Value)
	return aOk && bOk && cmp(a, b)
}

// NewDedupeTransform keeps the first row seen for each value of key.
func NewDedupeTransform(key string) *DedupeTransform {
	return &DedupeTransform{Key: key, seen: make(map[string]struct{})}
}

// DedupeTransform is stateful; build a fresh one per run.
type DedupeTransform struct {
	Key  string
	seen map[string]struct{}
}

func (t *DedupeTransform) Transform(r Record) (Record, bool) {
	k := fmt.Sprint(r.Data[t.Key])
	if _, dup := t.seen[k]; dup {
		return r, false
	}
	t.seen[k] = struct{}{}
	return r, true
}

// NewLimitTransform passes the first count rows.
func NewLimitTransform(count int) *LimitTransform {
	return &LimitTransform{Count: count}
}

type LimitTransform struct {
	Count int
	n     int
}

func (t *LimitTransform) Transform(r Record) (Record, bool) {
	t.n++
	return r, t.n <= t.Count
}

// ── Column shaping ─────────────────────────────────────────

// RenameTransform moves cells from old column names to new ones.
type RenameTransform struct {
	Mapping map[string]string
}

func (t *RenameTransform) Transform(r Record) (Record, bool) {
	for from, to := range t.Mapping {
		cell, ok := r.Data[from]
		if !ok {
			continue
		}
		delete(r.Data, from)
		r.Data[to] = cell
	}
	return r, true
}

// SelectTransform projects each row onto Fields. Absent fields stay absent.
type SelectTransform struct {
	Fields []string
}

func (t *SelectTransform) Transform(r Record) (Record, bool) {
	kept := make(map[string]any, len(t.Fields))
	for _, name := range t.Fields {
		if cell, ok := r.Data[name]; ok {
			kept[name] = cell
		}
	}
	r.Data = kept
	return r, true
}

// TypeCastTransform converts Field to "number", "string" or "bool".
// Text that does not parse as a number becomes nil.
type TypeCastTransform struct {
	Field    string
	CastType string
}

func (t *TypeCastTransform) Transform(r Record) (Record, bool) {
	cell := r.Data[t.Field]
	if cell == nil {
		return r, true
	}
	switch t.CastType {
	case "number":
		if f, ok := toFloatSafe(cell); ok {
			r.Data[t.Field] = f
		} else {
			r.Data[t.Field] = nil
		}
	case "string":
		r.Data[t.Field] = fmt.Sprint(cell)
	case "bool":
		r.Data[t.Field] = truthy(cell)
	}
	return r, true
}

// ScaleTransform multiplies a numeric column by Factor, for unit changes
// such as mm to cm (0.1) or dm³ to m³ (0.001). Digits > 0 rounds the
// result. The scaled value goes to As when set, leaving Field untouched.
type ScaleTransform struct {
	Field  string
	Factor float64
	Digits int
	As     string
}

func (t *ScaleTransform) Transform(r Record) (Record, bool) {
	out := t.As
	if out == "" {
		out = t.Field
	}
	v, ok := toFloatSafe(r.Data[t.Field])
	if !ok {
		if _, present := r.Data[t.Field]; present {
			r.Data[out] = nil
		}
		return r, true
	}
	v *= t.Factor
	if t.Digits > 0 {
		p := math.Pow10(t.Digits)
		v = math.Round(v*p) / p
	}
	r.Data[out] = v
	return r, true
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "1":
			return true
		}
		return false
	case float64:
		return b != 0
	case int:
		return b != 0
	}
	return false
}

// ── Ordering ───────────────────────────────────────────────

// SortTransform orders the whole result by Field ("asc" or "desc").
// It needs every row, so Transform passes rows through unchanged and the
// engine applies the order via ApplyBatchSort once reading is done.
type SortTransform struct {
	Field     string
	Direction string
}

func (t *SortTransform) Transform(r Record) (Record, bool) { return r, true }

// ApplyBatchSort returns a sorted copy of records when the chain holds a
// SortTransform, otherwise records itself.
func ApplyBatchSort(records []Record, ts []Transformer) []Record {
	i := slices.IndexFunc(ts, func(t Transformer) bool {
		st, ok := t.(*SortTransform)
		return ok && st.Field != ""
	})
	if i < 0 {
		return records
	}
	st := ts[i].(*SortTransform)
	out := slices.Clone(records)
	sortRecords(out, st.Field, st.Direction == "desc")
	return out
}

// sortRecords is stable and places nil cells last whatever the direction.
func sortRecords(records []Record, field string, desc bool) {
	slices.SortStableFunc(records, func(a, b Record) int {
		va, vb := a.Data[field], b.Data[field]
		if va == nil || vb == nil {
			return nilLast(va == nil, vb == nil)
		}
		c := compareValues(va, vb)
		if desc {
			c = -c
		}
		return c
	})
}

func nilLast(aNil, bNil bool) int {
	switch {
	case aNil == bNil:
		return 0
	case aNil:
		return 1
	default:
		return -1
	}
}

// compareValues orders numerically when both sides parse as numbers and
// lexically otherwise.
func compareValues(a, b any) int {
	fa, aOk := toFloatSafe(a)
	fb, bOk := toFloatSafe(b)
	if !aOk || !bOk {
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	}
	return 0
}

func toFloatSafe(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// ApplyTransformers runs r through ts in order, stopping at the first drop.
func ApplyTransformers(r Record, ts []Transformer) (Record, bool) {
	keep := true
	for _, t := range ts {
		if r, keep = t.Transform(r); !keep {
			break
		}
	}
	return r, keep
}
