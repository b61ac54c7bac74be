package etl

import (
	"forestnav/internal/domain"
)

// ── Record ─────────────────────────────────────────────────
// Common intermediate data format.
// All sources emit Records, all destinations consume Records.

// Field types.
const (
	FieldText   = "text"
	FieldNumber = "number"
	FieldBool   = "boolean"
)

// Field describes a single column in a dataset.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"` // "text" | "number" | "boolean"
}

// Schema describes the shape of records coming from a source.
// Field order is the column order of the source table.
type Schema struct {
	Fields []Field `json:"fields"`
}

// FieldNames returns an ordered list of field names.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// FieldType returns the type of the named field, or "" if absent.
func (s *Schema) FieldType(name string) string {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Type
		}
	}
	return ""
}

// Record is a single row of data flowing through the pipeline.
// Missing numeric cells are nil.
type Record struct {
	Data map[string]any `json:"data"`
}

// SchemaOf derives the record schema of a table. Coerced columns are
// numbers; everything else is text. Duplicate column names keep the first.
func SchemaOf(t *domain.Table) *Schema {
	s := &Schema{}
	if t == nil {
		return s
	}
	seen := make(map[string]bool)
	for _, c := range t.Columns {
		if seen[c] {
			continue
		}
		seen[c] = true
		typ := FieldText
		if t.IsNumeric(c) {
			typ = FieldNumber
		}
		s.Fields = append(s.Fields, Field{Name: c, Type: typ})
	}
	return s
}

// RecordsOf converts every row of t to a Record.
func RecordsOf(t *domain.Table) []Record {
	out := make([]Record, t.Len())
	for i := range out {
		out[i] = RowRecord(t, i)
	}
	return out
}

// RowRecord converts row i of t. Numeric columns carry float64 or nil.
func RowRecord(t *domain.Table, i int) Record {
	data := make(map[string]any, len(t.Columns))
	for j, c := range t.Columns {
		if _, dup := data[c]; dup {
			continue
		}
		if vals, ok := t.Numeric[c]; ok {
			if v := vals[i]; v.Valid {
				data[c] = v.V
			} else {
				data[c] = nil
			}
			continue
		}
		data[c] = t.Rows[i][j]
	}
	return Record{Data: data}
}
