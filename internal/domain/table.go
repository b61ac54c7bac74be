package domain

// EntityKind distinguishes the two tables reconstructed from a PRI file.
type EntityKind string

const (
	EntityTree EntityKind = "tree"
	EntityLog  EntityKind = "log"
)

// Table is a positional table: cell i of every row belongs to Columns[i].
// Every row has exactly len(Columns) cells.
//
// Numeric holds the coerced view of the columns that were designated
// numeric. The text cells in Rows are never rewritten by coercion.
type Table struct {
	Kind    EntityKind         `json:"kind"`
	Columns []string           `json:"columns"`
	Rows    [][]string         `json:"rows"`
	Numeric map[string][]Value `json:"numeric,omitempty"`
}

// NewTable creates an empty table for kind with the given column layout.
func NewTable(kind EntityKind, columns []string) *Table {
	return &Table{Kind: kind, Columns: columns}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return t.Len() == 0 }

// ColumnIndex returns the position of the first column named name, or -1.
// Header maps can produce duplicate names; the first wins, as in a lookup
// by name on a data frame.
func (t *Table) ColumnIndex(name string) int {
	if t == nil {
		return -1
	}
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool { return t.ColumnIndex(name) >= 0 }

// Column returns the text cells of the named column, or nil if absent.
func (t *Table) Column(name string) []string {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out
}

// Coerce converts the named column to numbers and caches the result.
// Absent columns are ignored.
func (t *Table) Coerce(name string) {
	if t == nil || !t.HasColumn(name) {
		return
	}
	if t.Numeric == nil {
		t.Numeric = make(map[string][]Value)
	}
	t.Numeric[name] = ParseValues(t.Column(name))
}

// Values returns the numeric view of a column, coercing on the fly when the
// column was not designated numeric. Absent columns yield nil.
func (t *Table) Values(name string) []Value {
	if t == nil {
		return nil
	}
	if vals, ok := t.Numeric[name]; ok {
		return vals
	}
	if !t.HasColumn(name) {
		return nil
	}
	return ParseValues(t.Column(name))
}

// IsNumeric reports whether the column was coerced.
func (t *Table) IsNumeric(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.Numeric[name]
	return ok
}

// Row returns row i keyed by column name. Duplicate names keep the first cell.
func (t *Table) Row(i int) map[string]string {
	out := make(map[string]string, len(t.Columns))
	for j, c := range t.Columns {
		if _, dup := out[c]; dup {
			continue
		}
		out[c] = t.Rows[i][j]
	}
	return out
}
