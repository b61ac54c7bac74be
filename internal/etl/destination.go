package etl

import (
	"context"
	"fmt"

	"forestnav/internal/dbclient"
)

// ── Destination ────────────────────────────────────────────
// A Destination writes records into a target system.
//
// Pattern: Singer target protocol.

// SyncMode determines how records are written to the destination.
type SyncMode string

const (
	SyncReplace SyncMode = "replace" // drop existing rows and layout, insert fresh
	SyncAppend  SyncMode = "append"  // add rows without deleting existing
)

// Target names where a sync writes: a configured export target and a
// table (or collection, or file) inside it.
type Target struct {
	Name  string `json:"name" yaml:"name"`
	Table string `json:"table" yaml:"table"`
}

// Destination writes records to a target system.
type Destination interface {
	Write(ctx context.Context, target Target, schema *Schema, records []Record, mode SyncMode) (int, error)
}

// ── Database Destination ───────────────────────────────────
// Writes records through a dbclient.Writer opened per sync.

// OpenWriterFunc opens the writer for a named export target.
type OpenWriterFunc func(ctx context.Context, name string) (dbclient.Writer, error)

// DBWriter implements Destination for every dbclient driver.
type DBWriter struct {
	Open OpenWriterFunc
}

func (w *DBWriter) Write(ctx context.Context, target Target, schema *Schema, records []Record, mode SyncMode) (int, error) {
	if target.Table == "" {
		return 0, fmt.Errorf("target %q: table required", target.Name)
	}
	writer, err := w.Open(ctx, target.Name)
	if err != nil {
		return 0, fmt.Errorf("open target %q: %w", target.Name, err)
	}
	defer writer.Close()

	cols := columnsOf(schema)

	// On replace mode, the target layout is reset to exactly match the
	// output schema. Append mode only adds missing columns.
	if mode == SyncReplace {
		if err := writer.ResetTable(ctx, target.Table, cols); err != nil {
			return 0, fmt.Errorf("reset table: %w", err)
		}
	} else {
		if err := writer.EnsureTable(ctx, target.Table, cols); err != nil {
			return 0, fmt.Errorf("ensure columns: %w", err)
		}
	}

	if len(records) == 0 {
		return 0, nil
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j] = rec.Data[c.Name]
		}
		rows[i] = row
	}
	return writer.InsertRows(ctx, target.Table, cols, rows)
}

func columnsOf(schema *Schema) []dbclient.Column {
	if schema == nil {
		return nil
	}
	cols := make([]dbclient.Column, len(schema.Fields))
	for i, f := range schema.Fields {
		cols[i] = dbclient.Column{Name: f.Name, Type: mapFieldType(f.Type)}
	}
	return cols
}

// mapFieldType maps ETL schema types to writer column types.
func mapFieldType(etlType string) string {
	switch etlType {
	case FieldNumber:
		return dbclient.TypeNumber
	case FieldBool:
		return dbclient.TypeBool
	default:
		return dbclient.TypeText
	}
}
