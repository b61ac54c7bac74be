package dbclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"forestnav/internal/domain"
)

// Column types understood by every writer.
const (
	TypeText   = "text"
	TypeNumber = "number"
	TypeBool   = "boolean"
)

// Column describes one output column.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"` // "text" | "number" | "boolean"
}

// TableInfo describes a table/collection as it exists in the target.
type TableInfo struct {
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
}

// ColumnInfo describes a column/field.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Writer abstracts writing exported rows into an external database.
type Writer interface {
	// TestConnection verifies connectivity.
	TestConnection(ctx context.Context) error

	// EnsureTable creates the table if needed and adds any missing columns.
	// Existing columns are never altered or dropped.
	EnsureTable(ctx context.Context, table string, cols []Column) error

	// ResetTable drops the table's rows and layout and recreates it with
	// exactly cols.
	ResetTable(ctx context.Context, table string, cols []Column) error

	// InsertRows writes rows in a single batch. Each row carries one value
	// per column, nil for a missing cell. Returns the rows written.
	InsertRows(ctx context.Context, table string, cols []Column, rows [][]any) (int, error)

	// Describe returns the current layout of the table.
	Describe(ctx context.Context, table string) (*TableInfo, error)

	// Close closes the connection.
	Close() error
}

// NewWriter creates a Writer for the given export target.
// The password must be provided separately (from a secret store).
func NewWriter(target *domain.ExportTarget, password string, logger *zap.Logger) (Writer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("target", target.Name), zap.String("driver", string(target.Driver)))

	switch target.Driver {
	case domain.DatabaseDriverSQLite:
		return newSQLiteWriter(target, logger)
	case domain.DatabaseDriverMySQL:
		return newSQLWriter(mysqlDialect, dsnOr(target, buildMySQLDSN(target, password)), logger)
	case domain.DatabaseDriverPostgres:
		return newSQLWriter(postgresDialect, dsnOr(target, buildPostgresDSN(target, password)), logger)
	case domain.DatabaseDriverMongoDB:
		return newMongoWriter(target, password, logger)
	case domain.DatabaseDriverCSV:
		return newCSVWriter(target, logger)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", target.Driver)
	}
}

func dsnOr(target *domain.ExportTarget, built string) string {
	if target.DSN != "" {
		return target.DSN
	}
	return built
}
