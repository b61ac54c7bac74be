package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// dialect captures the SQL differences between the supported engines.
type dialect struct {
	driverName   string
	placeholder  func(i int) string // i is 1-based
	quoteChar    string
	textType     string
	numberType   string
	boolType     string
	columnsQuery string // one placeholder: the table name
}

func (d dialect) quote(ident string) string {
	q := d.quoteChar
	return q + strings.ReplaceAll(ident, q, q+q) + q
}

func (d dialect) columnType(typ string) string {
	switch typ {
	case TypeNumber:
		return d.numberType
	case TypeBool:
		return d.boolType
	default:
		return d.textType
	}
}

func questionMark(int) string { return "?" }

// sqlWriter is the shared implementation for MySQL, Postgres, and SQLite.
type sqlWriter struct {
	dialect dialect
	db      *sql.DB
	logger  *zap.Logger
}

// newSQLWriter creates a generic SQL writer.
func newSQLWriter(d dialect, dsn string, logger *zap.Logger) (*sqlWriter, error) {
	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.driverName, err)
	}
	// Exports are short bursts from one process.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	return &sqlWriter{dialect: d, db: db, logger: logger}, nil
}

func (w *sqlWriter) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return w.db.PingContext(ctx)
}

func (w *sqlWriter) EnsureTable(ctx context.Context, table string, cols []Column) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	info, err := w.Describe(ctx, table)
	if err != nil {
		return err
	}

	if len(info.Columns) == 0 {
		defs := make([]string, len(cols))
		for i, c := range cols {
			defs[i] = w.dialect.quote(c.Name) + " " + w.dialect.columnType(c.Type)
		}
		stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", w.dialect.quote(table), strings.Join(defs, ", "))
		if _, err := w.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
		w.logger.Info("created export table", zap.String("table", table), zap.Int("columns", len(cols)))
		return nil
	}

	existing := make(map[string]bool, len(info.Columns))
	for _, c := range info.Columns {
		existing[c.Name] = true
	}
	for _, c := range cols {
		if existing[c.Name] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
			w.dialect.quote(table), w.dialect.quote(c.Name), w.dialect.columnType(c.Type))
		if _, err := w.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s.%s: %w", table, c.Name, err)
		}
		w.logger.Debug("added export column", zap.String("table", table), zap.String("column", c.Name))
	}
	return nil
}

func (w *sqlWriter) ResetTable(ctx context.Context, table string, cols []Column) error {
	if _, err := w.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+w.dialect.quote(table)); err != nil {
		return fmt.Errorf("drop %s: %w", table, err)
	}
	return w.EnsureTable(ctx, table, cols)
}

func (w *sqlWriter) InsertRows(ctx context.Context, table string, cols []Column, rows [][]any) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		names[i] = w.dialect.quote(c.Name)
		marks[i] = w.dialect.placeholder(i + 1)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		w.dialect.quote(table), strings.Join(names, ", "), strings.Join(marks, ", "))

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer prepared.Close()

	for i, row := range rows {
		if _, err := prepared.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	w.logger.Debug("inserted rows", zap.String("table", table), zap.Int("rows", len(rows)))
	return len(rows), nil
}

// Describe lists the table's columns. A missing table has none.
func (w *sqlWriter) Describe(ctx context.Context, table string) (*TableInfo, error) {
	rows, err := w.db.QueryContext(ctx, w.dialect.columnsQuery, table)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	defer rows.Close()

	info := &TableInfo{Name: table}
	for rows.Next() {
		var ci ColumnInfo
		if err := rows.Scan(&ci.Name, &ci.Type); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		info.Columns = append(info.Columns, ci)
	}
	return info, rows.Err()
}

func (w *sqlWriter) Close() error {
	return w.db.Close()
}
