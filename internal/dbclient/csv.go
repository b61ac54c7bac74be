package dbclient

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"forestnav/internal/domain"
)

// csvWriter writes each table to <dir>/<table>.csv with a header row.
type csvWriter struct {
	dir    string
	logger *zap.Logger
}

func newCSVWriter(t *domain.ExportTarget, logger *zap.Logger) (*csvWriter, error) {
	dir := t.Host
	if dir == "" {
		dir = "."
	}
	return &csvWriter{dir: dir, logger: logger}, nil
}

func (w *csvWriter) path(table string) string {
	if !strings.HasSuffix(table, ".csv") {
		table += ".csv"
	}
	return filepath.Join(w.dir, table)
}

func (w *csvWriter) TestConnection(ctx context.Context) error {
	info, err := os.Stat(w.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", w.dir)
	}
	return nil
}

// EnsureTable writes the header of a new file. An existing file must
// already hold every column, since a CSV cannot grow columns in place.
func (w *csvWriter) EnsureTable(ctx context.Context, table string, cols []Column) error {
	header, err := w.readHeader(table)
	if errors.Is(err, os.ErrNotExist) {
		return w.ResetTable(ctx, table, cols)
	}
	if err != nil {
		return err
	}
	for _, c := range cols {
		if !slices.Contains(header, c.Name) {
			return fmt.Errorf("csv %s: column %q not in existing header", table, c.Name)
		}
	}
	return nil
}

func (w *csvWriter) ResetTable(ctx context.Context, table string, cols []Column) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(w.path(table))
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(columnNames(cols)); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// InsertRows appends rows, ordered to match the file's header.
func (w *csvWriter) InsertRows(ctx context.Context, table string, cols []Column, rows [][]any) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	header, err := w.readHeader(table)
	if err != nil {
		return 0, err
	}
	pos := make(map[string]int, len(cols))
	for i, c := range cols {
		pos[c.Name] = i
	}

	f, err := os.OpenFile(w.path(table), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	record := make([]string, len(header))
	for n, row := range rows {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		for i, name := range header {
			record[i] = ""
			if j, ok := pos[name]; ok && j < len(row) {
				record[i] = formatCell(row[j])
			}
		}
		if err := cw.Write(record); err != nil {
			return n, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}
	w.logger.Debug("appended csv rows", zap.String("file", w.path(table)), zap.Int("rows", len(rows)))
	return len(rows), nil
}

func (w *csvWriter) Describe(ctx context.Context, table string) (*TableInfo, error) {
	info := &TableInfo{Name: table}
	header, err := w.readHeader(table)
	if errors.Is(err, os.ErrNotExist) {
		return info, nil
	}
	if err != nil {
		return nil, err
	}
	for _, h := range header {
		info.Columns = append(info.Columns, ColumnInfo{Name: h, Type: TypeText})
	}
	return info, nil
}

func (w *csvWriter) Close() error { return nil }

func (w *csvWriter) readHeader(table string) ([]string, error) {
	f, err := os.Open(w.path(table))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	return header, nil
}

func columnNames(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
