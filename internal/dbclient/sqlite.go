package dbclient

import (
	"go.uber.org/zap"

	"forestnav/internal/domain"

	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	driverName:   "sqlite",
	placeholder:  questionMark,
	quoteChar:    `"`,
	textType:     "TEXT",
	numberType:   "REAL",
	boolType:     "INTEGER",
	columnsQuery: `SELECT name, type FROM pragma_table_info(?)`,
}

// newSQLiteWriter creates a writer for an SQLite file.
// Opens in WAL mode with busy timeout for concurrent access.
func newSQLiteWriter(t *domain.ExportTarget, logger *zap.Logger) (*sqlWriter, error) {
	dsn := t.DSN
	if dsn == "" {
		dsn = t.Host + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	return newSQLWriter(sqliteDialect, dsn, logger)
}
