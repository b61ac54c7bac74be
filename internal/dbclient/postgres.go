package dbclient

import (
	"fmt"
	"strconv"

	"forestnav/internal/domain"

	_ "github.com/lib/pq"
)

var postgresDialect = dialect{
	driverName:  "postgres",
	placeholder: func(i int) string { return "$" + strconv.Itoa(i) },
	quoteChar:   `"`,
	textType:    "TEXT",
	numberType:  "DOUBLE PRECISION",
	boolType:    "BOOLEAN",
	columnsQuery: `SELECT column_name, data_type FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`,
}

// buildPostgresDSN constructs a Postgres connection string from an ExportTarget.
func buildPostgresDSN(t *domain.ExportTarget, password string) string {
	port := t.Port
	if port == 0 {
		port = 5432
	}
	sslMode := t.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		t.Host, port, t.Username, password, t.Database, sslMode,
	)
}
