package dbclient

import (
	"fmt"

	"forestnav/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

var mysqlDialect = dialect{
	driverName:  "mysql",
	placeholder: questionMark,
	quoteChar:   "`",
	textType:    "TEXT",
	numberType:  "DOUBLE",
	boolType:    "BOOLEAN",
	columnsQuery: `SELECT COLUMN_NAME, DATA_TYPE FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`,
}

// buildMySQLDSN constructs a MySQL DSN from an ExportTarget.
func buildMySQLDSN(t *domain.ExportTarget, password string) string {
	port := t.Port
	if port == 0 {
		port = 3306
	}
	// Format: user:password@tcp(host:port)/dbname?parseTime=true
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		t.Username, password, t.Host, port, t.Database,
	)
	if t.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}
