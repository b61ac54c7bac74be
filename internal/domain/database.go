package domain

// DatabaseDriver represents the type of database engine.
type DatabaseDriver string

const (
	DatabaseDriverMySQL    DatabaseDriver = "mysql"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
	DatabaseDriverMongoDB  DatabaseDriver = "mongodb"
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
	DatabaseDriverCSV      DatabaseDriver = "csv" // Host is the output directory
)

// ExportTarget holds the metadata for connecting to a database that
// receives exported tables. The password is resolved separately through a
// secret store unless it is embedded in DSN.
type ExportTarget struct {
	Name     string            `json:"name"`
	Driver   DatabaseDriver    `json:"driver"`
	Host     string            `json:"host"`     // hostname or file path (sqlite)
	Port     int               `json:"port"`     // 0 for sqlite
	Database string            `json:"database"` // db name or empty for sqlite
	Username string            `json:"username"`
	SSLMode  string            `json:"sslMode"`
	DSN      string            `json:"dsn,omitempty"`     // overrides the fields above
	Options  map[string]string `json:"options,omitempty"` // driver-specific options
}
