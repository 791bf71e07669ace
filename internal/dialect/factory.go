package dialect

import "fmt"

// GetDialect returns the Dialect for a database flavor.
func GetDialect(flavor string) (Dialect, error) {
	switch flavor {
	case "postgres", "postgresql":
		return &PostgresDialect{}, nil
	case "redshift":
		return &RedshiftDialect{}, nil
	case "mysql":
		return &MysqlDialect{}, nil
	case "sqlserver", "mssql":
		return &MSSQLDialect{}, nil
	case "oracle":
		return &OracleDialect{}, nil
	case "sqlite", "sqlite3":
		return &SqliteDialect{}, nil
	}
	return nil, fmt.Errorf("unsupported database flavor %q", flavor)
}

// DriverName returns the database/sql driver registered for a flavor.
func DriverName(flavor string) string {
	switch flavor {
	case "postgresql", "redshift":
		return "postgres"
	case "mssql":
		return "sqlserver"
	case "sqlite3":
		return "sqlite"
	}
	return flavor
}

// Ensure interface implementation
var _ Dialect = (*MysqlDialect)(nil)
var _ Dialect = (*PostgresDialect)(nil)
var _ Dialect = (*RedshiftDialect)(nil)
var _ Dialect = (*MSSQLDialect)(nil)
var _ Dialect = (*OracleDialect)(nil)
var _ Dialect = (*SqliteDialect)(nil)
