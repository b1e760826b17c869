package dbmanager

import "strings"

type DatabaseType int

const (
	Unknown DatabaseType = iota
	Oracle
	PostgreSQL
	MySQL
	HSQLDB
	DB2
	SQLServer
	Interbase
)

func (T DatabaseType) String() string {
	switch T {
	case Oracle:
		return "oracle"
	case PostgreSQL:
		return "postgresql"
	case MySQL:
		return "mysql"
	case HSQLDB:
		return "hsqldb"
	case DB2:
		return "db2"
	case SQLServer:
		return "sqlserver"
	case Interbase:
		return "interbase"
	default:
		return "unknown"
	}
}

// TestSQL is the cheapest statement the database accepts.
func (T DatabaseType) TestSQL() string {
	switch T {
	case Oracle:
		return "select 1 from dual"
	case DB2:
		return "select 1 from sysibm.sysdummy1"
	default:
		return "select 1"
	}
}

// DetectDatabaseType guesses the database from a database/sql driver name.
func DetectDatabaseType(driver string) DatabaseType {
	driver = strings.ToLower(driver)
	switch {
	case strings.Contains(driver, "oracle"), strings.Contains(driver, "godror"), strings.Contains(driver, "oci8"):
		return Oracle
	case strings.Contains(driver, "postgres"), strings.HasPrefix(driver, "pgx"), driver == "pq":
		return PostgreSQL
	case strings.Contains(driver, "mysql"):
		return MySQL
	case strings.Contains(driver, "hsql"):
		return HSQLDB
	case strings.Contains(driver, "db2"):
		return DB2
	case strings.Contains(driver, "sqlserver"), strings.Contains(driver, "mssql"):
		return SQLServer
	case strings.Contains(driver, "interbase"), strings.Contains(driver, "firebird"):
		return Interbase
	default:
		return Unknown
	}
}

func TestSQL(driver string) string {
	return DetectDatabaseType(driver).TestSQL()
}
