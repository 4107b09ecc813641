package dbclient

import (
	"csvhouse/internal/domain"

	_ "modernc.org/sqlite"
)

// newSQLiteConnector creates a connector for a SQLite file named by Host.
// WAL and a busy timeout let partition writers share the file.
func newSQLiteConnector(conn *domain.StoreConnection) (*sqlConnector, error) {
	dsn := conn.Host + "?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"
	return newSQLConnector(dialectSQLite, dsn, conn.QueryTimeout)
}
