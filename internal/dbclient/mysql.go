package dbclient

import (
	"fmt"

	"csvhouse/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

// buildMySQLDSN constructs a MySQL DSN from a StoreConnection.
func buildMySQLDSN(conn *domain.StoreConnection) string {
	port := conn.Port
	if port == 0 {
		port = 3306
	}
	// Format: user:password@tcp(host:port)/dbname?charset=utf8mb4
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4",
		conn.Username, conn.Password, conn.Host, port, conn.Database,
	)
	if conn.DialTimeout > 0 {
		dsn += "&timeout=" + conn.DialTimeout.String()
	}
	if conn.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}
