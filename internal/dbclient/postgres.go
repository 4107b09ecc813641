package dbclient

import (
	"fmt"

	"csvhouse/internal/domain"

	_ "github.com/lib/pq"
)

// buildPostgresDSN constructs a Postgres connection string from a StoreConnection.
func buildPostgresDSN(conn *domain.StoreConnection) string {
	port := conn.Port
	if port == 0 {
		port = 5432
	}
	sslMode := conn.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		conn.Host, port, conn.Username, conn.Password, conn.Database, sslMode,
	)
	if conn.DialTimeout > 0 {
		dsn += fmt.Sprintf(" connect_timeout=%d", int(conn.DialTimeout.Seconds()))
	}
	return dsn
}
