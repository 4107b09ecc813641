package dbclient

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"csvhouse/internal/domain"
)

// Connector abstracts interaction with the analytical store.
type Connector interface {
	// TestConnection verifies connectivity.
	TestConnection(ctx context.Context) error

	// EnsureSchema creates the record table when it does not exist.
	// An existing table is never altered.
	EnsureSchema(ctx context.Context, table string) error

	// InsertRecords submits all records as one batch and returns the
	// number of rows the store accepted.
	InsertRecords(ctx context.Context, table string, records []domain.Record) (int, error)

	// SelectRecords returns every row of the table.
	SelectRecords(ctx context.Context, table string) ([]domain.Record, error)

	// SelectColumn returns one numeric column of the table.
	SelectColumn(ctx context.Context, table, column string) ([]float64, error)

	// Close releases the connection.
	Close() error
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether name is safe to splice into a statement.
func ValidIdentifier(name string) bool {
	return identRe.MatchString(name)
}

func checkIdent(kind error, op, name string) error {
	if !ValidIdentifier(name) {
		return domain.Errorf(kind, op, "invalid identifier %q", name)
	}
	return nil
}

// NewConnector opens a Connector for the given store and verifies it is
// reachable. Any failure is an ErrConnection.
func NewConnector(ctx context.Context, conn *domain.StoreConnection) (Connector, error) {
	var (
		c   Connector
		err error
	)
	switch conn.Driver {
	case domain.StoreDriverClickHouse, "":
		c, err = newClickHouseConnector(conn)
	case domain.StoreDriverSQLite:
		c, err = newSQLiteConnector(conn)
	case domain.StoreDriverMySQL:
		c, err = newSQLConnector(dialectMySQL, buildMySQLDSN(conn), conn.QueryTimeout)
	case domain.StoreDriverPostgres:
		c, err = newSQLConnector(dialectPostgres, buildPostgresDSN(conn), conn.QueryTimeout)
	case domain.StoreDriverMongoDB:
		c, err = newMongoConnector(ctx, conn)
	default:
		return nil, domain.Errorf(domain.ErrConnection, "connect", "unsupported driver: %s", conn.Driver)
	}
	if err != nil {
		return nil, domain.Wrap(domain.ErrConnection, "connect", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout(conn))
	defer cancel()
	if err := c.TestConnection(pingCtx); err != nil {
		c.Close()
		return nil, domain.Wrap(domain.ErrConnection, "connect", fmt.Errorf("%s %s: %w", conn.Driver, conn.Host, err))
	}
	return c, nil
}

func dialTimeout(conn *domain.StoreConnection) time.Duration {
	if conn.DialTimeout > 0 {
		return conn.DialTimeout
	}
	return 10 * time.Second
}

// withQueryTimeout bounds ctx by the configured query timeout; zero means
// no limit.
func withQueryTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
