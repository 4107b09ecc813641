package dbclient

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"csvhouse/internal/domain"
)

// clickHouseDDL creates the MergeTree record table ordered by id.
const clickHouseDDL = "CREATE TABLE IF NOT EXISTS %s (id Int32, name String, surname String, age Int32, salary Float32) ENGINE = MergeTree() ORDER BY id"

// clickHouseConnector talks to ClickHouse over the native protocol.
type clickHouseConnector struct {
	conn         driver.Conn
	queryTimeout time.Duration
}

func clickHouseOptions(conn *domain.StoreConnection) *clickhouse.Options {
	port := conn.Port
	if port == 0 {
		port = 9000
	}
	database := conn.Database
	if database == "" {
		database = "default"
	}
	username := conn.Username
	if username == "" {
		username = "default"
	}
	return &clickhouse.Options{
		Addr: []string{net.JoinHostPort(conn.Host, strconv.Itoa(port))},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: conn.Password,
		},
		DialTimeout: dialTimeout(conn),
	}
}

func newClickHouseConnector(conn *domain.StoreConnection) (*clickHouseConnector, error) {
	c, err := clickhouse.Open(clickHouseOptions(conn))
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	return &clickHouseConnector{conn: c, queryTimeout: conn.QueryTimeout}, nil
}

func (c *clickHouseConnector) TestConnection(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *clickHouseConnector) EnsureSchema(ctx context.Context, table string) error {
	if err := checkIdent(domain.ErrSchema, "ensure schema", table); err != nil {
		return err
	}
	ctx, cancel := withQueryTimeout(ctx, c.queryTimeout)
	defer cancel()

	if err := c.conn.Exec(ctx, fmt.Sprintf(clickHouseDDL, table)); err != nil {
		return domain.Wrap(domain.ErrSchema, "ensure schema", fmt.Errorf("%s: %w", table, err))
	}
	return nil
}

// InsertRecords sends every record in one native batch.
func (c *clickHouseConnector) InsertRecords(ctx context.Context, table string, records []domain.Record) (int, error) {
	if err := checkIdent(domain.ErrInsert, "insert", table); err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	ctx, cancel := withQueryTimeout(ctx, c.queryTimeout)
	defer cancel()

	query := fmt.Sprintf("INSERT INTO %s (%s)", table, strings.Join(domain.Columns, ", "))
	batch, err := c.conn.PrepareBatch(ctx, query)
	if err != nil {
		return 0, domain.Wrap(domain.ErrInsert, "insert", fmt.Errorf("prepare batch: %w", err))
	}
	for _, r := range records {
		if err := batch.Append(r.Values()...); err != nil {
			batch.Abort()
			return 0, domain.Wrap(domain.ErrInsert, "insert", fmt.Errorf("append row %d: %w", r.ID, err))
		}
	}
	if err := batch.Send(); err != nil {
		return 0, domain.Wrap(domain.ErrInsert, "insert", fmt.Errorf("send batch: %w", err))
	}
	return len(records), nil
}

func (c *clickHouseConnector) SelectRecords(ctx context.Context, table string) ([]domain.Record, error) {
	if err := checkIdent(domain.ErrQuery, "select", table); err != nil {
		return nil, err
	}
	ctx, cancel := withQueryTimeout(ctx, c.queryTimeout)
	defer cancel()

	rows, err := c.conn.Query(ctx, fmt.Sprintf("SELECT %s FROM %s", strings.Join(domain.Columns, ", "), table))
	if err != nil {
		return nil, domain.Wrap(domain.ErrQuery, "select", err)
	}
	defer rows.Close()

	var out []domain.Record
	for rows.Next() {
		var r domain.Record
		if err := rows.Scan(&r.ID, &r.Name, &r.Surname, &r.Age, &r.Salary); err != nil {
			return nil, domain.Wrap(domain.ErrQuery, "select", fmt.Errorf("scan row: %w", err))
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Wrap(domain.ErrQuery, "select", fmt.Errorf("iterate: %w", err))
	}
	return out, nil
}

func (c *clickHouseConnector) SelectColumn(ctx context.Context, table, column string) ([]float64, error) {
	if err := checkIdent(domain.ErrQuery, "select column", table); err != nil {
		return nil, err
	}
	if err := checkIdent(domain.ErrQuery, "select column", column); err != nil {
		return nil, err
	}
	ctx, cancel := withQueryTimeout(ctx, c.queryTimeout)
	defer cancel()

	// The native driver scans strictly by type, so widen server-side.
	rows, err := c.conn.Query(ctx, fmt.Sprintf("SELECT toFloat64(%s) FROM %s", column, table))
	if err != nil {
		return nil, domain.Wrap(domain.ErrQuery, "select column", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, domain.Wrap(domain.ErrQuery, "select column", fmt.Errorf("%s: %w", column, err))
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Wrap(domain.ErrQuery, "select column", fmt.Errorf("iterate: %w", err))
	}
	return out, nil
}

func (c *clickHouseConnector) Close() error {
	return c.conn.Close()
}
