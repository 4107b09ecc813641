package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"csvhouse/internal/domain"
)

// sqlDialect holds what differs between the database/sql backends.
type sqlDialect struct {
	driverName string
	// createTable returns the statements that create the table and its id index.
	createTable func(table string) []string
	// placeholder renders the n-th (1-based) bind parameter.
	placeholder func(n int) string
	// maxParams caps bind parameters per statement.
	maxParams int
	// copyIn loads through COPY FROM STDIN instead of multi-row VALUES.
	copyIn bool
}

func questionMark(int) string { return "?" }

var dialectSQLite = sqlDialect{
	driverName: "sqlite",
	createTable: func(t string) []string {
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER NOT NULL,
	name TEXT NOT NULL,
	surname TEXT NOT NULL,
	age INTEGER NOT NULL,
	salary REAL NOT NULL
)`, t),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_id_idx ON %s (id)", t, t),
		}
	},
	placeholder: questionMark,
	maxParams:   32766,
}

var dialectPostgres = sqlDialect{
	driverName: "postgres",
	createTable: func(t string) []string {
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER NOT NULL,
	name TEXT NOT NULL,
	surname TEXT NOT NULL,
	age INTEGER NOT NULL,
	salary REAL NOT NULL
)`, t),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_id_idx ON %s (id)", t, t),
		}
	},
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	maxParams:   65535,
	copyIn:      true,
}

var dialectMySQL = sqlDialect{
	driverName: "mysql",
	createTable: func(t string) []string {
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INT NOT NULL,
	name VARCHAR(255) NOT NULL,
	surname VARCHAR(255) NOT NULL,
	age INT NOT NULL,
	salary FLOAT NOT NULL,
	INDEX %s_id_idx (id)
)`, t, t),
		}
	},
	placeholder: questionMark,
	maxParams:   65535,
}

// sqlConnector is the shared implementation for MySQL, Postgres, and SQLite.
type sqlConnector struct {
	dialect      sqlDialect
	db           *sql.DB
	queryTimeout time.Duration
}

// newSQLConnector creates a generic SQL connector.
func newSQLConnector(dialect sqlDialect, dsn string, queryTimeout time.Duration) (*sqlConnector, error) {
	db, err := sql.Open(dialect.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.driverName, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	return &sqlConnector{dialect: dialect, db: db, queryTimeout: queryTimeout}, nil
}

func (c *sqlConnector) TestConnection(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *sqlConnector) EnsureSchema(ctx context.Context, table string) error {
	if err := checkIdent(domain.ErrSchema, "ensure schema", table); err != nil {
		return err
	}
	ctx, cancel := withQueryTimeout(ctx, c.queryTimeout)
	defer cancel()

	for _, stmt := range c.dialect.createTable(table) {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return domain.Wrap(domain.ErrSchema, "ensure schema", fmt.Errorf("%s: %w", table, err))
		}
	}
	return nil
}

func (c *sqlConnector) InsertRecords(ctx context.Context, table string, records []domain.Record) (int, error) {
	if err := checkIdent(domain.ErrInsert, "insert", table); err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	ctx, cancel := withQueryTimeout(ctx, c.queryTimeout)
	defer cancel()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, domain.Wrap(domain.ErrInsert, "insert", fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	var n int
	if c.dialect.copyIn {
		n, err = c.copyRecords(ctx, tx, table, records)
	} else {
		n, err = c.insertValues(ctx, tx, table, records)
	}
	if err != nil {
		return 0, domain.Wrap(domain.ErrInsert, "insert", fmt.Errorf("%s: %w", table, err))
	}
	if err := tx.Commit(); err != nil {
		return 0, domain.Wrap(domain.ErrInsert, "insert", fmt.Errorf("commit: %w", err))
	}
	return n, nil
}

// insertValues writes records as multi-row VALUES statements, each sized
// under the dialect's bind parameter cap.
func (c *sqlConnector) insertValues(ctx context.Context, tx *sql.Tx, table string, records []domain.Record) (int, error) {
	width := len(domain.Columns)
	chunk := c.dialect.maxParams / width
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", table, strings.Join(domain.Columns, ", "))

	total := 0
	for start := 0; start < len(records); start += chunk {
		end := min(start+chunk, len(records))
		rows := records[start:end]

		var b strings.Builder
		b.WriteString(prefix)
		args := make([]any, 0, len(rows)*width)
		for i, r := range rows {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('(')
			for j := 0; j < width; j++ {
				if j > 0 {
					b.WriteString(", ")
				}
				b.WriteString(c.dialect.placeholder(len(args) + j + 1))
			}
			b.WriteByte(')')
			args = append(args, r.Values()...)
		}

		res, err := tx.ExecContext(ctx, b.String(), args...)
		if err != nil {
			return 0, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			affected = int64(len(rows))
		}
		total += int(affected)
	}
	return total, nil
}

// copyRecords streams records through COPY, the Postgres bulk path.
func (c *sqlConnector) copyRecords(ctx context.Context, tx *sql.Tx, table string, records []domain.Record) (int, error) {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, domain.Columns...))
	if err != nil {
		return 0, fmt.Errorf("prepare copy: %w", err)
	}
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Values()...); err != nil {
			stmt.Close()
			return 0, fmt.Errorf("copy row %d: %w", r.ID, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return 0, fmt.Errorf("flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return 0, fmt.Errorf("close copy: %w", err)
	}
	return len(records), nil
}

func (c *sqlConnector) SelectRecords(ctx context.Context, table string) ([]domain.Record, error) {
	if err := checkIdent(domain.ErrQuery, "select", table); err != nil {
		return nil, err
	}
	ctx, cancel := withQueryTimeout(ctx, c.queryTimeout)
	defer cancel()

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(domain.Columns, ", "), table)
	rows, err := c.db.QueryContext(ctx, query)
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

func (c *sqlConnector) SelectColumn(ctx context.Context, table, column string) ([]float64, error) {
	if err := checkIdent(domain.ErrQuery, "select column", table); err != nil {
		return nil, err
	}
	if err := checkIdent(domain.ErrQuery, "select column", column); err != nil {
		return nil, err
	}
	ctx, cancel := withQueryTimeout(ctx, c.queryTimeout)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s", column, table))
	if err != nil {
		return nil, domain.Wrap(domain.ErrQuery, "select column", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v sql.NullFloat64
		if err := rows.Scan(&v); err != nil {
			return nil, domain.Wrap(domain.ErrQuery, "select column", fmt.Errorf("%s: %w", column, err))
		}
		if v.Valid {
			out = append(out, v.Float64)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Wrap(domain.ErrQuery, "select column", fmt.Errorf("iterate: %w", err))
	}
	return out, nil
}

func (c *sqlConnector) Close() error {
	return c.db.Close()
}
