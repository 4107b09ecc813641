package dbclient

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvhouse/internal/domain"
)

func openSQLite(t *testing.T) Connector {
	t.Helper()
	conn := &domain.StoreConnection{
		Driver: domain.StoreDriverSQLite,
		Host:   filepath.Join(t.TempDir(), "store.db"),
	}
	c, err := NewConnector(context.Background(), conn)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClickHouseDDL(t *testing.T) {
	want := "CREATE TABLE IF NOT EXISTS data_table (id Int32, name String, surname String, age Int32, salary Float32) ENGINE = MergeTree() ORDER BY id"
	assert.Equal(t, want, fmt.Sprintf(clickHouseDDL, "data_table"))
}

func TestClickHouseOptions_Defaults(t *testing.T) {
	opts := clickHouseOptions(&domain.StoreConnection{Host: "localhost"})
	assert.Equal(t, []string{"localhost:9000"}, opts.Addr)
	assert.Equal(t, "default", opts.Auth.Database)
	assert.Equal(t, "default", opts.Auth.Username)
	assert.Equal(t, 10*time.Second, opts.DialTimeout)
}

func TestBuildDSNs(t *testing.T) {
	conn := &domain.StoreConnection{
		Host: "db.local", Database: "analytics", Username: "etl", Password: "pw",
	}
	assert.Equal(t,
		"host=db.local port=5432 user=etl password=pw dbname=analytics sslmode=disable",
		buildPostgresDSN(conn))
	assert.Equal(t,
		"etl:pw@tcp(db.local:3306)/analytics?charset=utf8mb4",
		buildMySQLDSN(conn))
	assert.Equal(t, "mongodb://etl:pw@db.local:27017", buildMongoURI(conn))

	atlas := &domain.StoreConnection{Host: "mongodb+srv://etl:<password>@cluster0.example.net", Password: "pw"}
	assert.Equal(t, "mongodb+srv://etl:pw@cluster0.example.net", buildMongoURI(atlas))
}

func TestNewConnector_Unsupported(t *testing.T) {
	_, err := NewConnector(context.Background(), &domain.StoreConnection{Driver: "oracle"})
	assert.ErrorIs(t, err, domain.ErrConnection)
}

func TestNewConnector_Unreachable(t *testing.T) {
	conn := &domain.StoreConnection{
		Driver: domain.StoreDriverSQLite,
		Host:   filepath.Join(t.TempDir(), "missing", "dir", "store.db"),
	}
	_, err := NewConnector(context.Background(), conn)
	assert.ErrorIs(t, err, domain.ErrConnection)
}

func TestSQLite_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := openSQLite(t)

	require.NoError(t, c.EnsureSchema(ctx, "data_table"))
	// Idempotent.
	require.NoError(t, c.EnsureSchema(ctx, "data_table"))

	in := []domain.Record{
		{ID: 1, Name: "John", Surname: "Malkovich", Age: 30, Salary: 50000.5},
		{ID: 2, Name: "Kate", Surname: "Darison", Age: 41, Salary: 72000},
	}
	n, err := c.InsertRecords(ctx, "data_table", in)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	out, err := c.SelectRecords(ctx, "data_table")
	require.NoError(t, err)
	assert.Equal(t, in, out)

	ages, err := c.SelectColumn(ctx, "data_table", "age")
	require.NoError(t, err)
	assert.ElementsMatch(t, []float64{30, 41}, ages)

	salaries, err := c.SelectColumn(ctx, "data_table", "salary")
	require.NoError(t, err)
	assert.ElementsMatch(t, []float64{50000.5, 72000}, salaries)
}

func TestSQLite_DuplicatesAppend(t *testing.T) {
	ctx := context.Background()
	c := openSQLite(t)
	require.NoError(t, c.EnsureSchema(ctx, "data_table"))

	rec := []domain.Record{{ID: 7, Name: "Anna", Surname: "Petrovich", Age: 25, Salary: 31000}}
	for i := 0; i < 2; i++ {
		_, err := c.InsertRecords(ctx, "data_table", rec)
		require.NoError(t, err)
	}
	out, err := c.SelectRecords(ctx, "data_table")
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestSQLite_EmptyInsert(t *testing.T) {
	c := openSQLite(t)
	n, err := c.InsertRecords(context.Background(), "data_table", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLite_Errors(t *testing.T) {
	ctx := context.Background()
	c := openSQLite(t)

	_, err := c.SelectRecords(ctx, "no_such_table")
	assert.ErrorIs(t, err, domain.ErrQuery)

	require.NoError(t, c.EnsureSchema(ctx, "data_table"))
	_, err = c.SelectColumn(ctx, "data_table", "height")
	assert.ErrorIs(t, err, domain.ErrQuery)

	_, err = c.SelectColumn(ctx, "data_table", "age; DROP TABLE data_table")
	assert.ErrorIs(t, err, domain.ErrQuery)

	assert.ErrorIs(t, c.EnsureSchema(ctx, "bad name"), domain.ErrSchema)

	_, err = c.InsertRecords(ctx, "no_such_table", []domain.Record{{ID: 1}})
	assert.ErrorIs(t, err, domain.ErrInsert)
}

func TestSQLite_SelectColumnOnlyFromPopulatedTable(t *testing.T) {
	ctx := context.Background()
	c := openSQLite(t)
	require.NoError(t, c.EnsureSchema(ctx, "data_table"))
	_, err := c.InsertRecords(ctx, "data_table", []domain.Record{
		{ID: 1, Name: "John", Surname: "Malkovich", Age: 30, Salary: 50000.5},
	})
	require.NoError(t, err)

	ages, err := c.SelectColumn(ctx, "data_table", "age")
	require.NoError(t, err)
	assert.Equal(t, []float64{30}, ages)

	_, err = c.SelectColumn(ctx, "my_table", "age")
	assert.ErrorIs(t, err, domain.ErrQuery)
}

func TestSQL_ChunkedInsertIsOneBatch(t *testing.T) {
	ctx := context.Background()
	dialect := dialectSQLite
	dialect.maxParams = 10 // two rows per statement

	path := filepath.Join(t.TempDir(), "store.db")
	c, err := newSQLConnector(dialect, path, 0)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.EnsureSchema(ctx, "data_table"))

	var in []domain.Record
	for i := int32(1); i <= 7; i++ {
		in = append(in, domain.Record{ID: i, Name: "Mike", Surname: "Adriano", Age: 20 + i, Salary: 40000})
	}
	n, err := c.InsertRecords(ctx, "data_table", in)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	out, err := c.SelectRecords(ctx, "data_table")
	require.NoError(t, err)
	assert.Len(t, out, 7)
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("data_table"))
	assert.True(t, ValidIdentifier("_t1"))
	assert.False(t, ValidIdentifier("1t"))
	assert.False(t, ValidIdentifier("a-b"))
	assert.False(t, ValidIdentifier(""))
}
