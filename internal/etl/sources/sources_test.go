package sources_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvhouse/internal/dbclient"
	"csvhouse/internal/domain"
	"csvhouse/internal/etl"
	"csvhouse/internal/etl/sources"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readCSV(t *testing.T, content string) (domain.Table, error) {
	t.Helper()
	path := writeFile(t, "data.csv", content)
	return etl.ReadTable(context.Background(), "csv_file", etl.SourceConfig{"filePath": path})
}

func TestCSV_SingleRow(t *testing.T) {
	table, err := readCSV(t, "id,name,surname,age,salary\n1,John,Malkovich,30,50000.5\n")
	require.NoError(t, err)
	assert.Equal(t, domain.Table{{ID: 1, Name: "John", Surname: "Malkovich", Age: 30, Salary: 50000.5}}, table)
}

func TestCSV_ReorderedHeaderAndExtraColumns(t *testing.T) {
	table, err := readCSV(t, " Salary ,AGE,id,city,surname,name\n50000.5,30.0,1,Rome,Malkovich,John\n")
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Equal(t, domain.Record{ID: 1, Name: "John", Surname: "Malkovich", Age: 30, Salary: 50000.5}, table[0])
}

func TestCSV_HeaderOnly(t *testing.T) {
	table, err := readCSV(t, "id,name,surname,age,salary\n")
	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestCSV_Delimiter(t *testing.T) {
	path := writeFile(t, "data.tsv", "id\tname\tsurname\tage\tsalary\n2\tKate\tDarison\t41\t72000\n")
	table, err := etl.ReadTable(context.Background(), "csv_file", etl.SourceConfig{"filePath": path, "delimiter": `\t`})
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Equal(t, "Kate", table[0].Name)
}

func TestCSV_Errors(t *testing.T) {
	tests := map[string]struct {
		content string
		msg     string
	}{
		"empty":          {content: "", msg: "empty file"},
		"missing column": {content: "id,name,surname,age\n1,John,Malkovich,30\n", msg: "salary"},
		"bad number":     {content: "id,name,surname,age,salary\n1,John,Malkovich,thirty,5\n", msg: ":2:"},
		"short row":      {content: "id,name,surname,age,salary\n1,John\n", msg: "expected at least 5 fields"},
		"fractional age": {content: "id,name,surname,age,salary\n1,John,Malkovich,30.5,5\n", msg: "age"},
		"nan salary":     {content: "id,name,surname,age,salary\n1,John,Malkovich,30,NaN\n", msg: "not a finite number"},
		"inf salary":     {content: "id,name,surname,age,salary\n1,John,Malkovich,30,-Inf\n", msg: ":2:"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := readCSV(t, tc.content)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrSource)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestCSV_MissingFile(t *testing.T) {
	_, err := etl.ReadTable(context.Background(), "csv_file", etl.SourceConfig{"filePath": filepath.Join(t.TempDir(), "nope.csv")})
	assert.ErrorIs(t, err, domain.ErrSource)
}

func TestCSV_Discover(t *testing.T) {
	src, err := etl.GetSource("csv_file")
	require.NoError(t, err)

	path := writeFile(t, "data.csv", "id,name,surname,age,salary\n")
	schema, err := src.Discover(context.Background(), etl.SourceConfig{"filePath": path})
	require.NoError(t, err)
	assert.Equal(t, domain.Columns, schema.FieldNames())
}

func TestJSON_DataPath(t *testing.T) {
	path := writeFile(t, "data.json", `{"data":{"items":[{"id":3,"name":"Anna","surname":"Petrovich","age":25,"salary":31000.25}]}}`)
	table, err := etl.ReadTable(context.Background(), "json_file", etl.SourceConfig{"filePath": path, "dataPath": "data.items"})
	require.NoError(t, err)
	assert.Equal(t, domain.Table{{ID: 3, Name: "Anna", Surname: "Petrovich", Age: 25, Salary: 31000.25}}, table)

	_, err = etl.ReadTable(context.Background(), "json_file", etl.SourceConfig{"filePath": path, "dataPath": "data.nope"})
	assert.ErrorIs(t, err, domain.ErrSource)
}

func TestJSONURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token", r.Header.Get("X-Auth"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1,"name":"Mike","surname":"Adriano","age":33,"salary":45000}]`))
	}))
	defer srv.Close()

	table, err := etl.ReadTable(context.Background(), "json_url", etl.SourceConfig{
		"url":     srv.URL,
		"headers": `{"X-Auth":"token"}`,
	})
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Equal(t, "Mike", table[0].Name)
}

func TestJSONURL_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := etl.ReadTable(context.Background(), "json_url", etl.SourceConfig{"url": srv.URL})
	assert.ErrorIs(t, err, domain.ErrSource)
}

func TestSynthetic(t *testing.T) {
	table, err := etl.ReadTable(context.Background(), "synthetic", etl.SourceConfig{"rows": 500, "seed": 42})
	require.NoError(t, err)
	require.Len(t, table, 500)

	names := map[string]bool{"John": true, "Kate": true, "Anna": true, "Mike": true, "Valentina": true}
	surnames := map[string]bool{"Malkovich": true, "Darison": true, "Petrovich": true, "Adriano": true, "Tereshkova": true}
	for i, r := range table {
		assert.Equal(t, int32(i+1), r.ID)
		assert.True(t, names[r.Name], r.Name)
		assert.True(t, surnames[r.Surname], r.Surname)
		assert.GreaterOrEqual(t, r.Age, int32(20))
		assert.Less(t, r.Age, int32(60))
		assert.GreaterOrEqual(t, r.Salary, float32(30000))
		assert.Less(t, r.Salary, float32(120000))
	}

	again, err := etl.ReadTable(context.Background(), "synthetic", etl.SourceConfig{"rows": 500, "seed": 42})
	require.NoError(t, err)
	assert.Equal(t, table, again)
	assert.Equal(t, table, sources.Generate(500, 42))
}

func TestSynthetic_Zero(t *testing.T) {
	table, err := etl.ReadTable(context.Background(), "synthetic", etl.SourceConfig{"rows": 0})
	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestStoreTable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.db")
	conn, err := dbclient.NewConnector(ctx, &domain.StoreConnection{Driver: domain.StoreDriverSQLite, Host: path})
	require.NoError(t, err)
	require.NoError(t, conn.EnsureSchema(ctx, "people"))
	_, err = conn.InsertRecords(ctx, "people", sources.Generate(10, 7))
	require.NoError(t, err)
	conn.Close()

	table, err := etl.ReadTable(ctx, "store_table", etl.SourceConfig{"driver": "sqlite", "host": path, "table": "people"})
	require.NoError(t, err)
	assert.Len(t, table, 10)

	_, err = etl.ReadTable(ctx, "store_table", etl.SourceConfig{"driver": "sqlite", "host": path, "table": "bad name"})
	assert.ErrorIs(t, err, domain.ErrSource)
}

func TestListSources(t *testing.T) {
	var types []string
	for _, s := range etl.ListSources() {
		types = append(types, s.Type)
	}
	assert.Equal(t, []string{"csv_file", "json_file", "json_url", "store_table", "synthetic"}, types)
}
