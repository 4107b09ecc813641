package mcpserver

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvhouse/internal/config"
	"csvhouse/internal/domain"
	"csvhouse/internal/etl"
	"csvhouse/internal/report"
	"csvhouse/internal/service"
	"csvhouse/internal/storage"
)

const sampleCSV = "id,name,surname,age,salary\n1,John,Malkovich,30,50000.5\n2,Kate,Darison,41,72000\n3,Mark,Zakerberg,25,61000\n"

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(sampleCSV), 0o644))

	cfg := config.Default()
	cfg.Store.Driver = domain.StoreDriverSQLite
	cfg.Store.Host = filepath.Join(dir, "store.db")
	cfg.Source.Path = csvPath
	cfg.Synthetic.Rows = 50
	cfg.Synthetic.Seed = 3
	cfg.Partition.Count = 2
	cfg.Partition.Workers = 2
	for i := range cfg.Reports {
		cfg.Reports[i].Output = filepath.Join(dir, cfg.Reports[i].Output)
	}

	db, err := storage.New(filepath.Join(dir, "csvhouse.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := service.NewPipelineService(cfg, storage.NewRunStore(db), service.LogEmitter{})
	return New(svc), csvPath
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestHandleRunPipeline(t *testing.T) {
	s, _ := newTestServer(t)

	res, err := s.handleRunPipeline(context.Background(), callRequest(map[string]any{"command": "load"}))
	require.NoError(t, err)

	var out etl.SyncResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, "success", out.Status)
	assert.Equal(t, 3, out.RowsWritten)
	assert.Equal(t, 3, out.RowsReadBack)
}

func TestHandleRunPipeline_UnknownCommand(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.handleRunPipeline(context.Background(), callRequest(map[string]any{"command": "explode"}))
	assert.Error(t, err)
}

func TestHandleLoadFile(t *testing.T) {
	s, csvPath := newTestServer(t)

	_, err := s.handleLoadFile(context.Background(), callRequest(map[string]any{}))
	assert.Error(t, err)

	res, err := s.handleLoadFile(context.Background(), callRequest(map[string]any{"path": csvPath}))
	require.NoError(t, err)
	var out etl.SyncResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, 3, out.RowsRead)
}

func TestHandleLoadFile_MissingFileReturnsFailedRun(t *testing.T) {
	s, _ := newTestServer(t)

	res, err := s.handleLoadFile(context.Background(), callRequest(map[string]any{"path": "/no/such/file.csv"}))
	require.NoError(t, err)
	var out etl.SyncResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, "error", out.Status)
	assert.NotEmpty(t, out.Error)
}

func TestHandleColumnHistogram(t *testing.T) {
	s, csvPath := newTestServer(t)
	ctx := context.Background()
	_, err := s.handleLoadFile(ctx, callRequest(map[string]any{"path": csvPath}))
	require.NoError(t, err)

	res, err := s.handleColumnHistogram(ctx, callRequest(map[string]any{"column": "age", "bins": float64(4)}))
	require.NoError(t, err)

	var h report.Histogram
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &h))
	assert.Len(t, h.Buckets, 4)
	assert.Equal(t, 3, h.Total)
	assert.Equal(t, 25.0, h.Buckets[0].Min)
	assert.Equal(t, 41.0, h.Buckets[3].Max)

	for _, bins := range []float64{0, -3, report.MaxBins + 1, 1e12, 1e300} {
		_, err = s.handleColumnHistogram(ctx, callRequest(map[string]any{"column": "age", "bins": bins}))
		assert.Error(t, err, "bins=%v", bins)
	}
	_, err = s.handleColumnHistogram(ctx, callRequest(map[string]any{}))
	assert.Error(t, err)
}

func TestHandleListRuns(t *testing.T) {
	s, csvPath := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleListRuns(ctx, callRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded yet", resultText(t, res))

	_, err = s.handleLoadFile(ctx, callRequest(map[string]any{"path": csvPath}))
	require.NoError(t, err)
	_, err = s.handleLoadFile(ctx, callRequest(map[string]any{"path": csvPath}))
	require.NoError(t, err)

	res, err = s.handleListRuns(ctx, callRequest(map[string]any{"limit": float64(1)}))
	require.NoError(t, err)
	var runs []domain.LoadRun
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunSuccess, runs[0].Status)
}

func TestHandleListSources(t *testing.T) {
	s, _ := newTestServer(t)

	res, err := s.handleListSources(context.Background(), callRequest(nil))
	require.NoError(t, err)
	var specs []etl.SourceSpec
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &specs))

	var types []string
	for _, sp := range specs {
		types = append(types, sp.Type)
	}
	assert.Contains(t, types, "csv_file")
	assert.Contains(t, types, "synthetic")
}

func TestHandlePreviewSource(t *testing.T) {
	s, csvPath := newTestServer(t)
	cfgJSON, err := json.Marshal(map[string]any{"filePath": csvPath})
	require.NoError(t, err)

	res, err := s.handlePreviewSource(context.Background(), callRequest(map[string]any{
		"sourceType":       "csv_file",
		"sourceConfigJSON": string(cfgJSON),
		"rows":             float64(2),
	}))
	require.NoError(t, err)

	var rows []domain.Record
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "Malkovich", rows[0].Surname)

	_, err = s.handlePreviewSource(context.Background(), callRequest(map[string]any{
		"sourceType":       "csv_file",
		"sourceConfigJSON": "{not json",
	}))
	assert.Error(t, err)
}

func TestIntArg(t *testing.T) {
	args := map[string]any{"a": float64(7), "b": 3, "c": "x", "big": 1e300, "nan": math.NaN()}
	assert.Equal(t, 7, intArg(args, "a", 1))
	assert.Equal(t, math.MaxInt32, intArg(args, "big", 1))
	assert.Equal(t, 1, intArg(args, "nan", 1))
	assert.Equal(t, 3, intArg(args, "b", 1))
	assert.Equal(t, 1, intArg(args, "c", 1))
	assert.Equal(t, 1, intArg(args, "missing", 1))
}
