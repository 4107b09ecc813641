package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"csvhouse/internal/domain"
	"csvhouse/internal/etl"
)

// ── JSON File Source ────────────────────────────────────────
// Reads Records from a local JSON file holding an array of objects.

type jsonFileSource struct{}

func init() { etl.RegisterSource(&jsonFileSource{}) }

func (s *jsonFileSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  "json_file",
		Label: "JSON File",
		ConfigFields: []etl.ConfigField{
			{Key: "filePath", Label: "File Path", Type: "file", Required: true, Help: "Path to the JSON file"},
			{Key: "dataPath", Label: "Data Path", Type: "string", Required: false, Help: "Dot-separated path to the array (e.g., 'data.items'). Leave empty if root is an array."},
		},
	}
}

func (s *jsonFileSource) Discover(ctx context.Context, cfg etl.SourceConfig) (*etl.Schema, error) {
	if _, err := readJSONFile(cfg); err != nil {
		return nil, err
	}
	return etl.RecordSchema, nil
}

func (s *jsonFileSource) Read(ctx context.Context, cfg etl.SourceConfig) (<-chan domain.Record, <-chan error) {
	return emitAll(ctx, func() ([]domain.Record, error) { return readJSONFile(cfg) })
}

// emitAll runs load in a goroutine and streams its records.
func emitAll(ctx context.Context, load func() ([]domain.Record, error)) (<-chan domain.Record, <-chan error) {
	out := make(chan domain.Record, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		records, err := load()
		if err != nil {
			errCh <- err
			return
		}
		for _, rec := range records {
			select {
			case out <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, errCh
}

func readJSONFile(cfg etl.SourceConfig) ([]domain.Record, error) {
	filePath := etl.ConfigString(cfg, "filePath")
	if filePath == "" {
		return nil, domain.Errorf(domain.ErrSource, "read json", "filePath is required")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, domain.Wrap(domain.ErrSource, "read json", fmt.Errorf("read file: %w", err))
	}
	records, err := decodeRecords(data, etl.ConfigString(cfg, "dataPath"))
	if err != nil {
		return nil, domain.Wrap(domain.ErrSource, "read json", fmt.Errorf("%s: %w", filePath, err))
	}
	return records, nil
}

// decodeRecords parses a JSON document, walks to dataPath and converts
// every object of the array found there into a Record.
func decodeRecords(data []byte, dataPath string) ([]domain.Record, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	if dataPath != "" {
		var ok bool
		if raw, ok = navigatePath(raw, dataPath); !ok {
			return nil, fmt.Errorf("invalid data path: %q not found", dataPath)
		}
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array of objects")
	}

	records := make([]domain.Record, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("item %d: expected an object", i)
		}
		rec, err := objectToRecord(obj)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// navigatePath walks a dot-separated path into nested maps.
func navigatePath(obj any, path string) (any, bool) {
	current := obj
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = m[part]; !ok {
			return nil, false
		}
	}
	return current, true
}

// objectToRecord maps object keys onto Record fields the same way CSV
// headers are matched.
func objectToRecord(obj map[string]any) (domain.Record, error) {
	headers := make([]string, 0, len(obj))
	row := make([]string, 0, len(obj))
	for k, v := range obj {
		headers = append(headers, k)
		row = append(row, scalarText(v))
	}
	idx, err := etl.HeaderIndex(headers)
	if err != nil {
		return domain.Record{}, err
	}
	return etl.ParseRecord(row, idx)
}

func scalarText(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case nil:
		return ""
	default:
		b, _ := json.Marshal(val)
		return string(b)
	}
}
