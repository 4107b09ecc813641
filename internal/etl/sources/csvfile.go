package sources

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"csvhouse/internal/domain"
	"csvhouse/internal/etl"
)

// ── CSV File Source ─────────────────────────────────────────
// Reads Records from a local delimited file with a header row.

type csvFileSource struct{}

func init() { etl.RegisterSource(&csvFileSource{}) }

func (s *csvFileSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  "csv_file",
		Label: "CSV File",
		ConfigFields: []etl.ConfigField{
			{Key: "filePath", Label: "File Path", Type: "file", Required: true, Help: "Path to the delimited file"},
			{Key: "delimiter", Label: "Delimiter", Type: "string", Required: false, Default: ",", Help: `Column delimiter (default: comma, "\t" for tab)`},
		},
	}
}

// Discover opens the file and validates its header.
func (s *csvFileSource) Discover(ctx context.Context, cfg etl.SourceConfig) (*etl.Schema, error) {
	f, reader, err := openCSV(cfg)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := readHeader(reader, etl.ConfigString(cfg, "filePath")); err != nil {
		return nil, err
	}
	return etl.RecordSchema, nil
}

func (s *csvFileSource) Read(ctx context.Context, cfg etl.SourceConfig) (<-chan domain.Record, <-chan error) {
	out := make(chan domain.Record, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		if err := streamCSV(ctx, cfg, out); err != nil {
			errCh <- err
		}
	}()

	return out, errCh
}

func openCSV(cfg etl.SourceConfig) (*os.File, *csv.Reader, error) {
	filePath := etl.ConfigString(cfg, "filePath")
	if filePath == "" {
		return nil, nil, domain.Errorf(domain.ErrSource, "read csv", "filePath is required")
	}
	comma, err := parseDelimiter(etl.ConfigString(cfg, "delimiter"))
	if err != nil {
		return nil, nil, domain.Wrap(domain.ErrSource, "read csv", err)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, nil, domain.Wrap(domain.ErrSource, "read csv", fmt.Errorf("open file: %w", err))
	}

	reader := csv.NewReader(f)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true
	return f, reader, nil
}

func parseDelimiter(d string) (rune, error) {
	switch d {
	case "":
		return ',', nil
	case `\t`, "tab":
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(d)
	if size != len(d) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("invalid delimiter %q", d)
	}
	return r, nil
}

func readHeader(reader *csv.Reader, path string) (map[string]int, error) {
	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, domain.Errorf(domain.ErrSource, "read csv", "%s: empty file", path)
	}
	if err != nil {
		return nil, domain.Wrap(domain.ErrSource, "read csv", fmt.Errorf("%s: %w", path, err))
	}
	idx, err := etl.HeaderIndex(headers)
	if err != nil {
		return nil, domain.Wrap(domain.ErrSource, "read csv", fmt.Errorf("%s:1: %w", path, err))
	}
	return idx, nil
}

func streamCSV(ctx context.Context, cfg etl.SourceConfig, out chan<- domain.Record) error {
	f, reader, err := openCSV(cfg)
	if err != nil {
		return err
	}
	defer f.Close()

	path := f.Name()
	idx, err := readHeader(reader, path)
	if err != nil {
		return err
	}
	width := 0
	for _, i := range idx {
		width = max(width, i+1)
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			// csv.ParseError already names the line
			return domain.Wrap(domain.ErrSource, "read csv", fmt.Errorf("%s: %w", path, err))
		}
		line, _ := reader.FieldPos(0)
		if len(row) == 1 && row[0] == "" {
			continue
		}
		if len(row) < width {
			return domain.Errorf(domain.ErrSource, "read csv", "%s:%d: expected at least %d fields, got %d", path, line, width, len(row))
		}
		rec, err := etl.ParseRecord(row, idx)
		if err != nil {
			return domain.Wrap(domain.ErrSource, "read csv", fmt.Errorf("%s:%d: %w", path, line, err))
		}
		select {
		case out <- rec:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
