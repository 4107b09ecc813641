package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"csvhouse/internal/domain"
	"csvhouse/internal/etl"
)

// ── HTTP Source ─────────────────────────────────────────────
// Fetches a JSON array of Records from a REST endpoint.

type httpSource struct{}

func init() { etl.RegisterSource(&httpSource{}) }

func (s *httpSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  "json_url",
		Label: "JSON over HTTP",
		ConfigFields: []etl.ConfigField{
			{Key: "url", Label: "URL", Type: "string", Required: true, Help: "Endpoint returning the records as JSON"},
			{Key: "headers", Label: "Headers", Type: "string", Required: false, Help: "JSON object of headers (e.g., {\"Authorization\": \"Bearer xxx\"})"},
			{Key: "dataPath", Label: "Data Path", Type: "string", Required: false, Help: "Dot-separated path to the array in the response (e.g., 'data.items')"},
		},
	}
}

func (s *httpSource) Discover(ctx context.Context, cfg etl.SourceConfig) (*etl.Schema, error) {
	if _, err := fetchHTTP(ctx, cfg); err != nil {
		return nil, err
	}
	return etl.RecordSchema, nil
}

func (s *httpSource) Read(ctx context.Context, cfg etl.SourceConfig) (<-chan domain.Record, <-chan error) {
	return emitAll(ctx, func() ([]domain.Record, error) { return fetchHTTP(ctx, cfg) })
}

func fetchHTTP(ctx context.Context, cfg etl.SourceConfig) ([]domain.Record, error) {
	url := etl.ConfigString(cfg, "url")
	if url == "" {
		return nil, domain.Errorf(domain.ErrSource, "fetch", "url is required")
	}

	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.Wrap(domain.ErrSource, "fetch", fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	if headersStr := etl.ConfigString(cfg, "headers"); headersStr != "" {
		var headers map[string]string
		if err := json.Unmarshal([]byte(headersStr), &headers); err != nil {
			return nil, domain.Wrap(domain.ErrSource, "fetch", fmt.Errorf("parse headers: %w", err))
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, domain.Wrap(domain.ErrSource, "fetch", fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, domain.Errorf(domain.ErrSource, "fetch", "http %d: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Wrap(domain.ErrSource, "fetch", fmt.Errorf("read body: %w", err))
	}
	records, err := decodeRecords(data, etl.ConfigString(cfg, "dataPath"))
	if err != nil {
		return nil, domain.Wrap(domain.ErrSource, "fetch", fmt.Errorf("%s: %w", url, err))
	}
	return records, nil
}
