package etl

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"csvhouse/internal/domain"
)

// ── Source ──────────────────────────────────────────────────
// A Source extracts Records from an external system.
// Implementations live in etl/sources/ — one file per source type.
//
// Pattern: Airbyte connector protocol (spec → discover → read).

// SourceConfig is an opaque configuration map parsed per source type.
type SourceConfig map[string]any

// ConfigField describes a single configuration input for a source.
type ConfigField struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Type     string `json:"type"` // "string" | "number" | "file"
	Required bool   `json:"required"`
	Default  string `json:"default,omitempty"`
	Help     string `json:"help,omitempty"`
}

// SourceSpec describes a source type: its label and config fields.
type SourceSpec struct {
	Type         string        `json:"type"`
	Label        string        `json:"label"`
	ConfigFields []ConfigField `json:"configFields"`
}

// Source is the interface every data source must implement.
type Source interface {
	// Spec returns metadata about this source type.
	Spec() SourceSpec

	// Discover checks the source can produce Records and returns their schema.
	Discover(ctx context.Context, cfg SourceConfig) (*Schema, error)

	// Read streams records from the source into a channel.
	// The channel is closed when all records have been read or ctx is cancelled.
	// Errors are sent on the error channel (buffered size 1).
	Read(ctx context.Context, cfg SourceConfig) (<-chan domain.Record, <-chan error)
}

// ── Source Registry ────────────────────────────────────────
// Compile-time registration via init() in each source file.

var (
	registryMu sync.RWMutex
	registry   = map[string]Source{}
)

// RegisterSource registers a source by its spec type.
// Called from init() in each source implementation file.
func RegisterSource(s Source) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[s.Spec().Type] = s
}

// GetSource returns a registered source by type, or an error if not found.
func GetSource(typ string) (Source, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[typ]
	if !ok {
		return nil, domain.Errorf(domain.ErrSource, "source", "unknown source type: %q", typ)
	}
	return s, nil
}

// ListSources returns the specs of all registered sources, sorted by type.
func ListSources() []SourceSpec {
	registryMu.RLock()
	defer registryMu.RUnlock()
	specs := make([]SourceSpec, 0, len(registry))
	for _, s := range registry {
		specs = append(specs, s.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Type < specs[j].Type })
	return specs
}

// Collect drains a source into an in-memory table. Any source error or
// cancellation discards the partial table.
func Collect(ctx context.Context, src Source, cfg SourceConfig) (domain.Table, error) {
	recCh, errCh := src.Read(ctx, cfg)

	var table domain.Table
	for rec := range recCh {
		table = append(table, rec)
	}
	err := <-errCh
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, domain.Wrap(domain.ErrSource, "read "+src.Spec().Type, err)
	}
	return table, nil
}

// ReadTable resolves a source by type and collects it.
func ReadTable(ctx context.Context, typ string, cfg SourceConfig) (domain.Table, error) {
	src, err := GetSource(typ)
	if err != nil {
		return nil, err
	}
	return Collect(ctx, src, cfg)
}

// ConfigString reads a string config value; missing keys read as "".
func ConfigString(cfg SourceConfig, key string) string {
	s, _ := cfg[key].(string)
	return s
}

// ConfigInt reads an integer config value written either as a number or
// as decimal text.
func ConfigInt(cfg SourceConfig, key string, def int64) (int64, error) {
	switch v := cfg[key].(type) {
	case nil:
		return def, nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		if v == "" {
			return def, nil
		}
		var n int64
		if _, err := fmt.Sscan(v, &n); err != nil {
			return 0, fmt.Errorf("%s: %q is not an integer", key, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s: unsupported value %v", key, v)
	}
}
