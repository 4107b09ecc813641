package report

import (
	"context"
	"fmt"

	"github.com/pkg/browser"
	zlog "github.com/rs/zerolog/log"

	"csvhouse/internal/domain"
)

// ColumnSelector is the read side a report needs from a store.
type ColumnSelector interface {
	SelectColumn(ctx context.Context, table, column string) ([]float64, error)
}

// Spec describes one histogram report over a store table.
type Spec struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	Bins   int    `json:"bins"`
	Title  string `json:"title"`
	XLabel string `json:"xLabel"`
	YLabel string `json:"yLabel"`
	Color  string `json:"color"`
	Output string `json:"output"` // chart file; empty skips rendering
	Show   bool   `json:"show"`   // open the chart once written
}

// Result is the outcome of one report.
type Result struct {
	Column    string     `json:"column"`
	Output    string     `json:"output,omitempty"`
	Histogram *Histogram `json:"histogram"`
}

// Reporter queries a column, buckets it and renders the chart.
type Reporter struct {
	// Open displays a written chart. Defaults to the desktop viewer.
	Open func(path string) error
}

// Report runs one Spec against the store.
func (r *Reporter) Report(ctx context.Context, store ColumnSelector, spec Spec) (*Result, error) {
	if spec.Bins <= 0 || spec.Bins > MaxBins {
		return nil, fmt.Errorf("report %s: bins must be in [1, %d], got %d", spec.Column, MaxBins, spec.Bins)
	}
	values, err := store.SelectColumn(ctx, spec.Table, spec.Column)
	if err != nil {
		return nil, domain.Wrap(domain.ErrQuery, "report "+spec.Column, err)
	}

	h := Bucketize(values, spec.Bins)
	zlog.Info().
		Str("table", spec.Table).
		Str("column", spec.Column).
		Int("rows", len(values)).
		Int("bins", spec.Bins).
		Msg("histogram computed")
	if h.Skipped > 0 {
		zlog.Warn().Str("column", spec.Column).Int("skipped", h.Skipped).Msg("non-finite values left out of histogram")
	}

	res := &Result{Column: spec.Column, Histogram: h}
	if spec.Output == "" {
		return res, nil
	}

	opts := ChartOptions{Title: spec.Title, XLabel: spec.XLabel, YLabel: spec.YLabel, Color: spec.Color}
	if err := Render(h, opts, spec.Output); err != nil {
		return nil, fmt.Errorf("report %s: %w", spec.Column, err)
	}
	res.Output = spec.Output
	zlog.Info().Str("column", spec.Column).Str("path", spec.Output).Msg("chart written")

	if spec.Show {
		open := r.Open
		if open == nil {
			open = browser.OpenFile
		}
		if err := open(spec.Output); err != nil {
			// the chart is on disk; failing to display it is not fatal
			zlog.Warn().Err(err).Str("path", spec.Output).Msg("could not open chart")
		}
	}
	return res, nil
}
