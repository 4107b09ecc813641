package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/colornames"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ChartOptions controls how a histogram is drawn.
type ChartOptions struct {
	Title  string
	XLabel string
	YLabel string
	Color  string // SVG colour name, e.g. "blue"
}

const (
	chartWidth  = 10 * vg.Inch
	chartHeight = 6 * vg.Inch
	fillAlpha   = 178 // 0.7 opacity
)

// FillColor resolves an SVG colour name to a translucent fill.
func FillColor(name string) (color.Color, error) {
	if name == "" {
		name = "steelblue"
	}
	c, ok := colornames.Map[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown color %q", name)
	}
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: fillAlpha}, nil
}

// Render draws h as a bar histogram with horizontal grid lines and saves
// it to path. The format follows the extension: .png, .svg or .pdf.
func Render(h *Histogram, opts ChartOptions, path string) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png", ".svg", ".pdf":
	default:
		return fmt.Errorf("unsupported chart format %q", ext)
	}
	fill, err := FillColor(opts.Color)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = opts.XLabel
	p.Y.Label.Text = opts.YLabel

	grid := plotter.NewGrid()
	grid.Vertical.Color = nil
	p.Add(grid)

	bins := make([]plotter.HistogramBin, len(h.Buckets))
	for i, b := range h.Buckets {
		bins[i] = plotter.HistogramBin{Min: b.Min, Max: b.Max, Weight: float64(b.Count)}
	}
	width := 1.0
	if len(h.Buckets) > 0 {
		width = h.Buckets[0].Max - h.Buckets[0].Min
	}
	p.Add(&plotter.Histogram{
		Bins:      bins,
		Width:     width,
		FillColor: fill,
		LineStyle: plotter.DefaultLineStyle,
	})

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create chart dir: %w", err)
		}
	}
	if err := p.Save(chartWidth, chartHeight, path); err != nil {
		return fmt.Errorf("save chart %s: %w", path, err)
	}
	return nil
}
