// Package chart draws the per-category spending pie chart.
package chart

import (
	"errors"
	"html"
	"io"
	"strings"

	"expense-ledger/internal/services"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData is returned when every category total is zero.
var ErrNoData = errors.New("no chart data")

// Palette is shared between the chart slices and the category badges in the
// list view, so the same category has the same colour in both.
var Palette = []string{
	"#60a5fa",
	"#a78bfa",
	"#f472b6",
	"#fbbf24",
	"#818cf8",
	"#fb7185",
	"#34d399",
	"#94a3b8",
}

// ColorFor returns the palette colour for the category at position i.
func ColorFor(i int) string {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}

const defaultSize = 480

// Options controls the rendered image.
type Options struct {
	Width  int
	Height int
}

// RenderPie writes an SVG pie chart of b to w. Zero-total categories are
// left out of the chart. go-chart writes labels into the SVG verbatim, so
// category names are escaped here.
func RenderPie(w io.Writer, b services.Breakdown, opts Options) error {
	if !b.HasChartData() {
		return ErrNoData
	}
	if opts.Width <= 0 {
		opts.Width = defaultSize
	}
	if opts.Height <= 0 {
		opts.Height = defaultSize
	}

	values := make([]gochart.Value, 0, len(b.Items))
	for i, item := range b.Items {
		if !item.Total.IsPositive() {
			continue
		}
		values = append(values, gochart.Value{
			Label: html.EscapeString(item.Category.Name),
			Value: item.Total.InexactFloat64(),
			Style: gochart.Style{
				FillColor:   drawing.ColorFromHex(strings.TrimPrefix(ColorFor(i), "#")),
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 2,
			},
		})
	}

	pie := gochart.PieChart{
		Width:  opts.Width,
		Height: opts.Height,
		Values: values,
	}
	return pie.Render(gochart.SVG, w)
}
