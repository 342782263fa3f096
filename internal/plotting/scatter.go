// Package plotting draws the comparison and exclusion plots with gonum/plot.
package plotting

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/fitgrid/fitgrid/internal/aggregate"
	"github.com/fitgrid/fitgrid/internal/config"
)

// Axis labels of the CLs comparison.
const (
	ScatterXLabel = "Simplified LH CLs"
	ScatterYLabel = "Full LH CLs"
)

// ScatterName returns the output file name of the CLs comparison.
func ScatterName(logScale bool) string {
	if logScale {
		return "cls_scatter_log.pdf"
	}
	return "cls_scatter_lin.pdf"
}

// CLsScatter plots the second harvest's CLs against the first for the
// expected and observed values, with the diagonal for reference. On
// logarithmic axes values below the axis minimum are drawn at the minimum.
func CLsScatter(a aggregate.Arrays, cfg *config.PlotConfig, logScale bool) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = ScatterXLabel
	p.Y.Label.Text = ScatterYLabel
	p.Legend.Top = true
	p.Legend.Left = true

	lo := 0.0
	if logScale {
		lo = cfg.GetLogAxisMinimum()
		p.X.Scale, p.Y.Scale = plot.LogScale{}, plot.LogScale{}
		p.X.Tick.Marker, p.Y.Tick.Marker = plot.LogTicks{Prec: -1}, plot.LogTicks{Prec: -1}
	}
	p.X.Min, p.X.Max = lo, 1
	p.Y.Min, p.Y.Max = lo, 1

	diag, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: 1, Y: 1}})
	if err != nil {
		return nil, err
	}
	diag.Color = cfg.GetDiagonalColor()
	diag.Width = vg.Points(1.2)
	diag.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(diag)

	series := []struct {
		label string
		x, y  []float64
		c     color.Color
	}{
		{"Expected CLs", a.ExpX, a.ExpY, cfg.GetExpectedColor()},
		{"Observed CLs", a.ObsX, a.ObsY, cfg.GetObservedColor()},
	}
	for _, s := range series {
		sc, err := plotter.NewScatter(columns(s.x, s.y, lo))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.label, err)
		}
		sc.GlyphStyle.Shape = draw.RingGlyph{}
		sc.GlyphStyle.Radius = vg.Points(2.5)
		sc.GlyphStyle.Color = s.c
		p.Add(sc)
		p.Legend.Add(s.label, sc)
	}

	tx, ty := axisFraction(0.04, lo, logScale), axisFraction(0.92, lo, logScale)
	lumi, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{{X: tx, Y: ty}},
		Labels: []string{cfg.LumiLabel()},
	})
	if err != nil {
		return nil, err
	}
	p.Add(lumi)
	return p, nil
}

// columns pairs x and y into plotter points, clamping to lo. Points with a
// NaN coordinate are dropped.
func columns(x, y []float64, lo float64) plotter.XYs {
	out := make(plotter.XYs, 0, len(x))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		out = append(out, plotter.XY{X: math.Max(x[i], lo), Y: math.Max(y[i], lo)})
	}
	return out
}

// axisFraction maps a fraction of the [lo, 1] axis to data coordinates.
func axisFraction(f, lo float64, logScale bool) float64 {
	if logScale {
		return math.Pow(10, math.Log10(lo)*(1-f))
	}
	return lo + f*(1-lo)
}

// Save writes p to path, choosing the format from the extension
// (pdf, png, svg, eps, jpg, tiff).
func Save(p *plot.Plot, width, height vg.Length, path string) error {
	if err := checkFormat(path); err != nil {
		return err
	}
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func checkFormat(path string) error {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "pdf", "png", "svg", "eps", "jpg", "jpeg", "tif", "tiff":
		return nil
	default:
		return fmt.Errorf("unsupported plot format %q", filepath.Ext(path))
	}
}

// ScatterSize returns the CLs comparison page size.
func ScatterSize(cfg *config.PlotConfig) (vg.Length, vg.Length) {
	return vg.Length(cfg.GetScatterWidth()) * vg.Inch, vg.Length(cfg.GetScatterHeight()) * vg.Inch
}
