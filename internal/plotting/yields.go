package plotting

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/fitgrid/fitgrid/internal/config"
	"github.com/fitgrid/fitgrid/internal/fsutil"
	"github.com/fitgrid/fitgrid/internal/yields"
)

var fitStyles = map[yields.FitConfig]struct {
	label  string
	offset float64
	color  color.Color
}{
	yields.Free:    {"μ_SIG free", 0.25, color.NRGBA{G: 0x80, A: 0xff}},
	yields.BkgOnly: {"μ_SIG = 0", 0, color.NRGBA{R: 0xff, A: 0xff}},
	yields.Excl:    {"μ_SIG = 1", -0.25, color.NRGBA{B: 0xff, A: 0xff}},
}

// errPoints are points with asymmetric horizontal errors.
type errPoints struct {
	plotter.XYs
	plotter.XErrors
}

// YieldsFigure is the per-region comparison of one sample across the three
// fit configurations: a ratio column on the left and the yields on the
// right, with control regions in their own row when present.
type YieldsFigure struct {
	Sample string
	Rows   []yields.Row
	// Grid is laid out [block][ratio, yields].
	Grid [][]*plot.Plot
}

// NewYieldsFigure builds the panels for rows as returned by Table.Series.
func NewYieldsFigure(sample string, rows []yields.Row, cfg *config.PlotConfig) (*YieldsFigure, error) {
	if len(rows) == 0 {
		return nil, errors.New("no regions to plot")
	}
	var signal, control []yields.Row
	for _, r := range rows {
		if r.Control {
			control = append(control, r)
		} else {
			signal = append(signal, r)
		}
	}

	label := strings.ReplaceAll(sample, `\`, "")
	fig := &YieldsFigure{Sample: label, Rows: rows}
	for _, block := range []struct {
		rows   []yields.Row
		xLabel string
	}{
		{control, fmt.Sprintf("Fitted %s yields CRs", label)},
		{signal, fmt.Sprintf("Fitted %s yields SRs", label)},
	} {
		if len(block.rows) == 0 {
			continue
		}
		ratio, err := ratioPanel(block.rows, cfg)
		if err != nil {
			return nil, err
		}
		yp, err := yieldPanel(block.rows, block.xLabel)
		if err != nil {
			return nil, err
		}
		fig.Grid = append(fig.Grid, []*plot.Plot{ratio, yp})
	}
	// Only the lowest yields panel carries the legend.
	last := fig.Grid[len(fig.Grid)-1][1]
	last.Legend.Top = true
	for _, cfgName := range yields.FitConfigs {
		st := fitStyles[cfgName]
		sc, _ := plotter.NewScatter(plotter.XYs{})
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Color = st.color
		last.Legend.Add(st.label, sc)
	}
	return fig, nil
}

// rowPositions places the first row at the top.
func rowPositions(n int) []float64 {
	pos := make([]float64, n)
	for i := range pos {
		pos[i] = float64(n - 1 - i)
	}
	return pos
}

func regionTicks(rows []yields.Row, named bool) plot.ConstantTicks {
	pos := rowPositions(len(rows))
	ticks := make(plot.ConstantTicks, len(rows))
	for i, r := range rows {
		ticks[i] = plot.Tick{Value: pos[i]}
		if named {
			ticks[i].Label = r.Region
		}
	}
	return ticks
}

func yieldPanel(rows []yields.Row, xLabel string) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = xLabel
	p.Y.Min, p.Y.Max = -0.5, float64(len(rows))-0.5
	p.Y.Tick.Marker = regionTicks(rows, false)

	pos := rowPositions(len(rows))
	for _, cfgName := range yields.FitConfigs {
		st := fitStyles[cfgName]
		pts := errPoints{XYs: make(plotter.XYs, len(rows)), XErrors: make(plotter.XErrors, len(rows))}
		for i, r := range rows {
			y := r.Yields[cfgName]
			pts.XYs[i] = plotter.XY{X: y.Value, Y: pos[i] + st.offset}
			pts.XErrors[i].Low, pts.XErrors[i].High = y.ErrDown, y.ErrUp
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(2)
		sc.GlyphStyle.Color = st.color
		bars, err := plotter.NewXErrorBars(pts)
		if err != nil {
			return nil, err
		}
		bars.LineStyle.Width = vg.Points(0.8)
		bars.CapWidth = vg.Points(2)
		p.Add(bars, sc)
	}
	return p, nil
}

func ratioPanel(rows []yields.Row, cfg *config.PlotConfig) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = "Ratio"
	p.X.Min, p.X.Max = cfg.GetRatioAxisMinimum(), cfg.GetRatioAxisMaximum()
	p.Y.Min, p.Y.Max = -0.5, float64(len(rows))-0.5
	p.Y.Tick.Marker = regionTicks(rows, true)

	pos := rowPositions(len(rows))
	for _, cfgName := range []yields.FitConfig{yields.Excl, yields.Free} {
		st := fitStyles[cfgName]
		var rings []plotter.XYer
		for i, r := range rows {
			ratio := r.Ratio(cfgName)
			if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio == 1 {
				continue
			}
			y := pos[i] + st.offset
			rings = append(rings, plotter.XYs{
				{X: 1, Y: y - 0.25}, {X: ratio, Y: y - 0.25},
				{X: ratio, Y: y + 0.25}, {X: 1, Y: y + 0.25},
			})
		}
		if len(rings) == 0 {
			continue
		}
		bars, err := plotter.NewPolygon(rings...)
		if err != nil {
			return nil, err
		}
		bars.Color = st.color
		bars.LineStyle.Width = 0
		p.Add(bars)
	}

	unity, err := plotter.NewLine(plotter.XYs{{X: 1, Y: p.Y.Min}, {X: 1, Y: p.Y.Max}})
	if err != nil {
		return nil, err
	}
	unity.Color = color.Gray{Y: 0x80}
	unity.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
	p.Add(unity)
	return p, nil
}

// Size returns the page size: 6 in wide and one inch plus a quarter inch
// per region high.
func (f *YieldsFigure) Size() (vg.Length, vg.Length) {
	return 6 * vg.Inch, vg.Inch + vg.Length(len(f.Rows))*vg.Inch/4
}

// Render draws the figure in the given format ("pdf", "png", "svg", ...).
func (f *YieldsFigure) Render(format string) ([]byte, error) {
	w, h := f.Size()
	c, err := draw.NewFormattedCanvas(w, h, format)
	if err != nil {
		return nil, err
	}
	tiles := draw.Tiles{
		Rows: len(f.Grid),
		Cols: 2,
		PadX: vg.Millimeter,
		PadY: vg.Millimeter,
	}
	canvases := plot.Align(f.Grid, tiles, draw.New(c))
	for i := range f.Grid {
		for j := range f.Grid[i] {
			f.Grid[i][j].Draw(canvases[i][j])
		}
	}
	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save renders the figure to path, choosing the format from its extension.
func (f *YieldsFigure) Save(fsys fsutil.FileSystem, path string) error {
	if err := checkFormat(path); err != nil {
		return err
	}
	data, err := f.Render(strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")))
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return fsutil.WriteFileAtomic(fsys, path, data, 0o644)
}
