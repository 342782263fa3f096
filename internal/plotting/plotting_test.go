package plotting

import (
	"bytes"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"

	"github.com/fitgrid/fitgrid/internal/aggregate"
	"github.com/fitgrid/fitgrid/internal/config"
	"github.com/fitgrid/fitgrid/internal/fsutil"
	"github.com/fitgrid/fitgrid/internal/masspoint"
	"github.com/fitgrid/fitgrid/internal/yields"
)

func testArrays() aggregate.Arrays {
	return aggregate.Arrays{
		Points: []masspoint.Point{{M1: 300, M2: 0}, {M1: 500, M2: 100}, {M1: 700, M2: 150}},
		ExpX:   []float64{0.0, 0.02, 0.4},
		ExpY:   []float64{1e-12, 0.03, 0.38},
		ObsX:   []float64{0.001, math.NaN(), 0.6},
		ObsY:   []float64{0.002, 0.05, 0.55},
	}
}

func TestColumnsClampsAndDropsNaN(t *testing.T) {
	a := testArrays()
	got := columns(a.ObsX, a.ObsY, 1e-10)
	assert.Equal(t, plotter.XYs{{X: 0.001, Y: 0.002}, {X: 0.6, Y: 0.55}}, got)

	got = columns(a.ExpX, a.ExpY, 1e-10)
	assert.Equal(t, 1e-10, got[0].X)
	assert.Equal(t, 1e-10, got[0].Y)
}

func TestAxisFraction(t *testing.T) {
	assert.InDelta(t, 0.5, axisFraction(0.5, 0, false), 1e-12)
	assert.InDelta(t, 1e-5, axisFraction(0.5, 1e-10, true), 1e-15)
	assert.InDelta(t, 1.0, axisFraction(1, 1e-10, true), 1e-12)
}

func TestScatterName(t *testing.T) {
	assert.Equal(t, "cls_scatter_lin.pdf", ScatterName(false))
	assert.Equal(t, "cls_scatter_log.pdf", ScatterName(true))
}

func TestCLsScatterSaves(t *testing.T) {
	cfg := config.EmptyPlotConfig()
	dir := t.TempDir()

	for _, logScale := range []bool{false, true} {
		p, err := CLsScatter(testArrays(), cfg, logScale)
		require.NoError(t, err)
		assert.Equal(t, ScatterXLabel, p.X.Label.Text)
		if logScale {
			assert.Equal(t, 1e-10, p.X.Min)
		}

		w, h := ScatterSize(cfg)
		path := filepath.Join(dir, ScatterName(logScale))
		require.NoError(t, Save(p, w, h, path))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
	}
}

func TestSaveRejectsUnknownFormat(t *testing.T) {
	p, err := CLsScatter(testArrays(), config.EmptyPlotConfig(), false)
	require.NoError(t, err)
	err = Save(p, 100, 100, filepath.Join(t.TempDir(), "out.xyz"))
	assert.ErrorContains(t, err, "unsupported plot format")
}

func TestRenderScatterHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderScatterHTML(&buf, testArrays(), config.EmptyPlotConfig(), true, "CLs comparison"))

	html := buf.String()
	assert.Contains(t, html, "Expected CLs")
	assert.Contains(t, html, "Observed CLs")
	assert.Contains(t, html, masspoint.Point{M1: 700, M2: 150}.String())
	assert.Contains(t, html, "#686de0")
}

func TestScatterDataSkipsNaN(t *testing.T) {
	a := testArrays()
	data := scatterData(a, a.ObsX, a.ObsY, 0)
	require.Len(t, data, 2)
	assert.Equal(t, a.Points[2].String(), data[1].Name)
}

func square(x0, y0, s float64) plotter.XYs {
	return plotter.XYs{{X: x0, Y: y0}, {X: x0 + s, Y: y0}, {X: x0 + s, Y: y0 + s}, {X: x0, Y: y0 + s}}
}

func testGraphs() Graphs {
	return Graphs{
		BandGraph:     square(200, 50, 300),
		ExpectedGraph: plotter.XYs{{X: 200, Y: 50}, {X: 500, Y: 200}, {X: 550, Y: 50}},
		ObservedGraph: plotter.XYs{{X: 200, Y: 60}, {X: 520, Y: 210}, {X: 580, Y: 60}},
	}
}

func TestLoadContourSet(t *testing.T) {
	cs, err := LoadContourSet(testGraphs(), "Full Likelihood", color.Black, color.Black)
	require.NoError(t, err)
	assert.Len(t, cs.Band, 4)
	assert.Len(t, cs.Obs, 3)

	g := testGraphs()
	delete(g, ObservedGraph)
	_, err = LoadContourSet(g, "Full Likelihood", color.Black, color.Black)
	assert.ErrorContains(t, err, ObservedGraph)
}

func TestExclusionPlot(t *testing.T) {
	cfg := config.EmptyPlotConfig()
	full, err := LoadContourSet(testGraphs(), "Full Likelihood", cfg.GetFullBandColor(), cfg.GetFullLineColor())
	require.NoError(t, err)
	simpl, err := LoadContourSet(testGraphs(), "Simplified Likelihood", cfg.GetSimplifiedColor(), cfg.GetSimplifiedColor())
	require.NoError(t, err)

	p, err := ExclusionPlot([]ContourSet{full, simpl}, cfg, cfg.GetProcessLabel()+"1Lbb")
	require.NoError(t, err)
	assert.Equal(t, 20.0, p.X.Min)
	assert.Equal(t, 700.0, p.Y.Max)
	assert.True(t, strings.HasSuffix(p.Title.Text, "1Lbb"))

	path := filepath.Join(t.TempDir(), "exclusion_1Lbb.pdf")
	require.NoError(t, SaveExclusion(p, cfg, path))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestKinematicLabel(t *testing.T) {
	assert.Equal(t, "m(χ̃±₁/χ̃⁰₂) < m(χ̃⁰₁) + 125 GeV", KinematicLabel(125))
}

func TestWithAlpha(t *testing.T) {
	c := withAlpha(color.NRGBA{R: 0xff, A: 0xff}, 0.5)
	_, _, _, a := c.RGBA()
	assert.InDelta(t, 0x7fff, a, 2)
}

func testRows() []yields.Row {
	mk := func(b, e, f float64) map[yields.FitConfig]yields.Yield {
		return map[yields.FitConfig]yields.Yield{
			yields.BkgOnly: {Value: b, ErrUp: 1, ErrDown: 1},
			yields.Excl:    {Value: e, ErrUp: 1, ErrDown: 0.5},
			yields.Free:    {Value: f, ErrUp: 1, ErrDown: 1},
		}
	}
	return []yields.Row{
		{Region: "SR-E-high-ee-bin-a", Yields: mk(10, 11, 10.5)},
		{Region: "SR-E-low-mm-bin-b", Yields: mk(0, 1, 0.5)},
		{Region: "CR-top", Control: true, Yields: mk(100, 101, 100)},
	}
}

func TestYieldsFigure(t *testing.T) {
	fig, err := NewYieldsFigure(`MGPy8EG\_A14N23LO`, testRows(), config.EmptyPlotConfig())
	require.NoError(t, err)
	assert.Equal(t, "MGPy8EG_A14N23LO", fig.Sample)
	require.Len(t, fig.Grid, 2)
	assert.Equal(t, "Fitted MGPy8EG_A14N23LO yields CRs", fig.Grid[0][1].X.Label.Text)
	assert.Equal(t, "Ratio", fig.Grid[1][0].X.Label.Text)

	ticks := fig.Grid[1][0].Y.Tick.Marker.Ticks(0, 1)
	require.Len(t, ticks, 2)
	assert.Equal(t, "SR-E-high-ee-bin-a", ticks[0].Label)
	assert.Equal(t, 1.0, ticks[0].Value)

	_, h := fig.Size()
	assert.Greater(t, float64(h), 0.0)

	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fig.Save(fsys, "/plots/yields.pdf"))
	data, err := fsys.ReadFile("/plots/yields.pdf")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestYieldsFigureSignalOnly(t *testing.T) {
	fig, err := NewYieldsFigure("bkg", testRows()[:2], config.EmptyPlotConfig())
	require.NoError(t, err)
	assert.Len(t, fig.Grid, 1)

	_, err = NewYieldsFigure("bkg", nil, config.EmptyPlotConfig())
	assert.Error(t, err)
}
