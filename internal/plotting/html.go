package plotting

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/fitgrid/fitgrid/internal/aggregate"
	"github.com/fitgrid/fitgrid/internal/config"
)

// RenderScatterHTML writes an interactive version of the CLs comparison.
// Hovering a marker shows its mass point.
func RenderScatterHTML(w io.Writer, a aggregate.Arrays, cfg *config.PlotConfig, logScale bool, title string) error {
	axisType, lo := "value", 0.0
	if logScale {
		axisType, lo = "log", cfg.GetLogAxisMinimum()
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("%s points=%d", cfg.LumiLabel(), a.Len())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "30"}),
		charts.WithXAxisOpts(opts.XAxis{Type: axisType, Min: lo, Max: 1, Name: ScatterXLabel, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: axisType, Min: lo, Max: 1, Name: ScatterYLabel, NameLocation: "middle", NameGap: 40}),
	)

	scatter.AddSeries("Expected CLs", scatterData(a, a.ExpX, a.ExpY, lo),
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: hex(cfg.GetExpectedColor())}))
	scatter.AddSeries("Observed CLs", scatterData(a, a.ObsX, a.ObsY, lo),
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: hex(cfg.GetObservedColor())}))

	return scatter.Render(w)
}

func scatterData(a aggregate.Arrays, x, y []float64, lo float64) []opts.ScatterData {
	data := make([]opts.ScatterData, 0, len(x))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		data = append(data, opts.ScatterData{
			Name:  a.Points[i].String(),
			Value: []interface{}{math.Max(x[i], lo), math.Max(y[i], lo)},
		})
	}
	return data
}

func hex(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
