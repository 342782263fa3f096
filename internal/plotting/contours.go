package plotting

import (
	"fmt"
	"image/color"

	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/fitgrid/fitgrid/internal/config"
)

// ContourSet is one likelihood's exclusion contours.
type ContourSet struct {
	Title string // legend prefix, e.g. "Full Likelihood"
	Band  plotter.XYs
	Exp   plotter.XYs
	Obs   plotter.XYs
	Fill  color.Color
	Line  color.Color
}

// LoadContourSet reads the band, expected and observed graphs from src.
func LoadContourSet(src GraphSource, title string, fill, line color.Color) (ContourSet, error) {
	cs := ContourSet{Title: title, Fill: fill, Line: line}
	var err error
	if cs.Band, err = src.Graph(BandGraph); err != nil {
		return ContourSet{}, err
	}
	if cs.Exp, err = src.Graph(ExpectedGraph); err != nil {
		return ContourSet{}, err
	}
	if cs.Obs, err = src.Graph(ObservedGraph); err != nil {
		return ContourSet{}, err
	}
	return cs, nil
}

// KinematicLabel annotates the m(χ̃±₁) = m(χ̃⁰₁) + offset line.
func KinematicLabel(offset float64) string {
	return fmt.Sprintf("m(χ̃±₁/χ̃⁰₂) < m(χ̃⁰₁) + %g GeV", offset)
}

// ExclusionPlot overlays the exclusion contours of several likelihoods
// with the kinematic limit and the standard labels.
func ExclusionPlot(sets []ContourSet, cfg *config.PlotConfig, processLabel string) (*hplot.Plot, error) {
	p := hplot.New()
	p.Title.Text = processLabel
	p.X.Label.Text = cfg.GetXLabel()
	p.Y.Label.Text = cfg.GetYLabel()
	p.X.Min, p.X.Max = cfg.GetXMin(), cfg.GetXMax()
	p.Y.Min, p.Y.Max = cfg.GetYMin(), cfg.GetYMax()
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.YOffs = -vg.Points(60)

	alpha := cfg.GetBandAlpha()
	for _, cs := range sets {
		band, err := plotter.NewPolygon(cs.Band)
		if err != nil {
			return nil, fmt.Errorf("%s band: %w", cs.Title, err)
		}
		band.Color = withAlpha(cs.Fill, alpha)
		band.LineStyle.Width = 0

		exp, err := plotter.NewLine(cs.Exp)
		if err != nil {
			return nil, fmt.Errorf("%s expected: %w", cs.Title, err)
		}
		exp.Color = cs.Line
		exp.Width = vg.Points(1.5)
		exp.Dashes = []vg.Length{vg.Points(5), vg.Points(3)}

		obs, err := plotter.NewLine(cs.Obs)
		if err != nil {
			return nil, fmt.Errorf("%s observed: %w", cs.Title, err)
		}
		obs.Color = cs.Fill
		obs.Width = vg.Points(2)

		p.Add(band, exp, obs)
		p.Legend.Add(cs.Title+" Exp.", band, exp)
		p.Legend.Add(cs.Title+" Obs.", obs)
	}

	off := cfg.GetKinematicOffset()
	xmin, ymax := cfg.GetXMin(), cfg.GetYMax()
	kin, err := plotter.NewLine(plotter.XYs{{X: xmin, Y: xmin - off}, {X: ymax + off, Y: ymax}})
	if err != nil {
		return nil, err
	}
	kin.Color = color.Gray{Y: 0x55}
	kin.Dashes = []vg.Length{vg.Points(6), vg.Points(2), vg.Points(2), vg.Points(2)}
	p.Add(kin)

	lx := xmin + 0.45*(ymax+off-xmin)
	kinLabel, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{{X: lx, Y: lx - off + 0.03*(p.Y.Max-p.Y.Min)}},
		Labels: []string{KinematicLabel(off)},
	})
	if err != nil {
		return nil, err
	}
	p.Add(kinLabel)

	labels, err := cornerLabels(p.Plot, cfg)
	if err != nil {
		return nil, err
	}
	p.Add(labels)
	return p, nil
}

// cornerLabels places the experiment, energy and confidence-level labels at
// the configured fractions of the axis ranges.
func cornerLabels(p *plot.Plot, cfg *config.PlotConfig) (*plotter.Labels, error) {
	left, top := cfg.GetLabelsLeft(), cfg.GetLabelsTop()
	at := func(fy float64) plotter.XY {
		return plotter.XY{
			X: p.X.Min + left*(p.X.Max-p.X.Min),
			Y: p.Y.Min + fy*(p.Y.Max-p.Y.Min),
		}
	}
	return plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{at(top), at(top - 0.04), at(top - 0.08)},
		Labels: []string{cfg.ExperimentLabel(), cfg.LumiLabel(), "All limits at 95% CL"},
	})
}

// withAlpha expects an opaque c.
func withAlpha(c color.Color, alpha float64) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA64{R: uint16(r), G: uint16(g), B: uint16(b), A: uint16(alpha * 0xffff)}
}

// ContourSize converts the configured canvas size in pixels to page size
// at 200 dpi.
func ContourSize(cfg *config.PlotConfig) (vg.Length, vg.Length) {
	const dpi = 200
	return vg.Length(cfg.GetContourWidth()) * vg.Inch / dpi, vg.Length(cfg.GetContourHeight()) * vg.Inch / dpi
}

// SaveExclusion writes the exclusion plot to path.
func SaveExclusion(p *hplot.Plot, cfg *config.PlotConfig, path string) error {
	if err := checkFormat(path); err != nil {
		return err
	}
	w, h := ContourSize(cfg)
	if err := hplot.Save(p, w, h, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
