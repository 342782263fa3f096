package config

import (
	"fmt"
	"image/color"
	"strings"
)

const (
	defaultExpectedColor   = "#686de0"
	defaultObservedColor   = "#10ac84"
	defaultDiagonalColor   = "#444444"
	defaultFullBandColor   = "#07a7ec"
	defaultFullLineColor   = "#068ac6"
	defaultSimplifiedColor = "#000000"
)

// GetComEnergy returns the centre-of-mass energy label or the default.
func (c *PlotConfig) GetComEnergy() string {
	if c.ComEnergy == nil {
		return "13 TeV"
	}
	return *c.ComEnergy
}

// GetLuminosity returns the integrated luminosity in pb^-1 or the default.
func (c *PlotConfig) GetLuminosity() float64 {
	if c.Luminosity == nil {
		return 139000
	}
	return *c.Luminosity
}

// GetStatus returns the experiment status label or the default.
func (c *PlotConfig) GetStatus() string {
	if c.Status == nil {
		return "Internal"
	}
	return *c.Status
}

// LumiLabel formats the energy and luminosity label,
// e.g. "√s = 13 TeV, 139 fb⁻¹".
func (c *PlotConfig) LumiLabel() string {
	return fmt.Sprintf("√s = %s, %g fb⁻¹", c.GetComEnergy(), c.GetLuminosity()/1e3)
}

// ExperimentLabel returns "ATLAS" followed by the status, if any.
func (c *PlotConfig) ExperimentLabel() string {
	return strings.TrimSpace("ATLAS " + c.GetStatus())
}

func (c *PlotConfig) GetScatterWidth() float64 {
	if c.ScatterWidth == nil {
		return 5
	}
	return *c.ScatterWidth
}

func (c *PlotConfig) GetScatterHeight() float64 {
	if c.ScatterHeight == nil {
		return 4
	}
	return *c.ScatterHeight
}

func (c *PlotConfig) GetExpectedColor() color.NRGBA {
	return getColor(c.ExpectedColor, defaultExpectedColor)
}

func (c *PlotConfig) GetObservedColor() color.NRGBA {
	return getColor(c.ObservedColor, defaultObservedColor)
}

func (c *PlotConfig) GetDiagonalColor() color.NRGBA {
	return getColor(c.DiagonalColor, defaultDiagonalColor)
}

// GetLogAxisMinimum returns the lower CLs bound of logarithmic axes.
func (c *PlotConfig) GetLogAxisMinimum() float64 {
	if c.LogAxisMinimum == nil {
		return 1e-10
	}
	return *c.LogAxisMinimum
}

func (c *PlotConfig) GetContourWidth() int {
	if c.ContourWidth == nil {
		return 1600
	}
	return *c.ContourWidth
}

func (c *PlotConfig) GetContourHeight() int {
	if c.ContourHeight == nil {
		return 1200
	}
	return *c.ContourHeight
}

func (c *PlotConfig) GetXMin() float64 {
	if c.XMin == nil {
		return 20
	}
	return *c.XMin
}

func (c *PlotConfig) GetXMax() float64 {
	if c.XMax == nil {
		return 1000
	}
	return *c.XMax
}

func (c *PlotConfig) GetYMin() float64 {
	if c.YMin == nil {
		return 20
	}
	return *c.YMin
}

func (c *PlotConfig) GetYMax() float64 {
	if c.YMax == nil {
		return 700
	}
	return *c.YMax
}

func (c *PlotConfig) GetXLabel() string {
	if c.XLabel == nil {
		return "m(χ̃±₁)/m(χ̃⁰₂) [GeV]"
	}
	return *c.XLabel
}

func (c *PlotConfig) GetYLabel() string {
	if c.YLabel == nil {
		return "m(χ̃⁰₁) [GeV]"
	}
	return *c.YLabel
}

// GetLabelsLeft returns the x position of the label block as a fraction of
// the canvas width.
func (c *PlotConfig) GetLabelsLeft() float64 {
	if c.LabelsLeft == nil {
		return 0.2
	}
	return *c.LabelsLeft
}

// GetLabelsTop returns the y position of the label block as a fraction of
// the canvas height.
func (c *PlotConfig) GetLabelsTop() float64 {
	if c.LabelsTop == nil {
		return 0.86
	}
	return *c.LabelsTop
}

func (c *PlotConfig) GetProcessLabel() string {
	if c.ProcessLabel == nil {
		return "pp → χ̃⁰₂ χ̃±₁ (Wino) production; χ̃⁰₂ → h χ̃⁰₁, χ̃±₁ → W χ̃⁰₁; "
	}
	return *c.ProcessLabel
}

func (c *PlotConfig) GetFullBandColor() color.NRGBA {
	return getColor(c.FullBandColor, defaultFullBandColor)
}

func (c *PlotConfig) GetFullLineColor() color.NRGBA {
	return getColor(c.FullLineColor, defaultFullLineColor)
}

func (c *PlotConfig) GetSimplifiedColor() color.NRGBA {
	return getColor(c.SimplifiedColor, defaultSimplifiedColor)
}

// GetBandAlpha returns the opacity of the ±1σ bands.
func (c *PlotConfig) GetBandAlpha() float64 {
	if c.BandAlpha == nil {
		return 0.3
	}
	return *c.BandAlpha
}

// GetKinematicOffset returns the mass splitting of the kinematic limit line
// in GeV.
func (c *PlotConfig) GetKinematicOffset() float64 {
	if c.KinematicOffset == nil {
		return 125
	}
	return *c.KinematicOffset
}

func (c *PlotConfig) GetRatioAxisMinimum() float64 {
	if c.RatioAxisMinimum == nil {
		return 0.5
	}
	return *c.RatioAxisMinimum
}

func (c *PlotConfig) GetRatioAxisMaximum() float64 {
	if c.RatioAxisMaximum == nil {
		return 1.5
	}
	return *c.RatioAxisMaximum
}
