package config

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical plot defaults file.
const DefaultConfigPath = "config/plot.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// PlotConfig holds styling for the plotting tools. Nil fields fall back to
// the defaults returned by the Get* accessors, so partial files are safe.
type PlotConfig struct {
	// Shared labels
	ComEnergy  *string  `json:"com_energy,omitempty" yaml:"com_energy,omitempty"`
	Luminosity *float64 `json:"luminosity,omitempty" yaml:"luminosity,omitempty"` // pb^-1
	Status     *string  `json:"status,omitempty" yaml:"status,omitempty"`         // "Internal", "Preliminary" or ""

	// CLs scatter
	ScatterWidth   *float64 `json:"scatter_width_in,omitempty" yaml:"scatter_width_in,omitempty"`
	ScatterHeight  *float64 `json:"scatter_height_in,omitempty" yaml:"scatter_height_in,omitempty"`
	ExpectedColor  *string  `json:"expected_color,omitempty" yaml:"expected_color,omitempty"`
	ObservedColor  *string  `json:"observed_color,omitempty" yaml:"observed_color,omitempty"`
	DiagonalColor  *string  `json:"diagonal_color,omitempty" yaml:"diagonal_color,omitempty"`
	LogAxisMinimum *float64 `json:"log_axis_minimum,omitempty" yaml:"log_axis_minimum,omitempty"`

	// Exclusion contours
	ContourWidth     *int     `json:"contour_width_px,omitempty" yaml:"contour_width_px,omitempty"`
	ContourHeight    *int     `json:"contour_height_px,omitempty" yaml:"contour_height_px,omitempty"`
	XMin             *float64 `json:"xmin,omitempty" yaml:"xmin,omitempty"`
	XMax             *float64 `json:"xmax,omitempty" yaml:"xmax,omitempty"`
	YMin             *float64 `json:"ymin,omitempty" yaml:"ymin,omitempty"`
	YMax             *float64 `json:"ymax,omitempty" yaml:"ymax,omitempty"`
	XLabel           *string  `json:"xlabel,omitempty" yaml:"xlabel,omitempty"`
	YLabel           *string  `json:"ylabel,omitempty" yaml:"ylabel,omitempty"`
	LabelsLeft       *float64 `json:"labels_left,omitempty" yaml:"labels_left,omitempty"`
	LabelsTop        *float64 `json:"labels_top,omitempty" yaml:"labels_top,omitempty"`
	ProcessLabel     *string  `json:"process_label,omitempty" yaml:"process_label,omitempty"`
	FullBandColor    *string  `json:"full_band_color,omitempty" yaml:"full_band_color,omitempty"`
	FullLineColor    *string  `json:"full_line_color,omitempty" yaml:"full_line_color,omitempty"`
	SimplifiedColor  *string  `json:"simplified_color,omitempty" yaml:"simplified_color,omitempty"`
	BandAlpha        *float64 `json:"band_alpha,omitempty" yaml:"band_alpha,omitempty"`
	KinematicOffset  *float64 `json:"kinematic_offset,omitempty" yaml:"kinematic_offset,omitempty"`
	RatioAxisMinimum *float64 `json:"ratio_min,omitempty" yaml:"ratio_min,omitempty"`
	RatioAxisMaximum *float64 `json:"ratio_max,omitempty" yaml:"ratio_max,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyPlotConfig returns a PlotConfig with all fields unset.
func EmptyPlotConfig() *PlotConfig {
	return &PlotConfig{}
}

// DefaultPlotConfig returns a PlotConfig with every field set to its
// default.
func DefaultPlotConfig() *PlotConfig {
	c := EmptyPlotConfig()
	return &PlotConfig{
		ComEnergy:        ptrString(c.GetComEnergy()),
		Luminosity:       ptrFloat64(c.GetLuminosity()),
		Status:           ptrString(c.GetStatus()),
		ScatterWidth:     ptrFloat64(c.GetScatterWidth()),
		ScatterHeight:    ptrFloat64(c.GetScatterHeight()),
		ExpectedColor:    ptrString(defaultExpectedColor),
		ObservedColor:    ptrString(defaultObservedColor),
		DiagonalColor:    ptrString(defaultDiagonalColor),
		LogAxisMinimum:   ptrFloat64(c.GetLogAxisMinimum()),
		ContourWidth:     ptrInt(c.GetContourWidth()),
		ContourHeight:    ptrInt(c.GetContourHeight()),
		XMin:             ptrFloat64(c.GetXMin()),
		XMax:             ptrFloat64(c.GetXMax()),
		YMin:             ptrFloat64(c.GetYMin()),
		YMax:             ptrFloat64(c.GetYMax()),
		XLabel:           ptrString(c.GetXLabel()),
		YLabel:           ptrString(c.GetYLabel()),
		LabelsLeft:       ptrFloat64(c.GetLabelsLeft()),
		LabelsTop:        ptrFloat64(c.GetLabelsTop()),
		ProcessLabel:     ptrString(c.GetProcessLabel()),
		FullBandColor:    ptrString(defaultFullBandColor),
		FullLineColor:    ptrString(defaultFullLineColor),
		SimplifiedColor:  ptrString(defaultSimplifiedColor),
		BandAlpha:        ptrFloat64(c.GetBandAlpha()),
		KinematicOffset:  ptrFloat64(c.GetKinematicOffset()),
		RatioAxisMinimum: ptrFloat64(c.GetRatioAxisMinimum()),
		RatioAxisMaximum: ptrFloat64(c.GetRatioAxisMaximum()),
	}
}

// LoadPlotConfig loads a PlotConfig from a .json, .yaml or .yml file.
// Fields omitted from the file keep their defaults.
func LoadPlotConfig(path string) (*PlotConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPlotConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads path, or DefaultConfigPath when path is empty. A
// missing defaults file yields the built-in defaults.
func LoadOrDefault(path string) (*PlotConfig, error) {
	if path != "" {
		return LoadPlotConfig(path)
	}
	if _, err := os.Stat(DefaultConfigPath); err != nil {
		return EmptyPlotConfig(), nil
	}
	return LoadPlotConfig(DefaultConfigPath)
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching parent directories. Panics if the file cannot be loaded,
// intended for test setup.
func MustLoadDefaultConfig() *PlotConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadPlotConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *PlotConfig) Validate() error {
	colors := map[string]*string{
		"expected_color":   c.ExpectedColor,
		"observed_color":   c.ObservedColor,
		"diagonal_color":   c.DiagonalColor,
		"full_band_color":  c.FullBandColor,
		"full_line_color":  c.FullLineColor,
		"simplified_color": c.SimplifiedColor,
	}
	for name, v := range colors {
		if v == nil {
			continue
		}
		if _, err := ParseColor(*v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if c.Status != nil {
		switch *c.Status {
		case "", "Internal", "Preliminary":
		default:
			return fmt.Errorf("status must be Internal, Preliminary or empty, got %q", *c.Status)
		}
	}
	if c.BandAlpha != nil && (*c.BandAlpha < 0 || *c.BandAlpha > 1) {
		return fmt.Errorf("band_alpha must be between 0 and 1, got %f", *c.BandAlpha)
	}
	if c.LogAxisMinimum != nil && (*c.LogAxisMinimum <= 0 || *c.LogAxisMinimum >= 1) {
		return fmt.Errorf("log_axis_minimum must be in (0, 1), got %g", *c.LogAxisMinimum)
	}
	if c.GetXMin() >= c.GetXMax() {
		return fmt.Errorf("xmin %g must be below xmax %g", c.GetXMin(), c.GetXMax())
	}
	if c.GetYMin() >= c.GetYMax() {
		return fmt.Errorf("ymin %g must be below ymax %g", c.GetYMin(), c.GetYMax())
	}
	if c.GetRatioAxisMinimum() >= c.GetRatioAxisMaximum() {
		return fmt.Errorf("ratio_min %g must be below ratio_max %g", c.GetRatioAxisMinimum(), c.GetRatioAxisMaximum())
	}
	if c.GetContourWidth() <= 0 || c.GetContourHeight() <= 0 {
		return fmt.Errorf("contour size must be positive, got %dx%d", c.GetContourWidth(), c.GetContourHeight())
	}
	if c.GetScatterWidth() <= 0 || c.GetScatterHeight() <= 0 {
		return fmt.Errorf("scatter size must be positive, got %gx%g", c.GetScatterWidth(), c.GetScatterHeight())
	}
	return nil
}

// ParseColor parses "#rrggbb" or "#rrggbbaa".
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if hex == s || (len(hex) != 6 && len(hex) != 8) {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	if len(hex) == 6 {
		v = v<<8 | 0xff
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func getColor(p *string, def string) color.NRGBA {
	if p != nil {
		if c, err := ParseColor(*p); err == nil {
			return c
		}
	}
	c, _ := ParseColor(def)
	return c
}
