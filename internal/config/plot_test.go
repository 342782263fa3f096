package config

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	c := EmptyPlotConfig()

	assert.Equal(t, "13 TeV", c.GetComEnergy())
	assert.Equal(t, 139000.0, c.GetLuminosity())
	assert.Equal(t, 1600, c.GetContourWidth())
	assert.Equal(t, 0.86, c.GetLabelsTop())
	assert.Equal(t, color.NRGBA{R: 0x68, G: 0x6d, B: 0xe0, A: 0xff}, c.GetExpectedColor())
	assert.Equal(t, "√s = 13 TeV, 139 fb⁻¹", c.LumiLabel())
	assert.Equal(t, "ATLAS Internal", c.ExperimentLabel())
	require.NoError(t, c.Validate())
}

func TestDefaultPlotConfigMatchesGetters(t *testing.T) {
	d := DefaultPlotConfig()
	e := EmptyPlotConfig()
	require.NoError(t, d.Validate())

	assert.Equal(t, e.GetFullBandColor(), d.GetFullBandColor())
	assert.Equal(t, e.GetProcessLabel(), d.GetProcessLabel())
	assert.Equal(t, e.GetRatioAxisMaximum(), d.GetRatioAxisMaximum())
	assert.NotNil(t, d.SimplifiedColor)
}

func TestDefaultsFileMatchesBuiltins(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	want := DefaultPlotConfig()
	// Labels are left to the built-ins in the file.
	cfg.XLabel, cfg.YLabel, cfg.ProcessLabel = want.XLabel, want.YLabel, want.ProcessLabel
	if diff := cmp.Diff(cfg, want); diff != "" {
		t.Errorf("defaults file mismatch (-got +want):\n%s", diff)
	}
}

func TestLoadPlotConfigJSON(t *testing.T) {
	path := writeConfig(t, "plot.json", `{"xmax": 1200, "status": "Preliminary", "full_band_color": "#ff7300"}`)

	c, err := LoadPlotConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1200.0, c.GetXMax())
	assert.Equal(t, 20.0, c.GetXMin())
	assert.Equal(t, "ATLAS Preliminary", c.ExperimentLabel())
	assert.Equal(t, color.NRGBA{R: 0xff, G: 0x73, A: 0xff}, c.GetFullBandColor())
}

func TestLoadPlotConfigYAML(t *testing.T) {
	path := writeConfig(t, "plot.yaml", "luminosity: 140000\nstatus: \"\"\nband_alpha: 0.5\n")

	c, err := LoadPlotConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 140000.0, c.GetLuminosity())
	assert.Equal(t, "ATLAS", c.ExperimentLabel())
	assert.Equal(t, 0.5, c.GetBandAlpha())
}

func TestLoadPlotConfigErrors(t *testing.T) {
	tests := []struct {
		name, file, body, msg string
	}{
		{"extension", "plot.txt", "{}", "extension"},
		{"bad json", "plot.json", "{", "parse config JSON"},
		{"bad yaml", "plot.yml", "xmin: [", "parse config YAML"},
		{"bad color", "plot.json", `{"observed_color": "green"}`, "observed_color"},
		{"bad alpha", "plot.json", `{"band_alpha": 2}`, "band_alpha"},
		{"bad range", "plot.json", `{"xmin": 500, "xmax": 100}`, "xmin"},
		{"bad status", "plot.json", `{"status": "Final"}`, "status"},
		{"bad log min", "plot.json", `{"log_axis_minimum": 0}`, "log_axis_minimum"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPlotConfig(writeConfig(t, tt.file, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoadPlotConfigTooLarge(t *testing.T) {
	body := `{"process_label": "` + strings.Repeat("x", maxFileSize) + `"}`
	_, err := LoadPlotConfig(writeConfig(t, "big.json", body))
	assert.ErrorContains(t, err, "too large")
}

func TestLoadPlotConfigMissing(t *testing.T) {
	_, err := LoadPlotConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	path := writeConfig(t, "plot.json", `{"ymax": 800}`)
	c, err := LoadOrDefault(path)
	require.NoError(t, err)
	assert.Equal(t, 800.0, c.GetYMax())
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#07a7ec80")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 0x07, G: 0xa7, B: 0xec, A: 0x80}, c)

	for _, bad := range []string{"07a7ec", "#07a7e", "#zzzzzz", ""} {
		_, err := ParseColor(bad)
		assert.Error(t, err, bad)
	}
}
