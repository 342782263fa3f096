// Command plot-contours overlays the exclusion contours obtained with the
// full and the simplified likelihood.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"

	"github.com/fitgrid/fitgrid/internal/analysis"
	"github.com/fitgrid/fitgrid/internal/cli"
	"github.com/fitgrid/fitgrid/internal/config"
	"github.com/fitgrid/fitgrid/internal/plotting"
)

func main() {
	var root, configPath, processLabel, output string
	group := analysis.NewGroupFlag(analysis.OneLbb, analysis.HarvestGroups)

	flag.Var(group, "group", group.Usage())
	flag.StringVar(&root, "root", ".", "directory containing analyses/")
	flag.StringVar(&configPath, "config", "", "plot configuration (.json or .yaml)")
	flag.StringVar(&processLabel, "process-label", "", "process label drawn above the plot (overrides the config)")
	flag.StringVar(&output, "o", "", "output file (default plots/exclusion_<group>.pdf)")
	showVersion := cli.VersionFlag(flag.CommandLine)
	flag.Parse()
	cli.HandleVersion(*showVersion, "plot-contours")

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if processLabel == "" {
		processLabel = cfg.GetProcessLabel()
	}

	layout := analysis.NewLayout(root, group.Group, false)
	inputs := []struct {
		suffix, title string
		fill, line    color.Color
	}{
		{"fullLH", "Full Likelihood", cfg.GetFullBandColor(), cfg.GetFullLineColor()},
		{"simplifiedLH", "Simplified Likelihood", cfg.GetSimplifiedColor(), cfg.GetSimplifiedColor()},
	}

	var sets []plotting.ContourSet
	for _, in := range inputs {
		path := filepath.Join(layout.Graphs(), fmt.Sprintf("pyhf_%s_%s.root", group.Group, in.suffix))
		cs, err := loadContours(path, in.title, in.fill, in.line)
		if err != nil {
			log.Fatalf("%v", err)
		}
		log.Printf("%s: %d expected and %d observed contour points", path, len(cs.Exp), len(cs.Obs))
		sets = append(sets, cs)
	}

	p, err := plotting.ExclusionPlot(sets, cfg, processLabel)
	if err != nil {
		log.Fatalf("plot: %v", err)
	}
	if output == "" {
		output = filepath.Join(layout.Plots(), fmt.Sprintf("exclusion_%s.pdf", group.Group))
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		log.Fatalf("%v", err)
	}
	if err := plotting.SaveExclusion(p, cfg, output); err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("wrote %s", output)
}

func loadContours(path, title string, fill, line color.Color) (plotting.ContourSet, error) {
	f, err := plotting.OpenRootFile(path)
	if err != nil {
		return plotting.ContourSet{}, err
	}
	defer f.Close()
	cs, err := plotting.LoadContourSet(f, title, fill, line)
	if err != nil {
		return plotting.ContourSet{}, fmt.Errorf("%s: %w", path, err)
	}
	return cs, nil
}
