// Command plot-yields compares the fitted yields of every sample across the
// excl, bkgOnly and free fits of one signal point.
package main

import (
	"flag"
	"log"
	"path/filepath"

	"github.com/fitgrid/fitgrid/internal/analysis"
	"github.com/fitgrid/fitgrid/internal/cli"
	"github.com/fitgrid/fitgrid/internal/config"
	"github.com/fitgrid/fitgrid/internal/fsutil"
	"github.com/fitgrid/fitgrid/internal/plotting"
	"github.com/fitgrid/fitgrid/internal/yields"
)

func main() {
	var root, dir, signal, include, configPath string
	group := analysis.NewGroupFlag(analysis.OneLbb, analysis.TruthGroups)

	flag.Var(group, "group", group.Usage())
	flag.StringVar(&root, "root", ".", "directory containing analyses/")
	flag.StringVar(&dir, "dir", yields.DefaultDir, "table directory under tables/")
	flag.StringVar(&signal, "signal", yields.DefaultSignal, "signal process as spelled in the tables")
	flag.StringVar(&include, "include", yields.DefaultInclude, "glob selecting tables (without .tex)")
	flag.StringVar(&configPath, "config", "", "plot configuration (.json or .yaml)")
	showVersion := cli.VersionFlag(flag.CommandLine)
	flag.Parse()
	cli.HandleVersion(*showVersion, "plot-yields")

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	layout := analysis.NewLayout(root, group.Group, false)
	fsys := fsutil.OSFileSystem{}
	table, err := yields.Load(fsys, layout, dir, include, signal)
	if err != nil {
		log.Fatalf("load tables: %v", err)
	}
	samples := table.Samples()
	log.Printf("%d regions, %d samples", len(table.Regions()), len(samples))

	if err := fsys.MkdirAll(layout.Plots(), 0o755); err != nil {
		log.Fatalf("%v", err)
	}
	for _, sample := range samples {
		rows, err := table.Series(sample)
		if err != nil {
			log.Fatalf("%s: %v", sample, err)
		}
		fig, err := plotting.NewYieldsFigure(sample, rows, cfg)
		if err != nil {
			log.Fatalf("%s: %v", sample, err)
		}
		out := filepath.Join(layout.Plots(), yields.OutputName(dir, sample, group.Group))
		if err := fig.Save(fsys, out); err != nil {
			log.Fatalf("%v", err)
		}
		log.Printf("wrote %s", out)
	}
}
