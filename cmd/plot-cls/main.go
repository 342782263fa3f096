// Command plot-cls compares the CLs values of two harvests of the same
// analysis, normally the simplified likelihood against the full one.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/fitgrid/fitgrid/internal/aggregate"
	"github.com/fitgrid/fitgrid/internal/analysis"
	"github.com/fitgrid/fitgrid/internal/cli"
	"github.com/fitgrid/fitgrid/internal/config"
	"github.com/fitgrid/fitgrid/internal/fsutil"
	"github.com/fitgrid/fitgrid/internal/harvest"
	"github.com/fitgrid/fitgrid/internal/masspoint"
	"github.com/fitgrid/fitgrid/internal/plotting"
)

func main() {
	var root, configPath, output string
	var harvests cli.StringList
	var logScale, html bool
	group := analysis.NewGroupFlag(analysis.OneLbb, analysis.AllGroups)

	flag.Var(group, "group", group.Usage())
	flag.StringVar(&root, "root", ".", "directory containing analyses/")
	flag.Var(&harvests, "harvest", "harvest file (repeatable; x axis first, default simplified then full)")
	flag.BoolVar(&logScale, "log", false, "logarithmic axes")
	flag.BoolVar(&html, "html", false, "also write an interactive HTML chart")
	flag.StringVar(&configPath, "config", "", "plot configuration (.json or .yaml)")
	flag.StringVar(&output, "o", "", "output file (default plots/"+plotting.ScatterName(false)+" or _log)")
	showVersion := cli.VersionFlag(flag.CommandLine)
	flag.Parse()
	cli.HandleVersion(*showVersion, "plot-cls")

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	full := analysis.NewLayout(root, group.Group, false)
	if len(harvests) == 0 {
		harvests = cli.StringList{
			analysis.NewLayout(root, group.Group, true).HarvestPath(),
			full.HarvestPath(),
		}
	}
	if len(harvests) < 2 {
		log.Fatalf("need at least two harvests, got %d", len(harvests))
	}

	fsys := fsutil.OSFileSystem{}
	grid := aggregate.New()
	for _, path := range harvests {
		entries, err := harvest.Load(fsys, path)
		if err != nil {
			log.Fatalf("%v", err)
		}
		log.Printf("loaded %d entries from %s", len(entries), path)
		grid.Add(entries)
	}
	if dropped := grid.Dropped(); len(dropped) > 0 {
		log.Printf("skipping %d points present in one harvest only: %s", len(dropped), joinPoints(dropped))
	}
	if crowded := grid.Crowded(); len(crowded) > 0 {
		log.Printf("%d points have more than two entries, using the first two: %s", len(crowded), joinPoints(crowded))
	}

	a := grid.Arrays()
	if a.Len() == 0 {
		log.Fatalf("no points in common between %s", strings.Join(harvests, ", "))
	}
	printSummary(a.Summarize())

	if output == "" {
		output = filepath.Join(full.Plots(), plotting.ScatterName(logScale))
	}
	if err := fsys.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		log.Fatalf("%v", err)
	}
	p, err := plotting.CLsScatter(a, cfg, logScale)
	if err != nil {
		log.Fatalf("plot: %v", err)
	}
	w, h := plotting.ScatterSize(cfg)
	if err := plotting.Save(p, w, h, output); err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("wrote %s", output)

	if html {
		var buf bytes.Buffer
		title := fmt.Sprintf("%s CLs comparison", group.Group)
		if err := plotting.RenderScatterHTML(&buf, a, cfg, logScale, title); err != nil {
			log.Fatalf("render html: %v", err)
		}
		out := strings.TrimSuffix(output, filepath.Ext(output)) + ".html"
		if err := fsutil.WriteFileAtomic(fsys, out, buf.Bytes(), 0o644); err != nil {
			log.Fatalf("%v", err)
		}
		log.Printf("wrote %s", out)
	}
}

func printSummary(s aggregate.Summary) {
	fmt.Printf("points compared: %d\n", s.Points)
	for _, c := range []struct {
		name string
		ag   aggregate.Agreement
	}{{"expected", s.Expected}, {"observed", s.Observed}} {
		fmt.Printf("%s CLs: correlation %.4f, mean |diff| %.4g, max |diff| %.4g at %s\n",
			c.name, c.ag.Correlation, c.ag.MeanAbsDiff, c.ag.MaxAbsDiff, c.ag.MaxAbsDiffPoint)
	}
}

func joinPoints(pts []masspoint.Point) string {
	names := make([]string, len(pts))
	for i, p := range pts {
		names[i] = p.String()
	}
	return strings.Join(names, " ")
}
