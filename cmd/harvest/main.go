// Command harvest converts per-point fit results into a harvest file for
// the contour tooling.
package main

import (
	"flag"
	"log"

	"github.com/fitgrid/fitgrid/internal/analysis"
	"github.com/fitgrid/fitgrid/internal/cli"
	"github.com/fitgrid/fitgrid/internal/harvest"
)

func main() {
	var root string
	var simplified bool
	group := analysis.NewGroupFlag(analysis.OneLbb, analysis.HarvestGroups)

	flag.Var(group, "group", group.Usage())
	flag.StringVar(&root, "root", ".", "directory containing analyses/")
	flag.BoolVar(&simplified, "simplified", false, "harvest simplified likelihood results")
	showVersion := cli.VersionFlag(flag.CommandLine)
	flag.Parse()
	cli.HandleVersion(*showVersion, "harvest")

	h := harvest.New(analysis.NewLayout(root, group.Group, simplified))
	out, n, err := h.Run()
	if err != nil {
		log.Fatalf("harvest failed: %v", err)
	}
	log.Printf("wrote %d entries to %s", n, out)
}
