// Command run-truth fits signal yields computed from truth-level
// acceptances against the background-only likelihood.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fitgrid/fitgrid/internal/analysis"
	"github.com/fitgrid/fitgrid/internal/cli"
	"github.com/fitgrid/fitgrid/internal/fsutil"
	"github.com/fitgrid/fitgrid/internal/truth"
	"github.com/fitgrid/fitgrid/internal/workspace"
	"github.com/fitgrid/fitgrid/internal/xsec"
)

func main() {
	var fit cli.FitFlags
	var likelihood, patchName, include, xsecPath string
	var lumi float64
	group := analysis.NewGroupFlag(analysis.OneLbb, analysis.TruthGroups)

	flag.Var(group, "group", group.Usage())
	fit.Register(flag.CommandLine, "pytorch", "scipy")
	flag.StringVar(&likelihood, "likelihood", "BkgOnly.json", "background-only likelihood under likelihoods/")
	flag.StringVar(&patchName, "patchname", "", "patch definition under truth/ (default <group>.patch)")
	flag.StringVar(&include, "include", truth.DefaultInclude, "glob selecting truth files under truth/")
	flag.StringVar(&xsecPath, "xsec-db", xsec.DefaultPath, "PMG cross-section table")
	flag.Float64Var(&lumi, "lumi", truth.DefaultLumi, "integrated luminosity in pb^-1")
	showVersion := cli.VersionFlag(flag.CommandLine)
	flag.Parse()
	cli.HandleVersion(*showVersion, "run-truth")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	layout := analysis.NewLayout(fit.Root, group.Group, fit.Simplified)
	fsys := fsutil.OSFileSystem{}

	bkg, err := workspace.Load(fsys, layout.LikelihoodPath(likelihood))
	if err != nil {
		log.Fatalf("load likelihood: %v", err)
	}
	if patchName == "" {
		patchName = string(group.Group) + ".patch"
	}
	def, err := truth.LoadPatchDef(fsys, filepath.Join(layout.Truth(), patchName))
	if err != nil {
		log.Fatalf("load patch definition: %v", err)
	}
	db, err := xsec.Load(fsys, xsecPath)
	if err != nil {
		log.Fatalf("load cross sections: %v", err)
	}
	log.Printf("loaded %d cross sections from %s", db.Len(), xsecPath)

	points, err := truth.Collect(fsys, layout.Truth(), include, lumi, db)
	if err != nil {
		log.Fatalf("collect truth yields: %v", err)
	}
	log.Printf("collected truth yields for %d points", len(points))

	jobs := truth.Jobs(layout, bkg, def, points, fit.Prune.Options())
	b := &cli.Batch{Tool: "run-truth", Layout: layout, Flags: &fit, Args: os.Args[1:]}
	if _, err := b.Run(ctx, jobs); err != nil {
		log.Fatalf("%v", err)
	}
}
