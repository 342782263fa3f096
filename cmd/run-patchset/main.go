// Command run-patchset fits every signal patch of a patchset against the
// background-only likelihood.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fitgrid/fitgrid/internal/analysis"
	"github.com/fitgrid/fitgrid/internal/cli"
	"github.com/fitgrid/fitgrid/internal/fitdriver"
	"github.com/fitgrid/fitgrid/internal/fsutil"
	"github.com/fitgrid/fitgrid/internal/workspace"
)

func main() {
	var fit cli.FitFlags
	var likelihood, patchset string
	group := analysis.NewGroupFlag(analysis.OneLbb, analysis.AllGroups)

	flag.Var(group, "group", group.Usage())
	fit.Register(flag.CommandLine, "numpy", "")
	flag.StringVar(&likelihood, "likelihood", "BkgOnly.json", "background-only likelihood under likelihoods/")
	flag.StringVar(&patchset, "patchset", "patchset.json", "signal patchset under likelihoods/")
	showVersion := cli.VersionFlag(flag.CommandLine)
	flag.Parse()
	cli.HandleVersion(*showVersion, "run-patchset")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	layout := analysis.NewLayout(fit.Root, group.Group, fit.Simplified)
	fsys := fsutil.OSFileSystem{}

	bkg, err := workspace.Load(fsys, layout.LikelihoodPath(likelihood))
	if err != nil {
		log.Fatalf("load likelihood: %v", err)
	}
	ps, err := workspace.LoadPatchSet(fsys, layout.LikelihoodPath(patchset))
	if err != nil {
		log.Fatalf("load patchset: %v", err)
	}
	log.Printf("loaded %d patches from %s", len(ps.Patches), layout.LikelihoodPath(patchset))

	jobs, err := fitdriver.PatchJobs(layout, bkg, ps, fit.Prune.Options())
	if err != nil {
		log.Fatalf("prepare jobs: %v", err)
	}

	b := &cli.Batch{Tool: "run-patchset", Layout: layout, Flags: &fit, Args: os.Args[1:]}
	if _, err := b.Run(ctx, jobs); err != nil {
		log.Fatalf("%v", err)
	}
}
