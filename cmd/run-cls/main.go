// Command run-cls fits every full workspace of an analysis, one per mass
// point.
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
)

func main() {
	var fit cli.FitFlags
	group := analysis.NewGroupFlag(analysis.OneLbb, analysis.HarvestGroups)

	flag.Var(group, "group", group.Usage())
	fit.Register(flag.CommandLine, "", "")
	showVersion := cli.VersionFlag(flag.CommandLine)
	flag.Parse()
	cli.HandleVersion(*showVersion, "run-cls")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	layout := analysis.NewLayout(fit.Root, group.Group, fit.Simplified)
	jobs, err := fitdriver.WorkspaceJobs(fsutil.OSFileSystem{}, layout, fit.Prune.Options())
	if err != nil {
		log.Fatalf("list workspaces: %v", err)
	}
	if len(jobs) == 0 {
		log.Fatalf("no workspaces under %s", layout.Workspaces())
	}

	b := &cli.Batch{Tool: "run-cls", Layout: layout, Flags: &fit, Args: os.Args[1:]}
	if _, err := b.Run(ctx, jobs); err != nil {
		log.Fatalf("%v", err)
	}
}
