// Command simplify-patchset rewrites a signal patchset for use with a
// simplified likelihood.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/fitgrid/fitgrid/internal/analysis"
	"github.com/fitgrid/fitgrid/internal/cli"
	"github.com/fitgrid/fitgrid/internal/fsutil"
	"github.com/fitgrid/fitgrid/internal/simplify"
	"github.com/fitgrid/fitgrid/internal/workspace"
)

const indent = "    "

func main() {
	var root, likelihood, patchset, output string
	var uncertainty float64
	var check bool
	group := analysis.NewGroupFlag(analysis.OneLbb, analysis.AllGroups)

	flag.Var(group, "group", group.Usage())
	flag.StringVar(&root, "root", ".", "directory containing analyses/")
	flag.StringVar(&likelihood, "likelihood", "BkgOnly.json", "background-only likelihood under likelihoods/")
	flag.StringVar(&patchset, "patchset", "patchset.json", "signal patchset under likelihoods/")
	flag.StringVar(&output, "o", "simplified_patchset.json", "output file under likelihoods/, - for stdout")
	flag.Float64Var(&uncertainty, "signal-uncertainties", 0.0, "relative flat uncertainty on the signal yields")
	flag.BoolVar(&check, "check", false, "apply every simplified patch to the likelihood before writing")
	showVersion := cli.VersionFlag(flag.CommandLine)
	flag.Parse()
	cli.HandleVersion(*showVersion, "simplify-patchset")

	layout := analysis.NewLayout(root, group.Group, false)
	fsys := fsutil.OSFileSystem{}

	bkg, err := workspace.Load(fsys, layout.LikelihoodPath(likelihood))
	if err != nil {
		log.Fatalf("load likelihood: %v", err)
	}
	ps, err := workspace.LoadPatchSet(fsys, layout.LikelihoodPath(patchset))
	if err != nil {
		log.Fatalf("load patchset: %v", err)
	}

	simplified, err := simplify.PatchSet(ps, simplify.Options{SignalUncertainty: uncertainty})
	if err != nil {
		log.Fatalf("simplify: %v", err)
	}
	for _, p := range simplified.Patches {
		log.Printf("%s: %d signal samples", p.Name(), len(p.Patch))
		if !check {
			continue
		}
		if _, err := workspace.ApplyPatch(bkg, p); err != nil {
			log.Fatalf("check %s: %v", p.Name(), err)
		}
	}

	if output == "-" {
		data, err := workspace.Marshal(simplified, indent)
		if err != nil {
			log.Fatalf("encode: %v", err)
		}
		if _, err := os.Stdout.Write(data); err != nil {
			log.Fatalf("write: %v", err)
		}
		return
	}
	out := layout.LikelihoodPath(output)
	if err := workspace.Write(fsys, out, simplified, indent); err != nil {
		log.Fatalf("write %s: %v", out, err)
	}
	log.Printf("written to %s", out)
}
