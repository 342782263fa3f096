// Package cli holds the flag sets and batch wiring shared by the fitting
// tools under cmd/.
package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fitgrid/fitgrid/internal/version"
	"github.com/fitgrid/fitgrid/internal/workspace"
)

// StringList is a repeatable string flag.
type StringList []string

func (s *StringList) String() string { return strings.Join(*s, ",") }

func (s *StringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// PruneFlags registers the -prune-* flags.
type PruneFlags struct {
	Channels      StringList
	Samples       StringList
	Modifiers     StringList
	ModifierTypes StringList
}

// Register adds the flags to fs.
func (p *PruneFlags) Register(fs *flag.FlagSet) {
	fs.Var(&p.Channels, "prune-channel", "channel to prune (repeatable)")
	fs.Var(&p.Samples, "prune-sample", "sample to prune (repeatable)")
	fs.Var(&p.Modifiers, "prune-modifier", "modifier to prune (repeatable)")
	fs.Var(&p.ModifierTypes, "prune-modifier-type", "modifier type to prune (repeatable)")
}

// Options converts the flags to workspace prune options.
func (p *PruneFlags) Options() workspace.PruneOptions {
	return workspace.PruneOptions{
		Channels:      p.Channels,
		Samples:       p.Samples,
		Modifiers:     p.Modifiers,
		ModifierTypes: p.ModifierTypes,
	}
}

// FitFlags are the options of every tool that runs fits.
type FitFlags struct {
	Root       string
	Simplified bool
	Backend    string
	Optimizer  string
	PyhfBinary string
	SkipTo     string
	Benchmark  bool
	Progress   bool
	Ledger     string
	Prune      PruneFlags
}

// Register adds the flags to fs with the given backend and optimizer
// defaults. An empty default leaves the choice to pyhf.
func (f *FitFlags) Register(fs *flag.FlagSet, defaultBackend, defaultOptimizer string) {
	fs.StringVar(&f.Root, "root", ".", "directory containing analyses/")
	fs.BoolVar(&f.Simplified, "simplified", false, "use the simplified likelihood")
	fs.StringVar(&f.Backend, "backend", defaultBackend, "fitting backend passed to pyhf")
	fs.StringVar(&f.Optimizer, "optimizer", defaultOptimizer, "optimizer passed to pyhf")
	fs.StringVar(&f.PyhfBinary, "pyhf", "pyhf", "pyhf executable")
	fs.StringVar(&f.SkipTo, "skip-to", "", "resume after the first point whose name contains this string")
	fs.BoolVar(&f.Benchmark, "benchmark", false, "log the wall time of every fit")
	fs.BoolVar(&f.Progress, "progress", false, "show a progress bar on stderr")
	fs.StringVar(&f.Ledger, "ledger", "", "record the run in this SQLite fit ledger")
	f.Prune.Register(fs)
}

// VersionFlag registers -version on fs. Call HandleVersion after parsing.
func VersionFlag(fs *flag.FlagSet) *bool {
	return fs.Bool("version", false, "print version and exit")
}

// HandleVersion prints the version of tool and exits when requested.
func HandleVersion(requested bool, tool string) {
	if requested {
		fmt.Println(version.String(tool))
		os.Exit(0)
	}
}
