package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fitgrid/fitgrid/internal/analysis"
	"github.com/fitgrid/fitgrid/internal/fitdriver"
	"github.com/fitgrid/fitgrid/internal/fsutil"
	"github.com/fitgrid/fitgrid/internal/ledger"
	"github.com/fitgrid/fitgrid/internal/monitoring"
)

// Batch runs fit jobs for one tool invocation.
type Batch struct {
	Tool   string
	Layout analysis.Layout
	Flags  *FitFlags
	Args   []string
	// Driver defaults to the pyhf command line.
	Driver fitdriver.Driver
	// FS defaults to the OS filesystem.
	FS fsutil.FileSystem
}

// Driver returns the configured fit driver.
func (f *FitFlags) Driver() fitdriver.Driver {
	d := fitdriver.NewPyhfCLI(f.Backend, f.Optimizer)
	d.Binary = f.PyhfBinary
	return d
}

// Run fits jobs, recording to the ledger when one is configured, and logs
// the summary. Point failures are not errors; cancellation and ledger
// failures are.
func (b *Batch) Run(ctx context.Context, jobs []fitdriver.Job) (fitdriver.Summary, error) {
	driver := b.Driver
	if driver == nil {
		driver = b.Flags.Driver()
	}
	r := fitdriver.NewRunner(driver)
	if b.FS != nil {
		r.FS = b.FS
	}
	r.SkipTo = b.Flags.SkipTo
	r.Benchmark = b.Flags.Benchmark
	if b.Flags.Progress {
		r.Progress = os.Stderr
	}

	var (
		l   *ledger.Ledger
		run ledger.Run
		err error
	)
	if b.Flags.Ledger != "" {
		l, err = ledger.Open(b.Flags.Ledger)
		if err != nil {
			return fitdriver.Summary{}, err
		}
		defer l.Close()
		run, err = l.StartRun(b.Tool, string(b.Layout.Group), b.Layout.Simplified, b.Args)
		if err != nil {
			return fitdriver.Summary{}, err
		}
		r.Recorder = l.Recorder(run)
		monitoring.Logf("ledger run %s", run.ID)
	}

	sum, runErr := r.Run(ctx, jobs)
	if l != nil {
		if err := l.FinishRun(run.ID, sum); err != nil {
			monitoring.Logf("failed to finish ledger run: %v", err)
		}
	}
	monitoring.Logf("%s: %d succeeded, %d failed, %d skipped in %s",
		b.Tool, sum.Succeeded, sum.Failed, sum.Skipped, sum.Elapsed.Round(time.Millisecond))
	for _, o := range sum.Failures {
		monitoring.Logf("failed: %s: %v", o.Name, o.Err)
	}
	if runErr != nil {
		return sum, fmt.Errorf("%s interrupted: %w", b.Tool, runErr)
	}
	return sum, nil
}
