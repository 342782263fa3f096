package fitdriver

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"

	"github.com/fitgrid/fitgrid/internal/fitresult"
	"github.com/fitgrid/fitgrid/internal/fsutil"
	"github.com/fitgrid/fitgrid/internal/masspoint"
	"github.com/fitgrid/fitgrid/internal/monitoring"
	"github.com/fitgrid/fitgrid/internal/timeutil"
)

// Job is one point of a batch.
type Job struct {
	// Name identifies the point in logs and in -skip-to matching.
	Name  string
	Point masspoint.Point
	// Output is the result file written on success.
	Output string
	// Prepare returns the workspace to fit. Errors count as a failure of
	// this point only.
	Prepare func() ([]byte, error)
}

// Outcome is the result of one job: either a Result or an Err.
type Outcome struct {
	Name    string
	Point   masspoint.Point
	Output  string
	Result  fitresult.Result
	Err     error
	Elapsed time.Duration
}

// OK reports whether the point was fitted and written.
func (o Outcome) OK() bool { return o.Err == nil }

// Recorder persists outcomes, for example to the fit ledger.
type Recorder interface {
	RecordOutcome(o Outcome) error
}

// Summary totals a batch.
type Summary struct {
	Succeeded int
	Failed    int
	Skipped   int
	Elapsed   time.Duration
	Failures  []Outcome
}

// Runner fits jobs one at a time. A failing point is logged and the batch
// moves on; only cancellation of the context stops it early.
type Runner struct {
	Driver Driver
	FS     fsutil.FileSystem
	Clock  timeutil.Clock

	// SkipTo skips every job up to and including the first whose name
	// contains it.
	SkipTo string
	// Benchmark logs the wall time of each fit.
	Benchmark bool
	// Progress receives a progress bar when non-nil.
	Progress io.Writer
	// Recorder is optional.
	Recorder Recorder
}

// NewRunner returns a Runner writing results to the OS filesystem.
func NewRunner(d Driver) *Runner {
	return &Runner{Driver: d, FS: fsutil.OSFileSystem{}, Clock: timeutil.RealClock{}}
}

// SkipTo returns the jobs after the first one whose name contains skipTo,
// how many were dropped and whether any name matched. An empty skipTo keeps
// every job. When no name matches, nothing remains.
func SkipTo(jobs []Job, skipTo string) ([]Job, int, bool) {
	if skipTo == "" {
		return jobs, 0, true
	}
	for i, j := range jobs {
		if strings.Contains(j.Name, skipTo) {
			return jobs[i+1:], i + 1, true
		}
	}
	return nil, len(jobs), false
}

// Run fits every job and returns the batch summary. The error is non-nil
// only if ctx was cancelled.
func (r *Runner) Run(ctx context.Context, jobs []Job) (Summary, error) {
	clock := r.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	start := clock.Now()

	todo, skipped, found := SkipTo(jobs, r.SkipTo)
	sum := Summary{Skipped: skipped}
	switch {
	case !found:
		monitoring.Logf("warning: no point matches -skip-to %q, nothing to run", r.SkipTo)
	case skipped > 0:
		monitoring.Logf("skipped %d points up to %q", skipped, r.SkipTo)
	}

	w := r.Progress
	if w == nil {
		w = io.Discard
	}
	bar := pb.New(len(todo))
	bar.SetWriter(w)
	bar.SetTemplateString(`{{counters . }} {{bar . }} {{percent . }} {{etime . }} {{string . "point"}}`)
	bar.Start()
	defer bar.Finish()

	for _, job := range todo {
		if err := ctx.Err(); err != nil {
			sum.Elapsed = clock.Since(start)
			return sum, err
		}
		bar.Set("point", job.Name)

		o := r.runOne(ctx, clock, job)
		if errors.Is(o.Err, context.Canceled) || errors.Is(o.Err, context.DeadlineExceeded) {
			sum.Elapsed = clock.Since(start)
			return sum, o.Err
		}
		if o.OK() {
			sum.Succeeded++
			monitoring.Logf("%s: CLs_obs=%.4g CLs_exp=%.4g -> %s", o.Name, o.Result.CLsObs, o.Result.Expected(), o.Output)
		} else {
			sum.Failed++
			sum.Failures = append(sum.Failures, o)
			monitoring.Logf("%s: %v", o.Name, o.Err)
		}
		if r.Benchmark {
			monitoring.Logf("benchmark %s %.3fs", o.Name, o.Elapsed.Seconds())
		}
		if r.Recorder != nil {
			if err := r.Recorder.RecordOutcome(o); err != nil {
				monitoring.Logf("failed to record outcome of %s: %v", o.Name, err)
			}
		}
		bar.Increment()
	}

	sum.Elapsed = clock.Since(start)
	return sum, nil
}

func (r *Runner) runOne(ctx context.Context, clock timeutil.Clock, job Job) (o Outcome) {
	o = Outcome{Name: job.Name, Point: job.Point, Output: job.Output}
	t0 := clock.Now()
	defer func() { o.Elapsed = clock.Since(t0) }()

	ws, err := job.Prepare()
	if err != nil {
		o.Err = err
		return o
	}
	res, err := r.Driver.HypoTest(ctx, ws)
	if err != nil {
		o.Err = err
		return o
	}
	if err := fitresult.Save(r.FS, job.Output, res); err != nil {
		o.Err = err
		return o
	}
	o.Result = res
	return o
}
