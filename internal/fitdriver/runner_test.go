package fitdriver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitgrid/fitgrid/internal/analysis"
	"github.com/fitgrid/fitgrid/internal/fitresult"
	"github.com/fitgrid/fitgrid/internal/fsutil"
	"github.com/fitgrid/fitgrid/internal/monitoring"
	"github.com/fitgrid/fitgrid/internal/timeutil"
	"github.com/fitgrid/fitgrid/internal/workspace"
)

// fakeDriver fails for workspaces containing any of the fail markers.
type fakeDriver struct {
	fail  []string
	calls []string
}

func (f *fakeDriver) HypoTest(ctx context.Context, ws []byte) (fitresult.Result, error) {
	f.calls = append(f.calls, string(ws))
	for _, m := range f.fail {
		if strings.Contains(string(ws), m) {
			return fitresult.Result{}, fmt.Errorf("%w: did not converge", ErrFitFailed)
		}
	}
	return fitresult.Result{CLsObs: 0.05, CLsExp: []float64{0.01, 0.02, 0.03, 0.04, 0.05}}, nil
}

type memRecorder struct{ outcomes []Outcome }

func (m *memRecorder) RecordOutcome(o Outcome) error {
	m.outcomes = append(m.outcomes, o)
	return nil
}

func jobs(names ...string) []Job {
	out := make([]Job, len(names))
	for i, n := range names {
		out[i] = Job{
			Name:    n,
			Output:  "results/" + n + ".json",
			Prepare: func() ([]byte, error) { return []byte(n), nil },
		}
	}
	return out
}

func newRunner(d Driver) (*Runner, *fsutil.MemoryFileSystem) {
	mfs := fsutil.NewMemoryFileSystem()
	return &Runner{Driver: d, FS: mfs, Clock: timeutil.NewMockClock(time.Unix(0, 0))}, mfs
}

func TestRunnerContinuesAfterFailure(t *testing.T) {
	rec, restore := monitoring.Capture()
	defer restore()

	d := &fakeDriver{fail: []string{"b"}}
	r, mfs := newRunner(d)
	ledger := &memRecorder{}
	r.Recorder = ledger

	sum, err := r.Run(context.Background(), jobs("a", "b", "c"))
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	require.Len(t, sum.Failures, 1)
	assert.Equal(t, "b", sum.Failures[0].Name)
	assert.ErrorIs(t, sum.Failures[0].Err, ErrFitFailed)

	assert.True(t, mfs.Exists("results/a.json"))
	assert.False(t, mfs.Exists("results/b.json"), "failed point must not be written")
	assert.True(t, mfs.Exists("results/c.json"), "later points still run")
	assert.Equal(t, []string{"a", "b", "c"}, d.calls)

	require.Len(t, ledger.outcomes, 3)
	assert.False(t, ledger.outcomes[1].OK())
	assert.True(t, rec.Contains("b: fit failed: did not converge"))
}

func TestRunnerPrepareFailureIsPerPoint(t *testing.T) {
	monitoring.SetLogger(nil)
	defer monitoring.SetLogger(nil)

	js := jobs("a", "b")
	js[0].Prepare = func() ([]byte, error) { return nil, workspace.ErrPatchApply }

	r, mfs := newRunner(&fakeDriver{})
	sum, err := r.Run(context.Background(), js)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Succeeded)
	assert.ErrorIs(t, sum.Failures[0].Err, workspace.ErrPatchApply)
	assert.True(t, mfs.Exists("results/b.json"))
}

func TestSkipTo(t *testing.T) {
	all := jobs("w_100_0.json", "w_200_0.json", "w_300_0.json")

	got, n, found := SkipTo(all, "")
	assert.Len(t, got, 3)
	assert.Equal(t, 0, n)
	assert.True(t, found)

	got, n, found = SkipTo(all, "200_0")
	require.Len(t, got, 1)
	assert.Equal(t, "w_300_0.json", got[0].Name, "the matching point itself is skipped")
	assert.Equal(t, 2, n)
	assert.True(t, found)

	got, n, found = SkipTo(all, "999")
	assert.Empty(t, got)
	assert.Equal(t, 3, n)
	assert.False(t, found)
}

func TestRunnerSkipTo(t *testing.T) {
	monitoring.SetLogger(nil)
	d := &fakeDriver{}
	r, _ := newRunner(d)
	r.SkipTo = "b"

	sum, err := r.Run(context.Background(), jobs("a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Skipped)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, []string{"c"}, d.calls)
}

type cancelDriver struct {
	cancel context.CancelFunc
	calls  int
}

func (c *cancelDriver) HypoTest(ctx context.Context, ws []byte) (fitresult.Result, error) {
	c.calls++
	c.cancel()
	return fitresult.Result{}, ctx.Err()
}

func TestRunnerStopsOnCancel(t *testing.T) {
	monitoring.SetLogger(nil)
	ctx, cancel := context.WithCancel(context.Background())
	d := &cancelDriver{cancel: cancel}
	r, _ := newRunner(d)

	_, err := r.Run(ctx, jobs("a", "b", "c"))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, d.calls)
}

func TestRunnerBenchmark(t *testing.T) {
	rec, restore := monitoring.Capture()
	defer restore()

	r, _ := newRunner(&fakeDriver{})
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	clock.Step = 1500 * time.Millisecond
	r.Clock = clock
	r.Benchmark = true

	sum, err := r.Run(context.Background(), jobs("a"))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Succeeded)
	assert.True(t, rec.Contains("benchmark a 1.500s"), "lines: %q", rec.Lines())
}

func TestPatchJobs(t *testing.T) {
	bkg := []byte(`{"channels": [{"name": "SR", "samples": [{"name": "bkg", "data": [1.0], "modifiers": [{"name": "syst", "type": "normsys", "data": {"hi": 1.1, "lo": 0.9}}]}]}]}`)
	ps, err := workspace.DecodePatchSet([]byte(`{"metadata": {}, "version": "1.0.0", "patches": [
		{"metadata": {"name": "sig 700_150", "values": [700, 150]}, "patch": [{"op": "add", "path": "/channels/0/samples/1", "value": {"name": "sig", "data": [0.5], "modifiers": []}}]}
	]}`))
	require.NoError(t, err)

	layout := analysis.NewLayout("", analysis.OneLbb, true)
	js, err := PatchJobs(layout, bkg, ps, workspace.PruneOptions{ModifierTypes: []string{"normsys"}})
	require.NoError(t, err)
	require.Len(t, js, 1)

	assert.Equal(t, "sig 700_150", js[0].Name)
	assert.Equal(t, "analyses/1Lbb/results/simplified_1Lbb_sig_700_150.json", js[0].Output)
	assert.Equal(t, 700.0, js[0].Point.M1)

	ws, err := js[0].Prepare()
	require.NoError(t, err)
	assert.Contains(t, string(ws), `"sig"`)
	assert.NotContains(t, string(ws), "normsys")
}

func TestWorkspaceJobs(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	ws := `{"channels": []}`
	for _, name := range []string{"C1N2_Wh_700p0_150p0.json", "C1N2_Wh_200p0_0p0.json"} {
		require.NoError(t, mfs.WriteFile("analyses/2L0J/workspaces/"+name, []byte(ws), 0o644))
	}

	layout := analysis.NewLayout("", analysis.TwoL0J, false)
	js, err := WorkspaceJobs(mfs, layout, workspace.PruneOptions{})
	require.NoError(t, err)
	require.Len(t, js, 2)
	assert.Equal(t, "C1N2_Wh_200p0_0p0.json", js[0].Name)
	assert.Equal(t, "analyses/2L0J/results/2L0J_200p0_0p0.json", js[0].Output)
	assert.Equal(t, "analyses/2L0J/results/2L0J_700p0_150p0.json", js[1].Output)

	got, err := js[1].Prepare()
	require.NoError(t, err)
	assert.Equal(t, ws, string(got))

	require.NoError(t, mfs.WriteFile("analyses/2L0J/workspaces/BkgOnly.json", []byte(ws), 0o644))
	_, err = WorkspaceJobs(mfs, layout, workspace.PruneOptions{})
	assert.Error(t, err, "a workspace without a mass token aborts the batch")
}
