package cli

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitgrid/fitgrid/internal/analysis"
	"github.com/fitgrid/fitgrid/internal/fitdriver"
	"github.com/fitgrid/fitgrid/internal/fitresult"
	"github.com/fitgrid/fitgrid/internal/fsutil"
	"github.com/fitgrid/fitgrid/internal/ledger"
	"github.com/fitgrid/fitgrid/internal/monitoring"
	"github.com/fitgrid/fitgrid/internal/workspace"
)

func TestFitFlags(t *testing.T) {
	var f FitFlags
	fs := flag.NewFlagSet("run-patchset", flag.ContinueOnError)
	f.Register(fs, "numpy", "scipy")

	err := fs.Parse([]string{
		"-simplified", "-skip-to", "700p0",
		"-prune-channel", "CRtt", "-prune-channel", "CRst",
		"-prune-modifier-type", "histosys",
	})
	require.NoError(t, err)

	assert.True(t, f.Simplified)
	assert.Equal(t, "numpy", f.Backend)
	assert.Equal(t, "scipy", f.Optimizer)
	assert.Equal(t, ".", f.Root)
	assert.Equal(t, workspace.PruneOptions{
		Channels:      []string{"CRtt", "CRst"},
		ModifierTypes: []string{"histosys"},
	}, f.Prune.Options())
	assert.Equal(t, "CRtt,CRst", f.Prune.Channels.String())

	d, ok := f.Driver().(*fitdriver.PyhfCLI)
	require.True(t, ok)
	assert.Equal(t, "pyhf", d.Binary)
	assert.Equal(t, "numpy", d.Backend)
}

type stubDriver struct{ fail string }

func (s stubDriver) HypoTest(ctx context.Context, ws []byte) (fitresult.Result, error) {
	if strings.Contains(string(ws), s.fail) {
		return fitresult.Result{}, fmt.Errorf("%w: no convergence", fitdriver.ErrFitFailed)
	}
	return fitresult.Result{CLsObs: 0.1, CLsExp: []float64{0.01, 0.05, 0.1, 0.2, 0.4}}, nil
}

func testJobs(names ...string) []fitdriver.Job {
	jobs := make([]fitdriver.Job, len(names))
	for i, n := range names {
		jobs[i] = fitdriver.Job{
			Name:    n,
			Output:  "/results/" + n + ".json",
			Prepare: func() ([]byte, error) { return []byte(n), nil },
		}
	}
	return jobs
}

func TestBatchRecordsToLedger(t *testing.T) {
	rec, restore := monitoring.Capture()
	defer restore()

	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	fsys := fsutil.NewMemoryFileSystem()
	b := &Batch{
		Tool:   "run-patchset",
		Layout: analysis.NewLayout(".", analysis.OneLbb, false),
		Flags:  &FitFlags{Ledger: dbPath},
		Args:   []string{"-group", "1Lbb"},
		Driver: stubDriver{fail: "bad"},
		FS:     fsys,
	}

	sum, err := b.Run(context.Background(), testJobs("good_1", "bad_2", "good_3"))
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	assert.True(t, fsys.Exists("/results/good_3.json"))
	assert.False(t, fsys.Exists("/results/bad_2.json"))
	assert.True(t, rec.Contains("failed: bad_2"))

	l, err := ledger.Open(dbPath)
	require.NoError(t, err)
	defer l.Close()
	runs, err := l.Runs(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "1Lbb", runs[0].Analysis)
	assert.Equal(t, 1, runs[0].Failed)

	failed, err := l.Points(runs[0].ID, ledger.StatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "bad_2", failed[0].Name)
}

func TestBatchCancelled(t *testing.T) {
	_, restore := monitoring.Capture()
	defer restore()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := &Batch{
		Tool:   "run-cls",
		Layout: analysis.NewLayout(".", analysis.OneLbb, false),
		Flags:  &FitFlags{},
		Driver: stubDriver{},
		FS:     fsutil.NewMemoryFileSystem(),
	}
	_, err := b.Run(ctx, testJobs("a"))
	assert.ErrorIs(t, err, context.Canceled)
}
