package ledger

import (
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitgrid/fitgrid/internal/fitdriver"
	"github.com/fitgrid/fitgrid/internal/fitresult"
	"github.com/fitgrid/fitgrid/internal/masspoint"
	"github.com/fitgrid/fitgrid/internal/monitoring"
	"github.com/fitgrid/fitgrid/internal/timeutil"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	_, restore := monitoring.Capture()
	t.Cleanup(restore)

	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	l.Clock = timeutil.NewMockClock(epoch)
	return l
}

func TestOpenMigratesToLatest(t *testing.T) {
	l := openTestLedger(t)

	v, dirty, err := l.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
	assert.False(t, dirty)

	// Running again is a no-op.
	require.NoError(t, l.MigrateUp())
}

func TestReopenKeepsRuns(t *testing.T) {
	_, restore := monitoring.Capture()
	defer restore()
	path := filepath.Join(t.TempDir(), "ledger.db")

	l, err := Open(path)
	require.NoError(t, err)
	run, err := l.StartRun("run-cls", "1Lbb", false, nil)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l, err = Open(path)
	require.NoError(t, err)
	defer l.Close()
	runs, err := l.Runs(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestRunLifecycle(t *testing.T) {
	l := openTestLedger(t)

	run, err := l.StartRun("run-patchset", "2L0J", true, []string{"-analysis", "2L0J", "-simplified"})
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)

	runs, err := l.Runs(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.False(t, runs[0].Done())
	assert.True(t, runs[0].Simplified)
	assert.Equal(t, "-analysis 2L0J -simplified", runs[0].Args)

	require.NoError(t, l.FinishRun(run.ID, fitdriver.Summary{Succeeded: 3, Failed: 1, Skipped: 2}))

	runs, err = l.Runs(5)
	require.NoError(t, err)
	got := runs[0]
	assert.True(t, got.Done())
	assert.Equal(t, 3, got.Succeeded)
	assert.Equal(t, 1, got.Failed)
	assert.Equal(t, 2, got.Skipped)
	assert.Equal(t, epoch.UnixMilli(), got.Started.UnixMilli())
}

func TestFinishUnknownRun(t *testing.T) {
	l := openTestLedger(t)
	assert.Error(t, l.FinishRun("missing", fitdriver.Summary{}))
}

func TestRunsNewestFirst(t *testing.T) {
	l := openTestLedger(t)
	clock := l.Clock.(*timeutil.MockClock)

	first, err := l.StartRun("run-cls", "1Lbb", false, nil)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	second, err := l.StartRun("run-cls", "1Lbb", false, nil)
	require.NoError(t, err)

	runs, err := l.Runs(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)

	runs, err = l.Runs(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRecorderStoresOutcomes(t *testing.T) {
	l := openTestLedger(t)
	run, err := l.StartRun("run-patchset", "1Lbb", false, nil)
	require.NoError(t, err)

	var rec fitdriver.Recorder = l.Recorder(run)
	require.NoError(t, rec.RecordOutcome(fitdriver.Outcome{
		Name:    "C1N2_Wh_hbb_700p0_150p0",
		Point:   masspoint.Point{M1: 700, M2: 150},
		Output:  "results/1Lbb_C1N2_Wh_hbb_700p0_150p0.json",
		Result:  fitresult.Result{CLsObs: 0.02, CLsExp: []float64{0.001, 0.01, 0.05, 0.2, 0.5}},
		Elapsed: 1500 * time.Millisecond,
	}))
	require.NoError(t, rec.RecordOutcome(fitdriver.Outcome{
		Name:  "C1N2_Wh_hbb_800p0_150p0",
		Point: masspoint.Point{M1: 800, M2: 150},
		Err:   errors.New("fit failed: did not converge"),
	}))

	all, err := l.Points(run.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	ok := all[0]
	assert.Equal(t, StatusOK, ok.Status)
	assert.InDelta(t, 0.02, ok.CLsObs, 1e-12)
	assert.InDelta(t, 0.05, ok.CLsExp, 1e-12)
	assert.Equal(t, 1500*time.Millisecond, ok.Elapsed)
	assert.Equal(t, 700.0, ok.M1)

	failed, err := l.Points(run.ID, StatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "C1N2_Wh_hbb_800p0_150p0", failed[0].Name)
	assert.Equal(t, "fit failed: did not converge", failed[0].Error)
	assert.True(t, math.IsNaN(failed[0].CLsObs))
}

func TestRecorderRejectsUnknownRun(t *testing.T) {
	l := openTestLedger(t)
	rec := l.Recorder(Run{ID: "not-a-run"})
	err := rec.RecordOutcome(fitdriver.Outcome{Name: "x"})
	assert.Error(t, err)
}

func TestServeBackup(t *testing.T) {
	l := openTestLedger(t)
	_, err := l.StartRun("harvest", "1Lbb", false, nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	l.serveBackup(w, httptest.NewRequest(http.MethodGet, "/debug/backup", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".db.gz")

	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "SQLite format 3\x00", string(data[:16]))
}

func TestAttachAdminRoutes(t *testing.T) {
	l := openTestLedger(t)
	mux := http.NewServeMux()
	assert.NoError(t, l.AttachAdminRoutes(mux))
}
