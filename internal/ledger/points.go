package ledger

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/fitgrid/fitgrid/internal/fitdriver"
)

// Status of a recorded point.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Point is a recorded outcome.
type Point struct {
	RunID    string
	Name     string
	M1, M2   float64
	Status   string
	CLsObs   float64
	CLsExp   float64
	Output   string
	Error    string
	Elapsed  time.Duration
	Recorded time.Time
}

// Recorder stores the outcomes of one run. It implements fitdriver.Recorder.
type Recorder struct {
	l     *Ledger
	runID string
}

// Recorder returns an outcome recorder bound to run.
func (l *Ledger) Recorder(run Run) *Recorder {
	return &Recorder{l: l, runID: run.ID}
}

// RecordOutcome inserts one point.
func (r *Recorder) RecordOutcome(o fitdriver.Outcome) error {
	status, errText := StatusOK, ""
	var obs, exp sql.NullFloat64
	if o.OK() {
		obs = sql.NullFloat64{Float64: o.Result.CLsObs, Valid: true}
		exp = sql.NullFloat64{Float64: o.Result.Expected(), Valid: true}
	} else {
		status, errText = StatusFailed, o.Err.Error()
	}
	_, err := r.l.Exec(`
		INSERT INTO points (run_id, name, m1, m2, status, cls_obs, cls_exp, output, error, elapsed_ms, recorded_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.runID, o.Name, o.Point.M1, o.Point.M2, status, obs, exp, o.Output, errText,
		o.Elapsed.Milliseconds(), r.l.Clock.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", o.Name, err)
	}
	return nil
}

// Points returns the points of a run in recording order. An empty status
// returns every point.
func (l *Ledger) Points(runID, status string) ([]Point, error) {
	q := `SELECT run_id, name, m1, m2, status, cls_obs, cls_exp, output, error, elapsed_ms, recorded_ms
		FROM points WHERE run_id = ?`
	args := []any{runID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY point_id`

	rows, err := l.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Point
	for rows.Next() {
		var (
			p                 Point
			obs, exp          sql.NullFloat64
			elapsed, recorded int64
		)
		if err := rows.Scan(&p.RunID, &p.Name, &p.M1, &p.M2, &p.Status, &obs, &exp, &p.Output, &p.Error, &elapsed, &recorded); err != nil {
			return nil, err
		}
		p.CLsObs, p.CLsExp = nullFloat(obs), nullFloat(exp)
		p.Elapsed = time.Duration(elapsed) * time.Millisecond
		p.Recorded = time.UnixMilli(recorded)
		out = append(out, p)
	}
	return out, rows.Err()
}

func nullFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
