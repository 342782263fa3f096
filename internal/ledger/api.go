package ledger

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/fitgrid/fitgrid/internal/httputil"
)

const defaultRunLimit = 50

type runJSON struct {
	ID         string     `json:"id"`
	Tool       string     `json:"tool"`
	Analysis   string     `json:"analysis"`
	Simplified bool       `json:"simplified"`
	Args       string     `json:"args"`
	Started    time.Time  `json:"started"`
	Finished   *time.Time `json:"finished,omitempty"`
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
	Skipped    int        `json:"skipped"`
}

func newRunJSON(r Run) runJSON {
	out := runJSON{
		ID: r.ID, Tool: r.Tool, Analysis: r.Analysis, Simplified: r.Simplified, Args: r.Args,
		Started: r.Started.UTC(), Succeeded: r.Succeeded, Failed: r.Failed, Skipped: r.Skipped,
	}
	if r.Done() {
		f := r.Finished.UTC()
		out.Finished = &f
	}
	return out
}

// pointJSON leaves the CLs values out for failed points; JSON has no NaN.
type pointJSON struct {
	Name      string   `json:"name"`
	M1        float64  `json:"m1"`
	M2        float64  `json:"m2"`
	Status    string   `json:"status"`
	CLsObs    *float64 `json:"cls_obs,omitempty"`
	CLsExp    *float64 `json:"cls_exp,omitempty"`
	Output    string   `json:"output,omitempty"`
	Error     string   `json:"error,omitempty"`
	ElapsedMS int64    `json:"elapsed_ms"`
}

func newPointJSON(p Point) pointJSON {
	return pointJSON{
		Name: p.Name, M1: p.M1, M2: p.M2, Status: p.Status,
		CLsObs: finite(p.CLsObs), CLsExp: finite(p.CLsExp),
		Output: p.Output, Error: p.Error, ElapsedMS: p.Elapsed.Milliseconds(),
	}
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// attachAPI mounts the read-only JSON endpoints:
//
//	GET /api/runs?limit=N
//	GET /api/runs/{id}
//	GET /api/runs/{id}/points?status=failed
func (l *Ledger) attachAPI(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/runs", l.handleRuns)
	mux.HandleFunc("GET /api/runs/{id}", l.handleRun)
	mux.HandleFunc("GET /api/runs/{id}/points", l.handlePoints)
}

func (l *Ledger) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			httputil.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := l.Runs(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	out := make([]runJSON, len(runs))
	for i, run := range runs {
		out[i] = newRunJSON(run)
	}
	httputil.WriteJSONOK(w, out)
}

func (l *Ledger) handleRun(w http.ResponseWriter, r *http.Request) {
	run, ok := l.lookupRun(w, r.PathValue("id"))
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, newRunJSON(run))
}

func (l *Ledger) handlePoints(w http.ResponseWriter, r *http.Request) {
	run, ok := l.lookupRun(w, r.PathValue("id"))
	if !ok {
		return
	}
	status := r.URL.Query().Get("status")
	switch status {
	case "", StatusOK, StatusFailed:
	default:
		httputil.BadRequest(w, "status must be ok or failed")
		return
	}
	pts, err := l.Points(run.ID, status)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	out := make([]pointJSON, len(pts))
	for i, p := range pts {
		out[i] = newPointJSON(p)
	}
	httputil.WriteJSONOK(w, out)
}

func (l *Ledger) lookupRun(w http.ResponseWriter, id string) (Run, bool) {
	run, err := l.Run(id)
	switch {
	case errors.Is(err, ErrRunNotFound):
		httputil.NotFound(w, err.Error())
		return Run{}, false
	case err != nil:
		httputil.InternalServerError(w, err.Error())
		return Run{}, false
	}
	return run, true
}
