// Package aggregate pairs harvests of the same signal grid so their CLs
// values can be compared point by point.
package aggregate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/fitgrid/fitgrid/internal/harvest"
	"github.com/fitgrid/fitgrid/internal/masspoint"
)

// Pair is the (expected, observed) CLs of one point in one harvest.
type Pair struct {
	Exp float64
	Obs float64
}

// Grid maps mass points to the pairs contributed by each harvest, in the
// order the harvests were added.
type Grid struct {
	pairs map[masspoint.Point][]Pair
}

// New returns an empty Grid.
func New() *Grid {
	return &Grid{pairs: make(map[masspoint.Point][]Pair)}
}

// FromHarvests aggregates the given harvests in order.
func FromHarvests(harvests ...[]harvest.Entry) *Grid {
	g := New()
	for _, h := range harvests {
		g.Add(h)
	}
	return g
}

// Add appends one harvest's (CLsexp, CLs) pair for every entry.
func (g *Grid) Add(entries []harvest.Entry) {
	for _, e := range entries {
		p := e.Point()
		g.pairs[p] = append(g.pairs[p], Pair{Exp: float64(e.CLsExp), Obs: float64(e.CLs)})
	}
}

// Pairs returns the contributions recorded for p.
func (g *Grid) Pairs(p masspoint.Point) []Pair {
	return g.pairs[p]
}

// Points returns, in mass point order, the points with at least two
// contributions.
func (g *Grid) Points() []masspoint.Point {
	var out []masspoint.Point
	for p, ps := range g.pairs {
		if len(ps) > 1 {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Dropped returns the points contributed by a single harvest.
func (g *Grid) Dropped() []masspoint.Point {
	var out []masspoint.Point
	for p, ps := range g.pairs {
		if len(ps) == 1 {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Crowded returns the points with more than two contributions. Only the
// first two take part in Arrays.
func (g *Grid) Crowded() []masspoint.Point {
	var out []masspoint.Point
	for p, ps := range g.pairs {
		if len(ps) > 2 {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Arrays holds the plotting columns. Index i of every slice refers to the
// same point; X values come from the first harvest and Y from the second.
type Arrays struct {
	Points []masspoint.Point
	ExpX   []float64
	ExpY   []float64
	ObsX   []float64
	ObsY   []float64
}

// Len returns the number of points.
func (a Arrays) Len() int { return len(a.Points) }

// Arrays builds the parallel columns over Points.
func (g *Grid) Arrays() Arrays {
	pts := g.Points()
	a := Arrays{
		Points: pts,
		ExpX:   make([]float64, len(pts)),
		ExpY:   make([]float64, len(pts)),
		ObsX:   make([]float64, len(pts)),
		ObsY:   make([]float64, len(pts)),
	}
	for i, p := range pts {
		ps := g.pairs[p]
		a.ExpX[i], a.ObsX[i] = ps[0].Exp, ps[0].Obs
		a.ExpY[i], a.ObsY[i] = ps[1].Exp, ps[1].Obs
	}
	return a
}

// Agreement summarises how closely two columns agree.
type Agreement struct {
	Correlation     float64
	MeanAbsDiff     float64
	MaxAbsDiff      float64
	MaxAbsDiffPoint masspoint.Point
}

// Summary compares the first and second harvest over the retained points.
type Summary struct {
	Points   int
	Expected Agreement
	Observed Agreement
}

// Summarize computes Pearson correlation and absolute differences for the
// expected and observed columns. With fewer than two points the correlation
// is NaN.
func (a Arrays) Summarize() Summary {
	return Summary{
		Points:   a.Len(),
		Expected: agreement(a.Points, a.ExpX, a.ExpY),
		Observed: agreement(a.Points, a.ObsX, a.ObsY),
	}
}

func agreement(pts []masspoint.Point, x, y []float64) Agreement {
	if len(x) == 0 {
		return Agreement{Correlation: math.NaN(), MeanAbsDiff: math.NaN(), MaxAbsDiff: math.NaN()}
	}
	ag := Agreement{
		Correlation: math.NaN(),
		MeanAbsDiff: floats.Distance(x, y, 1) / float64(len(x)),
	}
	if len(x) > 1 {
		ag.Correlation = stat.Correlation(x, y, nil)
	}
	diff := make([]float64, len(x))
	floats.SubTo(diff, x, y)
	for i, d := range diff {
		diff[i] = math.Abs(d)
	}
	i := floats.MaxIdx(diff)
	ag.MaxAbsDiff, ag.MaxAbsDiffPoint = diff[i], pts[i]
	return ag
}
