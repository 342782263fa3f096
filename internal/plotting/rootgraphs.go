package plotting

import (
	"errors"
	"fmt"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rhist"
	"gonum.org/v1/plot/plotter"
)

// Graph names written by the contour harvesting step.
const (
	BandGraph     = "Band_1s_0"
	ExpectedGraph = "Exp_0"
	ObservedGraph = "Obs_0"
)

// ErrNotAGraph is returned when a key does not hold a TGraph.
var ErrNotAGraph = errors.New("object is not a graph")

// GraphSource provides named (x, y) graphs.
type GraphSource interface {
	Graph(name string) (plotter.XYs, error)
}

// RootFile reads TGraphs from a ROOT file.
type RootFile struct {
	f *groot.File
}

// OpenRootFile opens a ROOT file for reading.
func OpenRootFile(path string) (*RootFile, error) {
	f, err := groot.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &RootFile{f: f}, nil
}

// Close closes the file.
func (r *RootFile) Close() error { return r.f.Close() }

// Graph returns the points of the TGraph stored under name.
func (r *RootFile) Graph(name string) (plotter.XYs, error) {
	obj, err := r.f.Get(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	g, ok := obj.(rhist.Graph)
	if !ok {
		return nil, fmt.Errorf("%s: %w (%s)", name, ErrNotAGraph, obj.Class())
	}
	xys := make(plotter.XYs, g.Len())
	for i := range xys {
		xys[i].X, xys[i].Y = g.XY(i)
	}
	return xys, nil
}

// Graphs is an in-memory GraphSource.
type Graphs map[string]plotter.XYs

// Graph returns the named graph.
func (g Graphs) Graph(name string) (plotter.XYs, error) {
	xys, ok := g[name]
	if !ok {
		return nil, fmt.Errorf("no graph %s", name)
	}
	return xys, nil
}
