// Package harvest turns a directory of per-point fit results into a single
// harvest document: a JSON array with one fixed-schema record per mass point.
//
// A harvest is all or nothing. Any unreadable result, or any result file
// whose name carries no mass token, aborts the run before the output file is
// touched.
package harvest

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/fitgrid/fitgrid/internal/analysis"
	"github.com/fitgrid/fitgrid/internal/fitresult"
	"github.com/fitgrid/fitgrid/internal/fsutil"
	"github.com/fitgrid/fitgrid/internal/masspoint"
	"github.com/fitgrid/fitgrid/internal/monitoring"
)

// ErrNoResults is returned when the result glob matches nothing.
var ErrNoResults = errors.New("no result files found")

// Harvester collects fit results for one analysis layout.
type Harvester struct {
	FS     fsutil.FileSystem
	Layout analysis.Layout
}

// New returns a Harvester reading from the OS filesystem.
func New(layout analysis.Layout) *Harvester {
	return &Harvester{FS: fsutil.OSFileSystem{}, Layout: layout}
}

type source struct {
	path  string
	point masspoint.Point
}

// Sources lists the result files of the layout ordered by mass point.
func (h *Harvester) Sources() ([]string, error) {
	srcs, err := h.sources()
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(srcs))
	for i, s := range srcs {
		paths[i] = s.path
	}
	return paths, nil
}

func (h *Harvester) sources() ([]source, error) {
	pattern := h.Layout.ResultGlob()
	paths, err := h.FS.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoResults, pattern)
	}

	srcs := make([]source, 0, len(paths))
	for _, p := range paths {
		pt, err := masspoint.Parse(p)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, source{path: p, point: pt})
	}
	sort.SliceStable(srcs, func(i, j int) bool {
		if c := srcs[i].point.Compare(srcs[j].point); c != 0 {
			return c < 0
		}
		return filepath.Base(srcs[i].path) < filepath.Base(srcs[j].path)
	})
	return srcs, nil
}

// Collect loads every result and returns the entries in mass point order.
func (h *Harvester) Collect() ([]Entry, error) {
	srcs, err := h.sources()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(srcs))
	for _, s := range srcs {
		monitoring.Logf("%s", s.path)
		r, err := fitresult.Load(h.FS, s.path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, NewEntry(s.point, r))
	}
	return entries, nil
}

// Run collects the results and writes the harvest file. It returns the
// output path and the number of entries written.
func (h *Harvester) Run() (string, int, error) {
	entries, err := h.Collect()
	if err != nil {
		return "", 0, err
	}
	data, err := Encode(entries)
	if err != nil {
		return "", 0, err
	}
	out := h.Layout.HarvestPath()
	if err := fsutil.WriteFileAtomic(h.FS, out, data, 0o644); err != nil {
		return "", 0, err
	}
	return out, len(entries), nil
}

// Encode renders entries as a sorted-key JSON array indented by two spaces.
// Non-finite CLs values are written as bare NaN and Infinity tokens.
func Encode(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode harvest: %w", err)
	}
	return fitresult.UnquoteNonFinite(data), nil
}

// Decode parses a harvest document.
func Decode(data []byte) ([]Entry, error) {
	var entries []Entry
	if err := json.Unmarshal(fitresult.QuoteNonFinite(data), &entries); err != nil {
		return nil, fmt.Errorf("failed to decode harvest: %w", err)
	}
	return entries, nil
}

// Load reads the harvest file at path.
func Load(fsys fsutil.FileSystem, path string) ([]Entry, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read harvest %s: %w", path, err)
	}
	entries, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}
