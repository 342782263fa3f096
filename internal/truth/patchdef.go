// Package truth builds signal workspaces from truth-level acceptances and
// fits them against the background-only likelihood.
package truth

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/fitgrid/fitgrid/internal/fsutil"
)

// Patch definition columns used to build the signal patch.
const (
	ColumnEff      = "eff"
	ColumnJSONPath = "jsonpath"
)

// PatchDef maps signal regions to their patch properties. The first CSV
// column names the region; every other column is keyed by its header.
type PatchDef struct {
	columns []string
	regions []string
	values  map[string]map[string]string
}

// ParsePatchDef reads a patch definition CSV.
func ParsePatchDef(r io.Reader) (*PatchDef, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty patch definition")
	}
	if err != nil {
		return nil, err
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("patch definition header needs a region column and at least one value column, got %v", header)
	}

	d := &PatchDef{columns: header[1:], values: make(map[string]map[string]string)}
	for _, col := range d.columns {
		d.values[col] = make(map[string]string)
	}
	seen := make(map[string]bool)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		if len(row) > len(header) {
			return nil, fmt.Errorf("line %d: %d fields, expected %d", line, len(row), len(header))
		}
		region := row[0]
		if seen[region] {
			return nil, fmt.Errorf("line %d: duplicate region %q", line, region)
		}
		seen[region] = true
		d.regions = append(d.regions, region)
		for i := 1; i < len(row); i++ {
			d.values[header[i]][region] = row[i]
		}
	}
	return d, nil
}

// LoadPatchDef reads a patch definition file.
func LoadPatchDef(fsys fsutil.FileSystem, path string) (*PatchDef, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read patch definition: %w", err)
	}
	d, err := ParsePatchDef(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Regions returns the regions that have a value in column, in file order.
func (d *PatchDef) Regions(column string) []string {
	vals, ok := d.values[column]
	if !ok {
		return nil
	}
	var out []string
	for _, r := range d.regions {
		if _, ok := vals[r]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Value returns the entry of column for region.
func (d *PatchDef) Value(column, region string) (string, bool) {
	v, ok := d.values[column][region]
	return v, ok
}
