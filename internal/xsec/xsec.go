// Package xsec reads cross sections and filter efficiencies from a PMG
// cross-section table.
package xsec

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fitgrid/fitgrid/internal/fsutil"
	"github.com/fitgrid/fitgrid/internal/monitoring"
)

// DefaultPath is the central PMG table on CVMFS.
const DefaultPath = "/cvmfs/atlas.cern.ch/repo/sw/database/GroupData/dev/PMGTools/PMGxsecDB_mc16.txt"

// ErrNotFound is returned when no row matches a DSID (and etag).
var ErrNotFound = errors.New("no cross-section entry")

const numColumns = 9

// Entry is one row of the table.
type Entry struct {
	DSID          int
	PhysicsShort  string
	CrossSection  float64 // pb
	GenFiltEff    float64
	KFactor       float64
	RelUncertUp   float64
	RelUncertDown float64
	Generator     string
	ETag          string
}

// DB holds the rows in file order.
type DB struct {
	entries []Entry
	byDSID  map[int][]int
}

// Load reads the table at path.
func Load(fsys fsutil.FileSystem, path string) (*DB, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cross-section table: %w", err)
	}
	db, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return db, nil
}

// Parse decodes a table. The first line is a header and is skipped; columns
// are separated by one or more tabs.
func Parse(data []byte) (*DB, error) {
	db := &DB{byDSID: make(map[int][]int)}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if line == 1 {
			continue
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		e, err := parseRow(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		db.byDSID[e.DSID] = append(db.byDSID[e.DSID], len(db.entries))
		db.entries = append(db.entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return db, nil
}

func parseRow(text string) (Entry, error) {
	var fields []string
	for _, f := range strings.Split(text, "\t") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	if len(fields) != numColumns {
		return Entry{}, fmt.Errorf("expected %d columns, got %d", numColumns, len(fields))
	}

	var (
		e   Entry
		err error
	)
	if e.DSID, err = strconv.Atoi(fields[0]); err != nil {
		return Entry{}, fmt.Errorf("bad dataset number %q", fields[0])
	}
	e.PhysicsShort = fields[1]
	nums := []*float64{&e.CrossSection, &e.GenFiltEff, &e.KFactor, &e.RelUncertUp, &e.RelUncertDown}
	for i, dst := range nums {
		v, err := strconv.ParseFloat(fields[2+i], 64)
		if err != nil {
			return Entry{}, fmt.Errorf("bad number %q in column %d", fields[2+i], 3+i)
		}
		*dst = v
	}
	e.Generator = fields[7]
	e.ETag = fields[8]
	return e, nil
}

// Len returns the number of rows.
func (db *DB) Len() int { return len(db.entries) }

// Lookup returns the row for dsid, restricted to etag when it is non-empty.
// When several rows match, the first one in file order wins.
func (db *DB) Lookup(dsid int, etag string) (Entry, error) {
	var matches []int
	for _, i := range db.byDSID[dsid] {
		if etag == "" || db.entries[i].ETag == etag {
			matches = append(matches, i)
		}
	}
	if len(matches) == 0 {
		if etag != "" {
			return Entry{}, fmt.Errorf("%w for DSID %d with etag %s", ErrNotFound, dsid, etag)
		}
		return Entry{}, fmt.Errorf("%w for DSID %d", ErrNotFound, dsid)
	}
	if len(matches) > 1 {
		monitoring.Logf("more than one row with DSID %d found, picking first one", dsid)
	}
	return db.entries[matches[0]], nil
}

// Xsec returns the cross section in pb.
func (db *DB) Xsec(dsid int, etag string) (float64, error) {
	e, err := db.Lookup(dsid, etag)
	return e.CrossSection, err
}

// Efficiency returns the generator filter efficiency.
func (db *DB) Efficiency(dsid int, etag string) (float64, error) {
	e, err := db.Lookup(dsid, etag)
	return e.GenFiltEff, err
}

// KFactor returns the k-factor.
func (db *DB) KFactor(dsid int, etag string) (float64, error) {
	e, err := db.Lookup(dsid, etag)
	return e.KFactor, err
}

// XsecTimesEff returns cross section times filter efficiency.
func (db *DB) XsecTimesEff(dsid int, etag string) (float64, error) {
	e, err := db.Lookup(dsid, etag)
	return e.CrossSection * e.GenFiltEff, err
}

// XsecTimesEffTimesKFactor returns cross section times filter efficiency
// times k-factor.
func (db *DB) XsecTimesEffTimesKFactor(dsid int, etag string) (float64, error) {
	e, err := db.Lookup(dsid, etag)
	return e.CrossSection * e.GenFiltEff * e.KFactor, err
}
