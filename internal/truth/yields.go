package truth

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/fitgrid/fitgrid/internal/fsutil"
	"github.com/fitgrid/fitgrid/internal/masspoint"
)

// DefaultInclude selects the chargino-neutralino truth files.
const DefaultInclude = "*C1*N2*.txt"

// DefaultLumi is the integrated luminosity in pb^-1.
const DefaultLumi = 139000.0

// Yield is an expected signal count with its statistical error.
type Yield struct {
	Events  float64
	StatErr float64
}

// Add combines two yields; errors add in quadrature.
func (y Yield) Add(o Yield) Yield {
	return Yield{Events: y.Events + o.Events, StatErr: math.Hypot(y.StatErr, o.StatErr)}
}

// PointYields are the per-region yields of one mass point.
type PointYields struct {
	Point   masspoint.Point
	Regions map[string]Yield
	Files   []string
}

// XsecSource returns cross section times filter efficiency for a DSID.
type XsecSource interface {
	XsecTimesEff(dsid int, etag string) (float64, error)
}

// ParseYieldFile reads a truth acceptance file. The first line is a header;
// each further line is "region,<unused>,acceptance,error". Acceptances are
// scaled by lumi times xsec. Repeated regions are combined.
func ParseYieldFile(data []byte, scale float64) (map[string]Yield, error) {
	out := make(map[string]Yield)
	sc := bufio.NewScanner(bytes.NewReader(data))
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
		fields := strings.Split(text, ",")
		if len(fields) < 4 {
			return nil, fmt.Errorf("line %d: expected at least 4 fields, got %d", line, len(fields))
		}
		acc, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad acceptance %q", line, fields[2])
		}
		accErr, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad error %q", line, fields[3])
		}
		region := strings.TrimSpace(fields[0])
		y := Yield{Events: scale * acc, StatErr: scale * accErr}
		if prev, ok := out[region]; ok {
			y = prev.Add(y)
		}
		out[region] = y
	}
	return out, sc.Err()
}

// Collect reads every truth file matching include under dir and sums the
// yields per mass point. Several files (e.g. decay channels) may contribute
// to one point. Points are returned in mass order.
func Collect(fsys fsutil.FileSystem, dir, include string, lumi float64, xs XsecSource) ([]PointYields, error) {
	if include == "" {
		include = DefaultInclude
	}
	pattern := filepath.Join(dir, include)
	paths, err := fsys.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no truth files match %s", pattern)
	}

	byToken := make(map[string]*PointYields)
	for _, path := range paths {
		pt, err := masspoint.ParseStrict(path)
		if err != nil {
			return nil, err
		}
		dsid, err := masspoint.ParseDSID(path)
		if err != nil {
			return nil, err
		}
		xsec, err := xs.XsecTimesEff(dsid, "")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		data, err := fsys.ReadFile(path)
		if err != nil {
			return nil, err
		}
		regions, err := ParseYieldFile(data, lumi*xsec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}

		py, ok := byToken[pt.Token()]
		if !ok {
			py = &PointYields{Point: pt, Regions: make(map[string]Yield)}
			byToken[pt.Token()] = py
		}
		py.Files = append(py.Files, path)
		for r, y := range regions {
			if prev, ok := py.Regions[r]; ok {
				y = prev.Add(y)
			}
			py.Regions[r] = y
		}
	}

	out := make([]PointYields, 0, len(byToken))
	for _, py := range byToken {
		out = append(out, *py)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Point.Less(out[j].Point) })
	return out, nil
}
