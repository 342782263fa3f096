// Package yields reads fitted-yield LaTeX tables written by HistFitter and
// arranges them for the per-region comparison plot.
package yields

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/fitgrid/fitgrid/internal/analysis"
	"github.com/fitgrid/fitgrid/internal/fsutil"
	"github.com/fitgrid/fitgrid/internal/monitoring"
)

// Defaults for the compressed-analysis tables.
const (
	DefaultDir     = "175_135"
	DefaultSignal  = `MGPy8EG\_A14N23LO\_C1N2\_WZ\_175p0\_135p0\_2L2MET75\_MadSpin`
	DefaultInclude = "*"
)

// BackgroundProcess is the total-background row of a table.
const BackgroundProcess = "bkg"

// FitConfig is the fit a table was produced with.
type FitConfig string

const (
	Excl    FitConfig = "excl"    // mu_SIG = 1
	BkgOnly FitConfig = "bkgOnly" // mu_SIG = 0
	Free    FitConfig = "free"    // mu_SIG floating
)

// FitConfigs in plotting order.
var FitConfigs = []FitConfig{Free, BkgOnly, Excl}

// ErrNoFitConfig is returned for table names that name no fit config.
var ErrNoFitConfig = errors.New("no fit config in table name")

// FitConfigFromName returns the fit config named in a table file name.
func FitConfigFromName(path string) (FitConfig, error) {
	name := filepath.Base(path)
	for _, c := range []FitConfig{Excl, BkgOnly, Free} {
		if strings.Contains(name, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoFitConfig, name)
}

// Yield is a fitted yield. Errors are magnitudes.
type Yield struct {
	Value   float64
	ErrUp   float64
	ErrDown float64
}

// ParseYield parses a table cell such as "$12.3 \pm 1.2$" or
// "$4.5_{-0.4}^{+0.6}$".
func ParseYield(cell string) (Yield, error) {
	s := strings.NewReplacer(" ", "", "$", "").Replace(cell)
	if head, tail, ok := strings.Cut(s, `\pm`); ok {
		v, err := parseNumber(head)
		if err != nil {
			return Yield{}, err
		}
		e, err := parseNumber(tail)
		if err != nil {
			return Yield{}, err
		}
		return Yield{Value: v, ErrUp: math.Abs(e), ErrDown: math.Abs(e)}, nil
	}

	head, tail, ok := strings.Cut(s, "_")
	v, err := parseNumber(head)
	if err != nil {
		return Yield{}, err
	}
	if !ok {
		return Yield{Value: v}, nil
	}
	down, up, ok := strings.Cut(tail, "^")
	if !ok {
		return Yield{}, fmt.Errorf("asymmetric error without upper part in %q", cell)
	}
	d, err := parseNumber(down)
	if err != nil {
		return Yield{}, err
	}
	u, err := parseNumber(up)
	if err != nil {
		return Yield{}, err
	}
	return Yield{Value: v, ErrUp: math.Abs(u), ErrDown: math.Abs(d)}, nil
}

func parseNumber(s string) (float64, error) {
	s = strings.NewReplacer("{", "", "}", "", `\`, "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad yield %q", s)
	}
	return v, nil
}

// ProcessName strips a "Fitted <process> events" row label to the process.
func ProcessName(label string) string {
	return strings.NewReplacer(" ", "", "Fitted", "", "events", "").Replace(label)
}

// ParseTable returns the fitted yields of one table by process.
func ParseTable(data []byte) (map[string]Yield, error) {
	out := make(map[string]Yield)
	sc := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(text, "Fitted") {
			continue
		}
		cells := strings.Split(text, "&")
		if len(cells) < 2 {
			return nil, fmt.Errorf("line %d: no yield column", line)
		}
		y, err := ParseYield(cells[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out[ProcessName(cells[0])] = y
	}
	return out, sc.Err()
}

// Table holds yields by region, fit config and process.
type Table struct {
	yields map[string]map[FitConfig]map[string]Yield
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{yields: make(map[string]map[FitConfig]map[string]Yield)}
}

// Set stores the yields of one region and fit config. When both signal and
// the total background are present, signal is subtracted from background.
func (t *Table) Set(region string, cfg FitConfig, procs map[string]Yield, signal string) {
	if sig, ok := procs[signal]; ok && signal != "" {
		if bkg, ok := procs[BackgroundProcess]; ok {
			bkg.Value -= sig.Value
			procs[BackgroundProcess] = bkg
		}
	}
	byCfg, ok := t.yields[region]
	if !ok {
		byCfg = make(map[FitConfig]map[string]Yield)
		t.yields[region] = byCfg
	}
	byCfg[cfg] = procs
}

// Regions returns the region names in sorted order.
func (t *Table) Regions() []string {
	out := make([]string, 0, len(t.yields))
	for r := range t.yields {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Samples returns every process fitted in the background-only fit of any
// region, sorted.
func (t *Table) Samples() []string {
	seen := make(map[string]bool)
	for _, byCfg := range t.yields {
		for p := range byCfg[BkgOnly] {
			seen[p] = true
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Get returns one yield.
func (t *Table) Get(region string, cfg FitConfig, sample string) (Yield, bool) {
	y, ok := t.yields[region][cfg][sample]
	return y, ok
}

// IsControlRegion reports whether region is a high-statistics control region.
func IsControlRegion(region string) bool {
	return strings.HasPrefix(region, "CR")
}

// Row is one region of a sample's comparison.
type Row struct {
	Region  string
	Control bool
	Yields  map[FitConfig]Yield
}

// Ratio returns the yield of cfg relative to the background-only fit.
func (r Row) Ratio(cfg FitConfig) float64 {
	b := r.Yields[BkgOnly].Value
	if b == 0 {
		return math.NaN()
	}
	return r.Yields[cfg].Value / b
}

// Series returns the rows of sample: signal and validation regions first,
// then control regions, each group in name order. Every region must carry
// the sample in all three fit configs.
func (t *Table) Series(sample string) ([]Row, error) {
	var signal, control []Row
	for _, region := range t.Regions() {
		row := Row{Region: region, Control: IsControlRegion(region), Yields: make(map[FitConfig]Yield)}
		for _, cfg := range FitConfigs {
			y, ok := t.Get(region, cfg, sample)
			if !ok {
				return nil, fmt.Errorf("region %s has no %s yield for %s", region, cfg, sample)
			}
			row.Yields[cfg] = y
		}
		if row.Control {
			control = append(control, row)
		} else {
			signal = append(signal, row)
		}
	}
	return append(signal, control...), nil
}

// Load reads every table matching tables/<dir>/<include>.tex.
func Load(fsys fsutil.FileSystem, layout analysis.Layout, dir, include, signal string) (*Table, error) {
	pattern := filepath.Join(layout.Tables(), dir, include+".tex")
	paths, err := fsys.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no yield tables match %s", pattern)
	}

	t := NewTable()
	for _, path := range paths {
		cfg, err := FitConfigFromName(path)
		if err != nil {
			return nil, err
		}
		data, err := fsys.ReadFile(path)
		if err != nil {
			return nil, err
		}
		procs, err := ParseTable(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		region := RegionName(path, layout.Group)
		monitoring.Logf("%s: region %s, %s fit, %d processes", filepath.Base(path), region, cfg, len(procs))
		t.Set(region, cfg, procs, signal)
	}
	return t, nil
}

// OutputName returns the plot file name for sample.
func OutputName(dir, sample string, g analysis.Group) string {
	return fmt.Sprintf("yields_%s_%s_%s.pdf", dir, strings.ReplaceAll(sample, `\`, ""), g)
}
