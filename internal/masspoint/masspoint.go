// Package masspoint decodes signal mass coordinates from file names.
//
// Grid files carry a token of the form "<m1>_<m2>" where each mass is an
// integer optionally followed by "p0" or "p5", the letter p standing in for a
// decimal point: "C1N2_700p0_150p0.json" decodes to (700.0, 150.0).
package masspoint

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrNoMassToken is returned when a name carries no mass token.
	ErrNoMassToken = errors.New("no mass token in name")
	// ErrAmbiguousMassToken is returned when a name carries more than one token.
	ErrAmbiguousMassToken = errors.New("ambiguous mass token in name")
)

var (
	// Anchored at a candidate start; the caller checks that the masses do not
	// touch other letters or digits, so "C1N2_700p0_150p0" yields 700p0_150p0
	// and not 2_700p0.
	looseToken  = regexp.MustCompile(`^(\d+(?:p[05])?)_(\d+(?:p[05])?)`)
	strictToken = regexp.MustCompile(`^(\d+p[05])_(\d+p[05])`)
	dsidToken   = regexp.MustCompile(`(?:^|\D)(\d{6})(?:\D|$)`)
)

// Point is a location on the signal grid.
type Point struct {
	M1 float64
	M2 float64
}

// DeltaM returns the mass splitting m1 - m2.
func (p Point) DeltaM() float64 {
	return p.M1 - p.M2
}

// Token re-encodes the point the way grid files name it, e.g. "700p0_150p5".
func (p Point) Token() string {
	return encodeMass(p.M1) + "_" + encodeMass(p.M2)
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.M1, p.M2)
}

// Less orders points by m1 and then m2.
func (p Point) Less(q Point) bool {
	if p.M1 != q.M1 {
		return p.M1 < q.M1
	}
	return p.M2 < q.M2
}

// Compare returns -1, 0 or +1 following Less.
func (p Point) Compare(q Point) int {
	switch {
	case p.Less(q):
		return -1
	case q.Less(p):
		return 1
	}
	return 0
}

// Parse extracts the mass point from the base name of path. The decimal marker
// is optional, so "700_150" and "700p0_150p0" decode to the same point.
func Parse(path string) (Point, error) {
	return parseWith(looseToken, path)
}

// ParseStrict is Parse with a mandatory decimal marker on both masses. Truth
// yield files embed other underscore-separated numbers (run numbers, dataset
// ids) that the loose form would pick up.
func ParseStrict(path string) (Point, error) {
	return parseWith(strictToken, path)
}

func parseWith(re *regexp.Regexp, path string) (Point, error) {
	name := filepath.Base(path)
	matches := findTokens(re, name)
	switch len(matches) {
	case 0:
		return Point{}, fmt.Errorf("%w: %q", ErrNoMassToken, name)
	case 1:
	default:
		return Point{}, fmt.Errorf("%w: %q has %d candidates", ErrAmbiguousMassToken, name, len(matches))
	}

	m1, err := decodeMass(matches[0][1])
	if err != nil {
		return Point{}, fmt.Errorf("parse m1 in %q: %w", name, err)
	}
	m2, err := decodeMass(matches[0][2])
	if err != nil {
		return Point{}, fmt.Errorf("parse m2 in %q: %w", name, err)
	}
	return Point{M1: m1, M2: m2}, nil
}

// findTokens tries re at every position that starts a word. Candidates may
// overlap: in "100_50_200_30" the masses 50 and 200 form a third token.
func findTokens(re *regexp.Regexp, name string) [][]string {
	var out [][]string
	for i := 0; i < len(name); i++ {
		if !isDigit(name[i]) || (i > 0 && isAlnum(name[i-1])) {
			continue
		}
		m := re.FindStringSubmatch(name[i:])
		if m == nil {
			continue
		}
		if end := i + len(m[0]); end < len(name) && isAlnum(name[end]) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isAlnum(c byte) bool {
	return isDigit(c) || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// ParseDSID extracts a six-digit dataset id from the base name of path.
func ParseDSID(path string) (int, error) {
	name := filepath.Base(path)
	m := dsidToken.FindStringSubmatch(name)
	if m == nil {
		return 0, fmt.Errorf("no dataset id in %q", name)
	}
	return strconv.Atoi(m[1])
}

func decodeMass(s string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(s, "p", ".", 1), 64)
}

func encodeMass(m float64) string {
	s := strconv.FormatFloat(m, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return strings.Replace(s, ".", "p", 1)
}
