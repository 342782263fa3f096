package fitresult

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// The fitting tool and the contour tooling write NaN, Infinity and
// -Infinity as bare tokens, which encoding/json rejects. Decoding quotes
// them first and Number accepts the quoted form; encoding does the reverse.

var nonFinite = [][]byte{[]byte("-Infinity"), []byte("Infinity"), []byte("NaN")}

// QuoteNonFinite returns data with every bare NaN, Infinity and -Infinity
// outside string literals turned into a JSON string.
func QuoteNonFinite(data []byte) []byte {
	var out []byte
	inString, escaped := false, false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			out = append(out, c)
			continue
		}
		if c == '"' {
			inString = true
			out = append(out, c)
			continue
		}
		if tok := nonFiniteAt(data[i:]); tok != nil {
			out = append(out, '"')
			out = append(out, tok...)
			out = append(out, '"')
			i += len(tok) - 1
			continue
		}
		out = append(out, c)
	}
	return out
}

// UnquoteNonFinite is the inverse of QuoteNonFinite for values: a string
// holding exactly NaN, Infinity or -Infinity loses its quotes unless it is
// an object key.
func UnquoteNonFinite(data []byte) []byte {
	var out []byte
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c != '"' {
			out = append(out, c)
			continue
		}
		end := stringEnd(data, i)
		lit := data[i+1 : end]
		if isNonFinite(lit) && !followedByColon(data[end+1:]) {
			out = append(out, lit...)
		} else {
			out = append(out, data[i:end+1]...)
		}
		i = end
	}
	return out
}

func nonFiniteAt(b []byte) []byte {
	for _, tok := range nonFinite {
		if bytes.HasPrefix(b, tok) {
			return tok
		}
	}
	return nil
}

func isNonFinite(b []byte) bool {
	for _, tok := range nonFinite {
		if bytes.Equal(b, tok) {
			return true
		}
	}
	return false
}

// stringEnd returns the index of the quote closing the string opened at i.
func stringEnd(data []byte, i int) int {
	for j := i + 1; j < len(data); j++ {
		switch data[j] {
		case '\\':
			j++
		case '"':
			return j
		}
	}
	return len(data) - 1
}

func followedByColon(rest []byte) bool {
	rest = bytes.TrimLeft(rest, " \t\r\n")
	return len(rest) > 0 && rest[0] == ':'
}

// Number is a float64 that round-trips NaN and ±Infinity through the quoted
// form used by QuoteNonFinite.
type Number float64

// MarshalJSON writes finite values as numbers and the others as strings.
func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	switch {
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	case math.IsInf(f, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Infinity"`), nil
	}
	return json.Marshal(f)
}

// UnmarshalJSON accepts a number or a quoted NaN, Infinity or -Infinity.
func (n *Number) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil || !isNonFinite([]byte(s)) {
			return fmt.Errorf("invalid number %s", b)
		}
		f, _ := strconv.ParseFloat(s, 64)
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}
