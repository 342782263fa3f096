// Package fitresult reads and writes the per-point hypothesis test record
//
//	{"CLs_exp": [-2σ, -1σ, median, +1σ, +2σ], "CLs_obs": x}
//
// produced by every fitting tool in the pipeline.
package fitresult

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fitgrid/fitgrid/internal/fsutil"
)

// BandSize is the number of expected CLs values: the median and the
// ±1σ and ±2σ quantiles.
const BandSize = 5

// Band indices into Result.CLsExp.
const (
	Minus2Sigma = iota
	Minus1Sigma
	Median
	Plus1Sigma
	Plus2Sigma
)

var (
	// ErrEmptyFile is returned for a zero-length result file.
	ErrEmptyFile = errors.New("empty result file")
	// ErrMalformed is returned when a result lacks a field or has the wrong shape.
	ErrMalformed = errors.New("malformed result")
)

// Result is the outcome of one hypothesis test.
type Result struct {
	CLsExp []float64 `json:"CLs_exp"`
	CLsObs float64   `json:"CLs_obs"`
}

// Validate checks that the expected band has BandSize entries.
func (r Result) Validate() error {
	if len(r.CLsExp) != BandSize {
		return fmt.Errorf("%w: CLs_exp has %d values, want %d", ErrMalformed, len(r.CLsExp), BandSize)
	}
	return nil
}

// Expected returns the median expected CLs.
func (r Result) Expected() float64 {
	return r.CLsExp[Median]
}

// wireResult is Result as stored; NaN and ±Infinity are allowed.
type wireResult struct {
	CLsExp []Number `json:"CLs_exp"`
	CLsObs *Number  `json:"CLs_obs"`
}

// Decode parses a result record. Both keys are required. Bare NaN and
// Infinity values, as written by the fitting tool, are accepted.
func Decode(data []byte) (Result, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Result{}, ErrEmptyFile
	}
	var raw wireResult
	if err := json.Unmarshal(QuoteNonFinite(data), &raw); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw.CLsObs == nil {
		return Result{}, fmt.Errorf("%w: missing CLs_obs", ErrMalformed)
	}
	if raw.CLsExp == nil {
		return Result{}, fmt.Errorf("%w: missing CLs_exp", ErrMalformed)
	}
	r := Result{CLsExp: make([]float64, len(raw.CLsExp)), CLsObs: float64(*raw.CLsObs)}
	for i, v := range raw.CLsExp {
		r.CLsExp[i] = float64(v)
	}
	if err := r.Validate(); err != nil {
		return Result{}, err
	}
	return r, nil
}

// Load reads and decodes the result file at path.
func Load(fsys fsutil.FileSystem, path string) (Result, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read result %s: %w", path, err)
	}
	r, err := Decode(data)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Save writes r to path, creating the directory if needed.
func Save(fsys fsutil.FileSystem, path string, r Result) error {
	if err := r.Validate(); err != nil {
		return err
	}
	obs := Number(r.CLsObs)
	raw := wireResult{CLsExp: make([]Number, len(r.CLsExp)), CLsObs: &obs}
	for i, v := range r.CLsExp {
		raw.CLsExp[i] = Number(v)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return fsutil.WriteFileAtomic(fsys, path, append(UnquoteNonFinite(data), '\n'), 0o644)
}
