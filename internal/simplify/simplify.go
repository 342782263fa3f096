// Package simplify builds the signal patchset used with a simplified
// likelihood: one signal sample per channel carrying only a luminosity
// modifier, the signal strength and optionally a flat yield uncertainty.
package simplify

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/fitgrid/fitgrid/internal/workspace"
)

var samplePath = regexp.MustCompile(`^/channels/[0-9]+/samples/[0-9]+$`)

// SignalSlot is the sample index the simplified background-only workspace
// leaves free for the signal.
const SignalSlot = 1

// Options controls the simplified signal model.
type Options struct {
	// SignalUncertainty is a relative flat uncertainty on the signal yield.
	// Zero disables the flatError modifier.
	SignalUncertainty float64
}

type modifier struct {
	Data any    `json:"data"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type histoSysData struct {
	HiData []float64 `json:"hi_data"`
	LoData []float64 `json:"lo_data"`
}

// PatchSet rewrites every patch of ps. Only operations adding a whole sample
// are kept; their modifiers are replaced and their path is pointed at the
// signal slot. Patch metadata and patchset metadata are carried over.
func PatchSet(ps *workspace.PatchSet, opt Options) (*workspace.PatchSet, error) {
	if opt.SignalUncertainty < 0 {
		return nil, fmt.Errorf("signal uncertainty must be non-negative, got %g", opt.SignalUncertainty)
	}
	out := &workspace.PatchSet{
		Metadata: ps.Metadata,
		Version:  ps.Version,
		Patches:  make([]workspace.Patch, 0, len(ps.Patches)),
	}
	for _, p := range ps.Patches {
		sp := workspace.Patch{Metadata: p.Metadata, Patch: []workspace.Operation{}}
		for _, op := range p.Patch {
			if op.Op != "add" || !samplePath.MatchString(op.Path) {
				continue
			}
			nop, err := simplifyOp(op, opt)
			if err != nil {
				return nil, fmt.Errorf("patch %s: %w", p.Name(), err)
			}
			sp.Patch = append(sp.Patch, nop)
		}
		out.Patches = append(out.Patches, sp)
	}
	return out, nil
}

func simplifyOp(op workspace.Operation, opt Options) (workspace.Operation, error) {
	var value map[string]json.RawMessage
	if err := json.Unmarshal(op.Value, &value); err != nil {
		return op, fmt.Errorf("sample at %s is not an object: %w", op.Path, err)
	}
	var data []float64
	if err := json.Unmarshal(value["data"], &data); err != nil {
		return op, fmt.Errorf("sample at %s has no yields: %w", op.Path, err)
	}

	mods := []modifier{
		{Name: "lumi", Type: "lumi"},
		{Name: "mu_Sig", Type: "normfactor"},
	}
	if opt.SignalUncertainty > 0 {
		mods = append(mods, modifier{Name: "flatError", Type: "histosys", Data: flatError(data, opt.SignalUncertainty)})
	}
	raw, err := json.Marshal(mods)
	if err != nil {
		return op, err
	}
	value["modifiers"] = raw

	nv, err := json.Marshal(value)
	if err != nil {
		return op, err
	}
	prefix, _, _ := strings.Cut(op.Path, "samples/")
	return workspace.Operation{
		Op:    "add",
		Path:  fmt.Sprintf("%ssamples/%d", prefix, SignalSlot),
		Value: nv,
	}, nil
}

// flatError returns yields scaled up and down by u, with the down variation
// clipped at zero.
func flatError(data []float64, u float64) histoSysData {
	h := histoSysData{HiData: make([]float64, len(data)), LoData: make([]float64, len(data))}
	for i, d := range data {
		h.HiData[i] = d + d*u
		h.LoData[i] = max(d-d*u, 0)
	}
	return h
}
