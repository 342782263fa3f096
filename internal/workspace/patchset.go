// Package workspace manipulates likelihood workspaces and signal patchsets as
// generic JSON documents. Their schema belongs to the external fitting tool;
// this package only knows the handful of keys it needs to patch, prune and
// re-encode them.
package workspace

import (
	"encoding/json"
	"fmt"

	"github.com/fitgrid/fitgrid/internal/fsutil"
	"github.com/fitgrid/fitgrid/internal/masspoint"
)

// Operation is one RFC 6902 JSON Patch operation.
type Operation struct {
	Op    string          `json:"op"`
	Path  string          `json:"path"`
	From  string          `json:"from,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// PatchMetadata names a signal patch and the grid values it represents.
type PatchMetadata struct {
	Name   string        `json:"name"`
	Values []json.Number `json:"values"`
}

// Patch is one signal hypothesis: a name plus the operations that insert the
// signal into the background-only workspace.
type Patch struct {
	Metadata PatchMetadata `json:"metadata"`
	Patch    []Operation   `json:"patch"`
}

// Name returns the patch name.
func (p Patch) Name() string { return p.Metadata.Name }

// Point returns the mass point of the patch. The grid values are used when
// there are exactly two; otherwise the name is parsed.
func (p Patch) Point() (masspoint.Point, error) {
	if len(p.Metadata.Values) == 2 {
		m1, err1 := p.Metadata.Values[0].Float64()
		m2, err2 := p.Metadata.Values[1].Float64()
		if err1 == nil && err2 == nil {
			return masspoint.Point{M1: m1, M2: m2}, nil
		}
	}
	return masspoint.Parse(p.Metadata.Name)
}

// PatchSet is a collection of signal patches sharing one background-only
// workspace.
type PatchSet struct {
	Metadata json.RawMessage `json:"metadata"`
	Patches  []Patch         `json:"patches"`
	Version  string          `json:"version"`
}

// DecodePatchSet parses a patchset document.
func DecodePatchSet(data []byte) (*PatchSet, error) {
	var ps PatchSet
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("failed to decode patchset: %w", err)
	}
	seen := make(map[string]bool, len(ps.Patches))
	for i, p := range ps.Patches {
		if p.Metadata.Name == "" {
			return nil, fmt.Errorf("patch %d has no name", i)
		}
		if seen[p.Metadata.Name] {
			return nil, fmt.Errorf("duplicate patch name %q", p.Metadata.Name)
		}
		seen[p.Metadata.Name] = true
	}
	return &ps, nil
}

// LoadPatchSet reads a patchset file.
func LoadPatchSet(fsys fsutil.FileSystem, path string) (*PatchSet, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read patchset %s: %w", path, err)
	}
	ps, err := DecodePatchSet(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ps, nil
}

// Load reads a workspace file and checks that it is a JSON object.
func Load(fsys fsutil.FileSystem, path string) ([]byte, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace %s: %w", path, err)
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%s: not a workspace document: %w", path, err)
	}
	if _, ok := probe["channels"]; !ok {
		return nil, fmt.Errorf("%s: workspace has no channels", path)
	}
	return data, nil
}
