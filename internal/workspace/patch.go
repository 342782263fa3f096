package workspace

import (
	"encoding/json"
	"errors"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// ErrPatchApply is returned when a patch does not fit the workspace, for
// example a replace at a path that does not exist.
var ErrPatchApply = errors.New("patch does not apply")

// Apply applies ops to doc and returns the patched document. doc is not
// modified.
func Apply(doc []byte, ops []Operation) ([]byte, error) {
	raw, err := json.Marshal(ops)
	if err != nil {
		return nil, fmt.Errorf("failed to encode patch: %w", err)
	}
	patch, err := jsonpatch.DecodePatch(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPatchApply, err)
	}
	out, err := patch.Apply(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPatchApply, err)
	}
	return out, nil
}

// ApplyPatch applies a named signal patch.
func ApplyPatch(doc []byte, p Patch) ([]byte, error) {
	out, err := Apply(doc, p.Patch)
	if err != nil {
		return nil, fmt.Errorf("patch %s: %w", p.Name(), err)
	}
	return out, nil
}

// Replace returns a replace operation setting path to value.
func Replace(path string, value any) (Operation, error) {
	v, err := json.Marshal(value)
	if err != nil {
		return Operation{}, fmt.Errorf("failed to encode value for %s: %w", path, err)
	}
	return Operation{Op: "replace", Path: path, Value: v}, nil
}
