package workspace

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/fitgrid/fitgrid/internal/fsutil"
)

// Canonical re-encodes a JSON document with sorted object keys and the given
// indent. Numbers keep their original spelling and HTML characters are not
// escaped.
func Canonical(doc []byte, indent string) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return encode(v, indent)
}

// Marshal encodes v like Canonical: sorted keys, indent, no HTML escaping.
func Marshal(v any, indent string) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return Canonical(raw, indent)
}

func encode(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// Write stores v at path with sorted keys and the given indent.
func Write(fsys fsutil.FileSystem, path string, v any, indent string) error {
	data, err := Marshal(v, indent)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(fsys, path, data, 0o644)
}
