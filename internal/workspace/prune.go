package workspace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// PruneOptions selects workspace components to remove before fitting.
type PruneOptions struct {
	Channels      []string
	Samples       []string
	Modifiers     []string
	ModifierTypes []string
}

// Empty reports whether nothing is selected.
func (o PruneOptions) Empty() bool {
	return len(o.Channels) == 0 && len(o.Samples) == 0 && len(o.Modifiers) == 0 && len(o.ModifierTypes) == 0
}

// Prune removes the selected channels, samples and modifiers from a
// workspace. Observations of pruned channels and measurement parameters of
// pruned modifiers are removed with them. Pruning the parameter of interest
// is an error.
func Prune(doc []byte, o PruneOptions) ([]byte, error) {
	if o.Empty() {
		return doc, nil
	}
	ws, err := decodeObject(doc)
	if err != nil {
		return nil, err
	}

	removed := map[string]bool{}
	channels := filterObjects(ws["channels"], func(ch map[string]any) bool {
		return !slices.Contains(o.Channels, stringField(ch, "name"))
	})
	for _, ch := range channels {
		samples := filterObjects(ch["samples"], func(s map[string]any) bool {
			return !slices.Contains(o.Samples, stringField(s, "name"))
		})
		for _, s := range samples {
			s["modifiers"] = toAny(filterObjects(s["modifiers"], func(m map[string]any) bool {
				name := stringField(m, "name")
				if slices.Contains(o.Modifiers, name) || slices.Contains(o.ModifierTypes, stringField(m, "type")) {
					removed[name] = true
					return false
				}
				return true
			}))
		}
		ch["samples"] = toAny(samples)
	}
	ws["channels"] = toAny(channels)

	if _, ok := ws["observations"]; ok {
		ws["observations"] = toAny(filterObjects(ws["observations"], func(obs map[string]any) bool {
			return !slices.Contains(o.Channels, stringField(obs, "name"))
		}))
	}

	// A name pruned by type in one sample may survive under another type.
	for name := range modifierNames(channels) {
		delete(removed, name)
	}

	measurements := filterObjects(ws["measurements"], func(map[string]any) bool { return true })
	for _, m := range measurements {
		cfg, _ := m["config"].(map[string]any)
		if cfg == nil {
			continue
		}
		if poi := stringField(cfg, "poi"); removed[poi] {
			return nil, fmt.Errorf("cannot prune parameter of interest %q", poi)
		}
		if _, ok := cfg["parameters"]; ok {
			cfg["parameters"] = toAny(filterObjects(cfg["parameters"], func(p map[string]any) bool {
				return !removed[stringField(p, "name")]
			}))
		}
	}
	if _, ok := ws["measurements"]; ok {
		ws["measurements"] = toAny(measurements)
	}

	return json.Marshal(ws)
}

func modifierNames(channels []map[string]any) map[string]bool {
	used := map[string]bool{}
	for _, ch := range channels {
		for _, s := range filterObjects(ch["samples"], func(map[string]any) bool { return true }) {
			for _, m := range filterObjects(s["modifiers"], func(map[string]any) bool { return true }) {
				used[stringField(m, "name")] = true
			}
		}
	}
	return used
}

func decodeObject(doc []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("failed to decode workspace: %w", err)
	}
	return obj, nil
}

// filterObjects returns the object elements of a JSON array that keep
// accepts. Non-object elements are dropped.
func filterObjects(v any, keep func(map[string]any) bool) []map[string]any {
	arr, _ := v.([]any)
	out := make([]map[string]any, 0, len(arr))
	for _, e := range arr {
		obj, ok := e.(map[string]any)
		if ok && keep(obj) {
			out = append(out, obj)
		}
	}
	return out
}

func toAny(objs []map[string]any) []any {
	out := make([]any, len(objs))
	for i, o := range objs {
		out[i] = o
	}
	return out
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}
