// Package analysis names the analysis groups and the on-disk layout each
// group's inputs and outputs follow.
package analysis

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Group identifies one published analysis.
type Group string

// Known analysis groups.
const (
	OneLbb      Group = "1Lbb"
	TwoL0J      Group = "2L0J"
	Compressed  Group = "compressed"
	ThreeLOff   Group = "3Loffshell"
	Stop1L      Group = "stop1L"
	ThreeLRJR   Group = "3LRJR"
	DirectStaus Group = "directstaus"
	SameSign    Group = "samesign"
	Sbottom     Group = "sbottom"
)

// Group sets accepted by the individual tools.
var (
	AllGroups     = []Group{OneLbb, TwoL0J, Compressed, ThreeLOff, Stop1L, ThreeLRJR, DirectStaus, SameSign, Sbottom}
	HarvestGroups = []Group{OneLbb, TwoL0J, Compressed}
	TruthGroups   = []Group{OneLbb, TwoL0J, Compressed, ThreeLOff}
)

// ParseGroup returns the group named s if it is one of allowed.
func ParseGroup(s string, allowed []Group) (Group, error) {
	g := Group(s)
	if !slices.Contains(allowed, g) {
		return "", fmt.Errorf("unknown group %q (choose from %s)", s, joinGroups(allowed))
	}
	return g, nil
}

func joinGroups(gs []Group) string {
	names := make([]string, len(gs))
	for i, g := range gs {
		names[i] = string(g)
	}
	return strings.Join(names, ", ")
}

// GroupFlag implements flag.Value for a group restricted to a fixed choice.
type GroupFlag struct {
	Group   Group
	Allowed []Group
}

// NewGroupFlag returns a flag value defaulting to def.
func NewGroupFlag(def Group, allowed []Group) *GroupFlag {
	return &GroupFlag{Group: def, Allowed: allowed}
}

func (f *GroupFlag) String() string {
	if f == nil {
		return ""
	}
	return string(f.Group)
}

// Set validates and stores the group.
func (f *GroupFlag) Set(s string) error {
	g, err := ParseGroup(s, f.Allowed)
	if err != nil {
		return err
	}
	f.Group = g
	return nil
}

// Usage describes the accepted values for flag help text.
func (f *GroupFlag) Usage() string {
	return "analysis group: " + joinGroups(f.Allowed)
}

// Layout resolves paths under analyses/<group>/.
type Layout struct {
	Root       string
	Group      Group
	Simplified bool
}

// NewLayout returns the layout rooted at root (normally ".").
func NewLayout(root string, g Group, simplified bool) Layout {
	if root == "" {
		root = "."
	}
	return Layout{Root: root, Group: g, Simplified: simplified}
}

// Dir returns analyses/<group>/<sub>.
func (l Layout) Dir(sub string) string {
	return filepath.Join(l.Root, "analyses", string(l.Group), sub)
}

// Prefix returns "simplified_" for simplified likelihood runs.
func (l Layout) Prefix() string {
	if l.Simplified {
		return "simplified_"
	}
	return ""
}

// Stem is the file name stem shared by results and harvests,
// e.g. "simplified_1Lbb".
func (l Layout) Stem() string {
	return l.Prefix() + string(l.Group)
}

func (l Layout) Workspaces() string  { return l.Dir("workspaces") }
func (l Layout) Results() string     { return l.Dir("results") }
func (l Layout) Harvests() string    { return l.Dir("harvests") }
func (l Layout) Likelihoods() string { return l.Dir("likelihoods") }
func (l Layout) Plots() string       { return l.Dir("plots") }
func (l Layout) Graphs() string      { return l.Dir("graphs") }
func (l Layout) Truth() string       { return l.Dir("truth") }
func (l Layout) Tables() string      { return l.Dir("tables") }

// ResultGlob matches the per-point fit results of this layout.
func (l Layout) ResultGlob() string {
	return filepath.Join(l.Results(), l.Stem()+"_*.json")
}

// ResultPath is the fit result file for one point or patch name.
func (l Layout) ResultPath(name string) string {
	return filepath.Join(l.Results(), l.Stem()+"_"+name+".json")
}

// TruthResultPath is the fit result file for a truth-level point.
func (l Layout) TruthResultPath(token string) string {
	return filepath.Join(l.Results(), "truth_"+l.Stem()+"_"+token+".json")
}

// HarvestPath is the harvest written for this layout.
func (l Layout) HarvestPath() string {
	return filepath.Join(l.Harvests(), "harvest_"+l.Stem()+".json")
}

// LikelihoodPath resolves a likelihood or patchset file, adding the
// simplified prefix when needed.
func (l Layout) LikelihoodPath(name string) string {
	return filepath.Join(l.Likelihoods(), l.Prefix()+name)
}
