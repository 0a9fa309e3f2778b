package config

import "slices"

// Rules is the immutable set of names the sweeper matches against.
// Accessors return copies so callers cannot mutate shared state.
type Rules struct {
	prune           map[string]struct{}
	topLevelFiles   []string
	topLevelDirs    []string
	markerDir       string
	markerSiblings  []string
	extraPatterns   []string
	removeEmptyRoot bool
}

// NewRules builds Rules from raw name lists
func NewRules(prune, topFiles, topDirs []string, marker string, siblings, patterns []string, removeEmptyRoot bool) Rules {
	set := make(map[string]struct{}, len(prune))
	for _, p := range prune {
		set[p] = struct{}{}
	}
	return Rules{
		prune:           set,
		topLevelFiles:   slices.Clone(topFiles),
		topLevelDirs:    slices.Clone(topDirs),
		markerDir:       marker,
		markerSiblings:  slices.Clone(siblings),
		extraPatterns:   slices.Clone(patterns),
		removeEmptyRoot: removeEmptyRoot,
	}
}

// DefaultRules returns the rules of Default()
func DefaultRules() Rules {
	return Default().Rules()
}

// IsPruned reports whether a directory name is never entered or removed
func (r Rules) IsPruned(name string) bool {
	_, ok := r.prune[name]
	return ok
}

// PruneDirs returns the prune set, sorted
func (r Rules) PruneDirs() []string {
	out := make([]string, 0, len(r.prune))
	for p := range r.prune {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

func (r Rules) TopLevelFiles() []string  { return slices.Clone(r.topLevelFiles) }
func (r Rules) TopLevelDirs() []string   { return slices.Clone(r.topLevelDirs) }
func (r Rules) MarkerDir() string        { return r.markerDir }
func (r Rules) MarkerSiblings() []string { return slices.Clone(r.markerSiblings) }
func (r Rules) ExtraPatterns() []string  { return slices.Clone(r.extraPatterns) }
func (r Rules) RemoveEmptyRoot() bool    { return r.removeEmptyRoot }
