package sweep

import "time"

// Pass identifies which sweep pass removed an entry
type Pass string

const (
	PassTopLevel Pass = "top_level"
	PassMarker   Pass = "marker"
	PassPattern  Pass = "pattern"
	PassEmptyDir Pass = "empty_dir"
)

// Kind is the object type of a removed entry
type Kind string

const (
	KindFile     Kind = "file"
	KindDir      Kind = "directory"
	KindEmptyDir Kind = "empty_directory"
)

// Removal is one entry deleted (or, in a dry run, selected for deletion)
type Removal struct {
	Root   string `json:"root"`
	Path   string `json:"path"`
	Kind   Kind   `json:"kind"`
	Pass   Pass   `json:"pass"`
	DryRun bool   `json:"dry_run"`
}

// Result summarizes one sweep of a target root
type Result struct {
	Root     string
	Removals []Removal
	Duration time.Duration
}

// Count returns the number of removals made by a pass
func (r *Result) Count(p Pass) int {
	n := 0
	for _, rm := range r.Removals {
		if rm.Pass == p {
			n++
		}
	}
	return n
}

// Paths returns removed paths in removal order
func (r *Result) Paths() []string {
	out := make([]string, 0, len(r.Removals))
	for _, rm := range r.Removals {
		out = append(out, rm.Path)
	}
	return out
}
