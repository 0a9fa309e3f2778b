package ui

import (
	"fmt"
	"io"

	"cmake-clean/internal/sweep"
)

// PrintDryRun lists what a dry run would remove, one entry per line
func PrintDryRun(w io.Writer, removals []sweep.Removal) error {
	for _, rm := range removals {
		path := rm.Path
		if rm.Kind != sweep.KindFile {
			path = Bold(path + "/")
		}
		if _, err := fmt.Fprintf(w, "%s %s %s\n", Minus, path, Grey("("+string(rm.Pass)+")")); err != nil {
			return err
		}
	}
	if len(removals) == 0 {
		_, err := fmt.Fprintln(w, Yellow("nothing to remove"))
		return err
	}
	return nil
}
