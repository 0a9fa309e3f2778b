// Package sweep removes CMake-generated artifacts from a directory tree.
//
// A sweep runs three passes over a target root:
//
//   - top level: fixed generated files and directories directly under the root
//   - marker: every directory holding the marker directory (CMakeFiles) loses
//     the marker and its generated siblings (Makefile, cmake_install.cmake)
//   - empty dirs: a post-order pass removes directories left without files
//     or subdirectories
//
// Directories in the prune set (.git, .svn, CVS) are never entered or
// removed, and a directory holding one is never considered empty.
package sweep

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/bmatcuk/doublestar"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"cmake-clean/internal/config"
	"cmake-clean/internal/fsops"
	"cmake-clean/internal/safety"
)

// Sweeper removes generated entries below target roots
type Sweeper struct {
	fs      afero.Fs
	rules   config.Rules
	deleter fsops.Deleter
	logger  logrus.FieldLogger
	dryRun  bool
}

// Option configures a Sweeper
type Option func(*Sweeper)

// WithDeleter overrides the deleter (default: deletes through the filesystem)
func WithDeleter(d fsops.Deleter) Option {
	return func(s *Sweeper) { s.deleter = d }
}

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Sweeper) { s.logger = l }
}

// WithDryRun records removals without touching the filesystem
func WithDryRun(dryRun bool) Option {
	return func(s *Sweeper) { s.dryRun = dryRun }
}

// New creates a Sweeper over fs using rules
func New(fs afero.Fs, rules config.Rules, opts ...Option) *Sweeper {
	s := &Sweeper{
		fs:     fs,
		rules:  rules,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.deleter == nil {
		if s.dryRun {
			s.deleter = &fsops.FakeDeleter{}
		} else {
			s.deleter = fsops.FSDeleter{Fs: fs}
		}
	}
	return s
}

// sweepRun holds the state of a single Sweep call
type sweepRun struct {
	*Sweeper
	ctx       context.Context
	root      string
	validator *safety.Validator
	gone      map[string]struct{}
	result    *Result
	log       logrus.FieldLogger
}

// Sweep removes all generated artifacts below root. A root that does not
// exist, or is not a directory, yields an empty result.
func (s *Sweeper) Sweep(ctx context.Context, root string) (*Result, error) {
	start := time.Now()
	root = filepath.Clean(root)
	result := &Result{Root: root}

	info, err := s.fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.WithField("root", root).Debug("target does not exist, nothing to sweep")
			return result, nil
		}
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		s.logger.WithField("root", root).Debug("target is not a directory, nothing to sweep")
		return result, nil
	}

	validator, err := safety.NewValidator(root, s.rules)
	if err != nil {
		return nil, err
	}

	r := &sweepRun{
		Sweeper:   s,
		ctx:       ctx,
		root:      root,
		validator: validator,
		gone:      make(map[string]struct{}),
		result:    result,
		log:       s.logger.WithFields(logrus.Fields{"root": root, "dry_run": s.dryRun}),
	}

	r.log.Info("starting sweep")

	if err := r.topLevel(); err != nil {
		return nil, err
	}
	if err := r.markers(root); err != nil {
		return nil, err
	}
	if _, err := r.collapse(root, true); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	r.log.WithFields(logrus.Fields{
		"top_level":  result.Count(PassTopLevel),
		"marker":     result.Count(PassMarker),
		"pattern":    result.Count(PassPattern),
		"empty_dirs": result.Count(PassEmptyDir),
		"duration":   result.Duration,
	}).Info("sweep complete")

	return result, nil
}

// topLevel removes the fixed generated files and directories of the root
func (r *sweepRun) topLevel() error {
	for _, name := range r.rules.TopLevelFiles() {
		if err := r.removeIfExists(filepath.Join(r.root, name), KindFile, PassTopLevel); err != nil {
			return err
		}
	}
	for _, name := range r.rules.TopLevelDirs() {
		if err := r.removeIfExists(filepath.Join(r.root, name), KindDir, PassTopLevel); err != nil {
			return err
		}
	}
	return nil
}

// markers walks top-down, removing each marker directory and its generated
// siblings, plus files matching extra patterns
func (r *sweepRun) markers(dir string) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}

	subdirs, files, err := r.children(dir)
	if err != nil {
		return err
	}

	// Explicit list of directories to visit next, pruned before descent
	visit := make([]string, 0, len(subdirs))
	for _, name := range subdirs {
		if !r.rules.IsPruned(name) {
			visit = append(visit, name)
		}
	}

	marker := r.rules.MarkerDir()
	if idx := slices.Index(visit, marker); idx >= 0 {
		for _, sibling := range r.rules.MarkerSiblings() {
			if !slices.Contains(files, sibling) {
				continue
			}
			if err := r.removeIfExists(filepath.Join(dir, sibling), KindFile, PassMarker); err != nil {
				return err
			}
		}
		if err := r.removeIfExists(filepath.Join(dir, marker), KindDir, PassMarker); err != nil {
			return err
		}
		visit = slices.Delete(visit, idx, idx+1)
	}

	if patterns := r.rules.ExtraPatterns(); len(patterns) > 0 {
		for _, name := range files {
			p := filepath.Join(dir, name)
			if r.isGone(p) {
				continue
			}
			ok, err := r.matchesPattern(p, patterns)
			if err != nil {
				return err
			}
			if ok {
				if err := r.removeIfExists(p, KindFile, PassPattern); err != nil {
					return err
				}
			}
		}
	}

	for _, name := range visit {
		if err := r.markers(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func (r *sweepRun) matchesPattern(path string, patterns []string) (bool, error) {
	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		return false, err
	}
	rel = filepath.ToSlash(rel)
	for _, pat := range patterns {
		ok, err := doublestar.Match(pat, rel)
		if err != nil {
			return false, fmt.Errorf("match %q: %w", pat, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// collapse removes empty directories bottom-up and reports whether dir
// itself was removed. Children are resolved before their parent, so a
// single traversal reaches the same end state as rescanning until stable.
func (r *sweepRun) collapse(dir string, isRoot bool) (bool, error) {
	if err := r.ctx.Err(); err != nil {
		return false, err
	}

	subdirs, files, err := r.children(dir)
	if err != nil {
		return false, err
	}

	remaining := len(files)
	for _, name := range subdirs {
		// Pruned directories always keep their parent alive
		if r.rules.IsPruned(name) {
			remaining++
			continue
		}
		removed, err := r.collapse(filepath.Join(dir, name), false)
		if err != nil {
			return false, err
		}
		if !removed {
			remaining++
		}
	}

	if remaining > 0 {
		return false, nil
	}
	if isRoot && !r.rules.RemoveEmptyRoot() {
		return false, nil
	}
	if err := r.remove(dir, KindEmptyDir, PassEmptyDir); err != nil {
		return false, err
	}
	return true, nil
}

// children lists the directory, split into subdirectory and other names.
// Symlinks are never followed and count as files. Entries removed earlier
// in this run are skipped.
func (r *sweepRun) children(dir string) (subdirs, files []string, err error) {
	entries, err := afero.ReadDir(r.fs, dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if r.isGone(filepath.Join(dir, e.Name())) {
			continue
		}
		if e.IsDir() {
			subdirs = append(subdirs, e.Name())
		} else {
			files = append(files, e.Name())
		}
	}
	return subdirs, files, nil
}

func (r *sweepRun) removeIfExists(path string, kind Kind, pass Pass) error {
	if r.isGone(path) {
		return nil
	}
	ok, err := afero.Exists(r.fs, path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !ok {
		return nil
	}
	return r.remove(path, kind, pass)
}

func (r *sweepRun) remove(path string, kind Kind, pass Pass) error {
	if err := r.validator.ValidateDeleteTarget(path); err != nil {
		return err
	}

	var err error
	if kind == KindDir {
		err = r.deleter.RemoveAll(path)
	} else {
		err = r.deleter.Remove(path)
	}
	if err != nil {
		if os.IsNotExist(err) {
			r.log.WithField("path", path).Debug("already removed")
			return nil
		}
		return fmt.Errorf("remove %s: %w", path, err)
	}

	r.gone[path] = struct{}{}
	r.result.Removals = append(r.result.Removals, Removal{
		Root:   r.root,
		Path:   path,
		Kind:   kind,
		Pass:   pass,
		DryRun: r.dryRun,
	})
	r.log.WithFields(logrus.Fields{
		"path": path,
		"kind": kind,
		"pass": pass,
	}).Debug("removed")
	return nil
}

// isGone reports whether path or one of its ancestors below the root was
// removed earlier in this run
func (r *sweepRun) isGone(path string) bool {
	for p := path; ; {
		if _, ok := r.gone[p]; ok {
			return true
		}
		if p == r.root {
			return false
		}
		parent := filepath.Dir(p)
		if parent == p {
			return false
		}
		p = parent
	}
}
