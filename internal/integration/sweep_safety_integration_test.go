package integration

import (
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"cmake-clean/internal/config"
	"cmake-clean/internal/database"
	"cmake-clean/internal/makeclean"
	"cmake-clean/internal/metrics"
	"cmake-clean/internal/runner"
	"cmake-clean/internal/safety"
)

func init() {
	// Initialize metrics once for all integration tests
	metrics.Init()
}

func mustWrite(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(filepath.Base(path)), 0644); err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
}

// snapshot lists every entry below root without following symlinks
func snapshot(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		out = append(out, rel)
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to walk %s: %v", root, err)
	}
	sort.Strings(out)
	return out
}

// TestSweepSafetyIntegration verifies the complete cleaning contract on a real filesystem
func TestSweepSafetyIntegration(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	// 1. Create a build tree next to a directory that must never be touched
	tmpRoot := t.TempDir()
	buildDir := filepath.Join(tmpRoot, "build")
	outsideDir := filepath.Join(tmpRoot, "outside")

	for _, f := range []string{
		"CMakeCache.txt",
		"CPackConfig.cmake",
		"_CPack_Packages/Linux/TGZ/pkg.tar.gz",
		"CMakeLists.txt",
		"src/main.c",
		"lib/Makefile",
		"lib/cmake_install.cmake",
		"lib/CMakeFiles/lib.dir/obj.o",
		"gen/a/b/CMakeFiles/progress.marks",
		".git/CMakeFiles/keep",
		"vendor/.svn/entries",
	} {
		mustWrite(t, filepath.Join(buildDir, f))
	}
	if err := os.MkdirAll(filepath.Join(buildDir, ".git", "objects"), 0755); err != nil {
		t.Fatalf("Failed to create .git/objects: %v", err)
	}
	mustWrite(t, filepath.Join(outsideDir, "CMakeFiles", "keep.txt"))
	mustWrite(t, filepath.Join(outsideDir, "Makefile"))
	if err := os.Symlink(outsideDir, filepath.Join(buildDir, "link_to_outside")); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	// 2. A stand-in for make that records its arguments and fails
	makeLog := filepath.Join(tmpRoot, "make.log")
	script := filepath.Join(tmpRoot, "fake-make")
	body := "#!/bin/sh\nprintf '%s\\n' \"$@\" >> '" + makeLog + "'\nexit 2\n"
	if err := os.WriteFile(script, []byte(body), 0755); err != nil {
		t.Fatalf("Failed to create fake make: %v", err)
	}

	logger, _ := test.NewNullLogger()
	rules := config.DefaultRules()
	invoker := makeclean.New(config.MakeCfg{Enabled: true, Command: script, Args: []string{"--quiet", "clean"}}, logger)

	db, err := database.NewHistoryDB(filepath.Join(tmpRoot, "state", "history.db"))
	if err != nil {
		t.Fatalf("Failed to open history: %v", err)
	}
	defer db.Close()

	before := append(snapshot(t, buildDir), snapshot(t, outsideDir)...)

	// 3a. DRY-RUN: Assert no filesystem changes and no make invocation
	t.Run("DryRun_NoFilesystemChanges", func(t *testing.T) {
		r := runner.New(rules, runner.WithCleaner(invoker), runner.WithDryRun(true), runner.WithLogger(logger))
		summary, err := r.Run(context.Background(), []string{buildDir})
		if err != nil {
			t.Fatalf("Dry run failed: %v", err)
		}
		if len(summary.Removals()) == 0 {
			t.Error("Dry run should report removals")
		}
		for _, rm := range summary.Removals() {
			if !rm.DryRun {
				t.Errorf("Removal %s not marked as dry run", rm.Path)
			}
		}

		after := append(snapshot(t, buildDir), snapshot(t, outsideDir)...)
		if strings.Join(before, "\n") != strings.Join(after, "\n") {
			t.Errorf("DRY-RUN VIOLATION: tree changed\nbefore: %v\nafter:  %v", before, after)
		}
		if _, err := os.Stat(makeLog); !os.IsNotExist(err) {
			t.Error("make must not run during a dry run")
		}
	})

	var dryRunPaths []string
	{
		r := runner.New(rules, runner.WithDryRun(true), runner.WithLogger(logger))
		summary, err := r.Run(context.Background(), []string{buildDir})
		if err != nil {
			t.Fatalf("Dry run failed: %v", err)
		}
		for _, rm := range summary.Removals() {
			dryRunPaths = append(dryRunPaths, rm.Path)
		}
	}

	// 3b. EXECUTE: Assert only generated entries are removed
	t.Run("RealMode_OnlyGeneratedRemoved", func(t *testing.T) {
		r := runner.New(rules, runner.WithCleaner(invoker), runner.WithHistory(db), runner.WithLogger(logger))
		summary, err := r.Run(context.Background(), []string{buildDir})
		if err != nil {
			t.Fatalf("Real run failed: %v", err)
		}

		// Exit status 2 is observed, not acted on
		if summary.MakeExit[buildDir] != 2 {
			t.Errorf("Expected make exit code 2, got %d", summary.MakeExit[buildDir])
		}
		args, err := os.ReadFile(makeLog)
		if err != nil {
			t.Fatalf("make was not invoked: %v", err)
		}
		if got, want := string(args), "--directory="+buildDir+"\n--quiet\nclean\n"; got != want {
			t.Errorf("make arguments = %q, want %q", got, want)
		}

		var realPaths []string
		for _, rm := range summary.Removals() {
			realPaths = append(realPaths, rm.Path)
		}
		if strings.Join(realPaths, "\n") != strings.Join(dryRunPaths, "\n") {
			t.Errorf("Dry run disagrees with real run\ndry:  %v\nreal: %v", dryRunPaths, realPaths)
		}

		for _, gone := range []string{
			"CMakeCache.txt", "CPackConfig.cmake", "_CPack_Packages", "lib", "gen",
		} {
			if _, err := os.Lstat(filepath.Join(buildDir, gone)); !os.IsNotExist(err) {
				t.Errorf("%s should have been removed", gone)
			}
		}
		for _, kept := range []string{
			"CMakeLists.txt", "src/main.c", ".git/CMakeFiles/keep", ".git/objects", "vendor/.svn/entries", "link_to_outside",
		} {
			if _, err := os.Lstat(filepath.Join(buildDir, kept)); err != nil {
				t.Errorf("SAFETY VIOLATION: %s was removed", kept)
			}
		}
		for _, kept := range []string{"CMakeFiles/keep.txt", "Makefile"} {
			if _, err := os.Stat(filepath.Join(outsideDir, kept)); err != nil {
				t.Errorf("CRITICAL SAFETY VIOLATION: %s outside the root was removed via symlink", kept)
			}
		}

		records, err := db.RemovalsByRun(summary.RunID)
		if err != nil {
			t.Fatalf("Failed to query history: %v", err)
		}
		if len(records) != len(realPaths) {
			t.Errorf("Expected %d history records, got %d", len(realPaths), len(records))
		}
	})

	// 3c. IDEMPOTENCE: a second run removes nothing
	t.Run("SecondRun_NoChanges", func(t *testing.T) {
		r := runner.New(rules, runner.WithLogger(logger))
		summary, err := r.Run(context.Background(), []string{buildDir})
		if err != nil {
			t.Fatalf("Second run failed: %v", err)
		}
		if n := len(summary.Removals()); n != 0 {
			t.Errorf("Expected no removals on second run, got %d", n)
		}
	})

	// 4. PROTECTED ROOTS: system directories are refused before make runs
	t.Run("ProtectedRoots_Blocked", func(t *testing.T) {
		if err := os.Remove(makeLog); err != nil {
			t.Fatalf("Failed to reset make log: %v", err)
		}
		for _, root := range []string{"/", "/etc", "/usr"} {
			r := runner.New(rules, runner.WithCleaner(invoker), runner.WithLogger(logger))
			_, err := r.Run(context.Background(), []string{root})
			if !safety.IsViolation(err) {
				t.Errorf("SAFETY VIOLATION: root %s not refused (err=%v)", root, err)
			}
		}
		if _, err := os.Stat(makeLog); !os.IsNotExist(err) {
			t.Error("make must not run for a refused root")
		}
	})
}
