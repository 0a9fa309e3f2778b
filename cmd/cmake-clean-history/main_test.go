package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cmake-clean/internal/database"
	"cmake-clean/internal/exitcodes"
	"cmake-clean/internal/sweep"
)

func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := database.NewHistoryDB(path)
	if err != nil {
		t.Fatalf("create database: %v", err)
	}
	defer db.Close()

	now := time.Now()
	removals := []sweep.Removal{
		{Root: "/src/a", Path: "/src/a/CMakeCache.txt", Kind: sweep.KindFile, Pass: sweep.PassTopLevel},
		{Root: "/src/a", Path: "/src/a/CMakeFiles", Kind: sweep.KindDir, Pass: sweep.PassMarker},
		{Root: "/src/b", Path: "/src/b/CMakeFiles", Kind: sweep.KindDir, Pass: sweep.PassMarker},
	}
	for i, rm := range removals {
		if err := db.RecordRemoval("run-1", now.Add(-time.Hour+time.Duration(i)*time.Second), rm); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := db.RecordError("run-2", now.Add(-time.Minute), "/src/c", errors.New("remove /src/c/x: permission denied")); err != nil {
		t.Fatalf("record error: %v", err)
	}
	return path
}

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRecentTable(t *testing.T) {
	db := seedDB(t)

	code, out, stderr := runCLI("--db", db, "--recent", "2")
	if code != exitcodes.Success {
		t.Fatalf("exit code = %d (stderr: %s)", code, stderr)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, rule and 2 rows, got:\n%s", out)
	}
	if !strings.Contains(lines[2], "ERROR") || !strings.Contains(lines[2], "permission denied") {
		t.Errorf("newest row should be the error, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "/src/b/CMakeFiles") {
		t.Errorf("second row should be /src/b/CMakeFiles, got %q", lines[3])
	}
}

func TestRootJSON(t *testing.T) {
	db := seedDB(t)

	code, out, _ := runCLI("--db", db, "--root", "/src/a", "--json")
	if code != exitcodes.Success {
		t.Fatalf("exit code = %d", code)
	}
	var records []database.RemovalRecord
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records for /src/a, got %d", len(records))
	}
}

func TestRunNoMatchesJSON(t *testing.T) {
	db := seedDB(t)

	code, out, _ := runCLI("--db", db, "--run", "missing", "--json")
	if code != exitcodes.Success {
		t.Fatalf("exit code = %d", code)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("expected empty JSON array, got %q", out)
	}
}

func TestStats(t *testing.T) {
	db := seedDB(t)

	code, out, _ := runCLI("--db", db, "--stats", "--days", "7")
	if code != exitcodes.Success {
		t.Fatalf("exit code = %d", code)
	}
	for _, want := range []string{"Last 7 days", "Runs:             2", "Total Removals:   3", "Total Errors:     1", "marker", "/src/a"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}
}

func TestUsageErrors(t *testing.T) {
	db := seedDB(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no database", []string{"--stats"}},
		{"no query", []string{"--db", db}},
		{"bad flag value", []string{"--db", db, "--recent", "many"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(tt.args...)
			if code != exitcodes.Usage {
				t.Errorf("exit code = %d, want %d", code, exitcodes.Usage)
			}
			if !strings.Contains(stderr, "Usage:") {
				t.Errorf("expected usage on stderr, got %q", stderr)
			}
		})
	}
}

func TestMissingDatabase(t *testing.T) {
	code, _, stderr := runCLI("--db", filepath.Join(t.TempDir(), "nope.db"), "--stats")
	if code != exitcodes.RuntimeError {
		t.Errorf("exit code = %d, want %d", code, exitcodes.RuntimeError)
	}
	if !strings.Contains(stderr, "open history database") {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}
