package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"cmake-clean/internal/sweep"
)

// Actions recorded in the history table
const (
	ActionDelete = "DELETE"
	ActionDryRun = "DRY_RUN"
	ActionError  = "ERROR"
)

// HistoryDB manages the SQLite database for removal history
type HistoryDB struct {
	db *sql.DB
}

// RemovalRecord represents a single removal event
type RemovalRecord struct {
	ID           int64     `json:"id"`
	RunID        string    `json:"run_id"`
	Timestamp    time.Time `json:"timestamp"`
	Action       string    `json:"action"`
	Root         string    `json:"root"`
	Path         string    `json:"path"`
	ObjectType   string    `json:"object_type"`
	Pass         string    `json:"pass"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// NewHistoryDB creates a new database connection and initializes schema
func NewHistoryDB(dbPath string) (*HistoryDB, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// _loc=auto enables automatic DATETIME parsing
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// Forces file creation, unlike Ping
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	hdb := &HistoryDB{db: db}
	if err = hdb.initSchema(); err != nil {
		return nil, err
	}

	return hdb, nil
}

// initSchema creates tables and indexes if they don't exist
func (h *HistoryDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS removals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		action TEXT NOT NULL,
		root TEXT NOT NULL,
		path TEXT NOT NULL,
		object_type TEXT NOT NULL,
		pass TEXT NOT NULL,
		error_message TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_timestamp ON removals(timestamp);
	CREATE INDEX IF NOT EXISTS idx_run_id ON removals(run_id);
	CREATE INDEX IF NOT EXISTS idx_root ON removals(root);
	CREATE INDEX IF NOT EXISTS idx_action ON removals(action);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	if _, err := h.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// RecordRemoval inserts one sweep removal
func (h *HistoryDB) RecordRemoval(runID string, at time.Time, rm sweep.Removal) error {
	action := ActionDelete
	if rm.DryRun {
		action = ActionDryRun
	}
	return h.insert(runID, at, action, rm.Root, rm.Path, string(rm.Kind), string(rm.Pass), "")
}

// RecordError inserts a failed sweep of root
func (h *HistoryDB) RecordError(runID string, at time.Time, root string, sweepErr error) error {
	return h.insert(runID, at, ActionError, root, root, "directory", "", sweepErr.Error())
}

func (h *HistoryDB) insert(runID string, at time.Time, action, root, path, objectType, pass, errMsg string) error {
	query := `
	INSERT INTO removals (
		run_id, timestamp, action, root, path, object_type, pass, error_message
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := h.db.Exec(query, runID, at, action, root, path, objectType, pass, errMsg)
	return err
}

// Close closes the database connection
func (h *HistoryDB) Close() error {
	return h.db.Close()
}
