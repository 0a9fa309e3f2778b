package database

import (
	"database/sql"
	"time"
)

// RemovalStats aggregates removal history over a period
type RemovalStats struct {
	StartDate     time.Time      `json:"start_date"`
	EndDate       time.Time      `json:"end_date"`
	TotalRuns     int            `json:"total_runs"`
	TotalRemovals int            `json:"total_removals"`
	TotalDryRun   int            `json:"total_dry_run"`
	TotalErrors   int            `json:"total_errors"`
	ByPass        map[string]int `json:"by_pass"`
	ByRoot        map[string]int `json:"by_root"`
}

const selectColumns = `
	SELECT id, run_id, timestamp, action, root, path, object_type, pass, error_message
	FROM removals
`

// RecentRemovals returns the N most recent events
func (h *HistoryDB) RecentRemovals(limit int) ([]RemovalRecord, error) {
	return h.queryRemovals(selectColumns+`ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
}

// RemovalsByRoot returns events for one target root
func (h *HistoryDB) RemovalsByRoot(root string) ([]RemovalRecord, error) {
	return h.queryRemovals(selectColumns+`WHERE root = ? ORDER BY timestamp DESC, id DESC`, root)
}

// RemovalsByRun returns the events of one run in insertion order
func (h *HistoryDB) RemovalsByRun(runID string) ([]RemovalRecord, error) {
	return h.queryRemovals(selectColumns+`WHERE run_id = ? ORDER BY id`, runID)
}

// Stats returns removal statistics for the last N days
func (h *HistoryDB) Stats(days int) (*RemovalStats, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	stats := &RemovalStats{
		StartDate: start,
		EndDate:   end,
		ByPass:    make(map[string]int),
		ByRoot:    make(map[string]int),
	}

	err := h.db.QueryRow(`
	SELECT
		COUNT(DISTINCT run_id),
		COALESCE(SUM(CASE WHEN action = 'DELETE' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN action = 'DRY_RUN' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN action = 'ERROR' THEN 1 ELSE 0 END), 0)
	FROM removals
	WHERE timestamp BETWEEN ? AND ?
	`, start, end).Scan(&stats.TotalRuns, &stats.TotalRemovals, &stats.TotalDryRun, &stats.TotalErrors)
	if err != nil {
		return nil, err
	}

	if err := h.countInto(stats.ByPass, `
	SELECT pass, COUNT(*) FROM removals
	WHERE action = 'DELETE' AND timestamp BETWEEN ? AND ?
	GROUP BY pass
	`, start, end); err != nil {
		return nil, err
	}

	if err := h.countInto(stats.ByRoot, `
	SELECT root, COUNT(*) FROM removals
	WHERE action = 'DELETE' AND timestamp BETWEEN ? AND ?
	GROUP BY root
	`, start, end); err != nil {
		return nil, err
	}

	return stats, nil
}

func (h *HistoryDB) countInto(dst map[string]int, query string, args ...interface{}) error {
	rows, err := h.db.Query(query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		dst[key] = count
	}
	return rows.Err()
}

// queryRemovals is a helper to execute queries and scan results
func (h *HistoryDB) queryRemovals(query string, args ...interface{}) ([]RemovalRecord, error) {
	rows, err := h.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RemovalRecord
	for rows.Next() {
		var r RemovalRecord
		var errorMessage sql.NullString

		if err := rows.Scan(
			&r.ID, &r.RunID, &r.Timestamp, &r.Action, &r.Root,
			&r.Path, &r.ObjectType, &r.Pass, &errorMessage,
		); err != nil {
			return nil, err
		}
		r.ErrorMessage = errorMessage.String
		records = append(records, r)
	}

	return records, rows.Err()
}
