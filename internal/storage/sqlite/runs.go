package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ScanRun is the audit row written after each completed scan. It holds
// counts only; no prices are stored.
type ScanRun struct {
	ID             int64             `json:"id"`
	StartedAt      time.Time         `json:"started_at"`
	FinishedAt     time.Time         `json:"finished_at"`
	CEXQuotes      int               `json:"cex_quotes"`
	DEXQuotes      int               `json:"dex_quotes"`
	Pairs          int               `json:"pairs"`
	Alerts         int               `json:"alerts"`
	Suppressed     int               `json:"suppressed"`
	NotifyFailures int               `json:"notify_failures"`
	SkippedTokens  int               `json:"skipped_tokens"`
	VenueErrors    map[string]string `json:"venue_errors,omitempty"`
}

// InsertScanRun appends run and returns its row id.
func (s *Store) InsertScanRun(ctx context.Context, run ScanRun) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlite store not initialized")
	}
	errs := run.VenueErrors
	if errs == nil {
		errs = map[string]string{}
	}
	errsJSON, err := json.Marshal(errs)
	if err != nil {
		return 0, fmt.Errorf("marshal venue errors: %w", err)
	}

	query := `
INSERT INTO scan_runs (
	started_at, finished_at, cex_quotes, dex_quotes, pairs,
	alerts, suppressed, notify_failures, skipped_tokens, venue_errors_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	res, err := s.db.ExecContext(
		ctx,
		query,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.CEXQuotes,
		run.DEXQuotes,
		run.Pairs,
		run.Alerts,
		run.Suppressed,
		run.NotifyFailures,
		run.SkippedTokens,
		string(errsJSON),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecentScanRuns returns up to limit runs, newest first.
func (s *Store) RecentScanRuns(ctx context.Context, limit int) ([]ScanRun, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlite store not initialized")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, started_at, finished_at, cex_quotes, dex_quotes, pairs,
	alerts, suppressed, notify_failures, skipped_tokens, venue_errors_json
FROM scan_runs
ORDER BY id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScanRun
	for rows.Next() {
		var (
			run               ScanRun
			started, finished string
			errsJSON          string
		)
		if err := rows.Scan(&run.ID, &started, &finished, &run.CEXQuotes, &run.DEXQuotes, &run.Pairs,
			&run.Alerts, &run.Suppressed, &run.NotifyFailures, &run.SkippedTokens, &errsJSON); err != nil {
			return nil, err
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		if err := json.Unmarshal([]byte(errsJSON), &run.VenueErrors); err != nil {
			return nil, fmt.Errorf("parse venue errors: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
