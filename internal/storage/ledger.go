// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS requests (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id  TEXT NOT NULL,
    model       TEXT NOT NULL DEFAULT '',
    tried       TEXT NOT NULL DEFAULT '',
    status      INTEGER NOT NULL,
    deltas      INTEGER NOT NULL DEFAULT 0,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_requests_created ON requests(created_at);
CREATE INDEX IF NOT EXISTS idx_requests_model ON requests(model);
`

// ErrClosed is returned by operations on a closed ledger.
var ErrClosed = errors.New("ledger is closed")

// =============================================================================
// TYPES
// =============================================================================

// Entry is one finished gateway request.
type Entry struct {
	RequestID string
	// Model is empty when no candidate accepted the request.
	Model    string
	Tried    []string
	Status   int
	Deltas   int
	Duration time.Duration
	At       time.Time
}

// Summary aggregates the ledger for /stats.
type Summary struct {
	Requests      int            `json:"requests"`
	Succeeded     int            `json:"succeeded"`
	RateLimited   int            `json:"rate_limited"`
	Failed        int            `json:"failed"`
	Deltas        int            `json:"deltas"`
	AvgDurationMS float64        `json:"avg_duration_ms"`
	ByModel       map[string]int `json:"by_model"`
	Since         *time.Time     `json:"since,omitempty"`
}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger is a SQLite request log. It is safe for concurrent use.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the ledger database at path. The special path
// ":memory:" keeps everything in memory.
func Open(ctx context.Context, path string) (*Ledger, error) {
	if path == "" {
		return nil, errors.New("ledger path cannot be empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps ":memory:"
	// pointing at one database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Ledger{db: db, now: time.Now}, nil
}

// Close releases the database.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

// Record appends one request. A zero At is stamped with the current time.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	if l == nil || l.db == nil {
		return ErrClosed
	}
	if e.At.IsZero() {
		e.At = l.now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO requests (request_id, model, tried, status, deltas, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.RequestID, e.Model, strings.Join(e.Tried, ","), e.Status, e.Deltas,
		e.Duration.Milliseconds(), e.At.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record request: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if l == nil || l.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT request_id, model, tried, status, deltas, duration_ms, created_at
		 FROM requests ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e           Entry
			tried       string
			durMS, atMS int64
		)
		if err := rows.Scan(&e.RequestID, &e.Model, &tried, &e.Status, &e.Deltas, &durMS, &atMS); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		if tried != "" {
			e.Tried = strings.Split(tried, ",")
		}
		e.Duration = time.Duration(durMS) * time.Millisecond
		e.At = time.UnixMilli(atMS)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Summary aggregates every recorded request.
func (l *Ledger) Summary(ctx context.Context) (Summary, error) {
	sum := Summary{ByModel: make(map[string]int)}
	if l == nil || l.db == nil {
		return sum, ErrClosed
	}

	var (
		avg   sql.NullFloat64
		since sql.NullInt64
	)
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status < 400 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 429 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status >= 400 AND status <> 429 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(deltas), 0),
		       AVG(duration_ms),
		       MIN(created_at)
		FROM requests`).Scan(&sum.Requests, &sum.Succeeded, &sum.RateLimited, &sum.Failed, &sum.Deltas, &avg, &since)
	if err != nil {
		return sum, fmt.Errorf("failed to summarize requests: %w", err)
	}
	if avg.Valid {
		sum.AvgDurationMS = avg.Float64
	}
	if since.Valid {
		t := time.UnixMilli(since.Int64)
		sum.Since = &t
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT model, COUNT(*) FROM requests WHERE model <> '' GROUP BY model`)
	if err != nil {
		return sum, fmt.Errorf("failed to group by model: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			m string
			n int
		)
		if err := rows.Scan(&m, &n); err != nil {
			return sum, fmt.Errorf("failed to scan model count: %w", err)
		}
		sum.ByModel[m] = n
	}
	return sum, rows.Err()
}
