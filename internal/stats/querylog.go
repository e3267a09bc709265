// Copyright 2025 SweetPick Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stats

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// LogEntry is one persisted query-log row.
type LogEntry struct {
	ID             int64     `json:"id"`
	Query          string    `json:"query"`
	Intent         string    `json:"intent"`
	ResultCount    int       `json:"result_count"`
	Confidence     float64   `json:"confidence"`
	FallbackUsed   bool      `json:"fallback_used"`
	FallbackReason string    `json:"fallback_reason,omitempty"`
	Cached         bool      `json:"cached"`
	LatencyMS      int64     `json:"latency_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// QueryLog persists handled queries to SQLite.
type QueryLog struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewQueryLog opens (creating if needed) the query-log database at dbPath.
func NewQueryLog(dbPath string, logger *zap.Logger) (*QueryLog, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("query log database path is required")
	}

	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create query log directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open query log database: %w", err)
	}

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS query_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query TEXT NOT NULL,
			intent TEXT,
			result_count INTEGER,
			confidence REAL,
			fallback_used INTEGER,
			fallback_reason TEXT,
			cached INTEGER,
			latency_ms INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create query_log table: %w", err)
	}

	logger.Info("Query log initialized", zap.String("db_path", dbPath))
	return &QueryLog{db: db, logger: logger}, nil
}

// Record persists one request.
func (q *QueryLog) Record(req Request) error {
	_, err := q.db.Exec(`
		INSERT INTO query_log (query, intent, result_count, confidence, fallback_used, fallback_reason, cached, latency_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.Query, req.Intent, req.ResultCount, req.Confidence,
		req.FallbackUsed, req.FallbackReason, req.Cached, req.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record query: %w", err)
	}
	return nil
}

// Recent returns the most recent entries, newest first.
func (q *QueryLog) Recent(limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := q.db.Query(`
		SELECT id, query, intent, result_count, confidence, fallback_used, fallback_reason, cached, latency_ms, created_at
		FROM query_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read query log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.Query, &e.Intent, &e.ResultCount, &e.Confidence,
			&e.FallbackUsed, &e.FallbackReason, &e.Cached, &e.LatencyMS, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan query log row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// HealthCheck verifies the database connection.
func (q *QueryLog) HealthCheck() error {
	if err := q.db.Ping(); err != nil {
		return fmt.Errorf("query log database unavailable: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (q *QueryLog) Close() error {
	return q.db.Close()
}
