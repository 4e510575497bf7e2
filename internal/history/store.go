// Package history records completed extractions in SQLite so past
// footprints survive restarts and job expiry.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one recorded extraction.
type Entry struct {
	ID            int64     `json:"id"`
	JobID         string    `json:"jobId"`
	FootprintName string    `json:"footprintName"`
	Filename      string    `json:"filename"`
	PadCount      int       `json:"padCount"`
	ViaCount      int       `json:"viaCount"`
	ModelUsed     string    `json:"modelUsed"`
	Confidence    float64   `json:"confidence"`
	InputTokens   int       `json:"inputTokens"`
	OutputTokens  int       `json:"outputTokens"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Store persists extraction history.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open creates or opens the history database.
func Open(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "history.db")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS extractions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL,
		footprint_name TEXT NOT NULL,
		filename TEXT NOT NULL,
		pad_count INTEGER NOT NULL,
		via_count INTEGER NOT NULL,
		model_used TEXT NOT NULL,
		confidence REAL NOT NULL,
		input_tokens INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_extractions_created ON extractions(created_at);
	CREATE INDEX IF NOT EXISTS idx_extractions_job ON extractions(job_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record inserts one extraction into the history.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO extractions
			(job_id, footprint_name, filename, pad_count, via_count,
			 model_used, confidence, input_tokens, output_tokens, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.JobID, e.FootprintName, e.Filename, e.PadCount, e.ViaCount,
		e.ModelUsed, e.Confidence, e.InputTokens, e.OutputTokens, createdAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record extraction: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns the newest entries, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, footprint_name, filename, pad_count, via_count,
		       model_used, confidence, input_tokens, output_tokens, created_at
		FROM extractions
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.JobID, &e.FootprintName, &e.Filename,
			&e.PadCount, &e.ViaCount, &e.ModelUsed, &e.Confidence,
			&e.InputTokens, &e.OutputTokens, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the total number of recorded extractions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM extractions`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return n, nil
}
