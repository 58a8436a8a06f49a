// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists a log of conversion runs in SQLite.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/docbench/pkg/types"
)

// Status is the recorded outcome of a conversion run.
type Status string

const (
	StatusDone   Status = "done"
	StatusFailed Status = "failed"
)

// Record is one conversion run. Error is empty unless Status is failed.
type Record struct {
	ID         int64     `json:"id" yaml:"id"`
	Filename   string    `json:"filename" yaml:"filename"`
	OCREngine  string    `json:"ocr_engine" yaml:"ocr_engine"`
	Enrichment []string  `json:"enrichment,omitempty" yaml:"enrichment,omitempty"`
	Device     string    `json:"device" yaml:"device"`
	Status     Status    `json:"status" yaml:"status"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMS int64     `json:"duration_ms" yaml:"duration_ms"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

// Store manages the conversion history SQLite database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// NewStore opens or creates the history database at cfg.Path, creating
// the schema if it does not exist.
func NewStore(cfg types.HistoryConfig) (*Store, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT NOT NULL,
			ocr_engine TEXT NOT NULL,
			enrichment TEXT,
			device TEXT,
			status TEXT NOT NULL,
			error TEXT,
			duration_ms INTEGER,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_created_at ON conversions(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Add inserts a conversion record and returns its assigned ID. A zero
// CreatedAt is filled with the current time.
func (s *Store) Add(ctx context.Context, rec Record) (int64, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	enrichmentJSON, _ := json.Marshal(rec.Enrichment)

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversions (filename, ocr_engine, enrichment, device, status, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Filename, rec.OCREngine, string(enrichmentJSON), rec.Device,
		string(rec.Status), rec.Error, rec.DurationMS,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting conversion record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading record ID: %w", err)
	}
	return id, nil
}

// Recent returns the newest records first. When limit is 0 the store's
// configured maximum is used.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = s.maxResults
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, ocr_engine, enrichment, device, status, error, duration_ms, created_at
		 FROM conversions ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var rec Record
		var enrichmentJSON, createdAt string
		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.OCREngine, &enrichmentJSON,
			&rec.Device, &rec.Status, &rec.Error, &rec.DurationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}

		if enrichmentJSON != "" && enrichmentJSON != "null" {
			if err := json.Unmarshal([]byte(enrichmentJSON), &rec.Enrichment); err != nil {
				return nil, fmt.Errorf("parsing enrichment for record %d: %w", rec.ID, err)
			}
		}
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp for record %d: %w", rec.ID, err)
		}
		rec.CreatedAt = ts

		records = append(records, rec)
	}
	return records, rows.Err()
}
