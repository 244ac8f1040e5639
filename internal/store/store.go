// Package store persists scan history in SQLite so past audits can be
// listed, re-read and compared.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tagscope/tagscope/internal/interfaces"
	"github.com/tagscope/tagscope/internal/logging"
	"github.com/tagscope/tagscope/internal/model"
)

//go:embed schema.sql
var schemaFS embed.FS

// ErrScanNotFound is returned when no stored scan has the requested ID.
var ErrScanNotFound = errors.New("scan not found")

// Store wraps the scan-history database.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// ScanSummary is one history listing row; the full report stays in the DB
// until fetched with Get.
type ScanSummary struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	ScannedAt   time.Time `json:"scanned_at"`
	GTMDetected bool      `json:"gtm_detected"`
	Error       string    `json:"error,omitempty"`
	ScriptCount int       `json:"script_count"`
}

// New returns a Store and runs migrations from schema.sql.
func New(db *sql.DB, logger interfaces.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Save persists one result (successful or failed entry) and returns its ID.
func (s *Store) Save(ctx context.Context, res *model.ScanResult) (string, error) {
	if res == nil {
		return "", fmt.Errorf("result is nil")
	}

	data, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("encoding result: %w", err)
	}

	id := uuid.New().String()
	gtm := 0
	if res.GTMDetected {
		gtm = 1
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO scans
		(id, url, scanned_at, gtm_detected, error, script_count, result_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, res.URL, res.ScannedAt.UTC().Format(time.RFC3339), gtm, res.Error, len(res.Scripts), string(data))
	if err != nil {
		return "", fmt.Errorf("inserting scan %s: %w", res.URL, err)
	}

	s.logger.Debug("saved scan",
		logging.Field{Key: "id", Value: id},
		logging.Field{Key: "url", Value: res.URL})
	return id, nil
}

// Get returns the full stored report for one scan ID.
func (s *Store) Get(ctx context.Context, id string) (*model.ScanResult, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT result_json FROM scans WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrScanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying scan %s: %w", id, err)
	}

	var res model.ScanResult
	if err := json.Unmarshal([]byte(data), &res); err != nil {
		return nil, fmt.Errorf("decoding stored scan %s: %w", id, err)
	}
	return &res, nil
}

// List returns recent scans, newest first. limit <= 0 means a default of 50.
func (s *Store) List(ctx context.Context, limit int) ([]ScanSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, url, scanned_at, gtm_detected, error, script_count
		FROM scans ORDER BY scanned_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing scans: %w", err)
	}
	defer rows.Close()

	var out []ScanSummary
	for rows.Next() {
		var (
			sum       ScanSummary
			scannedAt string
			gtm       int
		)
		if err := rows.Scan(&sum.ID, &sum.URL, &scannedAt, &gtm, &sum.Error, &sum.ScriptCount); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		if t, perr := time.Parse(time.RFC3339, scannedAt); perr == nil {
			sum.ScannedAt = t
		}
		sum.GTMDetected = gtm != 0
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history rows: %w", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
