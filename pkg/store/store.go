// Package store persists completed scans to SQLite so downstream
// reformatting tools can pick up subjects without rescanning.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/framelab/go-reframe/pkg/scan"
)

// ErrNotFound is returned when a scan id does not exist.
var ErrNotFound = errors.New("store: scan not found")

// ScanRecord is one completed scan with its subjects.
type ScanRecord struct {
	ID          string         `json:"id"`
	Video       string         `json:"video"`
	Duration    float64        `json:"duration"`
	FrameWidth  float64        `json:"frame_width"`
	FrameHeight float64        `json:"frame_height"`
	CreatedAt   time.Time      `json:"created_at"`
	Subjects    []scan.Subject `json:"subjects"`
}

// FocusRegions derives the crop metadata for this record.
func (r *ScanRecord) FocusRegions() []scan.FocusRegion {
	return scan.SubjectsToFocusRegions(r.Subjects, r.FrameWidth, r.FrameHeight)
}

// Summary is a scan listing entry without the position payload.
type Summary struct {
	ID           string    `json:"id"`
	Video        string    `json:"video"`
	Duration     float64   `json:"duration"`
	SubjectCount int       `json:"subject_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store is a SQLite-backed scan archive.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS scans (
			id TEXT PRIMARY KEY,
			video TEXT NOT NULL,
			duration REAL NOT NULL,
			frame_width REAL NOT NULL,
			frame_height REAL NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS subjects (
			id TEXT PRIMARY KEY,
			scan_id TEXT NOT NULL,
			class TEXT NOT NULL,
			first_seen REAL NOT NULL,
			last_seen REAL NOT NULL,
			positions TEXT NOT NULL,
			FOREIGN KEY(scan_id) REFERENCES scans(id)
		);
		CREATE INDEX IF NOT EXISTS idx_subjects_scan ON subjects(scan_id);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Save writes a scan record and its subjects in one transaction.
func (s *Store) Save(rec *ScanRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO scans (id, video, duration, frame_width, frame_height, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Video, rec.Duration, rec.FrameWidth, rec.FrameHeight, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: insert scan: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO subjects (id, scan_id, class, first_seen, last_seen, positions)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("store: prepare: %w", err)
	}
	defer stmt.Close()

	for _, sub := range rec.Subjects {
		positions, err := json.Marshal(sub.Positions)
		if err != nil {
			return fmt.Errorf("store: encode positions: %w", err)
		}
		if _, err := stmt.Exec(sub.ID, rec.ID, sub.Class, sub.FirstSeen, sub.LastSeen, positions); err != nil {
			return fmt.Errorf("store: insert subject: %w", err)
		}
	}

	return tx.Commit()
}

// Get loads one scan record with its subjects.
func (s *Store) Get(id string) (*ScanRecord, error) {
	rec := &ScanRecord{ID: id}
	err := s.db.QueryRow(`
		SELECT video, duration, frame_width, frame_height, created_at
		FROM scans WHERE id = ?
	`, id).Scan(&rec.Video, &rec.Duration, &rec.FrameWidth, &rec.FrameHeight, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get scan: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT id, class, first_seen, last_seen, positions
		FROM subjects WHERE scan_id = ? ORDER BY first_seen, id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("store: get subjects: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sub scan.Subject
		var positions []byte
		if err := rows.Scan(&sub.ID, &sub.Class, &sub.FirstSeen, &sub.LastSeen, &positions); err != nil {
			return nil, fmt.Errorf("store: scan subject row: %w", err)
		}
		if err := json.Unmarshal(positions, &sub.Positions); err != nil {
			return nil, fmt.Errorf("store: decode positions: %w", err)
		}
		rec.Subjects = append(rec.Subjects, sub)
	}
	return rec, rows.Err()
}

// List returns scan summaries, newest first.
func (s *Store) List() ([]Summary, error) {
	rows, err := s.db.Query(`
		SELECT s.id, s.video, s.duration, s.created_at, COUNT(sub.id)
		FROM scans s LEFT JOIN subjects sub ON sub.scan_id = s.id
		GROUP BY s.id ORDER BY s.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Video, &sum.Duration, &sum.CreatedAt, &sum.SubjectCount); err != nil {
			return nil, fmt.Errorf("store: scan summary row: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
