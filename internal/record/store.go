// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package record persists upload outcomes so status queries operate on
// durable state rather than in-flight request memory.
package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO)

	"github.com/ManuGH/clipd/internal/probe"
)

// ErrNotFound is returned when no record exists for the requested id.
var ErrNotFound = errors.New("video record not found")

// State is the lifecycle of a stored video.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Record is one video's persisted upload outcome.
type Record struct {
	ID          string
	Filename    string
	URL         string
	CreatedAt   time.Time
	Specs       *probe.VideoSpecs
	State       State
	Error       string
	Progress    *float64 // 0-100, only meaningful while processing
	StoragePath string
}

// Store provides SQLite persistence for video records.
type Store struct {
	db *sql.DB
}

// NewStore initializes the SQLite store and runs migrations.
// WAL mode + busy_timeout avoid "database locked" errors under concurrent
// uploads.
func NewStore(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS videos (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		specs TEXT,
		state TEXT NOT NULL CHECK(state IN ('pending', 'processing', 'completed', 'failed')),
		error TEXT NOT NULL DEFAULT '',
		progress REAL,
		storage_path TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_videos_state ON videos(state);
	CREATE INDEX IF NOT EXISTS idx_videos_created_at ON videos(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Insert stores a new record.
func (s *Store) Insert(ctx context.Context, rec Record) error {
	var specsJSON any
	if rec.Specs != nil {
		data, err := json.Marshal(rec.Specs)
		if err != nil {
			return fmt.Errorf("marshal specs: %w", err)
		}
		specsJSON = string(data)
	}

	query := `
	INSERT INTO videos (id, filename, url, created_at, specs, state, error, progress, storage_path)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Filename,
		rec.URL,
		rec.CreatedAt.UTC().Format(time.RFC3339),
		specsJSON,
		string(rec.State),
		rec.Error,
		rec.Progress,
		rec.StoragePath,
	)
	if err != nil {
		return fmt.Errorf("insert video %s: %w", rec.ID, err)
	}
	return nil
}

// Get retrieves one record by id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	query := `
	SELECT id, filename, url, created_at, specs, state, error, progress, storage_path
	FROM videos WHERE id = ?
	`
	row := s.db.QueryRowContext(ctx, query, id)

	var rec Record
	var createdAt string
	var specsJSON sql.NullString
	var state string
	if err := row.Scan(
		&rec.ID,
		&rec.Filename,
		&rec.URL,
		&createdAt,
		&specsJSON,
		&state,
		&rec.Error,
		&rec.Progress,
		&rec.StoragePath,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("get video %s: %w", id, err)
	}

	rec.State = State(state)
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		rec.CreatedAt = t
	}
	if specsJSON.Valid && specsJSON.String != "" {
		var specs probe.VideoSpecs
		if err := json.Unmarshal([]byte(specsJSON.String), &specs); err != nil {
			return Record{}, fmt.Errorf("unmarshal specs for %s: %w", id, err)
		}
		rec.Specs = &specs
	}
	return rec, nil
}

// SetState transitions a record's state, replacing its error and progress.
func (s *Store) SetState(ctx context.Context, id string, state State, errMsg string, progress *float64) error {
	query := `UPDATE videos SET state = ?, error = ?, progress = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query, string(state), errMsg, progress, id)
	if err != nil {
		return fmt.Errorf("set state for %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
