// Package settings implements the optimistic-concurrency Settings Store
// described in SPEC_FULL.md, grounded on
// original_source/routers/settings_api.py: a single row (id=1), created
// lazily on first read with a default config, versioned so concurrent
// updates detect conflicts instead of silently clobbering each other.
package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Config is the operator-editable policy configuration: response method and
// per-interface service filters, consumed by internal/policy.
type Config struct {
	ResponseMethod string                    `json:"response_method"`
	ServiceFilters map[string]map[string]bool `json:"service_filters"`
}

// DefaultConfig mirrors settings_api.py's _default_config(): masking is the
// safe default reaction, and an empty filter set means "monitor everything".
func DefaultConfig() Config {
	return Config{
		ResponseMethod: "mask",
		ServiceFilters: map[string]map[string]bool{},
	}
}

// Record is the persisted settings row plus its optimistic-concurrency
// version and last-write timestamp.
type Record struct {
	Config    Config
	Version   int
	UpdatedAt time.Time
}

// ErrVersionConflict is returned by Update when the caller's expected
// version no longer matches the stored version — another writer got there
// first.
var ErrVersionConflict = errors.New("settings: version conflict")

// Store wraps a *sql.DB holding the single settings row.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	config     TEXT NOT NULL,
	version    INTEGER NOT NULL DEFAULT 1,
	updated_at DATETIME NOT NULL
);
`

// NewStore ensures the settings table exists against an already-open *sql.DB
// (the same handle the Log Repository uses).
func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("settings: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the current settings, creating the row with DefaultConfig on
// first read. A race between two first-readers is resolved by letting the
// INSERT's primary-key conflict fail silently and re-reading.
func (s *Store) Get(ctx context.Context) (Record, error) {
	rec, err := s.read(ctx)
	if err != nil {
		return Record{}, err
	}
	if rec != nil {
		return *rec, nil
	}

	cfgJSON, err := json.Marshal(DefaultConfig())
	if err != nil {
		return Record{}, fmt.Errorf("settings: marshal default config: %w", err)
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (id, config, version, updated_at) VALUES (1, ?, 1, ?)`,
		string(cfgJSON), now)
	if err != nil {
		return Record{}, fmt.Errorf("settings: create default row: %w", err)
	}

	rec, err = s.read(ctx)
	if err != nil {
		return Record{}, err
	}
	if rec == nil {
		return Record{}, fmt.Errorf("settings: row missing after create-on-read")
	}
	return *rec, nil
}

func (s *Store) read(ctx context.Context) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT config, version, updated_at FROM settings WHERE id = 1`)

	var cfgJSON string
	var rec Record
	if err := row.Scan(&cfgJSON, &rec.Version, &rec.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("settings: read: %w", err)
	}
	if err := json.Unmarshal([]byte(cfgJSON), &rec.Config); err != nil {
		rec.Config = DefaultConfig()
	}
	return &rec, nil
}

// Update applies newConfig if expectedVersion matches the stored version
// (or expectedVersion is nil, meaning "don't check"), incrementing the
// version on success. Returns ErrVersionConflict on a mismatch.
func (s *Store) Update(ctx context.Context, newConfig Config, expectedVersion *int) (Record, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return Record{}, err
	}
	if expectedVersion != nil && *expectedVersion != current.Version {
		return Record{}, ErrVersionConflict
	}

	cfgJSON, err := json.Marshal(newConfig)
	if err != nil {
		return Record{}, fmt.Errorf("settings: marshal config: %w", err)
	}
	now := time.Now()
	newVersion := current.Version + 1

	res, err := s.db.ExecContext(ctx,
		`UPDATE settings SET config = ?, version = ?, updated_at = ? WHERE id = 1 AND version = ?`,
		string(cfgJSON), newVersion, now, current.Version)
	if err != nil {
		return Record{}, fmt.Errorf("settings: update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Record{}, fmt.Errorf("settings: rows affected: %w", err)
	}
	if affected == 0 {
		return Record{}, ErrVersionConflict
	}

	return Record{Config: newConfig, Version: newVersion, UpdatedAt: now}, nil
}
