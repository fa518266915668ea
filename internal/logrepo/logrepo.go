// Package logrepo implements the Log Repository: one persisted row per
// inbound request, grounded on original_source/models.py's LogRecord table
// and services/db_logging.py's create-and-return flow. It persists via
// database/sql over modernc.org/sqlite, a pure-Go, cgo-free SQLite driver.
package logrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one persisted request+result row.
type Record struct {
	RequestID      string
	Time           string
	PublicIP       string
	PrivateIP      string
	Host           string
	Hostname       string
	Prompt         string
	AttachmentMeta string // JSON: the inbound {"format":...,"data":<base64>} descriptor; redacted output is not persisted
	Interface      string
	ModifiedPrompt string
	HasSensitive   bool
	EntitiesJSON   string // JSON array of {label,value,begin,end}
	ProcessingMs   int64
	FileBlocked    bool
	Allow          bool
	Action         string
	CreatedAt      time.Time
}

// Repository wraps a *sql.DB opened against a SQLite file.
type Repository struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at dsn and ensures
// the log_records table exists.
func Open(ctx context.Context, dsn string) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("logrepo: open: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: a single writer avoids SQLITE_BUSY under concurrent requests

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("logrepo: create schema: %w", err)
	}
	return &Repository{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS log_records (
	request_id      TEXT PRIMARY KEY,
	time            TEXT NOT NULL,
	public_ip       TEXT,
	private_ip      TEXT,
	host            TEXT,
	hostname        TEXT,
	prompt          TEXT NOT NULL,
	attachment_meta TEXT,
	interface       TEXT NOT NULL DEFAULT 'llm',
	modified_prompt TEXT NOT NULL,
	has_sensitive   INTEGER NOT NULL DEFAULT 0,
	entities        TEXT NOT NULL DEFAULT '[]',
	processing_ms   INTEGER NOT NULL DEFAULT 0,
	file_blocked    INTEGER NOT NULL DEFAULT 0,
	allow           INTEGER NOT NULL DEFAULT 1,
	action          TEXT NOT NULL DEFAULT 'allow',
	created_at      DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_log_records_created_at ON log_records(created_at);
CREATE INDEX IF NOT EXISTS idx_log_records_host ON log_records(host);
`

// Create inserts one log row transactionally: the whole row is written or
// none of it is, so a crash mid-write never leaves a partial record.
func (r *Repository) Create(ctx context.Context, rec Record) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("logrepo: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO log_records (
			request_id, time, public_ip, private_ip, host, hostname, prompt,
			attachment_meta, interface, modified_prompt, has_sensitive, entities,
			processing_ms, file_blocked, allow, action, created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.RequestID, rec.Time, rec.PublicIP, rec.PrivateIP, rec.Host, rec.Hostname, rec.Prompt,
		rec.AttachmentMeta, rec.Interface, rec.ModifiedPrompt, rec.HasSensitive, rec.EntitiesJSON,
		rec.ProcessingMs, rec.FileBlocked, rec.Allow, rec.Action, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("logrepo: insert: %w", err)
	}
	return tx.Commit()
}

// Get fetches a single record by request ID.
func (r *Repository) Get(ctx context.Context, requestID string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT request_id, time, public_ip, private_ip, host, hostname, prompt,
			attachment_meta, interface, modified_prompt, has_sensitive, entities,
			processing_ms, file_blocked, allow, action, created_at
		FROM log_records WHERE request_id = ?`, requestID)

	var rec Record
	if err := row.Scan(
		&rec.RequestID, &rec.Time, &rec.PublicIP, &rec.PrivateIP, &rec.Host, &rec.Hostname, &rec.Prompt,
		&rec.AttachmentMeta, &rec.Interface, &rec.ModifiedPrompt, &rec.HasSensitive, &rec.EntitiesJSON,
		&rec.ProcessingMs, &rec.FileBlocked, &rec.Allow, &rec.Action, &rec.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("logrepo: get: %w", err)
	}
	return &rec, nil
}

// Close releases the underlying database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// DB exposes the underlying handle so callers can share it with other
// stores (e.g. settings.Store) against the same SQLite file instead of
// opening a second connection pool onto it.
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Ping verifies the database connection is alive, for the health endpoint.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// EncodeEntities marshals a slice of {label,value,begin,end} maps (or any
// JSON-marshalable entity-like value) to the column's stored form.
func EncodeEntities(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("logrepo: encode entities: %w", err)
	}
	return string(b), nil
}
