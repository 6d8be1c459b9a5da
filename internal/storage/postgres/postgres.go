// Package postgres opens the database and keeps the schema in place.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open connects, verifies the connection and applies sane pool limits.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS coordinators (
		id              TEXT PRIMARY KEY,
		school_name     TEXT NOT NULL,
		school_address  TEXT NOT NULL,
		name            TEXT NOT NULL,
		email           TEXT NOT NULL UNIQUE,
		phone           TEXT NOT NULL,
		credential_hash TEXT NOT NULL,
		registration_id TEXT NOT NULL UNIQUE,
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS registrations (
		id              TEXT PRIMARY KEY,
		public_id       TEXT NOT NULL UNIQUE,
		coordinator_id  TEXT NOT NULL UNIQUE REFERENCES coordinators (id),
		student_ids     TEXT[] NOT NULL DEFAULT '{}',
		total_amount    INTEGER NOT NULL DEFAULT 0,
		payment_status  TEXT NOT NULL,
		approval_status TEXT NOT NULL,
		utr             TEXT,
		payment_date    TIMESTAMPTZ,
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS registrations_utr_idx
		ON registrations (utr) WHERE utr IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS students (
		id              TEXT PRIMARY KEY,
		public_id       TEXT NOT NULL UNIQUE,
		registration_id TEXT NOT NULL REFERENCES registrations (id),
		name            TEXT NOT NULL,
		grade           INTEGER NOT NULL,
		section         TEXT NOT NULL DEFAULT '',
		subjects        TEXT NOT NULL,
		category        TEXT NOT NULL,
		fee             INTEGER NOT NULL,
		parent_name     TEXT NOT NULL DEFAULT '',
		parent_contact  TEXT NOT NULL DEFAULT '',
		status          TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS students_registration_idx
		ON students (registration_id)`,
	`CREATE TABLE IF NOT EXISTS revenue_records (
		id               TEXT PRIMARY KEY,
		registration_id  TEXT NOT NULL UNIQUE,
		public_id        TEXT NOT NULL,
		coordinator_id   TEXT NOT NULL,
		school_name      TEXT NOT NULL DEFAULT '',
		coordinator_name TEXT NOT NULL DEFAULT '',
		amount           INTEGER NOT NULL,
		student_count    INTEGER NOT NULL,
		outcome          TEXT NOT NULL DEFAULT 'verified',
		verified_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audit_events (
		id              TEXT PRIMARY KEY,
		registration_id TEXT NOT NULL,
		from_payment    TEXT NOT NULL DEFAULT '',
		to_payment      TEXT NOT NULL DEFAULT '',
		from_approval   TEXT NOT NULL DEFAULT '',
		to_approval     TEXT NOT NULL DEFAULT '',
		total_amount    INTEGER NOT NULL,
		student_count   INTEGER NOT NULL,
		actor           TEXT NOT NULL,
		at              TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS audit_events_registration_idx
		ON audit_events (registration_id)`,
}

// EnsureSchema creates the tables used by the Postgres stores.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
