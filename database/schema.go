package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied statement by statement on startup. Every statement is idempotent.
var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS btree_gist`,
	`CREATE TABLE IF NOT EXISTS services (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL,
		description      TEXT NOT NULL DEFAULT '',
		duration_minutes INTEGER NOT NULL CHECK (duration_minutes > 0),
		price_cents      BIGINT NOT NULL CHECK (price_cents >= 0),
		active           BOOLEAN NOT NULL DEFAULT TRUE,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id                TEXT PRIMARY KEY,
		service_id        TEXT NOT NULL REFERENCES services(id),
		service_name      TEXT NOT NULL,
		client_name       TEXT NOT NULL,
		client_email      TEXT NOT NULL,
		start_time        TIMESTAMPTZ NOT NULL,
		end_time          TIMESTAMPTZ NOT NULL,
		duration_minutes  INTEGER NOT NULL,
		price_cents       BIGINT NOT NULL,
		status            TEXT NOT NULL,
		free_of_charge    BOOLEAN NOT NULL DEFAULT FALSE,
		payment_intent_id TEXT,
		calendar_event_id TEXT,
		meeting_id        TEXT,
		meeting_link      TEXT,
		birthdate         TEXT,
		birthtime         TEXT,
		birthplace        TEXT,
		hold_expires_at   TIMESTAMPTZ,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (end_time > start_time),
		CONSTRAINT bookings_no_overlap EXCLUDE USING gist (
			tstzrange(start_time, end_time, '[)') WITH &&
		) WHERE (status IN ('pending', 'confirmed', 'completed'))
	)`,
	`CREATE INDEX IF NOT EXISTS bookings_start_time_idx ON bookings (start_time)`,
	`CREATE INDEX IF NOT EXISTS bookings_status_idx ON bookings (status)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS bookings_payment_intent_idx ON bookings (payment_intent_id) WHERE payment_intent_id IS NOT NULL`,
}

// Migrate creates the ledger tables and constraints if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i+1, err)
		}
	}
	return nil
}
