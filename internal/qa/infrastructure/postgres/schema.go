package postgres

import (
	"context"
	"database/sql"
	"errors"
)

// Schema creates the QA tables when they do not exist.
const Schema = `
CREATE TABLE IF NOT EXISTS check_records (
	id TEXT PRIMARY KEY,
	machine_id TEXT NOT NULL,
	check_category TEXT NOT NULL,
	variant TEXT NOT NULL DEFAULT '',
	captured_at TIMESTAMPTZ NULL,
	check_date DATE NOT NULL,
	measurements JSONB NOT NULL DEFAULT '{}'::jsonb,
	leaves JSONB NOT NULL DEFAULT '{}'::jsonb,
	approved_by TEXT NOT NULL DEFAULT '',
	approved_at TIMESTAMPTZ NULL,
	source_path TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS check_records_machine_date_idx ON check_records (machine_id, check_date);

CREATE TABLE IF NOT EXISTS thresholds (
	machine_id TEXT NOT NULL,
	check_category TEXT NOT NULL,
	beam_variant TEXT NOT NULL DEFAULT '',
	metric_type TEXT NOT NULL,
	tolerance DOUBLE PRECISION NOT NULL CHECK (tolerance >= 0),
	last_updated TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (machine_id, check_category, beam_variant, metric_type)
);
CREATE UNIQUE INDEX IF NOT EXISTS thresholds_key_ci_idx
	ON thresholds (machine_id, check_category, lower(beam_variant), lower(metric_type));`

// EnsureSchema applies Schema.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("qa schema: nil db")
	}
	_, err := db.ExecContext(ctx, Schema)
	return err
}
