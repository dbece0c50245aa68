package audit

import (
	"context"
	"database/sql"
	"errors"
)

// Schema creates the audit table when it does not exist.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_logs (
	id TEXT PRIMARY KEY,
	actor TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL,
	resource_type TEXT NOT NULL,
	resource_id TEXT NOT NULL,
	machine_id TEXT NOT NULL DEFAULT '',
	metadata JSONB NULL,
	payload_digest TEXT NOT NULL DEFAULT '',
	ip TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);`

// ErrNilDB is returned by a Repository built without a database.
var ErrNilDB = errors.New("audit repo: nil db")

// Repository stores entries in audit_logs.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema applies Schema.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return ErrNilDB
	}
	_, err := r.db.ExecContext(ctx, Schema)
	return err
}

// Log inserts entry, filling in its id and time when unset.
func (r *Repository) Log(ctx context.Context, entry Entry) error {
	if r == nil || r.db == nil {
		return ErrNilDB
	}
	entry = entry.withDefaults()
	var metadata any
	if len(entry.Metadata) > 0 {
		metadata = []byte(entry.Metadata)
	}
	_, err := r.db.ExecContext(ctx, insertEntry,
		entry.ID, entry.Actor, entry.Role, entry.Action, entry.ResourceType, entry.ResourceID, entry.MachineID,
		metadata, entry.Digest(), entry.IP, entry.UserAgent, entry.CreatedAt)
	return err
}

const insertEntry = `
INSERT INTO audit_logs (
	id, actor, role, action, resource_type, resource_id, machine_id,
	metadata, payload_digest, ip, user_agent, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
