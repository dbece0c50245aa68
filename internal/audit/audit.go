// Package audit records who signed off or removed check records.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ActionRecordApprove = "record.approve"
	ActionRecordDelete  = "record.delete"

	ResourceCheckRecord = "check_record"
)

// Entry is one audited action.
type Entry struct {
	ID           string
	Actor        string
	Role         string
	Action       string
	ResourceType string
	ResourceID   string
	MachineID    string
	Metadata     json.RawMessage
	IP           string
	UserAgent    string
	CreatedAt    time.Time
}

// Digest is the SHA-256 of the metadata, or "" when there is none.
func (e Entry) Digest() string {
	if len(e.Metadata) == 0 {
		return ""
	}
	sum := sha256.Sum256(e.Metadata)
	return hex.EncodeToString(sum[:])
}

func (e Entry) withDefaults() Entry {
	if e.ID == "" {
		e.ID = "audit-" + uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return e
}

// Logger writes audit entries.
type Logger interface {
	Log(ctx context.Context, entry Entry) error
}

// NopLogger discards entries.
type NopLogger struct{}

func (NopLogger) Log(context.Context, Entry) error { return nil }

// ZapLogger writes entries to a structured log when no database is available.
type ZapLogger struct {
	logger *zap.Logger
}

// NewZapLogger constructs a ZapLogger.
func NewZapLogger(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{logger: logger}
}

func (l *ZapLogger) Log(_ context.Context, entry Entry) error {
	entry = entry.withDefaults()
	l.logger.Info("audit",
		zap.String("audit_id", entry.ID),
		zap.String("actor", entry.Actor),
		zap.String("role", entry.Role),
		zap.String("action", entry.Action),
		zap.String("resource_type", entry.ResourceType),
		zap.String("resource_id", entry.ResourceID),
		zap.String("machine_id", entry.MachineID),
		zap.ByteString("metadata", entry.Metadata),
		zap.String("ip", entry.IP),
		zap.Time("at", entry.CreatedAt),
	)
	return nil
}
