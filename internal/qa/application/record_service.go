package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mpc-plus/internal/audit"
	qa "mpc-plus/internal/qa/domain"
)

// ErrEmptyApprover is returned when approving without an identity.
var ErrEmptyApprover = errors.New("record service: empty approver")

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Actor identifies who performs a record action.
type Actor struct {
	Subject   string
	Role      string
	IP        string
	UserAgent string
}

// RecordService handles record sign-off and removal.
type RecordService struct {
	records qa.CheckRecordRepository
	audit   audit.Logger
	clock   Clock
	logger  *zap.Logger
}

// NewRecordService constructs the service. A nil audit logger disables auditing.
func NewRecordService(records qa.CheckRecordRepository, auditLogger audit.Logger, clock Clock, logger *zap.Logger) (*RecordService, error) {
	if records == nil {
		return nil, errors.New("record service: nil record repository")
	}
	if auditLogger == nil {
		auditLogger = audit.NopLogger{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordService{records: records, audit: auditLogger, clock: clock, logger: logger}, nil
}

// Approve signs off a record.
func (s *RecordService) Approve(ctx context.Context, id string, actor Actor) (*qa.CheckRecord, error) {
	if id == "" {
		return nil, qa.ErrEmptyID
	}
	if actor.Subject == "" {
		return nil, ErrEmptyApprover
	}
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	record.ApprovedBy = actor.Subject
	record.ApprovedDate = &now
	if err := s.records.Update(ctx, *record); err != nil {
		return nil, fmt.Errorf("record service: update %s: %w", id, err)
	}
	s.writeAudit(ctx, audit.ActionRecordApprove, *record, actor)
	s.logger.Info("check record approved", zap.String("id", id), zap.String("approver", actor.Subject))
	return record, nil
}

// Delete removes a record.
func (s *RecordService) Delete(ctx context.Context, id string, actor Actor) error {
	if id == "" {
		return qa.ErrEmptyID
	}
	record, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.records.Delete(ctx, id); err != nil {
		return fmt.Errorf("record service: delete %s: %w", id, err)
	}
	s.writeAudit(ctx, audit.ActionRecordDelete, *record, actor)
	s.logger.Info("check record deleted", zap.String("id", id), zap.String("actor", actor.Subject))
	return nil
}

func (s *RecordService) load(ctx context.Context, id string) (*qa.CheckRecord, error) {
	record, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("record service: load %s: %w", id, err)
	}
	if record == nil {
		return nil, qa.ErrRecordNotFound
	}
	return record, nil
}

// writeAudit never fails the action; a lost audit entry is logged.
func (s *RecordService) writeAudit(ctx context.Context, action string, record qa.CheckRecord, actor Actor) {
	metadata, _ := json.Marshal(map[string]string{
		"variant":  record.Variant,
		"category": string(record.CheckCategory),
		"date":     record.Day().Format(qa.DateLayout),
	})
	err := s.audit.Log(ctx, audit.Entry{
		Actor:        actor.Subject,
		Role:         actor.Role,
		Action:       action,
		ResourceType: audit.ResourceCheckRecord,
		ResourceID:   record.ID,
		MachineID:    record.MachineID,
		Metadata:     metadata,
		IP:           actor.IP,
		UserAgent:    actor.UserAgent,
		CreatedAt:    s.clock.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("audit write failed", zap.String("action", action), zap.String("id", record.ID), zap.Error(err))
	}
}
