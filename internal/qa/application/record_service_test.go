package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mpc-plus/internal/audit"
	qa "mpc-plus/internal/qa/domain"
	"mpc-plus/internal/qa/infrastructure/memory"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type recordingAudit struct {
	entries []audit.Entry
	err     error
}

func (a *recordingAudit) Log(_ context.Context, entry audit.Entry) error {
	a.entries = append(a.entries, entry)
	return a.err
}

func TestRecordService_Approve(t *testing.T) {
	at := time.Date(2025, 9, 19, 7, 0, 0, 0, time.UTC)
	now := time.Date(2025, 9, 19, 9, 30, 0, 0, time.UTC)
	repo := memory.NewRecordRepository(newRecord("a", qa.CategoryBeam, "6e", at, 0.5))
	auditLog := &recordingAudit{}

	svc, err := NewRecordService(repo, auditLog, fixedClock{now: now}, nil)
	require.NoError(t, err)

	record, err := svc.Approve(context.Background(), "a", Actor{Subject: "dr.lee", Role: "physicist", IP: "10.1.1.1"})
	require.NoError(t, err)
	assert.Equal(t, "dr.lee", record.ApprovedBy)
	assert.Equal(t, now, *record.ApprovedDate)

	stored, _ := repo.GetByID(context.Background(), "a")
	assert.True(t, stored.Approved())

	require.Len(t, auditLog.entries, 1)
	entry := auditLog.entries[0]
	assert.Equal(t, audit.ActionRecordApprove, entry.Action)
	assert.Equal(t, "a", entry.ResourceID)
	assert.Equal(t, machine, entry.MachineID)
	assert.Equal(t, "10.1.1.1", entry.IP)
	assert.JSONEq(t, `{"variant":"6e","category":"beam","date":"2025-09-19"}`, string(entry.Metadata))
}

func TestRecordService_ApproveErrors(t *testing.T) {
	svc, err := NewRecordService(memory.NewRecordRepository(), nil, nil, nil)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), "missing", Actor{Subject: "dr.lee"})
	assert.ErrorIs(t, err, qa.ErrRecordNotFound)
	_, err = svc.Approve(context.Background(), "a", Actor{})
	assert.ErrorIs(t, err, ErrEmptyApprover)
	_, err = svc.Approve(context.Background(), "", Actor{Subject: "dr.lee"})
	assert.ErrorIs(t, err, qa.ErrEmptyID)
}

func TestRecordService_DeleteSurvivesAuditFailure(t *testing.T) {
	at := time.Date(2025, 9, 19, 7, 0, 0, 0, time.UTC)
	repo := memory.NewRecordRepository(newRecord("a", qa.CategoryBeam, "6e", at, 0.5))
	auditLog := &recordingAudit{err: errors.New("audit down")}

	svc, err := NewRecordService(repo, auditLog, nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "a", Actor{Subject: "admin"}))
	gone, err := repo.GetByID(context.Background(), "a")
	require.NoError(t, err)
	assert.Nil(t, gone)
	require.Len(t, auditLog.entries, 1)
	assert.Equal(t, audit.ActionRecordDelete, auditLog.entries[0].Action)

	assert.ErrorIs(t, svc.Delete(context.Background(), "a", Actor{Subject: "admin"}), qa.ErrRecordNotFound)
}
