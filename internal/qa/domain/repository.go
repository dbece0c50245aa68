package qa

import (
	"context"
	"strings"
	"time"
)

// RecordFilter narrows check record queries. Zero fields are ignored; date bounds are inclusive days.
type RecordFilter struct {
	MachineID     string
	CheckCategory CheckCategory
	Variant       string
	Date          time.Time
	StartDate     time.Time
	EndDate       time.Time
}

// Matches applies the filter to a record in memory.
func (f RecordFilter) Matches(record CheckRecord) bool {
	if f.MachineID != "" && record.MachineID != f.MachineID {
		return false
	}
	if f.CheckCategory != "" && record.CheckCategory != f.CheckCategory {
		return false
	}
	if f.Variant != "" && !strings.EqualFold(record.Variant, f.Variant) {
		return false
	}
	day := record.Day()
	if !f.Date.IsZero() && !day.Equal(truncateToDay(f.Date)) {
		return false
	}
	if !f.StartDate.IsZero() && day.Before(truncateToDay(f.StartDate)) {
		return false
	}
	if !f.EndDate.IsZero() && day.After(truncateToDay(f.EndDate)) {
		return false
	}
	return true
}

// CheckRecordRepository stores check records.
// GetByID returns nil, nil when the record does not exist.
type CheckRecordRepository interface {
	GetAll(ctx context.Context, filter RecordFilter) ([]CheckRecord, error)
	GetByID(ctx context.Context, id string) (*CheckRecord, error)
	Create(ctx context.Context, record CheckRecord) error
	Update(ctx context.Context, record CheckRecord) error
	Delete(ctx context.Context, id string) error
}

// ThresholdRepository provides the full threshold set.
type ThresholdRepository interface {
	GetAll(ctx context.Context) ([]Threshold, error)
}
