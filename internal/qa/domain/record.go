package qa

import (
	"strings"
	"time"
)

// CheckRecord is one evaluated calibration run for a single beam variant.
// Status is never stored; it is derived from the current thresholds on read.
type CheckRecord struct {
	ID            string        `json:"id"`
	CheckCategory CheckCategory `json:"checkCategory"`
	Variant       string        `json:"variant"`
	Timestamp     *time.Time    `json:"timestamp"`
	Date          time.Time     `json:"date"`
	MachineID     string        `json:"machineId"`
	Measurements  Measurements  `json:"measurements"`
	Leaves        Leaves        `json:"leaves,omitempty"`
	ApprovedBy    string        `json:"approvedBy,omitempty"`
	ApprovedDate  *time.Time    `json:"approvedDate,omitempty"`
	SourcePath    string        `json:"sourcePath,omitempty"`
}

// Validate checks record invariants.
func (r CheckRecord) Validate() error {
	if r.ID == "" {
		return ErrEmptyID
	}
	if r.MachineID == "" {
		return ErrEmptyMachineID
	}
	if !r.CheckCategory.IsValid() {
		return ErrInvalidCategory
	}
	if r.EffectiveTime().IsZero() {
		return ErrMissingDate
	}
	return r.Leaves.Validate()
}

// EffectiveTime returns the capture timestamp, falling back to the date.
func (r CheckRecord) EffectiveTime() time.Time {
	if r.Timestamp != nil && !r.Timestamp.IsZero() {
		return r.Timestamp.UTC()
	}
	return r.Date.UTC()
}

// Day returns the calendar day the record belongs to.
func (r CheckRecord) Day() time.Time {
	if !r.Date.IsZero() {
		return truncateToDay(r.Date)
	}
	return truncateToDay(r.EffectiveTime())
}

// Approved reports whether someone signed off the record.
func (r CheckRecord) Approved() bool {
	return strings.TrimSpace(r.ApprovedBy) != ""
}

// Clone returns a deep copy.
func (r CheckRecord) Clone() CheckRecord {
	out := r
	out.Measurements = r.Measurements.Clone()
	out.Leaves = r.Leaves.Clone()
	if r.Timestamp != nil {
		ts := *r.Timestamp
		out.Timestamp = &ts
	}
	if r.ApprovedDate != nil {
		at := *r.ApprovedDate
		out.ApprovedDate = &at
	}
	return out
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
