package qa

import "errors"

var (
	// ErrEmptyID is returned when a record id is empty.
	ErrEmptyID = errors.New("qa: empty id")
	// ErrEmptyMachineID is returned when a machine id is empty.
	ErrEmptyMachineID = errors.New("qa: empty machine id")
	// ErrInvalidCategory is returned when the check category is unsupported.
	ErrInvalidCategory = errors.New("qa: invalid check category")
	// ErrEmptyMetricType is returned when a threshold has no metric type.
	ErrEmptyMetricType = errors.New("qa: empty metric type")
	// ErrNegativeTolerance is returned when a tolerance is below zero.
	ErrNegativeTolerance = errors.New("qa: negative tolerance")
	// ErrMissingDate is returned when a record has neither timestamp nor date.
	ErrMissingDate = errors.New("qa: missing date")
	// ErrLeafOutOfRange is returned for leaf indices outside 11..50.
	ErrLeafOutOfRange = errors.New("qa: leaf index out of range")
	// ErrUnknownLeafBank is returned for unsupported leaf banks.
	ErrUnknownLeafBank = errors.New("qa: unknown leaf bank")
	// ErrRecordNotFound is returned when a check record cannot be found.
	ErrRecordNotFound = errors.New("qa: record not found")
	// ErrRecordExists is returned when creating a record whose id is taken.
	ErrRecordExists = errors.New("qa: record already exists")
	// ErrInvalidMonth is returned when a calendar month is out of range.
	ErrInvalidMonth = errors.New("qa: invalid month")
)
