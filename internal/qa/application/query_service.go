package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mpc-plus/internal/observability/metrics"
	qa "mpc-plus/internal/qa/domain"
)

// EvaluatedRecord is a stored record with its status derived from the current thresholds.
type EvaluatedRecord struct {
	qa.CheckRecord
	Status qa.EvaluatedStatus `json:"status"`
}

// SessionView is one session of evaluated records.
type SessionView struct {
	ReferenceTimestamp time.Time         `json:"referenceTimestamp"`
	Records            []EvaluatedRecord `json:"records"`
}

// QueryService serves the calendar, session and record read models.
type QueryService struct {
	records    qa.CheckRecordRepository
	thresholds qa.ThresholdRepository
	window     time.Duration
	logger     *zap.Logger
}

// QueryOption customizes a QueryService.
type QueryOption func(*QueryService)

// WithSessionWindow overrides the session grouping window.
func WithSessionWindow(window time.Duration) QueryOption {
	return func(s *QueryService) {
		if window > 0 {
			s.window = window
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) QueryOption {
	return func(s *QueryService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewQueryService constructs the service.
func NewQueryService(records qa.CheckRecordRepository, thresholds qa.ThresholdRepository, opts ...QueryOption) (*QueryService, error) {
	if records == nil {
		return nil, errors.New("query service: nil record repository")
	}
	if thresholds == nil {
		return nil, errors.New("query service: nil threshold repository")
	}
	s := &QueryService{
		records:    records,
		thresholds: thresholds,
		window:     qa.DefaultSessionWindow,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Calendar returns one DayStatus per day of the month that has records.
func (s *QueryService) Calendar(ctx context.Context, machineID string, year int, month time.Month) (days []qa.DayStatus, err error) {
	start := time.Now()
	defer func() { metrics.ObserveQuery("calendar", resultOf(err), time.Since(start)) }()

	if machineID == "" {
		return nil, qa.ErrEmptyMachineID
	}
	first, last, err := qa.MonthRange(year, month)
	if err != nil {
		return nil, err
	}
	records, err := s.records.GetAll(ctx, qa.RecordFilter{MachineID: machineID, StartDate: first, EndDate: last})
	if err != nil {
		return nil, fmt.Errorf("query service: load records: %w", err)
	}
	thresholds, err := s.thresholds.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("query service: load thresholds: %w", err)
	}

	var beam, geo []qa.CheckRecord
	for _, record := range records {
		switch record.CheckCategory {
		case qa.CategoryBeam:
			beam = append(beam, record)
		case qa.CategoryGeometry:
			geo = append(geo, record)
		}
	}
	return qa.AggregateCalendar(machineID, year, month, beam, geo, thresholds)
}

// Sessions groups beam records into sessions, newest first.
func (s *QueryService) Sessions(ctx context.Context, filter qa.RecordFilter) (views []SessionView, err error) {
	start := time.Now()
	defer func() { metrics.ObserveQuery("sessions", resultOf(err), time.Since(start)) }()

	if filter.CheckCategory == "" {
		filter.CheckCategory = qa.CategoryBeam
	}
	records, err := s.records.GetAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query service: load records: %w", err)
	}
	thresholds, err := s.thresholds.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("query service: load thresholds: %w", err)
	}

	sessions := qa.GroupSessions(records, s.window)
	views = make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		view := SessionView{ReferenceTimestamp: session.ReferenceTime, Records: make([]EvaluatedRecord, 0, len(session.Records))}
		for _, record := range session.Records {
			view.Records = append(view.Records, EvaluatedRecord{CheckRecord: record, Status: qa.Evaluate(record, thresholds)})
		}
		views = append(views, view)
	}
	s.logger.Debug("sessions grouped", zap.Int("records", len(records)), zap.Int("sessions", len(views)))
	return views, nil
}

// Records lists evaluated records matching filter.
func (s *QueryService) Records(ctx context.Context, filter qa.RecordFilter) ([]EvaluatedRecord, error) {
	records, err := s.records.GetAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query service: load records: %w", err)
	}
	thresholds, err := s.thresholds.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("query service: load thresholds: %w", err)
	}
	out := make([]EvaluatedRecord, 0, len(records))
	for _, record := range records {
		out = append(out, EvaluatedRecord{CheckRecord: record, Status: qa.Evaluate(record, thresholds)})
	}
	return out, nil
}

// Record loads one evaluated record.
func (s *QueryService) Record(ctx context.Context, id string) (*EvaluatedRecord, error) {
	if id == "" {
		return nil, qa.ErrEmptyID
	}
	record, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("query service: load record: %w", err)
	}
	if record == nil {
		return nil, qa.ErrRecordNotFound
	}
	thresholds, err := s.thresholds.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("query service: load thresholds: %w", err)
	}
	return &EvaluatedRecord{CheckRecord: *record, Status: qa.Evaluate(*record, thresholds)}, nil
}

// Thresholds returns the configured thresholds.
func (s *QueryService) Thresholds(ctx context.Context) ([]qa.Threshold, error) {
	thresholds, err := s.thresholds.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("query service: load thresholds: %w", err)
	}
	return thresholds, nil
}

func resultOf(err error) string {
	if err != nil {
		return metrics.ResultError
	}
	return metrics.ResultSuccess
}
