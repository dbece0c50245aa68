package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mpc-plus/internal/extraction"
	"mpc-plus/internal/observability/metrics"
	qa "mpc-plus/internal/qa/domain"
)

var (
	// ErrNoMeasurements is returned when a results document yields nothing.
	ErrNoMeasurements = errors.New("ingest service: no measurements extracted")
	// ErrUnknownMachine is returned when no serial can be read from the run folder.
	ErrUnknownMachine = errors.New("ingest service: machine serial not found")
)

// Extractor turns a run folder into measurements.
type Extractor interface {
	Extract(ctx context.Context, source string) (*extraction.Result, error)
}

// IngestService stores check records extracted from instrument run folders.
type IngestService struct {
	extractor  Extractor
	records    qa.CheckRecordRepository
	thresholds qa.ThresholdRepository
	machines   map[string]string
	newID      func() string
	logger     *zap.Logger
}

// IngestOption customizes an IngestService.
type IngestOption func(*IngestService)

// WithMachines maps instrument serials to machine ids.
func WithMachines(machines map[string]string) IngestOption {
	return func(s *IngestService) {
		for serial, machineID := range machines {
			s.machines[serial] = machineID
		}
	}
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(newID func() string) IngestOption {
	return func(s *IngestService) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithIngestLogger sets the logger.
func WithIngestLogger(logger *zap.Logger) IngestOption {
	return func(s *IngestService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewIngestService constructs the service.
func NewIngestService(extractor Extractor, records qa.CheckRecordRepository, thresholds qa.ThresholdRepository, opts ...IngestOption) (*IngestService, error) {
	if extractor == nil {
		return nil, errors.New("ingest service: nil extractor")
	}
	if records == nil {
		return nil, errors.New("ingest service: nil record repository")
	}
	if thresholds == nil {
		return nil, errors.New("ingest service: nil threshold repository")
	}
	s := &IngestService{
		extractor:  extractor,
		records:    records,
		thresholds: thresholds,
		machines:   make(map[string]string),
		newID:      uuid.NewString,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Ingest extracts one run folder and stores the resulting record.
func (s *IngestService) Ingest(ctx context.Context, path string) (*qa.CheckRecord, error) {
	start := time.Now()
	result, err := s.extractor.Extract(ctx, path)
	if err != nil {
		metrics.ObserveExtraction(metrics.ResultError, string(extraction.CodeOf(err)), time.Since(start))
		return nil, err
	}
	metrics.ObserveExtraction(metrics.ResultSuccess, "", time.Since(start))
	if result.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrNoMeasurements, path)
	}

	machineID, err := s.machineID(result.Serial)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, path)
	}
	runTime := result.RunTime.UTC()
	record := qa.CheckRecord{
		ID:            s.newID(),
		CheckCategory: result.Variant.Category,
		Variant:       result.Variant.Name,
		Timestamp:     &runTime,
		Date:          runTime,
		MachineID:     machineID,
		Measurements:  result.Measurements,
		Leaves:        result.Leaves,
		SourcePath:    path,
	}
	if err := s.records.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("ingest service: store record: %w", err)
	}

	thresholds, err := s.thresholds.GetAll(ctx)
	if err != nil {
		s.logger.Warn("thresholds unavailable after ingest", zap.String("id", record.ID), zap.Error(err))
		return &record, nil
	}
	status := qa.Evaluate(record, thresholds)
	metrics.IncEvaluation(string(record.CheckCategory), string(status.Overall))
	s.logger.Info("check record ingested",
		zap.String("id", record.ID),
		zap.String("machine_id", machineID),
		zap.String("variant", record.Variant),
		zap.String("status", string(status.Overall)),
		zap.Strings("failed", status.Failed()),
	)
	return &record, nil
}

// ProcessFolder adapts Ingest to the folder watcher.
func (s *IngestService) ProcessFolder(ctx context.Context, path string) error {
	_, err := s.Ingest(ctx, path)
	return err
}

func (s *IngestService) machineID(serial string) (string, error) {
	if serial == "" {
		return "", ErrUnknownMachine
	}
	if machineID, ok := s.machines[serial]; ok && machineID != "" {
		return machineID, nil
	}
	return "SN" + serial, nil
}
