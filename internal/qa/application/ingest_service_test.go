package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mpc-plus/internal/extraction"
	qa "mpc-plus/internal/qa/domain"
	"mpc-plus/internal/qa/infrastructure/memory"
)

type stubExtractor struct {
	result *extraction.Result
	err    error
	calls  []string
}

func (s *stubExtractor) Extract(_ context.Context, source string) (*extraction.Result, error) {
	s.calls = append(s.calls, source)
	return s.result, s.err
}

func electronResult(output float64) *extraction.Result {
	measurements := qa.Measurements{}
	measurements.Set(qa.MetricRelativeOutput, output)
	measurements.Set(qa.MetricRelativeUniformity, 0.4)
	return &extraction.Result{
		Variant:      extraction.Variant{Name: "6e", Family: extraction.FamilyElectron, Category: qa.CategoryBeam},
		RunTime:      time.Date(2025, 9, 19, 7, 41, 49, 0, time.UTC),
		Serial:       "6543",
		Measurements: measurements,
		Leaves:       qa.Leaves{},
	}
}

func TestIngestService_StoresRecord(t *testing.T) {
	records := memory.NewRecordRepository()
	extractor := &stubExtractor{result: electronResult(1.2)}
	svc, err := NewIngestService(extractor, records, memory.NewThresholdRepository(),
		WithMachines(map[string]string{"6543": machine}),
		WithIDGenerator(func() string { return "rec-1" }),
		WithIngestLogger(zap.NewNop()),
	)
	require.NoError(t, err)

	record, err := svc.Ingest(context.Background(), "/data/run")
	require.NoError(t, err)
	assert.Equal(t, "rec-1", record.ID)
	assert.Equal(t, machine, record.MachineID)
	assert.Equal(t, qa.CategoryBeam, record.CheckCategory)
	assert.Equal(t, "6e", record.Variant)
	assert.Equal(t, "/data/run", record.SourcePath)
	assert.Equal(t, "2025-09-19", record.Day().Format(qa.DateLayout))

	stored, err := records.GetByID(context.Background(), "rec-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.False(t, stored.Approved())
}

func TestIngestService_DefaultMachineID(t *testing.T) {
	records := memory.NewRecordRepository()
	svc, err := NewIngestService(&stubExtractor{result: electronResult(0.3)}, records, memory.NewThresholdRepository())
	require.NoError(t, err)

	record, err := svc.Ingest(context.Background(), "/data/run")
	require.NoError(t, err)
	assert.Equal(t, "SN6543", record.MachineID)
	assert.NotEmpty(t, record.ID)
}

func TestIngestService_Failures(t *testing.T) {
	extractErr := &extraction.ExtractionError{Code: extraction.CodeMissingNode, Node: "relativeUniformity"}
	svc, err := NewIngestService(&stubExtractor{err: extractErr}, memory.NewRecordRepository(), memory.NewThresholdRepository())
	require.NoError(t, err)
	assert.ErrorIs(t, svc.ProcessFolder(context.Background(), "/data/run"), extraction.ErrMissingNode)

	empty := &extraction.Result{Measurements: qa.Measurements{}, Serial: "6543"}
	svc, err = NewIngestService(&stubExtractor{result: empty}, memory.NewRecordRepository(), memory.NewThresholdRepository())
	require.NoError(t, err)
	_, err = svc.Ingest(context.Background(), "/data/run")
	assert.ErrorIs(t, err, ErrNoMeasurements)

	noSerial := electronResult(0.1)
	noSerial.Serial = ""
	svc, err = NewIngestService(&stubExtractor{result: noSerial}, memory.NewRecordRepository(), memory.NewThresholdRepository())
	require.NoError(t, err)
	_, err = svc.Ingest(context.Background(), "/data/run")
	assert.ErrorIs(t, err, ErrUnknownMachine)
}

func TestIngestService_KeepsRecordWhenThresholdsFail(t *testing.T) {
	records := memory.NewRecordRepository()
	svc, err := NewIngestService(&stubExtractor{result: electronResult(5)}, records, failingThresholds{})
	require.NoError(t, err)

	record, err := svc.Ingest(context.Background(), "/data/run")
	require.NoError(t, err)
	stored, _ := records.GetByID(context.Background(), record.ID)
	assert.NotNil(t, stored)
}
