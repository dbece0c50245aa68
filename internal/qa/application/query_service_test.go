package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qa "mpc-plus/internal/qa/domain"
	"mpc-plus/internal/qa/infrastructure/memory"
)

const machine = "NDS-WKS-SN6543"

func newRecord(id string, category qa.CheckCategory, variant string, at time.Time, output float64) qa.CheckRecord {
	ts := at
	measurements := qa.Measurements{}
	measurements.Set(qa.MetricRelativeOutput, output)
	return qa.CheckRecord{
		ID:            id,
		CheckCategory: category,
		Variant:       variant,
		Timestamp:     &ts,
		Date:          at,
		MachineID:     machine,
		Measurements:  measurements,
	}
}

func outputThreshold(category qa.CheckCategory, tolerance float64) qa.Threshold {
	return qa.Threshold{MachineID: machine, CheckCategory: category, MetricType: qa.MetricRelativeOutput, ToleranceValue: tolerance}
}

type failingThresholds struct{}

func (failingThresholds) GetAll(context.Context) ([]qa.Threshold, error) {
	return nil, errors.New("db down")
}

func TestQueryService_Calendar(t *testing.T) {
	day := time.Date(2025, 9, 19, 7, 41, 0, 0, time.UTC)
	records := memory.NewRecordRepository(
		newRecord("b1", qa.CategoryBeam, "6e", day, 0.5),
		newRecord("b2", qa.CategoryBeam, "10x", day.Add(time.Minute), 3),
		newRecord("g1", qa.CategoryGeometry, "6x", day.Add(5*time.Minute), 0.1),
		newRecord("other", qa.CategoryBeam, "6e", day.AddDate(0, 1, 0), 0.5),
	)
	thresholds := memory.NewThresholdRepository(outputThreshold(qa.CategoryBeam, 2), outputThreshold(qa.CategoryGeometry, 2))

	svc, err := NewQueryService(records, thresholds)
	require.NoError(t, err)

	days, err := svc.Calendar(context.Background(), machine, 2025, time.September)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "2025-09-19", days[0].Date)
	require.NotNil(t, days[0].BeamStatus)
	assert.Equal(t, qa.StatusFail, *days[0].BeamStatus)
	assert.Equal(t, 2, days[0].BeamCount)
	require.NotNil(t, days[0].GeoStatus)
	assert.Equal(t, qa.StatusPass, *days[0].GeoStatus)
	assert.Equal(t, 1, days[0].GeoCount)
}

func TestQueryService_CalendarRejectsBadInput(t *testing.T) {
	svc, err := NewQueryService(memory.NewRecordRepository(), memory.NewThresholdRepository())
	require.NoError(t, err)

	_, err = svc.Calendar(context.Background(), machine, 2025, 13)
	assert.ErrorIs(t, err, qa.ErrInvalidMonth)
	_, err = svc.Calendar(context.Background(), "", 2025, time.September)
	assert.ErrorIs(t, err, qa.ErrEmptyMachineID)
}

func TestQueryService_SessionsNewestFirst(t *testing.T) {
	base := time.Date(2025, 9, 19, 7, 41, 49, 0, time.UTC)
	records := memory.NewRecordRepository(
		newRecord("a", qa.CategoryBeam, "6e", base, 0.5),
		newRecord("b", qa.CategoryBeam, "9e", base.Add(30*time.Second), 0.5),
		newRecord("c", qa.CategoryBeam, "12e", base.Add(150*time.Second), 2.5),
		newRecord("geo", qa.CategoryGeometry, "6x", base.Add(10*time.Second), 0.5),
	)
	svc, err := NewQueryService(records, memory.NewThresholdRepository(outputThreshold(qa.CategoryBeam, 2)))
	require.NoError(t, err)

	sessions, err := svc.Sessions(context.Background(), qa.RecordFilter{MachineID: machine})
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, base.Add(150*time.Second), sessions[0].ReferenceTimestamp)
	require.Len(t, sessions[0].Records, 1)
	assert.Equal(t, qa.StatusFail, sessions[0].Records[0].Status.Overall)
	require.Len(t, sessions[1].Records, 2)
	assert.Equal(t, "a", sessions[1].Records[0].ID)
}

func TestQueryService_SessionWindowOption(t *testing.T) {
	base := time.Date(2025, 9, 19, 7, 0, 0, 0, time.UTC)
	records := memory.NewRecordRepository(
		newRecord("a", qa.CategoryBeam, "6e", base, 0.5),
		newRecord("b", qa.CategoryBeam, "9e", base.Add(4*time.Minute), 0.5),
	)
	svc, err := NewQueryService(records, memory.NewThresholdRepository(), WithSessionWindow(5*time.Minute))
	require.NoError(t, err)

	sessions, err := svc.Sessions(context.Background(), qa.RecordFilter{})
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestQueryService_Record(t *testing.T) {
	at := time.Date(2025, 9, 19, 7, 0, 0, 0, time.UTC)
	svc, err := NewQueryService(
		memory.NewRecordRepository(newRecord("a", qa.CategoryBeam, "6e", at, 2.5)),
		memory.NewThresholdRepository(outputThreshold(qa.CategoryBeam, 2)),
	)
	require.NoError(t, err)

	record, err := svc.Record(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, qa.StatusFail, record.Status.Overall)
	assert.Equal(t, []string{qa.MetricRelativeOutput}, record.Status.Failed())

	_, err = svc.Record(context.Background(), "missing")
	assert.ErrorIs(t, err, qa.ErrRecordNotFound)
}

func TestQueryService_PropagatesStoreErrors(t *testing.T) {
	svc, err := NewQueryService(memory.NewRecordRepository(), failingThresholds{})
	require.NoError(t, err)

	_, err = svc.Thresholds(context.Background())
	assert.ErrorContains(t, err, "db down")
	_, err = svc.Records(context.Background(), qa.RecordFilter{})
	assert.ErrorContains(t, err, "load thresholds")
}

func TestNewQueryService_RejectsNilStores(t *testing.T) {
	_, err := NewQueryService(nil, memory.NewThresholdRepository())
	assert.Error(t, err)
	_, err = NewQueryService(memory.NewRecordRepository(), nil)
	assert.Error(t, err)
}
