package qa

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateCalendar_MergesBeamRecords(t *testing.T) {
	thresholds := []Threshold{{MachineID: "m1", CheckCategory: CategoryBeam, MetricType: MetricRelativeOutput, ToleranceValue: 2}}
	pass := beamRecord("a", baseTime, map[string]float64{MetricRelativeOutput: 0.5})
	pass.ApprovedBy = "dr. who"
	fail := beamRecord("b", baseTime.Add(time.Minute), map[string]float64{MetricRelativeOutput: 4})

	days, err := AggregateCalendar("m1", 2025, time.September, []CheckRecord{pass, fail}, nil, thresholds)
	require.NoError(t, err)
	require.Len(t, days, 1)

	day := days[0]
	assert.Equal(t, "2025-09-19", day.Date)
	require.NotNil(t, day.BeamStatus)
	assert.Equal(t, StatusFail, *day.BeamStatus)
	require.NotNil(t, day.BeamApproved)
	assert.False(t, *day.BeamApproved)
	assert.Equal(t, 2, day.BeamCount)
	require.NotNil(t, day.BeamValue)
	assert.Equal(t, 0.5, *day.BeamValue)
	assert.Nil(t, day.GeoStatus)
	assert.Nil(t, day.GeoApproved)
	assert.Equal(t, 0, day.GeoCount)
}

func TestAggregateCalendar_GeometryPreferenceAndOmittedDays(t *testing.T) {
	geo := beamRecord("g", baseTime.AddDate(0, 0, 2), map[string]float64{MetricIsoCenterSize: 0.3})
	geo.CheckCategory = CategoryGeometry
	geo.Variant = "6x"
	geo.ApprovedBy = "physicist"
	beam := beamRecord("b", baseTime, map[string]float64{MetricCenterShift: 0.7})

	days, err := AggregateCalendar("m1", 2025, time.September, []CheckRecord{beam}, []CheckRecord{geo}, nil)
	require.NoError(t, err)
	require.Len(t, days, 2)

	assert.Equal(t, "2025-09-19", days[0].Date)
	assert.Equal(t, 0.7, *days[0].BeamValue)
	assert.Equal(t, 0, days[0].GeoCount)

	assert.Equal(t, "2025-09-21", days[1].Date)
	assert.Equal(t, 0.3, *days[1].GeoValue)
	assert.True(t, *days[1].GeoApproved)
	assert.Equal(t, StatusPass, *days[1].GeoStatus)
	assert.Nil(t, days[1].BeamStatus)
}

func TestAggregateCalendar_FirstNonNullValueKept(t *testing.T) {
	first := beamRecord("a", baseTime, nil)
	first.Measurements.SetNull(MetricRelativeOutput)
	second := beamRecord("b", baseTime.Add(time.Minute), map[string]float64{MetricRelativeUniformity: 1.1})
	third := beamRecord("c", baseTime.Add(2*time.Minute), map[string]float64{MetricRelativeOutput: 9})

	days, err := AggregateCalendar("m1", 2025, time.September, []CheckRecord{first, second, third}, nil, nil)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, 1.1, *days[0].BeamValue)
	assert.Equal(t, 3, days[0].BeamCount)
}

func TestAggregateCalendar_IgnoresOtherMonthsAndMachines(t *testing.T) {
	outside := beamRecord("a", baseTime.AddDate(0, 1, 0), nil)
	other := beamRecord("b", baseTime, nil)
	other.MachineID = "m2"

	days, err := AggregateCalendar("m1", 2025, time.September, []CheckRecord{outside, other}, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, days)
}

func TestAggregateCalendar_Idempotent(t *testing.T) {
	records := []CheckRecord{
		beamRecord("a", baseTime, map[string]float64{MetricRelativeOutput: 1}),
		beamRecord("b", baseTime.AddDate(0, 0, 1), map[string]float64{MetricRelativeOutput: 3}),
	}
	thresholds := []Threshold{{MachineID: "m1", CheckCategory: CategoryBeam, MetricType: MetricRelativeOutput, ToleranceValue: 2}}

	first, err := AggregateCalendar("m1", 2025, time.September, records, nil, thresholds)
	require.NoError(t, err)
	second, err := AggregateCalendar("m1", 2025, time.September, records, nil, thresholds)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAggregateCalendar_InvalidMonth(t *testing.T) {
	_, err := AggregateCalendar("m1", 2025, 13, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidMonth)
}

func TestMonthRange(t *testing.T) {
	first, last, err := MonthRange(2024, time.February)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", first.Format(DateLayout))
	assert.Equal(t, "2024-02-29", last.Format(DateLayout))
}
