package interfaces

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	qa "mpc-plus/internal/qa/domain"
)

func sampleReport() CalendarReport {
	pass := qa.StatusPass
	fail := qa.StatusFail
	yes := true
	no := false
	return CalendarReport{
		MachineID: "NDS-WKS-SN6543",
		Year:      2025,
		Month:     time.March,
		Days: []qa.DayStatus{
			{Date: "2025-03-03", BeamStatus: &pass, BeamValue: qa.Float(0.25), BeamApproved: &yes, BeamCount: 3},
			{Date: "2025-03-04", BeamStatus: &fail, BeamValue: qa.Float(2.5), BeamApproved: &no, BeamCount: 1,
				GeoStatus: &pass, GeoApproved: &no, GeoCount: 1},
		},
		GeneratedAt: time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestBuildCalendarCSV(t *testing.T) {
	data, err := BuildCalendarCSV(sampleReport())
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, calendarColumns, rows[0])
	assert.Equal(t, []string{"2025-03-03", "PASS", "0.250", "yes", "3", "", "", "", "0"}, rows[1])
	assert.Equal(t, []string{"2025-03-04", "FAIL", "2.500", "no", "1", "PASS", "", "no", "1"}, rows[2])
}

func TestBuildCalendarXLSX(t *testing.T) {
	data, err := BuildCalendarXLSX(sampleReport())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	machine, err := f.GetCellValue("summary", "B3")
	require.NoError(t, err)
	assert.Equal(t, "NDS-WKS-SN6543", machine)
	month, err := f.GetCellValue("summary", "B4")
	require.NoError(t, err)
	assert.Equal(t, "2025-03", month)

	rows, err := f.GetRows("days")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2025-03-04", rows[2][0])
	assert.Equal(t, "FAIL", rows[2][1])
}

func TestBuildCalendarPDF(t *testing.T) {
	data, err := BuildCalendarPDF(sampleReport())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestBuildCalendar_UnsupportedFormat(t *testing.T) {
	_, err := BuildCalendar("docx", sampleReport())
	assert.Error(t, err)
	assert.Empty(t, ContentType("docx"))
	assert.Equal(t, "text/csv", ContentType(FormatCSV))
}
