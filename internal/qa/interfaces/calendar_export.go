package interfaces

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	qa "mpc-plus/internal/qa/domain"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// CalendarReport is one machine-month of calendar cells.
type CalendarReport struct {
	MachineID   string
	Year        int
	Month       time.Month
	Days        []qa.DayStatus
	GeneratedAt time.Time
}

var calendarColumns = []string{
	"Date", "Beam Status", "Beam Value", "Beam Approved", "Beam Count",
	"Geometry Status", "Geometry Value", "Geometry Approved", "Geometry Count",
}

// ContentType returns the MIME type for a format, or "" if unsupported.
func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return ""
	}
}

// BuildCalendar renders report in the given format.
func BuildCalendar(format string, report CalendarReport) ([]byte, error) {
	switch format {
	case FormatCSV:
		return BuildCalendarCSV(report)
	case FormatXLSX:
		return BuildCalendarXLSX(report)
	case FormatPDF:
		return BuildCalendarPDF(report)
	default:
		return nil, fmt.Errorf("calendar export: unsupported format %q", format)
	}
}

// BuildCalendarCSV renders one row per day with a header row.
func BuildCalendarCSV(report CalendarReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(calendarColumns); err != nil {
		return nil, err
	}
	for _, day := range report.Days {
		if err := w.Write(dayRow(day)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildCalendarXLSX renders a summary sheet and a days sheet.
func BuildCalendarXLSX(report CalendarReport) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	summarySheet := "summary"
	daysSheet := "days"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(daysSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Machine QA Calendar")
	_ = f.SetCellValue(summarySheet, "A3", "Machine")
	_ = f.SetCellValue(summarySheet, "B3", report.MachineID)
	_ = f.SetCellValue(summarySheet, "A4", "Month")
	_ = f.SetCellValue(summarySheet, "B4", monthLabel(report))
	_ = f.SetCellValue(summarySheet, "A5", "Days With Checks")
	_ = f.SetCellValue(summarySheet, "B5", len(report.Days))
	_ = f.SetCellValue(summarySheet, "A6", "Days Failed")
	_ = f.SetCellValue(summarySheet, "B6", failedDays(report.Days))
	if !report.GeneratedAt.IsZero() {
		_ = f.SetCellValue(summarySheet, "A7", "Generated")
		_ = f.SetCellValue(summarySheet, "B7", report.GeneratedAt.UTC().Format(time.RFC3339))
	}

	for i, column := range calendarColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(daysSheet, cell, column)
	}
	for r, day := range report.Days {
		for c, value := range dayRow(day) {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, err
			}
			_ = f.SetCellValue(daysSheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildCalendarPDF renders a one-page month table.
func BuildCalendarPDF(report CalendarReport) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Machine QA Calendar")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Machine: %s", report.MachineID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Month: %s", monthLabel(report)))
	pdf.Ln(5)
	if !report.GeneratedAt.IsZero() {
		pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", report.GeneratedAt.UTC().Format(time.RFC3339)))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Days with checks: %d, failed: %d", len(report.Days), failedDays(report.Days)))
	pdf.Ln(8)

	widths := []float64{26, 30, 28, 30, 24, 34, 30, 34, 28}
	pdf.SetFont("Arial", "B", 9)
	for i, column := range calendarColumns {
		pdf.CellFormat(widths[i], 6, column, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, day := range report.Days {
		for i, value := range dayRow(day) {
			align := "C"
			if i == 2 || i == 6 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 6, value, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func dayRow(day qa.DayStatus) []string {
	return []string{
		day.Date,
		statusText(day.BeamStatus),
		valueText(day.BeamValue),
		approvedText(day.BeamApproved),
		strconv.Itoa(day.BeamCount),
		statusText(day.GeoStatus),
		valueText(day.GeoValue),
		approvedText(day.GeoApproved),
		strconv.Itoa(day.GeoCount),
	}
}

func monthLabel(report CalendarReport) string {
	return fmt.Sprintf("%04d-%02d", report.Year, int(report.Month))
}

func failedDays(days []qa.DayStatus) int {
	n := 0
	for _, day := range days {
		if (day.BeamStatus != nil && *day.BeamStatus == qa.StatusFail) ||
			(day.GeoStatus != nil && *day.GeoStatus == qa.StatusFail) {
			n++
		}
	}
	return n
}

func statusText(status *qa.Status) string {
	if status == nil {
		return ""
	}
	return string(*status)
}

func valueText(value *float64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatFloat(*value, 'f', 3, 64)
}

func approvedText(approved *bool) string {
	if approved == nil {
		return ""
	}
	if *approved {
		return "yes"
	}
	return "no"
}
