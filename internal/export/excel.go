// Package export builds the downloadable attendance report workbook.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"rollbook/internal/attendance"
)

const sheetName = "Attendance"

var columns = []string{"Date", "Time", "Student Name", "Matric Number", "Department", "Level", "Status"}

// Filename returns the report filename stamped with the export date.
func Filename(now time.Time) string {
	return fmt.Sprintf("Attendance_Report_%s.xlsx", now.Format("2006-01-02"))
}

// AttendanceReport renders entries (expected newest-first) into an XLSX
// workbook: a title row, the header row, then one row per record.
func AttendanceReport(entries []attendance.Entry, now time.Time) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return nil, err
	}

	if err := f.MergeCell(sheetName, "A1", "G1"); err != nil {
		return nil, err
	}
	title := "Attendance Report - " + now.Format("2 Jan 2006")
	if err := f.SetCellValue(sheetName, "A1", title); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, "A1", "G1", titleStyle); err != nil {
		return nil, err
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 2)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, col); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(sheetName, "A2", "G2", headerStyle); err != nil {
		return nil, err
	}

	for i, e := range entries {
		local := e.OccurredAt.Local()
		values := []any{
			local.Format("2006-01-02"),
			local.Format("15:04:05"),
			e.FullName,
			e.MatricNumber,
			e.Department,
			e.Level,
			"Present",
		}
		for j, v := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, i+3)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, err
			}
		}
	}

	widths := []float64{12, 10, 28, 18, 22, 8, 10}
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheetName, col, col, w); err != nil {
			return nil, err
		}
	}

	return f.WriteToBuffer()
}
