package student

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFile signals an upload that is neither CSV nor XLSX.
var ErrUnsupportedFile = errors.New("unsupported file type, upload a .csv or .xlsx file")

// Preview is the result of the parse phase of a bulk upload: the rows as
// they will be committed, before any store round-trip.
type Preview struct {
	Rows  []Input
	Total int
}

// ParseUpload reads an uploaded roster file into rows keyed by the four
// student fields. The header row decides column meaning; spellings like
// "fullName", "FullName" and "Full Name" are all accepted. Parsing alone
// never touches the store, so a bad file costs nothing.
func ParseUpload(filename string, r io.Reader) (Preview, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return parseCSV(r)
	case ".xlsx":
		return parseXLSX(r)
	default:
		return Preview{}, ErrUnsupportedFile
	}
}

func parseCSV(r io.Reader) (Preview, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return Preview{}, fmt.Errorf("parse csv: %w", err)
	}
	return fromRecords(records)
}

func parseXLSX(r io.Reader) (Preview, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Preview{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return Preview{}, errors.New("xlsx file has no sheets")
	}
	records, err := f.GetRows(sheet)
	if err != nil {
		return Preview{}, fmt.Errorf("read xlsx rows: %w", err)
	}
	return fromRecords(records)
}

func fromRecords(records [][]string) (Preview, error) {
	if len(records) < 1 {
		return Preview{}, errors.New("file is empty")
	}
	cols := headerIndex(records[0])
	var rows []Input
	for _, rec := range records[1:] {
		if blankRecord(rec) {
			continue
		}
		rows = append(rows, Input{
			FullName:     cell(rec, cols["fullname"]),
			MatricNumber: cell(rec, cols["matricnumber"]),
			Department:   cell(rec, cols["department"]),
			Level:        cell(rec, cols["level"]),
		})
	}
	return Preview{Rows: rows, Total: len(rows)}, nil
}

// headerIndex maps canonical field names to column positions. Headers are
// matched ignoring case and spaces, which covers fullName / FullName /
// "Full Name" and the equivalents for the other fields.
func headerIndex(header []string) map[string]int {
	cols := map[string]int{"fullname": -1, "matricnumber": -1, "department": -1, "level": -1}
	for i, h := range header {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "")
		if _, ok := cols[key]; ok {
			cols[key] = i
		}
	}
	return cols
}

func cell(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
