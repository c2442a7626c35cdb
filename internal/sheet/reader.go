// Package sheet loads the spreadsheets the analytics run on (CSV or XLSX,
// from disk or S3) and persists the cleaned scrim table as CSV.
package sheet

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pable/go-scrim-metrics/internal/dates"
	"github.com/pable/go-scrim-metrics/internal/model"
)

// Raw is a sheet as read from its source: a header row and the rows below it.
type Raw struct {
	Header []string
	Rows   []model.RawRow
}

// ReadRaw reads a whole sheet from path. Paths starting with "s3://" are
// fetched from S3; ".xlsx" files read their first worksheet; anything else is
// parsed as comma-separated text.
func ReadRaw(ctx context.Context, path string) (*Raw, error) {
	data, err := readSource(ctx, path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return parseXLSX(data)
	default:
		return parseCSV(data)
	}
}

func readSource(ctx context.Context, path string) ([]byte, error) {
	if isS3URI(path) {
		return fetchS3(ctx, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

func parseCSV(data []byte) (*Raw, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		records = append(records, rec)
	}
	return splitHeader(records)
}

func parseXLSX(data []byte) (*Raw, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := sheets[0]
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	// Date cells come back in their display format ("03-01-24", "Mar-24");
	// replace them with the ISO date of their serial value.
	conv := newDateCells(f)
	for r, row := range rows {
		for c, cell := range row {
			if strings.TrimSpace(cell) == "" {
				continue
			}
			if iso, ok := conv.iso(sheet, c+1, r+1); ok {
				row[c] = iso
			}
		}
	}
	return splitHeader(rows)
}

// dateCells recognizes date-formatted cells of a workbook.
type dateCells struct {
	f        *excelize.File
	date1904 bool
	styles   map[int]bool
}

func newDateCells(f *excelize.File) *dateCells {
	d := &dateCells{f: f, styles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		d.date1904 = *props.Date1904
	}
	return d
}

// iso returns the ISO date held by the cell at (col, row), both 1-based,
// when the cell is date-formatted and holds a serial day number.
func (d *dateCells) iso(sheet string, col, row int) (string, bool) {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", false
	}
	styleID, err := d.f.GetCellStyle(sheet, axis)
	if err != nil || styleID == 0 {
		return "", false
	}
	isDate, seen := d.styles[styleID]
	if !seen {
		isDate = d.isDateStyle(styleID)
		d.styles[styleID] = isDate
	}
	if !isDate {
		return "", false
	}
	raw, err := d.f.GetCellValue(sheet, axis, excelize.Options{RawCellValue: true})
	if err != nil {
		return "", false
	}
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || serial < 1 {
		return "", false
	}
	t, err := excelize.ExcelDateToTime(serial, d.date1904)
	if err != nil {
		return "", false
	}
	return t.Format(dates.ISOLayout), true
}

func (d *dateCells) isDateStyle(styleID int) bool {
	style, err := d.f.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return isDateFormat(*style.CustomNumFmt)
	}
	return builtInDateFormats[style.NumFmt]
}

// builtInDateFormats lists the built-in number formats that show a calendar
// date, including the East Asian language formats. Time-only formats are
// left out.
var builtInDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 34: true, 35: true, 36: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 57: true, 58: true,
}

// isDateFormat reports whether a custom number format code shows a day or a
// year. Quoted literals, escapes and bracketed sections are ignored.
func isDateFormat(code string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case inQuote:
			inQuote = ch != '"'
		case inBracket:
			inBracket = ch != ']'
		case ch == '"':
			inQuote = true
		case ch == '[':
			inBracket = true
		case ch == '\\':
			i++
		default:
			b.WriteByte(ch)
		}
	}
	plain := strings.ToLower(b.String())
	return strings.ContainsAny(plain, "dy")
}

func splitHeader(records [][]string) (*Raw, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("sheet is empty")
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	raw := &Raw{Header: header, Rows: make([]model.RawRow, 0, len(records)-1)}
	for _, rec := range records[1:] {
		raw.Rows = append(raw.Rows, model.RawRow(rec))
	}
	return raw, nil
}
