package ingestion

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// RawRow maps an original header to the cell's raw scalar: string, float64, bool or nil.
// Every header of the table is present as a key.
type RawRow map[string]any

// Table is the decoded first sheet of an upload.
type Table struct {
	Headers   []string
	Rows      []RawRow
	TotalRows int
}

// DecodeFailure is a file-level decode problem. It is returned as a value so callers can
// distinguish it from row errors.
type DecodeFailure struct {
	Reason string
}

func (f *DecodeFailure) Error() string {
	return f.Reason
}

func failure(format string, args ...any) *DecodeFailure {
	return &DecodeFailure{Reason: fmt.Sprintf(format, args...)}
}

// DecodeResult holds either a table or the reason the file could not be read.
type DecodeResult struct {
	Table   Table
	Failure *DecodeFailure
}

// DecodeOptions bound the decoder. Zero limits disable the check.
type DecodeOptions struct {
	FileName string
	MaxBytes int
	MaxRows  int
}

// DecodeBase64 decodes a base64 payload, with or without a data URL prefix.
func DecodeBase64(encoded string, opts DecodeOptions) DecodeResult {
	encoded = strings.TrimSpace(encoded)
	if idx := strings.Index(encoded, ";base64,"); idx >= 0 && strings.HasPrefix(encoded, "data:") {
		encoded = encoded[idx+len(";base64,"):]
	}
	if encoded == "" {
		return DecodeResult{Failure: failure("file is empty")}
	}
	if opts.MaxBytes > 0 && base64.StdEncoding.DecodedLen(len(encoded)) > opts.MaxBytes+2 {
		return DecodeResult{Failure: failure("file exceeds the %d byte limit", opts.MaxBytes)}
	}
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return DecodeResult{Failure: failure("file is not valid base64: %v", err)}
	}
	return Decode(payload, opts)
}

// Decode reads the first sheet of an xlsx workbook, or a CSV file when the name says so.
func Decode(payload []byte, opts DecodeOptions) DecodeResult {
	if len(payload) == 0 {
		return DecodeResult{Failure: failure("file is empty")}
	}
	if opts.MaxBytes > 0 && len(payload) > opts.MaxBytes {
		return DecodeResult{Failure: failure("file exceeds the %d byte limit", opts.MaxBytes)}
	}

	var (
		table Table
		fail  *DecodeFailure
	)
	switch ext := strings.ToLower(filepath.Ext(opts.FileName)); ext {
	case ".csv":
		table, fail = decodeCSV(payload)
	case "", ".xlsx", ".xlsm":
		table, fail = decodeExcel(payload)
	default:
		fail = failure("unsupported file format %s", ext)
	}
	if fail != nil {
		return DecodeResult{Failure: fail}
	}
	if opts.MaxRows > 0 && table.TotalRows > opts.MaxRows {
		return DecodeResult{Failure: failure("file has %d data rows, the limit is %d", table.TotalRows, opts.MaxRows)}
	}
	return DecodeResult{Table: table}
}

func decodeCSV(payload []byte) (Table, *DecodeFailure) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return Table{}, failure("unable to read csv: %v", err)
	}
	return buildTable(records, func(_, _ int, raw string) any { return raw })
}

func decodeExcel(payload []byte) (Table, *DecodeFailure) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return Table{}, failure("unable to read spreadsheet: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, failure("spreadsheet has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return Table{}, failure("unable to read rows from sheet %q: %v", sheet, err)
	}

	return buildTable(rows, func(row, col int, raw string) any {
		cell, err := excelize.CoordinatesToCellName(col+1, row+1)
		if err != nil {
			return raw
		}
		typ, err := f.GetCellType(sheet, cell)
		if err != nil {
			return raw
		}
		return excelScalar(typ, raw)
	})
}

// excelScalar keeps numbers and booleans typed. Dates stay serial numbers; the resolver converts them.
func excelScalar(typ excelize.CellType, raw string) any {
	switch typ {
	case excelize.CellTypeBool:
		switch strings.ToUpper(raw) {
		case "1", "TRUE":
			return true
		case "0", "FALSE":
			return false
		}
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return raw
}

// buildTable picks the first non-blank row as header and keeps the non-blank rows after it.
func buildTable(records [][]string, scalar func(row, col int, raw string) any) (Table, *DecodeFailure) {
	headerIndex := -1
	for idx, row := range records {
		if !blankRow(row) {
			headerIndex = idx
			break
		}
	}
	if headerIndex < 0 {
		return Table{}, failure("file contains no rows")
	}
	headers := sanitizeHeaders(records[headerIndex])

	rows := make([]RawRow, 0, len(records)-headerIndex-1)
	for idx := headerIndex + 1; idx < len(records); idx++ {
		record := records[idx]
		if blankRow(record) {
			continue
		}
		row := make(RawRow, len(headers))
		for col, header := range headers {
			if col >= len(record) || record[col] == "" {
				row[header] = nil
				continue
			}
			row[header] = scalar(idx, col, record[col])
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return Table{}, failure("file has a header row but no data rows")
	}

	return Table{Headers: headers, Rows: rows, TotalRows: len(rows)}, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// sanitizeHeaders trims labels, names blank columns column_N and suffixes duplicates.
func sanitizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	taken := make(map[string]bool, len(raw))
	for _, value := range raw {
		taken[strings.TrimSpace(value)] = true
	}
	used := make(map[string]bool, len(raw))

	for idx, value := range raw {
		name := strings.TrimSpace(value)
		if name == "" {
			name = fmt.Sprintf("column_%d", idx+1)
		}

		if used[name] {
			base := name
			for n := 2; ; n++ {
				name = fmt.Sprintf("%s_%d", base, n)
				// a suffix may not claim a label that appears later in the row
				if !used[name] && !taken[name] {
					break
				}
			}
		}
		used[name] = true

		headers[idx] = name
	}

	return headers
}
