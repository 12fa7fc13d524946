package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Supported formats
const (
	FormatXLSX = "xlsx"
	FormatXLSM = "xlsm"
	FormatXLTX = "xltx"
	FormatCSV  = "csv"
)

var zipMagic = []byte("PK\x03\x04")

// cell is one spreadsheet value. Numeric cells keep their typed value so
// locale parsing only runs on text.
type cell struct {
	text  string
	num   float64
	isNum bool
}

func (c cell) empty() bool {
	return !c.isNum && strings.TrimSpace(c.text) == ""
}

func (c cell) String() string {
	if c.isNum {
		return strconv.FormatFloat(c.num, 'f', -1, 64)
	}
	return strings.TrimSpace(c.text)
}

// value returns the cell in the shape normalize.Numeric expects
func (c cell) value() any {
	if c.isNum {
		return c.num
	}
	return c.text
}

type sheet struct {
	name string
	rows [][]cell
}

// DetectFormat maps a file name and its content to a supported format
func DetectFormat(fileName string, data []byte) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	switch ext {
	case "xlsx", "xlsm", "xltx", "xltm":
		if ext == "xltm" {
			return FormatXLTX, nil
		}
		return ext, nil
	case "csv", "txt":
		return FormatCSV, nil
	case "xls", "xlt":
		return "", ErrLegacyFormat
	}
	if bytes.HasPrefix(data, zipMagic) {
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

func readSheets(data []byte, format string) ([]sheet, error) {
	if format == FormatCSV {
		s, err := readCSV(data)
		if err != nil {
			return nil, err
		}
		return []sheet{s}, nil
	}
	return readWorkbook(data)
}

func readWorkbook(data []byte) ([]sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, ErrNoSheets
	}

	sheets := make([]sheet, 0, len(names))
	for _, name := range names {
		raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", name, err)
		}

		rows := make([][]cell, len(raw))
		for r, values := range raw {
			rows[r] = make([]cell, len(values))
			for c, v := range values {
				rows[r][c] = workbookCell(f, name, r, c, v)
			}
		}
		sheets = append(sheets, sheet{name: name, rows: rows})
	}
	return sheets, nil
}

// workbookCell types a raw value using the cell's stored type. Number cells
// carry no type attribute, so Unset counts as numeric when the text parses.
func workbookCell(f *excelize.File, sheetName string, r, c int, raw string) cell {
	if raw == "" {
		return cell{}
	}
	num, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return cell{text: raw}
	}
	axis, err := excelize.CoordinatesToCellName(c+1, r+1)
	if err != nil {
		return cell{text: raw}
	}
	typ, err := f.GetCellType(sheetName, axis)
	if err != nil {
		return cell{text: raw}
	}
	if typ == excelize.CellTypeUnset || typ == excelize.CellTypeNumber {
		return cell{num: num, isNum: true}
	}
	return cell{text: raw}
}

func readCSV(data []byte) (sheet, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return sheet{}, fmt.Errorf("read csv: %w", err)
	}

	rows := make([][]cell, len(records))
	for r, record := range records {
		rows[r] = make([]cell, len(record))
		for c, v := range record {
			rows[r][c] = cell{text: v}
		}
	}
	return sheet{name: "csv", rows: rows}, nil
}

// sniffDelimiter picks the separator that occurs most in the first line
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', -1
	for _, d := range []rune{';', ',', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
