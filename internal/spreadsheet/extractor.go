// Package spreadsheet extracts the category summary and the per-dish detail
// tables from POS export workbooks whose layout is not known in advance.
package spreadsheet

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/garyjia/sales-insight/internal/domain/entity"
	"github.com/garyjia/sales-insight/internal/normalize"
	"go.uber.org/zap"
)

const (
	// DefaultHeaderScanRows is how far down a sheet the first header is searched
	DefaultHeaderScanRows = 20
	minHeaderHits         = 3
)

var totalLabels = map[string]bool{
	"totale":             true,
	"total":              true,
	"totali":             true,
	"subtotale":          true,
	"subtotal":           true,
	"totale generale":    true,
	"totale complessivo": true,
	"grand total":        true,
}

// Config holds extractor settings
type Config struct {
	HeaderScanRows int
}

// Extractor turns raw upload bytes into summary and detail tables
type Extractor struct {
	headerScanRows int
	logger         *zap.Logger
}

// NewExtractor creates an Extractor
func NewExtractor(cfg Config, logger *zap.Logger) *Extractor {
	if cfg.HeaderScanRows <= 0 {
		cfg.HeaderScanRows = DefaultHeaderScanRows
	}
	return &Extractor{
		headerScanRows: cfg.HeaderScanRows,
		logger:         logger,
	}
}

// block is a table inside a sheet: a header row and the data rows below it
type block struct {
	header int
	start  int
	end    int
	cols   columns
}

type layout struct {
	summary *block
	detail  *block
}

type coverTotals struct {
	quantity float64
	value    float64
}

// Extract parses the file and returns both tables. A file that cannot be read
// yields a *ParseError. A readable file without rows returns empty tables; the
// caller decides whether that is fatal.
func (e *Extractor) Extract(data []byte, fileName string) (*entity.ExtractionResult, error) {
	if len(data) == 0 {
		return nil, parseErr(fileName, ErrEmptyFile)
	}

	format, err := DetectFormat(fileName, data)
	if err != nil {
		return nil, parseErr(fileName, err)
	}

	sheets, err := readSheets(data, format)
	if err != nil {
		e.logger.Error("Failed to read spreadsheet",
			zap.String("file_name", fileName),
			zap.String("format", format),
			zap.Error(err))
		return nil, parseErr(fileName, err)
	}

	result := &entity.ExtractionResult{
		Summary: []entity.SummaryRow{},
		Detail:  []entity.DetailRow{},
		Metadata: entity.ExtractionMetadata{
			FileName:       fileName,
			FileSize:       int64(len(data)),
			FileHash:       Hash(data),
			DetectedFormat: format,
			SheetNames:     make([]string, 0, len(sheets)),
		},
	}

	var summaryFound, detailFound bool
	for _, sh := range sheets {
		result.Metadata.SheetNames = append(result.Metadata.SheetNames, sh.name)
		if summaryFound && detailFound {
			continue
		}

		l := e.locateTables(sh)
		if !detailFound && l.detail != nil {
			rows, covers := parseDetail(sh, l.detail)
			if len(rows) > 0 || covers.quantity > 0 {
				result.Detail = rows
				result.Metadata.Covers = covers.quantity
				result.Metadata.CoversValue = covers.value
				result.Metadata.SheetUsed = sh.name
				result.Metadata.DetailHeader = l.detail.header + 1
				detailFound = true
			}
		}
		if !summaryFound && l.summary != nil {
			if rows := parseSummary(sh, l.summary); len(rows) > 0 {
				result.Summary = rows
				result.Metadata.HeaderRow = l.summary.header + 1
				if result.Metadata.SheetUsed == "" {
					result.Metadata.SheetUsed = sh.name
				}
				summaryFound = true
			}
		}
	}

	if !summaryFound && detailFound {
		result.Summary = rollupByCategory(result.Detail)
		result.Metadata.SummaryDerived = true
		result.Metadata.HeaderRow = result.Metadata.DetailHeader
	}

	e.logger.Info("Spreadsheet extracted",
		zap.String("file_name", fileName),
		zap.String("format", format),
		zap.String("sheet", result.Metadata.SheetUsed),
		zap.Int("summary_rows", len(result.Summary)),
		zap.Int("detail_rows", len(result.Detail)),
		zap.Float64("covers", result.Metadata.Covers))

	return result, nil
}

// Hash returns the hex SHA-256 of a file, the import dedup key
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// locateTables finds the first header within the scan window, then a second
// header anywhere below it. A block with a name column is the detail table;
// a block with only a category column is the summary table.
func (e *Extractor) locateTables(sh sheet) layout {
	var l layout
	if len(sh.rows) == 0 {
		return l
	}

	first := 0
	limit := min(len(sh.rows), e.headerScanRows)
	for r := 0; r < limit; r++ {
		if isHeaderRow(sh.rows[r]) {
			first = r
			break
		}
	}

	second := -1
	for r := first + 1; r < len(sh.rows); r++ {
		if isHeaderRow(sh.rows[r]) {
			second = r
			break
		}
	}

	end := len(sh.rows)
	if second >= 0 {
		end = second
	}
	blocks := []*block{{header: first, start: first + 1, end: end, cols: resolveColumns(sh.rows[first])}}
	if second >= 0 {
		blocks = append(blocks, &block{header: second, start: second + 1, end: len(sh.rows), cols: resolveColumns(sh.rows[second])})
	}

	for _, b := range blocks {
		switch {
		case b.cols.has(fieldName):
			if l.detail == nil {
				l.detail = b
			}
		case b.cols.has(fieldCategory):
			if l.summary == nil {
				l.summary = b
			}
		}
	}
	return l
}

func parseSummary(sh sheet, b *block) []entity.SummaryRow {
	rows := []entity.SummaryRow{}
	for r := b.start; r < b.end; r++ {
		row := sh.rows[r]
		qtyCell := at(row, b.cols[fieldQuantity])
		valCell := at(row, b.cols[fieldValue])
		if qtyCell.empty() && valCell.empty() {
			continue
		}

		category := at(row, b.cols[fieldCategory]).String()
		if isTotalLabel(category) {
			continue
		}

		rawQty := normalize.Numeric(qtyCell.value())
		rawVal := normalize.Numeric(valCell.value())
		rows = append(rows, entity.SummaryRow{
			RowNumber:   r + 1,
			Category:    category,
			Quantity:    max(0, rawQty),
			TotalValue:  max(0, rawVal),
			RawQuantity: rawQty,
			RawValue:    rawVal,
		})
	}
	return rows
}

func parseDetail(sh sheet, b *block) ([]entity.DetailRow, coverTotals) {
	rows := []entity.DetailRow{}
	var covers coverTotals

	for r := b.start; r < b.end; r++ {
		row := sh.rows[r]
		qtyCell := at(row, b.cols[fieldQuantity])
		valCell := at(row, b.cols[fieldValue])
		if qtyCell.empty() && valCell.empty() {
			continue
		}

		name := at(row, b.cols[fieldName]).String()
		category := at(row, b.cols[fieldCategory]).String()
		if isTotalLabel(name) || onlyDigits(name) {
			continue
		}
		if name == "" && isTotalLabel(category) {
			continue
		}

		rawQty := normalize.Numeric(qtyCell.value())
		rawVal := normalize.Numeric(valCell.value())

		if isCover(name) {
			covers.quantity += max(0, rawQty)
			covers.value += max(0, rawVal)
			continue
		}

		qty := max(0, rawQty)
		val := max(0, rawVal)
		var unit float64
		if b.cols.has(fieldPrice) {
			unit = max(0, normalize.Numeric(at(row, b.cols[fieldPrice]).value()))
		} else if qty > 0 {
			unit = val / qty
		}

		rows = append(rows, entity.DetailRow{
			RowNumber:   r + 1,
			DishName:    name,
			Category:    category,
			Quantity:    qty,
			UnitPrice:   unit,
			TotalValue:  val,
			RawQuantity: rawQty,
			RawValue:    rawVal,
		})
	}
	return rows, covers
}

// rollupByCategory builds the summary from detail rows when the file has no
// separate category table
func rollupByCategory(detail []entity.DetailRow) []entity.SummaryRow {
	rows := []entity.SummaryRow{}
	index := make(map[string]int)
	for _, d := range detail {
		key := normalize.Name(d.Category)
		i, ok := index[key]
		if !ok {
			i = len(rows)
			index[key] = i
			rows = append(rows, entity.SummaryRow{Category: d.Category})
		}
		rows[i].Quantity += d.Quantity
		rows[i].TotalValue += d.TotalValue
		rows[i].RawQuantity += d.Quantity
		rows[i].RawValue += d.TotalValue
	}
	return rows
}

func at(row []cell, idx int) cell {
	if idx < 0 || idx >= len(row) {
		return cell{}
	}
	return row[idx]
}

func isTotalLabel(s string) bool {
	return totalLabels[normalize.Name(s)]
}

func isCover(name string) bool {
	n := normalize.Name(name)
	return n == "coperto" || n == "coperti" ||
		strings.HasPrefix(n, "coperto ") || strings.HasPrefix(n, "coperti ")
}

func onlyDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != ' ' && r != '.' && r != ',' {
			return false
		}
	}
	return true
}
