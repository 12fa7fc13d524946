package spreadsheet

import (
	"strings"

	"github.com/garyjia/sales-insight/internal/normalize"
)

type field int

const (
	fieldName field = iota
	fieldCategory
	fieldQuantity
	fieldPrice
	fieldValue
	fieldCount
)

// fieldKeywords are matched by containment against normalized header text.
// Fields are resolved in declaration order and a column is claimed once.
var fieldKeywords = [fieldCount][]string{
	fieldName:     {"prodotto", "nome", "piatto", "descrizione", "articolo", "dish", "product", "item"},
	fieldCategory: {"categoria", "category", "reparto"},
	fieldQuantity: {"quantita", "quantit", "qty", "qta", "pezzi", "quantity"},
	fieldPrice:    {"prezzo", "unitario", "punit", "price"},
	fieldValue:    {"valore", "totale", "importo", "ammontare", "incasso", "total", "value", "amount"},
}

// columns maps each logical field to a column index, -1 when absent
type columns [fieldCount]int

func (c columns) has(f field) bool {
	return c[f] >= 0
}

func headerText(c cell) string {
	if c.isNum {
		return ""
	}
	return normalize.Name(c.text)
}

func matchesAny(header string, keywords []string) bool {
	if header == "" {
		return false
	}
	for _, kw := range keywords {
		if strings.Contains(header, kw) {
			return true
		}
	}
	return false
}

// keywordHits counts the cells of a row that look like a known header
func keywordHits(row []cell) int {
	hits := 0
	for _, c := range row {
		h := headerText(c)
		for f := field(0); f < fieldCount; f++ {
			if matchesAny(h, fieldKeywords[f]) {
				hits++
				break
			}
		}
	}
	return hits
}

func isHeaderRow(row []cell) bool {
	return keywordHits(row) >= minHeaderHits
}

func resolveColumns(header []cell) columns {
	var cols columns
	for f := range cols {
		cols[f] = -1
	}

	claimed := make(map[int]bool, len(header))
	for f := field(0); f < fieldCount; f++ {
		for i, c := range header {
			if claimed[i] {
				continue
			}
			if matchesAny(headerText(c), fieldKeywords[f]) {
				cols[f] = i
				claimed[i] = true
				break
			}
		}
	}
	return cols
}
