// Package exclusion drops detail rows whose dish name or category contains
// a configured word.
package exclusion

import (
	"strings"

	"github.com/garyjia/sales-insight/internal/domain/entity"
	"github.com/garyjia/sales-insight/internal/normalize"
)

type term struct {
	word       string
	normalized string
	kind       string
}

// Filter holds the exclusion words of one location.
// Matching is substring based on normalized text, so "sospes" excludes
// "Piatto SOSPESO".
type Filter struct {
	terms []term
}

// NewFilter builds a filter; words that normalize to nothing are ignored
func NewFilter(words []*entity.ExclusionWord) *Filter {
	f := &Filter{terms: make([]term, 0, len(words))}
	for _, w := range words {
		if w == nil {
			continue
		}
		n := w.WordNormalized
		if n == "" {
			n = normalize.Name(w.Word)
		}
		if n == "" {
			continue
		}
		f.terms = append(f.terms, term{word: w.Word, normalized: n, kind: w.Type})
	}
	return f
}

// Len returns the number of active terms
func (f *Filter) Len() int {
	return len(f.terms)
}

// Match reports the first exclusion word hitting the row
func (f *Filter) Match(row entity.DetailRow) (word, kind string, ok bool) {
	if len(f.terms) == 0 {
		return "", "", false
	}
	dish := normalize.Name(row.DishName)
	category := normalize.Name(row.Category)

	for _, t := range f.terms {
		var target string
		switch t.kind {
		case entity.ExclusionTypeDish:
			target = dish
		case entity.ExclusionTypeCategory:
			target = category
		default:
			continue
		}
		if target != "" && strings.Contains(target, t.normalized) {
			return t.word, t.kind, true
		}
	}
	return "", "", false
}

// Apply splits rows into those kept for import and those excluded
func (f *Filter) Apply(rows []entity.DetailRow) ([]entity.DetailRow, []entity.ExcludedRow) {
	kept := make([]entity.DetailRow, 0, len(rows))
	excluded := []entity.ExcludedRow{}
	for _, row := range rows {
		if word, kind, ok := f.Match(row); ok {
			excluded = append(excluded, entity.ExcludedRow{Row: row, MatchedWord: word, MatchedType: kind})
			continue
		}
		kept = append(kept, row)
	}
	return kept, excluded
}
