// Package normalize provides locale-aware numeric parsing and the
// diacritic-insensitive name key used for dish and category matching.
package normalize

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// Name returns the matching key for a dish or category name: lowercased,
// accents removed, punctuation dropped and whitespace collapsed.
// Name is idempotent.
func Name(s string) string {
	s = StripDiacritics(strings.ToLower(strings.TrimSpace(s)))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// StripDiacritics removes combining marks after NFD decomposition
func StripDiacritics(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return norm.NFC.String(b.String())
}

// Numeric converts a spreadsheet cell to a number. Numeric cells pass through;
// strings are parsed with ParseNumber. Anything else yields 0.
func Numeric(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case string:
		return ParseNumber(n)
	default:
		return 0
	}
}

// ParseNumber parses a formatted amount such as "€ 1.234,50" or "1,234.50".
// It never fails: unparseable input yields 0.
func ParseNumber(s string) float64 {
	d, ok := ParseDecimal(s)
	if !ok {
		return 0
	}
	f, _ := d.Float64()
	return f
}

// ParseDecimal parses a formatted amount into an exact decimal.
// The second result is false when the text holds no number.
func ParseDecimal(s string) (decimal.Decimal, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.Is(unicode.Sc, r) || r == '\'' {
			return -1
		}
		return r
	}, s)
	cleaned = strings.TrimPrefix(cleaned, "+")
	if cleaned == "" {
		return decimal.Zero, false
	}

	cleaned = resolveSeparators(cleaned)

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// resolveSeparators rewrites grouping and decimal marks to plain "1234.5" form.
// When both marks appear the rightmost one is the decimal separator. A lone
// comma is a decimal comma. Dots alone are thousands separators when every
// group after the first has three digits.
func resolveSeparators(s string) string {
	commas := strings.Count(s, ",")
	dots := strings.Count(s, ".")

	switch {
	case commas == 0 && dots == 0:
		return s
	case commas > 0 && dots > 0:
		lastComma := strings.LastIndex(s, ",")
		lastDot := strings.LastIndex(s, ".")
		if lastComma > lastDot {
			return dropMarks(s[:lastComma], ".,") + "." + s[lastComma+1:]
		}
		return dropMarks(s[:lastDot], ".,") + s[lastDot:]
	case commas == 1:
		return strings.Replace(s, ",", ".", 1)
	case commas > 1:
		if groupedByThousands(s, ",") {
			return dropMarks(s, ",")
		}
		last := strings.LastIndex(s, ",")
		return dropMarks(s[:last], ",") + "." + s[last+1:]
	default:
		if groupedByThousands(s, ".") {
			return dropMarks(s, ".")
		}
		last := strings.LastIndex(s, ".")
		return dropMarks(s[:last], ".") + s[last:]
	}
}

func groupedByThousands(s, sep string) bool {
	parts := strings.Split(s, sep)
	if len(parts) < 2 {
		return false
	}
	// a grouped number never leads with 0 ("0.500" is half a unit)
	lead := strings.TrimLeft(parts[0], "+-")
	if lead == "" || lead[0] == '0' {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}

func dropMarks(s, marks string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(marks, r) {
			return -1
		}
		return r
	}, s)
}

// ToCents converts an amount in currency units to integer cents, rounding half away from zero
func ToCents(v float64) int64 {
	return decimal.NewFromFloat(v).Round(2).Shift(2).IntPart()
}

// FromCents converts integer cents back to currency units
func FromCents(c int64) float64 {
	f, _ := decimal.New(c, -2).Float64()
	return f
}

// Round rounds v to the given number of decimal places
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
