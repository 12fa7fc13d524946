// Package aggregation computes period-bucketed dashboard figures from
// persisted sales facts.
package aggregation

import (
	"errors"
	"fmt"

	"github.com/garyjia/sales-insight/internal/domain/entity"
)

var (
	ErrInvalidGranularity = errors.New("invalid granularity")
	ErrInvalidPeriod      = errors.New("invalid period")
)

// bucketsPerYear is the number of buckets a sub-year granularity splits a year into
var bucketsPerYear = map[string]int{
	entity.GranularityMonth:     12,
	entity.GranularityQuarter:   4,
	entity.GranularityFourMonth: 3,
	entity.GranularityHalfYear:  2,
}

// Bucket identifies one time window of a granularity
type Bucket struct {
	Granularity string `json:"granularity"`
	Year        int    `json:"year,omitempty"`
	Index       int    `json:"index,omitempty"`
}

// NewBucket builds the bucket containing the anchor month. Sub-year
// granularities need a month; totale ignores both year and month.
func NewBucket(granularity string, month, year int) (Bucket, error) {
	switch granularity {
	case entity.GranularityTotal:
		return Bucket{Granularity: granularity}, nil
	case entity.GranularityYear:
		if year < 2000 || year > 2100 {
			return Bucket{}, fmt.Errorf("%w: year %d", ErrInvalidPeriod, year)
		}
		return Bucket{Granularity: granularity, Year: year}, nil
	}

	if _, ok := bucketsPerYear[granularity]; !ok {
		return Bucket{}, fmt.Errorf("%w: %q", ErrInvalidGranularity, granularity)
	}
	p := entity.Period{Month: month, Year: year}
	if !p.Valid() {
		return Bucket{}, fmt.Errorf("%w: month %d year %d", ErrInvalidPeriod, month, year)
	}
	return Bucket{Granularity: granularity, Year: year, Index: bucketIndex(granularity, month)}, nil
}

func bucketIndex(granularity string, month int) int {
	switch granularity {
	case entity.GranularityMonth:
		return month
	case entity.GranularityQuarter:
		return (month + 2) / 3
	case entity.GranularityFourMonth:
		return (month + 3) / 4
	case entity.GranularityHalfYear:
		if month <= 6 {
			return 1
		}
		return 2
	}
	return 0
}

// Contains reports whether a fact period falls inside the bucket
func (b Bucket) Contains(p entity.Period) bool {
	switch b.Granularity {
	case entity.GranularityTotal:
		return true
	case entity.GranularityYear:
		return p.Year == b.Year
	}
	return p.Year == b.Year && bucketIndex(b.Granularity, p.Month) == b.Index
}

// Previous returns the immediately preceding bucket of the same width.
// totale has none.
func (b Bucket) Previous() (Bucket, bool) {
	switch b.Granularity {
	case entity.GranularityTotal:
		return Bucket{}, false
	case entity.GranularityYear:
		return Bucket{Granularity: b.Granularity, Year: b.Year - 1}, true
	}
	if b.Index > 1 {
		return Bucket{Granularity: b.Granularity, Year: b.Year, Index: b.Index - 1}, true
	}
	return Bucket{Granularity: b.Granularity, Year: b.Year - 1, Index: bucketsPerYear[b.Granularity]}, true
}

// Label is a short human-readable bucket name
func (b Bucket) Label() string {
	switch b.Granularity {
	case entity.GranularityTotal:
		return "totale"
	case entity.GranularityYear:
		return fmt.Sprintf("%d", b.Year)
	case entity.GranularityMonth:
		return fmt.Sprintf("%d-%02d", b.Year, b.Index)
	case entity.GranularityQuarter:
		return fmt.Sprintf("%d-T%d", b.Year, b.Index)
	case entity.GranularityFourMonth:
		return fmt.Sprintf("%d-Q%d", b.Year, b.Index)
	case entity.GranularityHalfYear:
		return fmt.Sprintf("%d-S%d", b.Year, b.Index)
	}
	return b.Granularity
}

// YearRange returns the fact years needed to compute a bucket and its
// predecessor. all is true for totale.
func (b Bucket) YearRange() (from, to int, all bool) {
	if b.Granularity == entity.GranularityTotal {
		return 0, 0, true
	}
	return b.Year - 1, b.Year, false
}
