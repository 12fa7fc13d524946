package aggregation

import (
	"fmt"
	"math"
	"sort"

	"github.com/garyjia/sales-insight/internal/domain/entity"
	"github.com/garyjia/sales-insight/internal/normalize"
	"github.com/shopspring/decimal"
)

const (
	// DefaultTopN is the number of dishes ranked when the caller does not ask
	DefaultTopN = 10
	// MaxTopN bounds the ranking size
	MaxTopN = 50

	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"

	TicketBasisCovers = "covers"
	TicketBasisDishes = "dishes"

	uncategorized = "Uncategorized"
)

// Query selects the bucket and optional filters for a dashboard
type Query struct {
	Granularity string
	Month       int
	Year        int
	Category    string
	RecipeID    string
	TopN        int
}

// Trend compares a figure with the preceding bucket
type Trend struct {
	ChangePercent float64 `json:"changePercent"`
	Direction     string  `json:"direction"`
	Previous      float64 `json:"previous"`
}

// Trends holds one Trend per KPI; nil for totale
type Trends struct {
	TotalValue    *Trend `json:"totalValue"`
	TotalQuantity *Trend `json:"totalQuantity"`
	UniqueDishes  *Trend `json:"uniqueDishes"`
	AverageTicket *Trend `json:"averageTicket"`
}

// KPIs are the headline figures of a bucket
type KPIs struct {
	TotalValue         float64 `json:"totalValue"`
	TotalQuantity      float64 `json:"totalQuantity"`
	UniqueDishes       int     `json:"uniqueDishes"`
	AverageTicket      float64 `json:"averageTicket"`
	AverageTicketBasis string  `json:"averageTicketBasis"`
	Covers             float64 `json:"covers"`
	LinkedDishes       int     `json:"linkedDishes"`
	UnlinkedDishes     int     `json:"unlinkedDishes"`
	LinkedValue        float64 `json:"linkedValue"`
	UnlinkedValue      float64 `json:"unlinkedValue"`
	Trends             Trends  `json:"trends"`
}

// TopDish is one entry of the value ranking
type TopDish struct {
	DishID     string  `json:"dishId"`
	DishName   string  `json:"dishName"`
	Category   string  `json:"category"`
	Quantity   float64 `json:"quantity"`
	TotalValue float64 `json:"totalValue"`
	IsLinked   bool    `json:"isLinked"`
}

// CategoryShare is the weight of one category inside the bucket
type CategoryShare struct {
	Category   string  `json:"category"`
	Quantity   float64 `json:"quantity"`
	TotalValue float64 `json:"totalValue"`
	Percentage float64 `json:"percentage"`
}

// TrendPoint is one month of the sales trend chart
type TrendPoint struct {
	Period   string  `json:"period"`
	Month    int     `json:"month"`
	Year     int     `json:"year"`
	Total    float64 `json:"total"`
	Linked   float64 `json:"linked"`
	Unlinked float64 `json:"unlinked"`
}

// Charts groups the chart series
type Charts struct {
	SalesTrend           []TrendPoint    `json:"salesTrend"`
	CategoryDistribution []CategoryShare `json:"categoryDistribution"`
	TopDishes            []TopDish       `json:"topDishes"`
}

// Dashboard is the full aggregation for one bucket
type Dashboard struct {
	Bucket Bucket `json:"bucket"`
	Label  string `json:"label"`
	KPIs   KPIs   `json:"kpis"`
	Charts Charts `json:"charts"`
}

// totals is the raw, cent-based accumulation of one bucket
type totals struct {
	valueCents    int64
	quantity      float64
	dishes        map[string]bool
	linked        map[string]bool
	linkedCents   int64
	unlinkedCents int64
	covers        float64
}

func (t totals) averageTicket(useCovers bool) (float64, string) {
	if useCovers && t.covers > 0 {
		return ratio(t.valueCents, t.covers), TicketBasisCovers
	}
	if n := len(t.dishes); n > 0 {
		return ratio(t.valueCents, float64(n)), TicketBasisDishes
	}
	return 0, TicketBasisDishes
}

// Compute aggregates facts into a dashboard. imports supply cover counts per
// period; failed and processing imports are ignored.
func Compute(q Query, facts []entity.DishFact, imports []*entity.SalesImport) (*Dashboard, error) {
	bucket, err := NewBucket(q.Granularity, q.Month, q.Year)
	if err != nil {
		return nil, err
	}

	topN := q.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	if topN > MaxTopN {
		topN = MaxTopN
	}

	filtered := filterFacts(facts, q)
	useCovers := q.Category == "" && q.RecipeID == ""

	cur := accumulate(bucket, filtered, imports)
	avg, basis := cur.averageTicket(useCovers)

	kpis := KPIs{
		TotalValue:         normalize.FromCents(cur.valueCents),
		TotalQuantity:      normalize.Round(cur.quantity, 3),
		UniqueDishes:       len(cur.dishes),
		AverageTicket:      avg,
		AverageTicketBasis: basis,
		Covers:             cur.covers,
		LinkedDishes:       len(cur.linked),
		UnlinkedDishes:     len(cur.dishes) - len(cur.linked),
		LinkedValue:        normalize.FromCents(cur.linkedCents),
		UnlinkedValue:      normalize.FromCents(cur.unlinkedCents),
	}

	if prevBucket, ok := bucket.Previous(); ok {
		prev := accumulate(prevBucket, filtered, imports)
		prevAvg, _ := prev.averageTicket(useCovers)
		kpis.Trends = Trends{
			TotalValue:    trend(kpis.TotalValue, normalize.FromCents(prev.valueCents)),
			TotalQuantity: trend(kpis.TotalQuantity, normalize.Round(prev.quantity, 3)),
			UniqueDishes:  trend(float64(kpis.UniqueDishes), float64(len(prev.dishes))),
			AverageTicket: trend(avg, prevAvg),
		}
	}

	return &Dashboard{
		Bucket: bucket,
		Label:  bucket.Label(),
		KPIs:   kpis,
		Charts: Charts{
			SalesTrend:           salesTrend(bucket, filtered),
			CategoryDistribution: categoryDistribution(bucket, filtered),
			TopDishes:            topDishes(bucket, filtered, topN),
		},
	}, nil
}

func filterFacts(facts []entity.DishFact, q Query) []entity.DishFact {
	if q.Category == "" && q.RecipeID == "" {
		return facts
	}
	category := normalize.Name(q.Category)
	out := make([]entity.DishFact, 0, len(facts))
	for _, f := range facts {
		if category != "" && normalize.Name(f.Category) != category {
			continue
		}
		if q.RecipeID != "" && (f.RecipeID == nil || *f.RecipeID != q.RecipeID) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func accumulate(b Bucket, facts []entity.DishFact, imports []*entity.SalesImport) totals {
	t := totals{dishes: make(map[string]bool), linked: make(map[string]bool)}
	for _, f := range facts {
		if !b.Contains(entity.Period{Month: f.PeriodMonth, Year: f.PeriodYear}) {
			continue
		}
		t.valueCents += f.TotalValueCents
		t.quantity += f.Quantity
		t.dishes[f.DishID] = true
		if f.RecipeID != nil {
			t.linked[f.DishID] = true
			t.linkedCents += f.TotalValueCents
		} else {
			t.unlinkedCents += f.TotalValueCents
		}
	}
	for _, imp := range imports {
		if imp == nil || !countsForTotals(imp.Status) {
			continue
		}
		if b.Contains(imp.Period()) {
			t.covers += imp.Covers
		}
	}
	return t
}

func countsForTotals(status string) bool {
	return status == entity.ImportStatusCompleted || status == entity.ImportStatusPartial
}

// trend returns the percent change from prev to cur. A zero baseline counts
// as +100% when the current figure is positive.
func trend(cur, prev float64) *Trend {
	var change float64
	switch {
	case prev == 0 && cur == 0:
		change = 0
	case prev == 0:
		change = 100
	default:
		change = (cur - prev) / math.Abs(prev) * 100
	}
	change = normalize.Round(change, 2)

	var direction string
	switch {
	case math.Abs(change) < 1:
		direction = TrendStable
	case change > 0:
		direction = TrendUp
	default:
		direction = TrendDown
	}
	return &Trend{ChangePercent: change, Direction: direction, Previous: prev}
}

// salesTrend returns one point per month: the anchor year for bounded
// granularities, every month with data for totale
func salesTrend(b Bucket, facts []entity.DishFact) []TrendPoint {
	type acc struct{ total, linked, unlinked int64 }
	months := make(map[entity.Period]*acc)

	for _, f := range facts {
		p := entity.Period{Month: f.PeriodMonth, Year: f.PeriodYear}
		if b.Granularity != entity.GranularityTotal && p.Year != b.Year {
			continue
		}
		a, ok := months[p]
		if !ok {
			a = &acc{}
			months[p] = a
		}
		a.total += f.TotalValueCents
		if f.RecipeID != nil {
			a.linked += f.TotalValueCents
		} else {
			a.unlinked += f.TotalValueCents
		}
	}

	var periods []entity.Period
	if b.Granularity == entity.GranularityTotal {
		for p := range months {
			periods = append(periods, p)
		}
		sort.Slice(periods, func(i, j int) bool {
			if periods[i].Year != periods[j].Year {
				return periods[i].Year < periods[j].Year
			}
			return periods[i].Month < periods[j].Month
		})
	} else {
		for m := 1; m <= 12; m++ {
			periods = append(periods, entity.Period{Month: m, Year: b.Year})
		}
	}

	points := make([]TrendPoint, 0, len(periods))
	for _, p := range periods {
		pt := TrendPoint{Period: fmt.Sprintf("%d-%02d", p.Year, p.Month), Month: p.Month, Year: p.Year}
		if a, ok := months[p]; ok {
			pt.Total = normalize.FromCents(a.total)
			pt.Linked = normalize.FromCents(a.linked)
			pt.Unlinked = normalize.FromCents(a.unlinked)
		}
		points = append(points, pt)
	}
	return points
}

func categoryDistribution(b Bucket, facts []entity.DishFact) []CategoryShare {
	type acc struct {
		label    string
		quantity float64
		cents    int64
	}
	byKey := make(map[string]*acc)
	var keys []string
	var totalCents int64

	for _, f := range facts {
		if !b.Contains(entity.Period{Month: f.PeriodMonth, Year: f.PeriodYear}) {
			continue
		}
		key := normalize.Name(f.Category)
		a, ok := byKey[key]
		if !ok {
			label := f.Category
			if key == "" {
				label = uncategorized
			}
			a = &acc{label: label}
			byKey[key] = a
			keys = append(keys, key)
		}
		a.quantity += f.Quantity
		a.cents += f.TotalValueCents
		totalCents += f.TotalValueCents
	}

	shares := make([]CategoryShare, 0, len(keys))
	for _, k := range keys {
		a := byKey[k]
		shares = append(shares, CategoryShare{
			Category:   a.label,
			Quantity:   normalize.Round(a.quantity, 3),
			TotalValue: normalize.FromCents(a.cents),
			Percentage: percentage(a.cents, totalCents),
		})
	}
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].TotalValue > shares[j].TotalValue
	})
	return shares
}

func topDishes(b Bucket, facts []entity.DishFact, n int) []TopDish {
	type acc struct {
		dish  TopDish
		cents int64
	}
	byID := make(map[string]*acc)

	for _, f := range facts {
		if !b.Contains(entity.Period{Month: f.PeriodMonth, Year: f.PeriodYear}) {
			continue
		}
		a, ok := byID[f.DishID]
		if !ok {
			a = &acc{dish: TopDish{DishID: f.DishID, DishName: f.DishName, Category: f.Category, IsLinked: f.RecipeID != nil}}
			byID[f.DishID] = a
		}
		a.dish.Quantity += f.Quantity
		a.cents += f.TotalValueCents
	}

	ranked := make([]*acc, 0, len(byID))
	for _, a := range byID {
		ranked = append(ranked, a)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].cents != ranked[j].cents {
			return ranked[i].cents > ranked[j].cents
		}
		if ranked[i].dish.Quantity != ranked[j].dish.Quantity {
			return ranked[i].dish.Quantity > ranked[j].dish.Quantity
		}
		return ranked[i].dish.DishName < ranked[j].dish.DishName
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]TopDish, len(ranked))
	for i, a := range ranked {
		a.dish.TotalValue = normalize.FromCents(a.cents)
		out[i] = a.dish
	}
	return out
}

func ratio(cents int64, divisor float64) float64 {
	if divisor == 0 {
		return 0
	}
	v, _ := decimal.New(cents, -2).Div(decimal.NewFromFloat(divisor)).Round(2).Float64()
	return v
}

func percentage(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	v, _ := decimal.NewFromInt(part).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(whole)).Round(2).Float64()
	return v
}
