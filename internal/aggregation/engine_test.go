package aggregation

import (
	"testing"

	"github.com/garyjia/sales-insight/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recipe(id string) *string { return &id }

func sampleFacts() []entity.DishFact {
	return []entity.DishFact{
		{DishID: "d1", DishName: "Carbonara", Category: "Primi", RecipeID: recipe("r1"), Quantity: 10, TotalValueCents: 12000, PeriodMonth: 1, PeriodYear: 2024},
		{DishID: "d1", DishName: "Carbonara", Category: "Primi", RecipeID: recipe("r1"), Quantity: 5, TotalValueCents: 6000, PeriodMonth: 2, PeriodYear: 2024},
		{DishID: "d1", DishName: "Carbonara", Category: "Primi", RecipeID: recipe("r1"), Quantity: 4, TotalValueCents: 4800, PeriodMonth: 12, PeriodYear: 2023},
		{DishID: "d2", DishName: "Tiramisù", Category: "Dolci", Quantity: 3, TotalValueCents: 1500, PeriodMonth: 1, PeriodYear: 2024},
		{DishID: "d2", DishName: "Tiramisù", Category: "Dolci", Quantity: 2, TotalValueCents: 1000, PeriodMonth: 3, PeriodYear: 2024},
		{DishID: "d3", DishName: "Acqua", Category: "Bevande", Quantity: 20, TotalValueCents: 4000, PeriodMonth: 2, PeriodYear: 2024},
	}
}

func sampleImports() []*entity.SalesImport {
	return []*entity.SalesImport{
		{PeriodMonth: 1, PeriodYear: 2024, Covers: 20, Status: entity.ImportStatusCompleted},
		{PeriodMonth: 2, PeriodYear: 2024, Covers: 10, Status: entity.ImportStatusPartial},
		{PeriodMonth: 3, PeriodYear: 2024, Covers: 5, Status: entity.ImportStatusFailed},
	}
}

func TestNewBucket(t *testing.T) {
	tests := []struct {
		name        string
		granularity string
		month       int
		year        int
		wantIndex   int
		wantErr     error
	}{
		{name: "month", granularity: entity.GranularityMonth, month: 3, year: 2024, wantIndex: 3},
		{name: "quarter", granularity: entity.GranularityQuarter, month: 4, year: 2024, wantIndex: 2},
		{name: "four months", granularity: entity.GranularityFourMonth, month: 8, year: 2024, wantIndex: 2},
		{name: "four months last", granularity: entity.GranularityFourMonth, month: 9, year: 2024, wantIndex: 3},
		{name: "first half", granularity: entity.GranularityHalfYear, month: 6, year: 2024, wantIndex: 1},
		{name: "second half", granularity: entity.GranularityHalfYear, month: 7, year: 2024, wantIndex: 2},
		{name: "year ignores month", granularity: entity.GranularityYear, month: 0, year: 2024},
		{name: "total needs nothing", granularity: entity.GranularityTotal},
		{name: "unknown granularity", granularity: "settimana", month: 1, year: 2024, wantErr: ErrInvalidGranularity},
		{name: "month required", granularity: entity.GranularityQuarter, month: 0, year: 2024, wantErr: ErrInvalidPeriod},
		{name: "year required", granularity: entity.GranularityYear, wantErr: ErrInvalidPeriod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBucket(tt.granularity, tt.month, tt.year)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantIndex, b.Index)
		})
	}
}

func TestBucket_Previous(t *testing.T) {
	b, _ := NewBucket(entity.GranularityMonth, 1, 2024)
	prev, ok := b.Previous()
	require.True(t, ok)
	assert.Equal(t, Bucket{Granularity: entity.GranularityMonth, Year: 2023, Index: 12}, prev)

	b, _ = NewBucket(entity.GranularityFourMonth, 2, 2024)
	prev, _ = b.Previous()
	assert.Equal(t, Bucket{Granularity: entity.GranularityFourMonth, Year: 2023, Index: 3}, prev)

	b, _ = NewBucket(entity.GranularityHalfYear, 9, 2024)
	prev, _ = b.Previous()
	assert.Equal(t, 1, prev.Index)
	assert.Equal(t, 2024, prev.Year)

	b, _ = NewBucket(entity.GranularityTotal, 0, 0)
	_, ok = b.Previous()
	assert.False(t, ok)
	assert.Equal(t, "totale", b.Label())
}

func TestCompute_Month(t *testing.T) {
	d, err := Compute(Query{Granularity: entity.GranularityMonth, Month: 1, Year: 2024}, sampleFacts(), sampleImports())
	require.NoError(t, err)

	k := d.KPIs
	assert.Equal(t, "2024-01", d.Label)
	assert.Equal(t, 135.0, k.TotalValue)
	assert.Equal(t, 13.0, k.TotalQuantity)
	assert.Equal(t, 2, k.UniqueDishes)
	assert.Equal(t, 20.0, k.Covers)
	assert.Equal(t, 6.75, k.AverageTicket)
	assert.Equal(t, TicketBasisCovers, k.AverageTicketBasis)
	assert.Equal(t, 1, k.LinkedDishes)
	assert.Equal(t, 1, k.UnlinkedDishes)
	assert.Equal(t, 120.0, k.LinkedValue)
	assert.Equal(t, 15.0, k.UnlinkedValue)

	require.NotNil(t, k.Trends.TotalValue)
	assert.Equal(t, 181.25, k.Trends.TotalValue.ChangePercent)
	assert.Equal(t, TrendUp, k.Trends.TotalValue.Direction)
	assert.Equal(t, 48.0, k.Trends.TotalValue.Previous)
	assert.Equal(t, 100.0, k.Trends.UniqueDishes.ChangePercent)
	assert.Equal(t, -85.94, k.Trends.AverageTicket.ChangePercent)
	assert.Equal(t, TrendDown, k.Trends.AverageTicket.Direction)

	require.Len(t, d.Charts.TopDishes, 2)
	assert.Equal(t, "Carbonara", d.Charts.TopDishes[0].DishName)
	assert.True(t, d.Charts.TopDishes[0].IsLinked)
	assert.Equal(t, 120.0, d.Charts.TopDishes[0].TotalValue)

	require.Len(t, d.Charts.CategoryDistribution, 2)
	assert.Equal(t, "Primi", d.Charts.CategoryDistribution[0].Category)
	assert.Equal(t, 88.89, d.Charts.CategoryDistribution[0].Percentage)
	assert.Equal(t, 11.11, d.Charts.CategoryDistribution[1].Percentage)

	require.Len(t, d.Charts.SalesTrend, 12)
	assert.Equal(t, TrendPoint{Period: "2024-02", Month: 2, Year: 2024, Total: 100, Linked: 60, Unlinked: 40}, d.Charts.SalesTrend[1])
	assert.Equal(t, 0.0, d.Charts.SalesTrend[11].Total)
}

func TestCompute_YearEqualsSumOfMonths(t *testing.T) {
	facts := sampleFacts()
	imports := sampleImports()

	year, err := Compute(Query{Granularity: entity.GranularityYear, Year: 2024}, facts, imports)
	require.NoError(t, err)

	var sum float64
	for m := 1; m <= 12; m++ {
		month, err := Compute(Query{Granularity: entity.GranularityMonth, Month: m, Year: 2024}, facts, imports)
		require.NoError(t, err)
		sum += month.KPIs.TotalValue
	}

	assert.InDelta(t, year.KPIs.TotalValue, sum, 1e-9)
	assert.Equal(t, 245.0, year.KPIs.TotalValue)
	assert.Equal(t, 3, year.KPIs.UniqueDishes)
	assert.Equal(t, 30.0, year.KPIs.Covers, "failed imports do not count")
}

func TestCompute_Total(t *testing.T) {
	d, err := Compute(Query{Granularity: entity.GranularityTotal}, sampleFacts(), sampleImports())
	require.NoError(t, err)

	assert.Equal(t, 293.0, d.KPIs.TotalValue)
	assert.Nil(t, d.KPIs.Trends.TotalValue)
	require.Len(t, d.Charts.SalesTrend, 4)
	assert.Equal(t, "2023-12", d.Charts.SalesTrend[0].Period)
	assert.Equal(t, "2024-03", d.Charts.SalesTrend[3].Period)
}

func TestCompute_Filters(t *testing.T) {
	d, err := Compute(Query{Granularity: entity.GranularityYear, Year: 2024, Category: "PRIMI"}, sampleFacts(), sampleImports())
	require.NoError(t, err)
	assert.Equal(t, 180.0, d.KPIs.TotalValue)
	assert.Equal(t, TicketBasisDishes, d.KPIs.AverageTicketBasis)
	assert.Equal(t, 180.0, d.KPIs.AverageTicket)

	d, err = Compute(Query{Granularity: entity.GranularityYear, Year: 2024, RecipeID: "r1", TopN: 1}, sampleFacts(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, d.KPIs.UniqueDishes)
	assert.Len(t, d.Charts.TopDishes, 1)
}

func TestCompute_InvalidQuery(t *testing.T) {
	_, err := Compute(Query{Granularity: entity.GranularityMonth, Year: 2024}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestTrend(t *testing.T) {
	assert.Equal(t, &Trend{ChangePercent: 0, Direction: TrendStable, Previous: 0}, trend(0, 0))
	assert.Equal(t, &Trend{ChangePercent: 100, Direction: TrendUp, Previous: 0}, trend(5, 0))
	assert.Equal(t, TrendStable, trend(100, 99.5).Direction)
	assert.Equal(t, TrendDown, trend(50, 100).Direction)
	assert.Equal(t, -50.0, trend(50, 100).ChangePercent)
}
