package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/garyjia/sales-insight/internal/application/port"
	"github.com/garyjia/sales-insight/internal/domain/entity"
	"github.com/garyjia/sales-insight/internal/matching"
	"github.com/garyjia/sales-insight/internal/normalize"
	"github.com/google/uuid"
)

type recordInput struct {
	locationID string
	period     entity.Period
	upload     Upload
	extraction *entity.ExtractionResult
	report     *entity.ValidationReport
	kept       []entity.DetailRow
	replace    *entity.SalesImport // previous import of the same file, when overwriting
}

// dishGroup sums the detail rows sharing one normalized name
type dishGroup struct {
	name      string
	original  string
	category  string
	quantity  float64
	cents     int64
	unitCents int64
}

func (g *dishGroup) unitPrice() int64 {
	if g.quantity > 0 {
		return int64(math.Round(float64(g.cents) / g.quantity))
	}
	return g.unitCents
}

// recorder writes one import inside a transaction
type recorder struct {
	store   port.Store
	matcher Matcher
	catalog *matching.Catalog
}

func (r *recorder) record(ctx context.Context, in recordInput) (*ImportResult, error) {
	if in.replace != nil {
		if err := r.store.Dishes().ReverseImport(ctx, in.replace.ID); err != nil {
			return nil, err
		}
		if err := r.store.Imports().Delete(ctx, in.replace.ID); err != nil {
			return nil, err
		}
	}

	warnings := append([]entity.ValidationIssue{}, in.report.Warnings...)
	others, err := r.store.Imports().ListByPeriod(ctx, in.period)
	if err != nil {
		return nil, err
	}
	for _, other := range others {
		warnings = append(warnings, entity.ValidationIssue{
			Code: entity.IssuePeriodExists,
			Message: fmt.Sprintf("period %02d/%d already has import %s (%s)",
				in.period.Month, in.period.Year, other.ID, other.FileName),
		})
	}

	meta := in.extraction.Metadata
	imp := &entity.SalesImport{
		ID:               uuid.NewString(),
		LocationID:       in.locationID,
		PeriodMonth:      in.period.Month,
		PeriodYear:       in.period.Year,
		FileName:         in.upload.FileName,
		FileSize:         int64(len(in.upload.Data)),
		FileHash:         meta.FileHash,
		FileFormat:       meta.DetectedFormat,
		Covers:           meta.Covers,
		CoversValueCents: normalize.ToCents(meta.CoversValue),
		Status:           entity.ImportStatusProcessing,
		CreatedAt:        time.Now().UTC(),
	}
	if err := r.store.Imports().Create(ctx, imp); err != nil {
		return nil, err
	}

	categories := r.categories(imp, in.extraction.Summary)
	if err := r.store.Categories().CreateBatch(ctx, categories); err != nil {
		return nil, err
	}

	result := &ImportResult{
		Success:  true,
		ImportID: imp.ID,
		Period:   in.period,
		Matches:  []DishMatch{},
		Errors:   in.report.Errors,
	}
	result.Stats.CategoriesImported = len(categories)

	var facts []*entity.SalesDishData
	var sales []*entity.RecipeSale
	periodDate := in.period.Date()

	for _, g := range groupRows(in.kept) {
		dish, err := r.store.Dishes().GetByName(ctx, g.name)
		if err != nil {
			return nil, err
		}
		isNew := dish == nil
		if isNew {
			dish = &entity.SalesDish{
				ID:            uuid.NewString(),
				DishName:      g.name,
				FirstSeenDate: periodDate,
				LastSeenDate:  periodDate,
			}
			result.Stats.DishesNew++
		} else {
			result.Stats.DishesExisting++
		}

		dish.DishNameOriginal = g.original
		if g.category != "" {
			dish.CategoryGestionale = g.category
		}
		dish.TotalQuantitySold = roundQuantity(dish.TotalQuantitySold + g.quantity)
		dish.TotalValueGeneratedCents += g.cents
		dish.TotalImports++
		if periodDate.Before(dish.FirstSeenDate) {
			dish.FirstSeenDate = periodDate
		}
		if periodDate.After(dish.LastSeenDate) {
			dish.LastSeenDate = periodDate
		}

		var existing *entity.SalesDish
		if !isNew {
			existing = dish
		}
		match := r.matcher.Match(matching.NewCandidate(g.original, existing), r.catalog)
		if match != nil && dish.RecipeID == nil {
			id := match.RecipeID
			dish.SetLink(&id, match.Method, match.Confidence)
		}

		if isNew {
			err = r.store.Dishes().Create(ctx, dish)
		} else {
			err = r.store.Dishes().Update(ctx, dish)
		}
		if err != nil {
			return nil, err
		}

		fact := &entity.SalesDishData{
			ID:              uuid.NewString(),
			DishID:          dish.ID,
			ImportID:        imp.ID,
			RecipeID:        dish.RecipeID,
			Quantity:        g.quantity,
			UnitPriceCents:  g.unitPrice(),
			TotalValueCents: g.cents,
			PeriodMonth:     in.period.Month,
			PeriodYear:      in.period.Year,
		}
		facts = append(facts, fact)
		if dish.RecipeID != nil {
			sales = append(sales, recipeSaleFor(fact, *dish.RecipeID, periodDate))
		}

		imp.TotalQuantity += g.quantity
		imp.TotalValueCents += g.cents
		result.Matches = append(result.Matches, r.dishMatch(dish, match))
		if dish.IsLinked {
			result.Stats.DishesMatched++
		} else {
			result.Stats.DishesUnmatched++
		}
	}

	if err := r.store.DishData().CreateBatch(ctx, facts); err != nil {
		return nil, err
	}
	if err := r.store.RecipeSales().CreateBatch(ctx, sales); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	imp.TotalCategories = len(categories)
	imp.TotalDishes = len(facts)
	imp.TotalQuantity = roundQuantity(imp.TotalQuantity)
	imp.ErrorCount = len(in.report.Errors)
	imp.WarningCount = len(warnings)
	imp.CompletedAt = &now
	imp.Status = entity.ImportStatusCompleted
	if imp.ErrorCount > 0 {
		imp.Status = entity.ImportStatusPartial
	}
	if err := r.store.Imports().Update(ctx, imp); err != nil {
		return nil, err
	}

	result.Status = imp.Status
	result.Warnings = warnings
	result.Stats.DishesImported = len(facts)
	result.Stats.TotalQuantity = imp.TotalQuantity
	result.Stats.TotalValue = normalize.FromCents(imp.TotalValueCents)
	result.Stats.Covers = imp.Covers
	return result, nil
}

func (r *recorder) categories(imp *entity.SalesImport, rows []entity.SummaryRow) []*entity.SalesCategory {
	categories := make([]*entity.SalesCategory, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row.Category)
		if name == "" {
			continue
		}
		categories = append(categories, &entity.SalesCategory{
			ID:                 uuid.NewString(),
			ImportID:           imp.ID,
			CategoryName:       name,
			CategoryNormalized: normalize.Name(name),
			Quantity:           row.Quantity,
			TotalValueCents:    normalize.ToCents(row.TotalValue),
			PeriodMonth:        imp.PeriodMonth,
			PeriodYear:         imp.PeriodYear,
			CreatedAt:          imp.CreatedAt,
		})
	}
	return categories
}

func (r *recorder) dishMatch(dish *entity.SalesDish, match *matching.Result) DishMatch {
	m := DishMatch{
		DishID:     dish.ID,
		DishName:   dish.DishNameOriginal,
		RecipeID:   dish.RecipeID,
		Confidence: dish.MatchConfidence,
		Method:     dish.MatchMethod,
		Reasons:    []string{},
	}
	if dish.RecipeID != nil {
		if recipe, ok := r.catalog.Recipe(*dish.RecipeID); ok {
			name := recipe.Name
			m.RecipeName = &name
		}
	}
	if match != nil {
		m.Reasons = match.Reasons
	}
	return m
}

// groupRows merges kept rows by normalized dish name in first-seen order.
// Rows without a usable name are skipped.
func groupRows(rows []entity.DetailRow) []*dishGroup {
	byName := make(map[string]*dishGroup)
	var order []string
	for _, row := range rows {
		name := normalize.Name(row.DishName)
		if name == "" {
			continue
		}
		g, ok := byName[name]
		if !ok {
			g = &dishGroup{name: name}
			byName[name] = g
			order = append(order, name)
		}
		g.original = strings.TrimSpace(row.DishName)
		if c := strings.TrimSpace(row.Category); c != "" {
			g.category = c
		}
		g.quantity += row.Quantity
		g.cents += normalize.ToCents(row.TotalValue)
		g.unitCents = normalize.ToCents(row.UnitPrice)
	}

	groups := make([]*dishGroup, 0, len(order))
	for _, name := range order {
		g := byName[name]
		// facts and dish totals share one rounded quantity
		g.quantity = roundQuantity(g.quantity)
		groups = append(groups, g)
	}
	return groups
}

func recipeSaleFor(fact *entity.SalesDishData, recipeID string, date time.Time) *entity.RecipeSale {
	return &entity.RecipeSale{
		ID:              uuid.NewString(),
		RecipeID:        recipeID,
		DishDataID:      fact.ID,
		ImportID:        fact.ImportID,
		Quantity:        fact.Quantity,
		TotalValueCents: fact.TotalValueCents,
		SaleDate:        date,
	}
}
