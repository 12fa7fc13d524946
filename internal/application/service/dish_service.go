package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/garyjia/sales-insight/internal/application/port"
	"github.com/garyjia/sales-insight/internal/domain/entity"
	"github.com/garyjia/sales-insight/internal/normalize"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Piatti"

var exportHeader = []interface{}{
	"Piatto", "Nome originale", "Categoria", "Ricetta", "Metodo", "Confidenza",
	"Quantità venduta", "Valore generato", "Primo periodo", "Ultimo periodo", "Import", "Archiviato",
}

// DishQuery filters a catalog listing
type DishQuery struct {
	Linked   *bool
	Archived *bool
	Search   string
	Category string
	Limit    int
	Offset   int
}

// DishList is one page of the catalog
type DishList struct {
	Dishes  []DishView `json:"dishes"`
	Total   int        `json:"total"`
	HasMore bool       `json:"hasMore"`
}

// LinkRequest sets or clears the recipe of one dish
type LinkRequest struct {
	DishID   string  `json:"dishId"`
	RecipeID *string `json:"recipeId"`
}

// LinkFailure reports a batch entry that was not applied
type LinkFailure struct {
	DishID string `json:"dishId"`
	Error  string `json:"error"`
}

// BatchLinkResult summarises a batch link
type BatchLinkResult struct {
	Updated int           `json:"updated"`
	Failed  []LinkFailure `json:"failed"`
}

// DishService manages the dish catalog of a location
type DishService interface {
	ListDishes(ctx context.Context, locationID string, q DishQuery) (*DishList, error)

	// LinkDish sets a manual recipe link, or clears it when recipeID is nil.
	// Facts and recipe sales of the dish follow the new link.
	LinkDish(ctx context.Context, locationID, dishID string, recipeID *string) (*DishView, error)

	BatchLink(ctx context.Context, locationID string, links []LinkRequest) (*BatchLinkResult, error)
	ArchiveDish(ctx context.Context, locationID, dishID string, archived bool) (*DishView, error)

	// RecomputeTotals rebuilds cumulative dish totals from the stored facts
	RecomputeTotals(ctx context.Context, locationID string) (int64, error)

	// ExportCatalog renders the catalog as an xlsx workbook
	ExportCatalog(ctx context.Context, locationID string) ([]byte, error)

	ListRecipes(ctx context.Context, locationID string) ([]*entity.Recipe, error)
}

type dishServiceImpl struct {
	stores port.StoreProvider
	logger Logger
}

// NewDishService creates a new DishService
func NewDishService(stores port.StoreProvider, logger Logger) DishService {
	return &dishServiceImpl{
		stores: stores,
		logger: logger,
	}
}

func (s *dishServiceImpl) ListDishes(ctx context.Context, locationID string, q DishQuery) (*DishList, error) {
	if q.Limit <= 0 || q.Limit > 500 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	store, release, err := s.stores.Acquire(ctx, locationID)
	if err != nil {
		return nil, err
	}
	defer release()

	dishes, total, err := store.Dishes().List(ctx, port.DishFilter{
		Linked:   q.Linked,
		Archived: q.Archived,
		Search:   normalize.Name(q.Search),
		Category: q.Category,
		Limit:    q.Limit,
		Offset:   q.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list dishes: %w", err)
	}

	views := make([]DishView, 0, len(dishes))
	for _, d := range dishes {
		views = append(views, toDishView(d))
	}
	return &DishList{
		Dishes:  views,
		Total:   total,
		HasMore: q.Offset+len(views) < total,
	}, nil
}

func (s *dishServiceImpl) LinkDish(ctx context.Context, locationID, dishID string, recipeID *string) (*DishView, error) {
	store, release, err := s.stores.Acquire(ctx, locationID)
	if err != nil {
		return nil, err
	}
	defer release()

	unlock := s.stores.LockImports(locationID)
	defer unlock()

	var dish *entity.SalesDish
	err = store.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		dish, err = s.link(ctx, store, dishID, recipeID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Dish link updated",
		"location_id", locationID,
		"dish_id", dishID,
		"linked", dish.IsLinked)

	view := toDishView(dish)
	return &view, nil
}

func (s *dishServiceImpl) BatchLink(ctx context.Context, locationID string, links []LinkRequest) (*BatchLinkResult, error) {
	if len(links) == 0 {
		return nil, invalid("no links given")
	}

	store, release, err := s.stores.Acquire(ctx, locationID)
	if err != nil {
		return nil, err
	}
	defer release()

	unlock := s.stores.LockImports(locationID)
	defer unlock()

	result := &BatchLinkResult{Failed: []LinkFailure{}}
	for _, l := range links {
		err := store.WithTransaction(ctx, func(ctx context.Context) error {
			_, err := s.link(ctx, store, l.DishID, l.RecipeID)
			return err
		})
		if err != nil {
			result.Failed = append(result.Failed, LinkFailure{DishID: l.DishID, Error: err.Error()})
			continue
		}
		result.Updated++
	}

	s.logger.Info("Batch link applied",
		"location_id", locationID,
		"updated", result.Updated,
		"failed", len(result.Failed))
	return result, nil
}

func (s *dishServiceImpl) link(ctx context.Context, store port.Store, dishID string, recipeID *string) (*entity.SalesDish, error) {
	dish, err := store.Dishes().GetByID(ctx, dishID)
	if err != nil {
		return nil, fmt.Errorf("get dish: %w", err)
	}
	if dish == nil {
		return nil, notFound("dish", dishID)
	}

	if recipeID != nil {
		recipe, err := store.Recipes().GetByID(ctx, *recipeID)
		if err != nil {
			return nil, fmt.Errorf("get recipe: %w", err)
		}
		if recipe == nil {
			return nil, notFound("recipe", *recipeID)
		}
	}

	dish.SetLink(recipeID, entity.MatchMethodManual, 1)
	if err := store.Dishes().SetLink(ctx, dish); err != nil {
		return nil, fmt.Errorf("update dish: %w", err)
	}
	if err := store.DishData().SetRecipe(ctx, dish.ID, dish.RecipeID); err != nil {
		return nil, fmt.Errorf("relink facts: %w", err)
	}
	if err := store.RecipeSales().DeleteByDish(ctx, dish.ID); err != nil {
		return nil, fmt.Errorf("clear recipe sales: %w", err)
	}
	if dish.RecipeID == nil {
		return dish, nil
	}

	facts, err := store.DishData().ListByDish(ctx, dish.ID)
	if err != nil {
		return nil, fmt.Errorf("list facts: %w", err)
	}
	sales := make([]*entity.RecipeSale, 0, len(facts))
	for _, f := range facts {
		period := entity.Period{Month: f.PeriodMonth, Year: f.PeriodYear}
		sales = append(sales, recipeSaleFor(f, *dish.RecipeID, period.Date()))
	}
	if err := store.RecipeSales().CreateBatch(ctx, sales); err != nil {
		return nil, fmt.Errorf("write recipe sales: %w", err)
	}
	return dish, nil
}

func (s *dishServiceImpl) ArchiveDish(ctx context.Context, locationID, dishID string, archived bool) (*DishView, error) {
	store, release, err := s.stores.Acquire(ctx, locationID)
	if err != nil {
		return nil, err
	}
	defer release()

	// flag only: cumulative totals are owned by imports
	found, err := store.Dishes().SetArchived(ctx, dishID, archived)
	if err != nil {
		return nil, fmt.Errorf("archive dish: %w", err)
	}
	if !found {
		return nil, notFound("dish", dishID)
	}

	dish, err := store.Dishes().GetByID(ctx, dishID)
	if err != nil {
		return nil, fmt.Errorf("get dish: %w", err)
	}
	if dish == nil {
		return nil, notFound("dish", dishID)
	}

	s.logger.Info("Dish archive flag updated",
		"location_id", locationID,
		"dish_id", dishID,
		"archived", archived)

	view := toDishView(dish)
	return &view, nil
}

func (s *dishServiceImpl) RecomputeTotals(ctx context.Context, locationID string) (int64, error) {
	store, release, err := s.stores.Acquire(ctx, locationID)
	if err != nil {
		return 0, err
	}
	defer release()

	unlock := s.stores.LockImports(locationID)
	defer unlock()

	var n int64
	err = store.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		n, err = store.Dishes().RecomputeTotals(ctx)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to recompute dish totals",
			"error", err,
			"location_id", locationID)
		return 0, fmt.Errorf("recompute totals: %w", err)
	}

	s.logger.Info("Dish totals recomputed",
		"location_id", locationID,
		"dishes", n)
	return n, nil
}

func (s *dishServiceImpl) ExportCatalog(ctx context.Context, locationID string) ([]byte, error) {
	store, release, err := s.stores.Acquire(ctx, locationID)
	if err != nil {
		return nil, err
	}
	defer release()

	dishes, _, err := store.Dishes().List(ctx, port.DishFilter{})
	if err != nil {
		return nil, fmt.Errorf("list dishes: %w", err)
	}
	recipes, err := store.Recipes().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	recipeNames := make(map[string]string, len(recipes))
	for _, r := range recipes {
		recipeNames[r.ID] = r.Name
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, d := range dishes {
		var recipe, method string
		var confidence interface{}
		if d.RecipeID != nil {
			recipe = recipeNames[*d.RecipeID]
			if recipe == "" {
				recipe = *d.RecipeID
			}
		}
		method = d.Method()
		if d.MatchConfidence != nil {
			confidence = *d.MatchConfidence
		}

		row := []interface{}{
			d.DishName,
			d.DishNameOriginal,
			d.CategoryGestionale,
			recipe,
			method,
			confidence,
			normalize.Round(d.TotalQuantitySold, 3),
			normalize.FromCents(d.TotalValueGeneratedCents),
			d.FirstSeenDate.Format("2006-01"),
			d.LastSeenDate.Format("2006-01"),
			d.TotalImports,
			d.IsArchived,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("Dish catalog exported",
		"location_id", locationID,
		"dishes", len(dishes))
	return buf.Bytes(), nil
}

func (s *dishServiceImpl) ListRecipes(ctx context.Context, locationID string) ([]*entity.Recipe, error) {
	store, release, err := s.stores.Acquire(ctx, locationID)
	if err != nil {
		return nil, err
	}
	defer release()

	recipes, err := store.Recipes().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return recipes, nil
}
