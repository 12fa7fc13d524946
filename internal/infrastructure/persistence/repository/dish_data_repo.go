package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/sales-insight/internal/application/port"
	"github.com/garyjia/sales-insight/internal/domain/entity"
	"go.uber.org/zap"
)

// DishDataRepository implements port.DishDataRepository
type DishDataRepository struct {
	base
	logger *zap.Logger
}

// NewDishDataRepository creates a new fact repository
func NewDishDataRepository(db *sql.DB, logger *zap.Logger) *DishDataRepository {
	return &DishDataRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// CreateBatch inserts the facts of one import
func (r *DishDataRepository) CreateBatch(ctx context.Context, facts []*entity.SalesDishData) error {
	query := `
		INSERT INTO sales_dish_data (
			id, dish_id, import_id, recipe_id, quantity, unit_price_cents, total_value_cents,
			period_month, period_year, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	exec := r.getExecutor(ctx)
	now := time.Now().UTC()
	for _, f := range facts {
		if f.CreatedAt.IsZero() {
			f.CreatedAt = now
		}
		_, err := exec.ExecContext(ctx, query,
			f.ID,
			f.DishID,
			f.ImportID,
			nullString(f.RecipeID),
			f.Quantity,
			f.UnitPriceCents,
			f.TotalValueCents,
			f.PeriodMonth,
			f.PeriodYear,
			formatTime(f.CreatedAt),
		)
		if err != nil {
			r.logger.Error("Failed to create sales fact",
				zap.String("dish_id", f.DishID),
				zap.String("import_id", f.ImportID),
				zap.Error(err))
			return fmt.Errorf("failed to create sales fact: %w", err)
		}
	}
	return nil
}

// ListByDish returns every fact of a dish, oldest period first
func (r *DishDataRepository) ListByDish(ctx context.Context, dishID string) ([]*entity.SalesDishData, error) {
	query := `
		SELECT id, dish_id, import_id, recipe_id, quantity, unit_price_cents, total_value_cents,
			period_month, period_year, created_at
		FROM sales_dish_data
		WHERE dish_id = ?
		ORDER BY period_year, period_month
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, dishID)
	if err != nil {
		r.logger.Error("Failed to list facts by dish",
			zap.String("dish_id", dishID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list sales facts: %w", err)
	}
	defer rows.Close()

	var facts []*entity.SalesDishData
	for rows.Next() {
		var (
			f         entity.SalesDishData
			recipeID  sql.NullString
			createdAt string
		)
		if err := rows.Scan(
			&f.ID,
			&f.DishID,
			&f.ImportID,
			&recipeID,
			&f.Quantity,
			&f.UnitPriceCents,
			&f.TotalValueCents,
			&f.PeriodMonth,
			&f.PeriodYear,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sales fact: %w", err)
		}
		f.RecipeID = stringPtr(recipeID)
		if f.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		facts = append(facts, &f)
	}
	return facts, rows.Err()
}

// SetRecipe rewrites the recipe id carried by the facts of a dish
func (r *DishDataRepository) SetRecipe(ctx context.Context, dishID string, recipeID *string) error {
	_, err := r.getExecutor(ctx).ExecContext(ctx,
		`UPDATE sales_dish_data SET recipe_id = ? WHERE dish_id = ?`,
		nullString(recipeID), dishID)
	if err != nil {
		r.logger.Error("Failed to set fact recipe",
			zap.String("dish_id", dishID),
			zap.Error(err))
		return fmt.Errorf("failed to set fact recipe: %w", err)
	}
	return nil
}

// ListFacts joins facts with their dish for the dashboard. The dish link is
// read from the catalog so relinks show up without rewriting history.
func (r *DishDataRepository) ListFacts(ctx context.Context, fromYear, toYear int) ([]entity.DishFact, error) {
	query := `
		SELECT d.dish_id, s.dish_name_original, s.category_gestionale, s.recipe_id,
			d.quantity, d.total_value_cents, d.period_month, d.period_year
		FROM sales_dish_data d
		JOIN sales_dishes s ON s.id = d.dish_id
		JOIN sales_imports i ON i.id = d.import_id
		WHERE d.period_year BETWEEN ? AND ? AND i.status IN (?, ?)
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query,
		fromYear, toYear, entity.ImportStatusCompleted, entity.ImportStatusPartial)
	if err != nil {
		r.logger.Error("Failed to list dish facts",
			zap.Int("from_year", fromYear),
			zap.Int("to_year", toYear),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list dish facts: %w", err)
	}
	defer rows.Close()

	var facts []entity.DishFact
	for rows.Next() {
		var (
			f        entity.DishFact
			recipeID sql.NullString
		)
		if err := rows.Scan(
			&f.DishID,
			&f.DishName,
			&f.Category,
			&recipeID,
			&f.Quantity,
			&f.TotalValueCents,
			&f.PeriodMonth,
			&f.PeriodYear,
		); err != nil {
			return nil, fmt.Errorf("failed to scan dish fact: %w", err)
		}
		f.RecipeID = stringPtr(recipeID)
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// Verify interface compliance
var _ port.DishDataRepository = (*DishDataRepository)(nil)
