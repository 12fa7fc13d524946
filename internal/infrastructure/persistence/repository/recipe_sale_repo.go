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

// RecipeSaleRepository implements port.RecipeSaleRepository
type RecipeSaleRepository struct {
	base
	logger *zap.Logger
}

// NewRecipeSaleRepository creates a new recipe sale repository
func NewRecipeSaleRepository(db *sql.DB, logger *zap.Logger) *RecipeSaleRepository {
	return &RecipeSaleRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// CreateBatch inserts recipe sales mirrored from linked facts
func (r *RecipeSaleRepository) CreateBatch(ctx context.Context, sales []*entity.RecipeSale) error {
	query := `
		INSERT INTO recipe_sales (
			id, recipe_id, dish_data_id, import_id, quantity, total_value_cents, sale_date, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	exec := r.getExecutor(ctx)
	now := time.Now().UTC()
	for _, s := range sales {
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		_, err := exec.ExecContext(ctx, query,
			s.ID,
			s.RecipeID,
			s.DishDataID,
			s.ImportID,
			s.Quantity,
			s.TotalValueCents,
			formatDate(s.SaleDate),
			formatTime(s.CreatedAt),
		)
		if err != nil {
			r.logger.Error("Failed to create recipe sale",
				zap.String("recipe_id", s.RecipeID),
				zap.String("dish_data_id", s.DishDataID),
				zap.Error(err))
			return fmt.Errorf("failed to create recipe sale: %w", err)
		}
	}
	return nil
}

// DeleteByDish removes the recipe sales mirrored from a dish's facts
func (r *RecipeSaleRepository) DeleteByDish(ctx context.Context, dishID string) error {
	query := `
		DELETE FROM recipe_sales
		WHERE dish_data_id IN (SELECT id FROM sales_dish_data WHERE dish_id = ?)
	`
	if _, err := r.getExecutor(ctx).ExecContext(ctx, query, dishID); err != nil {
		r.logger.Error("Failed to delete recipe sales",
			zap.String("dish_id", dishID),
			zap.Error(err))
		return fmt.Errorf("failed to delete recipe sales: %w", err)
	}
	return nil
}

// ListByRecipe returns the sales of a recipe ordered by date
func (r *RecipeSaleRepository) ListByRecipe(ctx context.Context, recipeID string) ([]*entity.RecipeSale, error) {
	query := `
		SELECT id, recipe_id, dish_data_id, import_id, quantity, total_value_cents, sale_date, created_at
		FROM recipe_sales
		WHERE recipe_id = ?
		ORDER BY sale_date
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, recipeID)
	if err != nil {
		r.logger.Error("Failed to list recipe sales",
			zap.String("recipe_id", recipeID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list recipe sales: %w", err)
	}
	defer rows.Close()

	var sales []*entity.RecipeSale
	for rows.Next() {
		var (
			s                   entity.RecipeSale
			saleDate, createdAt string
		)
		if err := rows.Scan(
			&s.ID,
			&s.RecipeID,
			&s.DishDataID,
			&s.ImportID,
			&s.Quantity,
			&s.TotalValueCents,
			&saleDate,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan recipe sale: %w", err)
		}
		if s.SaleDate, err = parseDate(saleDate); err != nil {
			return nil, err
		}
		if s.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		sales = append(sales, &s)
	}
	return sales, rows.Err()
}

// Verify interface compliance
var _ port.RecipeSaleRepository = (*RecipeSaleRepository)(nil)
