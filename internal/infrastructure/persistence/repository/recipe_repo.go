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

// RecipeRepository implements port.RecipeRepository
type RecipeRepository struct {
	base
	logger *zap.Logger
}

// NewRecipeRepository creates a new recipe repository
func NewRecipeRepository(db *sql.DB, logger *zap.Logger) *RecipeRepository {
	return &RecipeRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Save inserts or replaces a recipe by ID
func (r *RecipeRepository) Save(ctx context.Context, recipe *entity.Recipe) error {
	query := `
		INSERT INTO recipes (id, name, category, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, category = excluded.category
	`
	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		recipe.ID, recipe.Name, recipe.Category, formatTime(time.Now()))
	if err != nil {
		r.logger.Error("Failed to save recipe",
			zap.String("id", recipe.ID),
			zap.Error(err))
		return fmt.Errorf("failed to save recipe: %w", err)
	}
	return nil
}

// GetByID retrieves a recipe by its ID
func (r *RecipeRepository) GetByID(ctx context.Context, id string) (*entity.Recipe, error) {
	var recipe entity.Recipe
	err := r.getExecutor(ctx).QueryRowContext(ctx,
		`SELECT id, name, category FROM recipes WHERE id = ?`, id,
	).Scan(&recipe.ID, &recipe.Name, &recipe.Category)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get recipe",
			zap.String("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return &recipe, nil
}

// List returns the whole recipe catalog ordered by name
func (r *RecipeRepository) List(ctx context.Context) ([]*entity.Recipe, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx,
		`SELECT id, name, category FROM recipes ORDER BY name, id`)
	if err != nil {
		r.logger.Error("Failed to list recipes", zap.Error(err))
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []*entity.Recipe
	for rows.Next() {
		var recipe entity.Recipe
		if err := rows.Scan(&recipe.ID, &recipe.Name, &recipe.Category); err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipes = append(recipes, &recipe)
	}
	return recipes, rows.Err()
}

// Verify interface compliance
var _ port.RecipeRepository = (*RecipeRepository)(nil)
