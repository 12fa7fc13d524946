package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/sales-insight/internal/application/port"
	"github.com/garyjia/sales-insight/internal/domain/entity"
	"go.uber.org/zap"
)

const dishColumns = `
	id, dish_name, dish_name_original, category_gestionale, recipe_id, is_linked, match_method,
	match_confidence, total_quantity_sold, total_value_generated_cents, first_seen_date,
	last_seen_date, total_imports, is_archived, created_at, updated_at`

// DishRepository implements port.DishRepository
type DishRepository struct {
	base
	logger *zap.Logger
}

// NewDishRepository creates a new dish catalog repository
func NewDishRepository(db *sql.DB, logger *zap.Logger) *DishRepository {
	return &DishRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Create inserts a new catalog dish
func (r *DishRepository) Create(ctx context.Context, dish *entity.SalesDish) error {
	now := time.Now().UTC()
	if dish.CreatedAt.IsZero() {
		dish.CreatedAt = now
	}
	dish.UpdatedAt = now

	query := `INSERT INTO sales_dishes (` + dishColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		dish.ID,
		dish.DishName,
		dish.DishNameOriginal,
		dish.CategoryGestionale,
		nullString(dish.RecipeID),
		boolInt(dish.RecipeID != nil),
		nullString(dish.MatchMethod),
		nullFloat(dish.MatchConfidence),
		dish.TotalQuantitySold,
		dish.TotalValueGeneratedCents,
		formatDate(dish.FirstSeenDate),
		formatDate(dish.LastSeenDate),
		dish.TotalImports,
		boolInt(dish.IsArchived),
		formatTime(dish.CreatedAt),
		formatTime(dish.UpdatedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create sales dish",
			zap.String("dish_name", dish.DishName),
			zap.Error(err))
		return fmt.Errorf("failed to create sales dish: %w", err)
	}
	return nil
}

// Update rewrites every mutable column of a dish
func (r *DishRepository) Update(ctx context.Context, dish *entity.SalesDish) error {
	dish.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE sales_dishes
		SET dish_name_original = ?, category_gestionale = ?, recipe_id = ?, is_linked = ?,
			match_method = ?, match_confidence = ?, total_quantity_sold = ?,
			total_value_generated_cents = ?, first_seen_date = ?, last_seen_date = ?,
			total_imports = ?, is_archived = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		dish.DishNameOriginal,
		dish.CategoryGestionale,
		nullString(dish.RecipeID),
		boolInt(dish.RecipeID != nil),
		nullString(dish.MatchMethod),
		nullFloat(dish.MatchConfidence),
		dish.TotalQuantitySold,
		dish.TotalValueGeneratedCents,
		formatDate(dish.FirstSeenDate),
		formatDate(dish.LastSeenDate),
		dish.TotalImports,
		boolInt(dish.IsArchived),
		formatTime(dish.UpdatedAt),
		dish.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update sales dish",
			zap.String("id", dish.ID),
			zap.Error(err))
		return fmt.Errorf("failed to update sales dish: %w", err)
	}
	return nil
}

// SetLink writes the recipe link of a dish
func (r *DishRepository) SetLink(ctx context.Context, dish *entity.SalesDish) error {
	dish.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE sales_dishes
		SET recipe_id = ?, is_linked = ?, match_method = ?, match_confidence = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		nullString(dish.RecipeID),
		boolInt(dish.RecipeID != nil),
		nullString(dish.MatchMethod),
		nullFloat(dish.MatchConfidence),
		formatTime(dish.UpdatedAt),
		dish.ID,
	)
	if err != nil {
		r.logger.Error("Failed to set sales dish link",
			zap.String("id", dish.ID),
			zap.Error(err))
		return fmt.Errorf("failed to set sales dish link: %w", err)
	}
	return nil
}

// SetArchived flips the archive flag of a dish
func (r *DishRepository) SetArchived(ctx context.Context, id string, archived bool) (bool, error) {
	query := `UPDATE sales_dishes SET is_archived = ?, updated_at = ? WHERE id = ?`

	res, err := r.getExecutor(ctx).ExecContext(ctx, query,
		boolInt(archived),
		formatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		r.logger.Error("Failed to set sales dish archive flag",
			zap.String("id", id),
			zap.Error(err))
		return false, fmt.Errorf("failed to archive sales dish: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to archive sales dish: %w", err)
	}
	return n > 0, nil
}

// GetByID retrieves a dish by its ID
func (r *DishRepository) GetByID(ctx context.Context, id string) (*entity.SalesDish, error) {
	query := `SELECT ` + dishColumns + ` FROM sales_dishes WHERE id = ?`

	dish, err := scanDish(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get sales dish by ID",
			zap.String("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get sales dish: %w", err)
	}
	return dish, nil
}

// GetByName retrieves a dish by normalized name
func (r *DishRepository) GetByName(ctx context.Context, normalizedName string) (*entity.SalesDish, error) {
	query := `SELECT ` + dishColumns + ` FROM sales_dishes WHERE dish_name = ?`

	dish, err := scanDish(r.getExecutor(ctx).QueryRowContext(ctx, query, normalizedName))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get sales dish by name",
			zap.String("dish_name", normalizedName),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get sales dish: %w", err)
	}
	return dish, nil
}

// List returns one page of the catalog, most recently seen first, and the
// total number of dishes matching the filter
func (r *DishRepository) List(ctx context.Context, filter port.DishFilter) ([]*entity.SalesDish, int, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Linked != nil {
		where = append(where, "is_linked = ?")
		args = append(args, boolInt(*filter.Linked))
	}
	if filter.Archived != nil {
		where = append(where, "is_archived = ?")
		args = append(args, boolInt(*filter.Archived))
	}
	if filter.Search != "" {
		where = append(where, "(dish_name LIKE ? OR dish_name_original LIKE ?)")
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	if filter.Category != "" {
		where = append(where, "category_gestionale = ? COLLATE NOCASE")
		args = append(args, filter.Category)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	exec := r.getExecutor(ctx)

	var total int
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales_dishes`+clause, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count sales dishes", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count sales dishes: %w", err)
	}

	query := `SELECT ` + dishColumns + ` FROM sales_dishes` + clause +
		` ORDER BY last_seen_date DESC, dish_name`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list sales dishes", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list sales dishes: %w", err)
	}
	defer rows.Close()

	var dishes []*entity.SalesDish
	for rows.Next() {
		dish, err := scanDish(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan sales dish: %w", err)
		}
		dishes = append(dishes, dish)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return dishes, total, nil
}

// ReverseImport subtracts the facts of one import from the dishes it touched
func (r *DishRepository) ReverseImport(ctx context.Context, importID string) error {
	query := `
		UPDATE sales_dishes
		SET total_quantity_sold = MAX(0, total_quantity_sold - COALESCE((
				SELECT quantity FROM sales_dish_data d
				WHERE d.dish_id = sales_dishes.id AND d.import_id = ?), 0)),
			total_value_generated_cents = MAX(0, total_value_generated_cents - COALESCE((
				SELECT total_value_cents FROM sales_dish_data d
				WHERE d.dish_id = sales_dishes.id AND d.import_id = ?), 0)),
			total_imports = MAX(0, total_imports - 1),
			updated_at = ?
		WHERE id IN (SELECT dish_id FROM sales_dish_data WHERE import_id = ?)
	`

	res, err := r.getExecutor(ctx).ExecContext(ctx, query,
		importID, importID, formatTime(time.Now()), importID)
	if err != nil {
		r.logger.Error("Failed to reverse import contribution",
			zap.String("import_id", importID),
			zap.Error(err))
		return fmt.Errorf("failed to reverse import contribution: %w", err)
	}

	n, _ := res.RowsAffected()
	r.logger.Info("Reversed import contribution",
		zap.String("import_id", importID),
		zap.Int64("dishes", n))
	return nil
}

// RecomputeTotals rebuilds cumulative totals, import counts and seen dates
// from the stored facts
func (r *DishRepository) RecomputeTotals(ctx context.Context) (int64, error) {
	query := `
		UPDATE sales_dishes
		SET total_quantity_sold = COALESCE((
				SELECT SUM(quantity) FROM sales_dish_data d WHERE d.dish_id = sales_dishes.id), 0),
			total_value_generated_cents = COALESCE((
				SELECT SUM(total_value_cents) FROM sales_dish_data d WHERE d.dish_id = sales_dishes.id), 0),
			total_imports = (
				SELECT COUNT(DISTINCT import_id) FROM sales_dish_data d WHERE d.dish_id = sales_dishes.id),
			first_seen_date = COALESCE((
				SELECT MIN(printf('%04d-%02d-01', period_year, period_month))
				FROM sales_dish_data d WHERE d.dish_id = sales_dishes.id), first_seen_date),
			last_seen_date = COALESCE((
				SELECT MAX(printf('%04d-%02d-01', period_year, period_month))
				FROM sales_dish_data d WHERE d.dish_id = sales_dishes.id), last_seen_date),
			updated_at = ?
	`

	res, err := r.getExecutor(ctx).ExecContext(ctx, query, formatTime(time.Now()))
	if err != nil {
		r.logger.Error("Failed to recompute dish totals", zap.Error(err))
		return 0, fmt.Errorf("failed to recompute dish totals: %w", err)
	}
	return res.RowsAffected()
}

func scanDish(s scanner) (*entity.SalesDish, error) {
	var (
		dish                 entity.SalesDish
		recipeID, method     sql.NullString
		confidence           sql.NullFloat64
		linked, archived     int
		firstSeen, lastSeen  string
		createdAt, updatedAt string
	)
	err := s.Scan(
		&dish.ID,
		&dish.DishName,
		&dish.DishNameOriginal,
		&dish.CategoryGestionale,
		&recipeID,
		&linked,
		&method,
		&confidence,
		&dish.TotalQuantitySold,
		&dish.TotalValueGeneratedCents,
		&firstSeen,
		&lastSeen,
		&dish.TotalImports,
		&archived,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	dish.RecipeID = stringPtr(recipeID)
	dish.IsLinked = linked == 1
	dish.MatchMethod = stringPtr(method)
	dish.MatchConfidence = floatPtr(confidence)
	dish.IsArchived = archived == 1

	if dish.FirstSeenDate, err = parseDate(firstSeen); err != nil {
		return nil, err
	}
	if dish.LastSeenDate, err = parseDate(lastSeen); err != nil {
		return nil, err
	}
	if dish.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if dish.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &dish, nil
}

// Verify interface compliance
var _ port.DishRepository = (*DishRepository)(nil)
