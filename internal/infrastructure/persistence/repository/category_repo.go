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

// CategoryRepository implements port.CategoryRepository
type CategoryRepository struct {
	base
	logger *zap.Logger
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *sql.DB, logger *zap.Logger) *CategoryRepository {
	return &CategoryRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// CreateBatch inserts the category subtotals of one import
func (r *CategoryRepository) CreateBatch(ctx context.Context, categories []*entity.SalesCategory) error {
	query := `
		INSERT INTO sales_categories (
			id, import_id, category_name, category_normalized, quantity, total_value_cents,
			period_month, period_year, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	exec := r.getExecutor(ctx)
	now := time.Now().UTC()
	for _, c := range categories {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		_, err := exec.ExecContext(ctx, query,
			c.ID,
			c.ImportID,
			c.CategoryName,
			c.CategoryNormalized,
			c.Quantity,
			c.TotalValueCents,
			c.PeriodMonth,
			c.PeriodYear,
			formatTime(c.CreatedAt),
		)
		if err != nil {
			r.logger.Error("Failed to create sales category",
				zap.String("import_id", c.ImportID),
				zap.String("category", c.CategoryName),
				zap.Error(err))
			return fmt.Errorf("failed to create sales category: %w", err)
		}
	}
	return nil
}

// ListByImport returns the categories of an import ordered by value
func (r *CategoryRepository) ListByImport(ctx context.Context, importID string) ([]*entity.SalesCategory, error) {
	query := `
		SELECT id, import_id, category_name, category_normalized, quantity, total_value_cents,
			period_month, period_year, created_at
		FROM sales_categories
		WHERE import_id = ?
		ORDER BY total_value_cents DESC, category_name
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, importID)
	if err != nil {
		r.logger.Error("Failed to list sales categories",
			zap.String("import_id", importID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list sales categories: %w", err)
	}
	defer rows.Close()

	var categories []*entity.SalesCategory
	for rows.Next() {
		var (
			c         entity.SalesCategory
			createdAt string
		)
		if err := rows.Scan(
			&c.ID,
			&c.ImportID,
			&c.CategoryName,
			&c.CategoryNormalized,
			&c.Quantity,
			&c.TotalValueCents,
			&c.PeriodMonth,
			&c.PeriodYear,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sales category: %w", err)
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}

// Verify interface compliance
var _ port.CategoryRepository = (*CategoryRepository)(nil)
