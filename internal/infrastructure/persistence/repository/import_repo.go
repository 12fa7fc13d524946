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

const importColumns = `
	id, location_id, period_month, period_year, file_name, file_size, file_hash, file_format,
	total_categories, total_dishes, total_quantity, total_value_cents, covers, covers_value_cents,
	status, error_count, warning_count, error_message, created_at, completed_at`

// ImportRepository implements port.ImportRepository
type ImportRepository struct {
	base
	logger *zap.Logger
}

// NewImportRepository creates a new import repository
func NewImportRepository(db *sql.DB, logger *zap.Logger) *ImportRepository {
	return &ImportRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Create inserts a new import
func (r *ImportRepository) Create(ctx context.Context, imp *entity.SalesImport) error {
	if imp.CreatedAt.IsZero() {
		imp.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO sales_imports (` + importColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		imp.ID,
		imp.LocationID,
		imp.PeriodMonth,
		imp.PeriodYear,
		imp.FileName,
		imp.FileSize,
		imp.FileHash,
		imp.FileFormat,
		imp.TotalCategories,
		imp.TotalDishes,
		imp.TotalQuantity,
		imp.TotalValueCents,
		imp.Covers,
		imp.CoversValueCents,
		imp.Status,
		imp.ErrorCount,
		imp.WarningCount,
		imp.ErrorMessage,
		formatTime(imp.CreatedAt),
		completedAt(imp.CompletedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create sales import",
			zap.String("id", imp.ID),
			zap.String("file_hash", imp.FileHash),
			zap.Error(err))
		return fmt.Errorf("failed to create sales import: %w", err)
	}
	return nil
}

// Update rewrites totals, counters and status of an import
func (r *ImportRepository) Update(ctx context.Context, imp *entity.SalesImport) error {
	query := `
		UPDATE sales_imports
		SET total_categories = ?, total_dishes = ?, total_quantity = ?, total_value_cents = ?,
			covers = ?, covers_value_cents = ?, status = ?, error_count = ?, warning_count = ?,
			error_message = ?, completed_at = ?
		WHERE id = ?
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		imp.TotalCategories,
		imp.TotalDishes,
		imp.TotalQuantity,
		imp.TotalValueCents,
		imp.Covers,
		imp.CoversValueCents,
		imp.Status,
		imp.ErrorCount,
		imp.WarningCount,
		imp.ErrorMessage,
		completedAt(imp.CompletedAt),
		imp.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update sales import",
			zap.String("id", imp.ID),
			zap.String("status", imp.Status),
			zap.Error(err))
		return fmt.Errorf("failed to update sales import: %w", err)
	}
	return nil
}

// GetByID retrieves an import by its ID
func (r *ImportRepository) GetByID(ctx context.Context, id string) (*entity.SalesImport, error) {
	query := `SELECT ` + importColumns + ` FROM sales_imports WHERE id = ?`

	imp, err := scanImport(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get sales import by ID",
			zap.String("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get sales import: %w", err)
	}
	return imp, nil
}

// GetByHash retrieves the live import of a file
func (r *ImportRepository) GetByHash(ctx context.Context, hash string) (*entity.SalesImport, error) {
	query := `SELECT ` + importColumns + ` FROM sales_imports WHERE file_hash = ? AND status != ?`

	imp, err := scanImport(r.getExecutor(ctx).QueryRowContext(ctx, query, hash, entity.ImportStatusFailed))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get sales import by hash",
			zap.String("file_hash", hash),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get sales import: %w", err)
	}
	return imp, nil
}

// ListByPeriod returns the live imports of one month
func (r *ImportRepository) ListByPeriod(ctx context.Context, period entity.Period) ([]*entity.SalesImport, error) {
	query := `SELECT ` + importColumns + `
		FROM sales_imports
		WHERE period_month = ? AND period_year = ? AND status != ?
		ORDER BY created_at`

	return r.query(ctx, "period", query, period.Month, period.Year, entity.ImportStatusFailed)
}

// ListByYears returns the live imports whose period falls in the year range
func (r *ImportRepository) ListByYears(ctx context.Context, fromYear, toYear int) ([]*entity.SalesImport, error) {
	query := `SELECT ` + importColumns + `
		FROM sales_imports
		WHERE period_year BETWEEN ? AND ? AND status != ?
		ORDER BY period_year, period_month`

	return r.query(ctx, "years", query, fromYear, toYear, entity.ImportStatusFailed)
}

// List returns imports newest first, failed audit rows included
func (r *ImportRepository) List(ctx context.Context, limit, offset int) ([]*entity.SalesImport, error) {
	query := `SELECT ` + importColumns + `
		FROM sales_imports
		ORDER BY period_year DESC, period_month DESC, created_at DESC
		LIMIT ? OFFSET ?`

	return r.query(ctx, "page", query, limit, offset)
}

// Count returns the number of imports
func (r *ImportRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.getExecutor(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM sales_imports`).Scan(&n); err != nil {
		r.logger.Error("Failed to count sales imports", zap.Error(err))
		return 0, fmt.Errorf("failed to count sales imports: %w", err)
	}
	return n, nil
}

// Delete removes an import; categories, facts and recipe sales cascade
func (r *ImportRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM sales_imports WHERE id = ?`, id); err != nil {
		r.logger.Error("Failed to delete sales import",
			zap.String("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to delete sales import: %w", err)
	}
	return nil
}

func (r *ImportRepository) query(ctx context.Context, what, query string, args ...interface{}) ([]*entity.SalesImport, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list sales imports",
			zap.String("by", what),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list sales imports: %w", err)
	}
	defer rows.Close()

	var imports []*entity.SalesImport
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sales import: %w", err)
		}
		imports = append(imports, imp)
	}
	return imports, rows.Err()
}

func scanImport(s scanner) (*entity.SalesImport, error) {
	var (
		imp       entity.SalesImport
		createdAt string
		completed sql.NullString
	)
	err := s.Scan(
		&imp.ID,
		&imp.LocationID,
		&imp.PeriodMonth,
		&imp.PeriodYear,
		&imp.FileName,
		&imp.FileSize,
		&imp.FileHash,
		&imp.FileFormat,
		&imp.TotalCategories,
		&imp.TotalDishes,
		&imp.TotalQuantity,
		&imp.TotalValueCents,
		&imp.Covers,
		&imp.CoversValueCents,
		&imp.Status,
		&imp.ErrorCount,
		&imp.WarningCount,
		&imp.ErrorMessage,
		&createdAt,
		&completed,
	)
	if err != nil {
		return nil, err
	}

	if imp.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if completed.Valid {
		t, err := parseTime(completed.String)
		if err != nil {
			return nil, err
		}
		imp.CompletedAt = &t
	}
	return &imp, nil
}

func completedAt(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// Verify interface compliance
var _ port.ImportRepository = (*ImportRepository)(nil)
