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

// ExclusionRepository implements port.ExclusionRepository
type ExclusionRepository struct {
	base
	logger *zap.Logger
}

// NewExclusionRepository creates a new exclusion word repository
func NewExclusionRepository(db *sql.DB, logger *zap.Logger) *ExclusionRepository {
	return &ExclusionRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Create inserts a new exclusion word
func (r *ExclusionRepository) Create(ctx context.Context, word *entity.ExclusionWord) error {
	if word.CreatedAt.IsZero() {
		word.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO exclusion_words (id, word, word_normalized, type, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		word.ID, word.Word, word.WordNormalized, word.Type, formatTime(word.CreatedAt))
	if err != nil {
		r.logger.Error("Failed to create exclusion word",
			zap.String("word", word.Word),
			zap.String("type", word.Type),
			zap.Error(err))
		return fmt.Errorf("failed to create exclusion word: %w", err)
	}
	return nil
}

// GetByID retrieves an exclusion word by its ID
func (r *ExclusionRepository) GetByID(ctx context.Context, id string) (*entity.ExclusionWord, error) {
	query := `SELECT id, word, word_normalized, type, created_at FROM exclusion_words WHERE id = ?`

	word, err := scanExclusion(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get exclusion word",
			zap.String("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get exclusion word: %w", err)
	}
	return word, nil
}

// Find retrieves an exclusion word by normalized form and type
func (r *ExclusionRepository) Find(ctx context.Context, normalized, wordType string) (*entity.ExclusionWord, error) {
	query := `
		SELECT id, word, word_normalized, type, created_at
		FROM exclusion_words
		WHERE word_normalized = ? AND type = ?
	`

	word, err := scanExclusion(r.getExecutor(ctx).QueryRowContext(ctx, query, normalized, wordType))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to find exclusion word",
			zap.String("word_normalized", normalized),
			zap.Error(err))
		return nil, fmt.Errorf("failed to find exclusion word: %w", err)
	}
	return word, nil
}

// List returns every exclusion word ordered by type and word
func (r *ExclusionRepository) List(ctx context.Context) ([]*entity.ExclusionWord, error) {
	query := `
		SELECT id, word, word_normalized, type, created_at
		FROM exclusion_words
		ORDER BY type, word_normalized
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list exclusion words", zap.Error(err))
		return nil, fmt.Errorf("failed to list exclusion words: %w", err)
	}
	defer rows.Close()

	var words []*entity.ExclusionWord
	for rows.Next() {
		w, err := scanExclusion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exclusion word: %w", err)
		}
		words = append(words, w)
	}
	return words, rows.Err()
}

// Delete removes an exclusion word
func (r *ExclusionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM exclusion_words WHERE id = ?`, id); err != nil {
		r.logger.Error("Failed to delete exclusion word",
			zap.String("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to delete exclusion word: %w", err)
	}
	return nil
}

func scanExclusion(s scanner) (*entity.ExclusionWord, error) {
	var (
		w         entity.ExclusionWord
		createdAt string
	)
	if err := s.Scan(&w.ID, &w.Word, &w.WordNormalized, &w.Type, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if w.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &w, nil
}

// Verify interface compliance
var _ port.ExclusionRepository = (*ExclusionRepository)(nil)
