package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/sales-insight/internal/application/port"
	"github.com/garyjia/sales-insight/internal/domain/entity"
	"github.com/garyjia/sales-insight/internal/normalize"
	"github.com/google/uuid"
)

// ExclusionService manages the exclusion words applied at import time
type ExclusionService interface {
	ListWords(ctx context.Context, locationID string) ([]*entity.ExclusionWord, error)
	CreateWord(ctx context.Context, locationID, word, wordType string) (*entity.ExclusionWord, error)
	DeleteWord(ctx context.Context, locationID, id string) error
}

type exclusionServiceImpl struct {
	stores port.StoreProvider
	logger Logger
}

// NewExclusionService creates a new ExclusionService
func NewExclusionService(stores port.StoreProvider, logger Logger) ExclusionService {
	return &exclusionServiceImpl{
		stores: stores,
		logger: logger,
	}
}

func (s *exclusionServiceImpl) ListWords(ctx context.Context, locationID string) ([]*entity.ExclusionWord, error) {
	store, release, err := s.stores.Acquire(ctx, locationID)
	if err != nil {
		return nil, err
	}
	defer release()

	words, err := store.Exclusions().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exclusion words: %w", err)
	}
	if words == nil {
		words = []*entity.ExclusionWord{}
	}
	return words, nil
}

func (s *exclusionServiceImpl) CreateWord(ctx context.Context, locationID, word, wordType string) (*entity.ExclusionWord, error) {
	if wordType == "" {
		wordType = entity.ExclusionTypeDish
	}
	if wordType != entity.ExclusionTypeDish && wordType != entity.ExclusionTypeCategory {
		return nil, invalid("exclusion type must be %q or %q", entity.ExclusionTypeDish, entity.ExclusionTypeCategory)
	}
	word = strings.TrimSpace(word)
	normalized := normalize.Name(word)
	if normalized == "" {
		return nil, invalid("exclusion word is empty")
	}

	store, release, err := s.stores.Acquire(ctx, locationID)
	if err != nil {
		return nil, err
	}
	defer release()

	existing, err := store.Exclusions().Find(ctx, normalized, wordType)
	if err != nil {
		return nil, fmt.Errorf("find exclusion word: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("exclusion word %q: %w", word, ErrAlreadyExists)
	}

	w := &entity.ExclusionWord{
		ID:             uuid.NewString(),
		Word:           word,
		WordNormalized: normalized,
		Type:           wordType,
		CreatedAt:      time.Now().UTC(),
	}
	if err := store.Exclusions().Create(ctx, w); err != nil {
		s.logger.Error("Failed to create exclusion word",
			"error", err,
			"location_id", locationID,
			"word", word)
		return nil, fmt.Errorf("create exclusion word: %w", err)
	}

	s.logger.Info("Exclusion word created",
		"location_id", locationID,
		"word", word,
		"type", wordType)
	return w, nil
}

func (s *exclusionServiceImpl) DeleteWord(ctx context.Context, locationID, id string) error {
	store, release, err := s.stores.Acquire(ctx, locationID)
	if err != nil {
		return err
	}
	defer release()

	w, err := store.Exclusions().GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get exclusion word: %w", err)
	}
	if w == nil {
		return notFound("exclusion word", id)
	}
	if err := store.Exclusions().Delete(ctx, id); err != nil {
		return fmt.Errorf("delete exclusion word: %w", err)
	}

	s.logger.Info("Exclusion word deleted",
		"location_id", locationID,
		"word", w.Word)
	return nil
}
