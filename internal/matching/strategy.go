// Package matching links sales dishes to recipes through an ordered chain
// of matching strategies. The first strategy that produces a result wins.
package matching

import (
	"github.com/garyjia/sales-insight/internal/domain/entity"
	"github.com/garyjia/sales-insight/internal/normalize"
)

// Candidate is a dish to be matched. Existing is the persisted catalog entry
// for the same normalized name, nil on first sight.
type Candidate struct {
	Name     string
	Existing *entity.SalesDish
}

// NewCandidate normalizes the display name of a dish
func NewCandidate(name string, existing *entity.SalesDish) Candidate {
	return Candidate{Name: normalize.Name(name), Existing: existing}
}

// Result is a successful match
type Result struct {
	RecipeID   string   `json:"recipeId"`
	RecipeName string   `json:"recipeName"`
	Method     string   `json:"method"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`
}

// Strategy is one matching tier
type Strategy interface {
	Name() string
	AttemptMatch(dish Candidate, catalog *Catalog) (*Result, bool)
}

// Config tunes the automatic tiers
type Config struct {
	FuzzyThreshold   float64
	AmbiguityMargin  float64
	KeywordMinShared int
}

// DefaultConfig returns the standard thresholds
func DefaultConfig() Config {
	return Config{
		FuzzyThreshold:   0.8,
		AmbiguityMargin:  0.05,
		KeywordMinShared: 2,
	}
}

// Chain evaluates strategies in order
type Chain struct {
	strategies []Strategy
}

// NewChain creates a chain from the given strategies
func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// DefaultChain returns existing, exact, fuzzy and keyword tiers in that order
func DefaultChain(cfg Config) *Chain {
	if cfg.FuzzyThreshold <= 0 {
		cfg.FuzzyThreshold = DefaultConfig().FuzzyThreshold
	}
	if cfg.AmbiguityMargin < 0 {
		cfg.AmbiguityMargin = DefaultConfig().AmbiguityMargin
	}
	if cfg.KeywordMinShared <= 0 {
		cfg.KeywordMinShared = DefaultConfig().KeywordMinShared
	}
	return NewChain(
		ExistingLink{},
		ExactName{},
		FuzzyName{Threshold: cfg.FuzzyThreshold, Margin: cfg.AmbiguityMargin},
		KeywordOverlap{MinShared: cfg.KeywordMinShared},
	)
}

// Match returns the first strategy result, or nil when the dish stays unmatched
func (c *Chain) Match(dish Candidate, catalog *Catalog) *Result {
	for _, s := range c.strategies {
		if r, ok := s.AttemptMatch(dish, catalog); ok {
			return r
		}
	}
	return nil
}

// Strategies returns the tier names in evaluation order
func (c *Chain) Strategies() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}
