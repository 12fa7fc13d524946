package matching

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/garyjia/sales-insight/internal/domain/entity"
)

// ExistingLink keeps a link already stored on the catalog dish, including
// manual links, with its original method and confidence
type ExistingLink struct{}

func (ExistingLink) Name() string { return entity.MatchMethodExisting }

func (ExistingLink) AttemptMatch(dish Candidate, catalog *Catalog) (*Result, bool) {
	if dish.Existing == nil || dish.Existing.RecipeID == nil {
		return nil, false
	}

	method := dish.Existing.Method()
	if method == "" {
		method = entity.MatchMethodExisting
	}
	confidence := 1.0
	if dish.Existing.MatchConfidence != nil {
		confidence = *dish.Existing.MatchConfidence
	}

	r := &Result{
		RecipeID:   *dish.Existing.RecipeID,
		Method:     method,
		Confidence: confidence,
		Reasons:    []string{"dish already linked (" + method + ")"},
	}
	if recipe, ok := catalog.Recipe(r.RecipeID); ok {
		r.RecipeName = recipe.Name
	}
	return r, true
}

// ExactName links when exactly one recipe has the same normalized name
type ExactName struct{}

func (ExactName) Name() string { return entity.MatchMethodExact }

func (ExactName) AttemptMatch(dish Candidate, catalog *Catalog) (*Result, bool) {
	idx := catalog.byName[dish.Name]
	if len(idx) != 1 {
		return nil, false
	}
	recipe := catalog.entries[idx[0]].recipe
	return &Result{
		RecipeID:   recipe.ID,
		RecipeName: recipe.Name,
		Method:     entity.MatchMethodExact,
		Confidence: 1.0,
		Reasons:    []string{"normalized name equals recipe name"},
	}, true
}

// FuzzyName links on edit-distance similarity above Threshold, provided no
// other recipe scores within Margin of the best one
type FuzzyName struct {
	Threshold float64
	Margin    float64
}

func (FuzzyName) Name() string { return entity.MatchMethodFuzzy }

func (f FuzzyName) AttemptMatch(dish Candidate, catalog *Catalog) (*Result, bool) {
	if dish.Name == "" || catalog.Len() == 0 {
		return nil, false
	}

	best, second := -1.0, -1.0
	bestIdx := -1
	for i, e := range catalog.entries {
		score := levenshtein.Similarity(dish.Name, e.normalized, nil)
		switch {
		case score > best:
			second = best
			best, bestIdx = score, i
		case score > second:
			second = score
		}
	}

	if bestIdx < 0 || best <= f.Threshold {
		return nil, false
	}
	if second >= 0 && best-second < f.Margin {
		return nil, false
	}

	recipe := catalog.entries[bestIdx].recipe
	return &Result{
		RecipeID:   recipe.ID,
		RecipeName: recipe.Name,
		Method:     entity.MatchMethodFuzzy,
		Confidence: best,
		Reasons:    []string{fmt.Sprintf("name similarity %.2f", best)},
	}, true
}

// KeywordOverlap links when dish and recipe share at least MinShared
// significant tokens. Confidence is shared tokens over the larger token count.
type KeywordOverlap struct {
	MinShared int
}

func (KeywordOverlap) Name() string { return entity.MatchMethodKeyword }

func (k KeywordOverlap) AttemptMatch(dish Candidate, catalog *Catalog) (*Result, bool) {
	dishTokens := tokenSet(dish.Name)
	if len(dishTokens) < k.MinShared {
		return nil, false
	}

	bestRatio := 0.0
	bestIdx := -1
	tied := false
	var bestShared []string

	for i, e := range catalog.entries {
		var shared []string
		for tok := range dishTokens {
			if e.tokens[tok] {
				shared = append(shared, tok)
			}
		}
		if len(shared) < k.MinShared {
			continue
		}

		ratio := float64(len(shared)) / float64(max(len(dishTokens), len(e.tokens)))
		switch {
		case ratio > bestRatio:
			bestRatio, bestIdx, tied = ratio, i, false
			bestShared = shared
		case ratio == bestRatio:
			tied = true
		}
	}

	if bestIdx < 0 || tied {
		return nil, false
	}

	sort.Strings(bestShared)
	recipe := catalog.entries[bestIdx].recipe
	return &Result{
		RecipeID:   recipe.ID,
		RecipeName: recipe.Name,
		Method:     entity.MatchMethodKeyword,
		Confidence: bestRatio,
		Reasons:    []string{"shared keywords: " + strings.Join(bestShared, ", ")},
	}, true
}
