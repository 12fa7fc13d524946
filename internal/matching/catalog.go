package matching

import (
	"strings"
	"unicode/utf8"

	"github.com/garyjia/sales-insight/internal/domain/entity"
	"github.com/garyjia/sales-insight/internal/normalize"
)

var stopWords = map[string]bool{
	"con": true, "del": true, "della": true, "delle": true, "dei": true, "degli": true,
	"dello": true, "alla": true, "alle": true, "allo": true, "agli": true, "all": true,
	"per": true, "una": true, "uno": true, "sul": true, "sulla": true, "nel": true,
	"nella": true, "the": true, "and": true, "with": true, "senza": true,
}

type recipeEntry struct {
	recipe     entity.Recipe
	normalized string
	tokens     map[string]bool
}

// Catalog is an indexed, read-only view of the recipe list
type Catalog struct {
	entries []recipeEntry
	byName  map[string][]int
	byID    map[string]int
}

// NewCatalog indexes recipes by normalized name
func NewCatalog(recipes []*entity.Recipe) *Catalog {
	c := &Catalog{
		entries: make([]recipeEntry, 0, len(recipes)),
		byName:  make(map[string][]int),
		byID:    make(map[string]int),
	}
	for _, r := range recipes {
		if r == nil {
			continue
		}
		n := normalize.Name(r.Name)
		if n == "" {
			continue
		}
		i := len(c.entries)
		c.entries = append(c.entries, recipeEntry{recipe: *r, normalized: n, tokens: tokenSet(n)})
		c.byName[n] = append(c.byName[n], i)
		c.byID[r.ID] = i
	}
	return c
}

// Len returns the number of indexed recipes
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Recipe looks up a recipe by id
func (c *Catalog) Recipe(id string) (entity.Recipe, bool) {
	i, ok := c.byID[id]
	if !ok {
		return entity.Recipe{}, false
	}
	return c.entries[i].recipe, true
}

// significantTokens splits a normalized name, keeping tokens longer than two
// characters that are not stop-words
func significantTokens(normalized string) []string {
	var out []string
	for _, tok := range strings.Fields(normalized) {
		if utf8.RuneCountInString(tok) <= 2 || stopWords[tok] {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func tokenSet(normalized string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range significantTokens(normalized) {
		set[tok] = true
	}
	return set
}
