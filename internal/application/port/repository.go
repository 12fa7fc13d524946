package port

import (
	"context"

	"github.com/garyjia/sales-insight/internal/domain/entity"
)

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ImportRepository defines persistence operations for SalesImport
type ImportRepository interface {
	Create(ctx context.Context, imp *entity.SalesImport) error
	Update(ctx context.Context, imp *entity.SalesImport) error
	GetByID(ctx context.Context, id string) (*entity.SalesImport, error)

	// GetByHash returns the non-failed import of a file, if any
	GetByHash(ctx context.Context, hash string) (*entity.SalesImport, error)

	// ListByPeriod returns the non-failed imports of one month
	ListByPeriod(ctx context.Context, period entity.Period) ([]*entity.SalesImport, error)

	// ListByYears returns non-failed imports with period_year in [fromYear, toYear]
	ListByYears(ctx context.Context, fromYear, toYear int) ([]*entity.SalesImport, error)

	List(ctx context.Context, limit, offset int) ([]*entity.SalesImport, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id string) error
}

// CategoryRepository defines persistence operations for SalesCategory
type CategoryRepository interface {
	CreateBatch(ctx context.Context, categories []*entity.SalesCategory) error
	ListByImport(ctx context.Context, importID string) ([]*entity.SalesCategory, error)
}

// DishFilter narrows a catalog listing. Nil pointers mean "any".
type DishFilter struct {
	Linked   *bool
	Archived *bool
	Search   string
	Category string
	Limit    int // 0 lists everything
	Offset   int
}

// DishRepository defines persistence operations for the SalesDish catalog
type DishRepository interface {
	Create(ctx context.Context, dish *entity.SalesDish) error
	Update(ctx context.Context, dish *entity.SalesDish) error
	GetByID(ctx context.Context, id string) (*entity.SalesDish, error)
	GetByName(ctx context.Context, normalizedName string) (*entity.SalesDish, error)

	// SetLink writes only the recipe link columns, leaving totals untouched
	SetLink(ctx context.Context, dish *entity.SalesDish) error

	// SetArchived writes only the archive flag. It reports false when no
	// dish has the id.
	SetArchived(ctx context.Context, id string, archived bool) (bool, error)

	List(ctx context.Context, filter DishFilter) ([]*entity.SalesDish, int, error)

	// ReverseImport subtracts an import's facts from the cumulative totals
	ReverseImport(ctx context.Context, importID string) error

	// RecomputeTotals rebuilds cumulative totals from facts and returns the
	// number of dishes touched
	RecomputeTotals(ctx context.Context) (int64, error)
}

// DishDataRepository defines persistence operations for SalesDishData facts
type DishDataRepository interface {
	CreateBatch(ctx context.Context, facts []*entity.SalesDishData) error
	ListByDish(ctx context.Context, dishID string) ([]*entity.SalesDishData, error)

	// SetRecipe rewrites the denormalized recipe id of every fact of a dish
	SetRecipe(ctx context.Context, dishID string, recipeID *string) error

	// ListFacts joins facts with their dish for period_year in [fromYear, toYear]
	ListFacts(ctx context.Context, fromYear, toYear int) ([]entity.DishFact, error)
}

// RecipeSaleRepository defines persistence operations for RecipeSale
type RecipeSaleRepository interface {
	CreateBatch(ctx context.Context, sales []*entity.RecipeSale) error
	DeleteByDish(ctx context.Context, dishID string) error
	ListByRecipe(ctx context.Context, recipeID string) ([]*entity.RecipeSale, error)
}

// ExclusionRepository defines persistence operations for ExclusionWord
type ExclusionRepository interface {
	Create(ctx context.Context, word *entity.ExclusionWord) error
	GetByID(ctx context.Context, id string) (*entity.ExclusionWord, error)
	Find(ctx context.Context, normalized, wordType string) (*entity.ExclusionWord, error)
	List(ctx context.Context) ([]*entity.ExclusionWord, error)
	Delete(ctx context.Context, id string) error
}

// RecipeRepository reads the recipe catalog used for matching
type RecipeRepository interface {
	Save(ctx context.Context, recipe *entity.Recipe) error
	GetByID(ctx context.Context, id string) (*entity.Recipe, error)
	List(ctx context.Context) ([]*entity.Recipe, error)
}

// Store bundles the repositories of one location database
type Store interface {
	TransactionManager
	Imports() ImportRepository
	Categories() CategoryRepository
	Dishes() DishRepository
	DishData() DishDataRepository
	RecipeSales() RecipeSaleRepository
	Exclusions() ExclusionRepository
	Recipes() RecipeRepository
}

// StoreProvider hands out location stores. The release func must be called
// once the request is done with the store.
type StoreProvider interface {
	Acquire(ctx context.Context, locationID string) (Store, func(), error)

	// LockImports serializes imports of one location; call the returned func
	// to unlock
	LockImports(locationID string) func()
}
