package repository

import (
	"database/sql"

	"github.com/garyjia/sales-insight/internal/application/port"
	"github.com/garyjia/sales-insight/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// Store groups the repositories of one location database behind a shared
// transaction manager
type Store struct {
	*sqlite.TxManager

	imports     *ImportRepository
	categories  *CategoryRepository
	dishes      *DishRepository
	dishData    *DishDataRepository
	recipeSales *RecipeSaleRepository
	exclusions  *ExclusionRepository
	recipes     *RecipeRepository
}

// NewStore wires every repository over db
func NewStore(db *sql.DB, logger *zap.Logger) *Store {
	return &Store{
		TxManager:   sqlite.NewTxManager(db, logger),
		imports:     NewImportRepository(db, logger),
		categories:  NewCategoryRepository(db, logger),
		dishes:      NewDishRepository(db, logger),
		dishData:    NewDishDataRepository(db, logger),
		recipeSales: NewRecipeSaleRepository(db, logger),
		exclusions:  NewExclusionRepository(db, logger),
		recipes:     NewRecipeRepository(db, logger),
	}
}

func (s *Store) Imports() port.ImportRepository         { return s.imports }
func (s *Store) Categories() port.CategoryRepository    { return s.categories }
func (s *Store) Dishes() port.DishRepository            { return s.dishes }
func (s *Store) DishData() port.DishDataRepository      { return s.dishData }
func (s *Store) RecipeSales() port.RecipeSaleRepository { return s.recipeSales }
func (s *Store) Exclusions() port.ExclusionRepository   { return s.exclusions }
func (s *Store) Recipes() port.RecipeRepository         { return s.recipes }

// Verify interface compliance
var _ port.Store = (*Store)(nil)
