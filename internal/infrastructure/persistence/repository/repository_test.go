package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/garyjia/sales-insight/internal/application/port"
	"github.com/garyjia/sales-insight/internal/domain/entity"
	"github.com/garyjia/sales-insight/migrations"
	"github.com/garyjia/sales-insight/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{
		Driver:       database.DriverPure,
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = database.NewMigrator(db, logger).RunMigrations(context.Background(), migrations.FS)
	require.NoError(t, err)

	return NewStore(db.DB, logger)
}

func strPtr(s string) *string { return &s }

func testImport(id, hash string, month int) *entity.SalesImport {
	return &entity.SalesImport{
		ID:          id,
		LocationID:  "loc-1",
		PeriodMonth: month,
		PeriodYear:  2024,
		FileName:    id + ".xlsx",
		FileHash:    hash,
		FileFormat:  "xlsx",
		Status:      entity.ImportStatusCompleted,
	}
}

func testDish(id, name string, period entity.Period) *entity.SalesDish {
	return &entity.SalesDish{
		ID:               id,
		DishName:         name,
		DishNameOriginal: name,
		FirstSeenDate:    period.Date(),
		LastSeenDate:     period.Date(),
	}
}

func TestImportRepository(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	repo := store.Imports()

	imp := testImport("imp-1", "hash-1", 3)
	imp.Covers = 42
	require.NoError(t, repo.Create(ctx, imp))

	t.Run("get by id and hash", func(t *testing.T) {
		got, err := repo.GetByID(ctx, "imp-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 42.0, got.Covers)
		assert.Nil(t, got.CompletedAt)
		assert.WithinDuration(t, imp.CreatedAt, got.CreatedAt, time.Millisecond)

		got, err = repo.GetByHash(ctx, "hash-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "imp-1", got.ID)
	})

	t.Run("missing rows return nil", func(t *testing.T) {
		got, err := repo.GetByID(ctx, "nope")
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("live hash is unique but failed rows are not", func(t *testing.T) {
		assert.Error(t, repo.Create(ctx, testImport("imp-dup", "hash-1", 3)))

		failed := testImport("imp-failed", "hash-1", 3)
		failed.Status = entity.ImportStatusFailed
		require.NoError(t, repo.Create(ctx, failed))

		got, err := repo.GetByHash(ctx, "hash-1")
		require.NoError(t, err)
		assert.Equal(t, "imp-1", got.ID)
	})

	t.Run("update status and completion", func(t *testing.T) {
		now := time.Now().UTC()
		imp.Status = entity.ImportStatusPartial
		imp.ErrorCount = 2
		imp.CompletedAt = &now
		require.NoError(t, repo.Update(ctx, imp))

		got, err := repo.GetByID(ctx, "imp-1")
		require.NoError(t, err)
		assert.Equal(t, entity.ImportStatusPartial, got.Status)
		assert.Equal(t, 2, got.ErrorCount)
		require.NotNil(t, got.CompletedAt)
	})

	t.Run("period and year listings skip failed rows", func(t *testing.T) {
		byPeriod, err := repo.ListByPeriod(ctx, entity.Period{Month: 3, Year: 2024})
		require.NoError(t, err)
		assert.Len(t, byPeriod, 1)

		byYears, err := repo.ListByYears(ctx, 2023, 2024)
		require.NoError(t, err)
		assert.Len(t, byYears, 1)

		all, err := repo.List(ctx, 20, 0)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

func TestDishRepository_ListFilters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	repo := store.Dishes()

	march := entity.Period{Month: 3, Year: 2024}
	may := entity.Period{Month: 5, Year: 2024}

	carbonara := testDish("d1", "carbonara", march)
	carbonara.CategoryGestionale = "Primi"
	carbonara.SetLink(strPtr("r1"), entity.MatchMethodExact, 1)
	require.NoError(t, repo.Create(ctx, carbonara))

	tiramisu := testDish("d2", "tiramisu", may)
	tiramisu.DishNameOriginal = "Tiramisù"
	tiramisu.CategoryGestionale = "Dolci"
	require.NoError(t, repo.Create(ctx, tiramisu))

	acqua := testDish("d3", "acqua", march)
	acqua.IsArchived = true
	require.NoError(t, repo.Create(ctx, acqua))

	assert.Error(t, repo.Create(ctx, testDish("d4", "carbonara", march)), "names are unique")

	yes, no := true, false
	tests := []struct {
		name      string
		filter    port.DishFilter
		wantIDs   []string
		wantTotal int
	}{
		{name: "all newest first", filter: port.DishFilter{}, wantIDs: []string{"d2", "d3", "d1"}, wantTotal: 3},
		{name: "linked", filter: port.DishFilter{Linked: &yes}, wantIDs: []string{"d1"}, wantTotal: 1},
		{name: "unlinked active", filter: port.DishFilter{Linked: &no, Archived: &no}, wantIDs: []string{"d2"}, wantTotal: 1},
		{name: "search original name", filter: port.DishFilter{Search: "Tiramisù"}, wantIDs: []string{"d2"}, wantTotal: 1},
		{name: "category ignores case", filter: port.DishFilter{Category: "primi"}, wantIDs: []string{"d1"}, wantTotal: 1},
		{name: "paged", filter: port.DishFilter{Limit: 1, Offset: 1}, wantIDs: []string{"d3"}, wantTotal: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dishes, total, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)

			var ids []string
			for _, d := range dishes {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}

	got, err := repo.GetByName(ctx, "carbonara")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsLinked)
	assert.Equal(t, "r1", *got.RecipeID)
	assert.Equal(t, entity.MatchMethodExact, got.Method())
	assert.Equal(t, march.Date(), got.FirstSeenDate)
}

func TestDishRepository_NarrowUpdatesKeepTotals(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	repo := store.Dishes()

	dish := testDish("d1", "tiramisu", entity.Period{Month: 1, Year: 2024})
	dish.TotalQuantitySold = 3
	dish.TotalValueGeneratedCents = 1500
	dish.TotalImports = 1
	require.NoError(t, repo.Create(ctx, dish))

	// a stale copy carries outdated totals
	stale, err := repo.GetByID(ctx, "d1")
	require.NoError(t, err)

	dish.TotalQuantitySold = 7
	dish.TotalValueGeneratedCents = 3500
	dish.TotalImports = 2
	require.NoError(t, repo.Update(ctx, dish))

	stale.SetLink(strPtr("r1"), entity.MatchMethodManual, 1)
	require.NoError(t, repo.SetLink(ctx, stale))

	found, err := repo.SetArchived(ctx, "d1", true)
	require.NoError(t, err)
	assert.True(t, found)

	got, err := repo.GetByID(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 7.0, got.TotalQuantitySold)
	assert.Equal(t, int64(3500), got.TotalValueGeneratedCents)
	assert.Equal(t, 2, got.TotalImports)
	assert.True(t, got.IsArchived)
	assert.True(t, got.IsLinked)
	require.NotNil(t, got.RecipeID)
	assert.Equal(t, "r1", *got.RecipeID)
	assert.Equal(t, entity.MatchMethodManual, *got.MatchMethod)

	found, err = repo.SetArchived(ctx, "missing", true)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFacts_ReverseRecomputeAndCascade(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	jan := entity.Period{Month: 1, Year: 2024}
	feb := entity.Period{Month: 2, Year: 2024}

	require.NoError(t, store.Imports().Create(ctx, testImport("imp-jan", "h-jan", 1)))
	require.NoError(t, store.Imports().Create(ctx, testImport("imp-feb", "h-feb", 2)))

	dish := testDish("d1", "carbonara", jan)
	dish.SetLink(strPtr("r1"), entity.MatchMethodManual, 1)
	dish.TotalQuantitySold = 15
	dish.TotalValueGeneratedCents = 18000
	dish.TotalImports = 2
	dish.LastSeenDate = feb.Date()
	require.NoError(t, store.Dishes().Create(ctx, dish))

	require.NoError(t, store.DishData().CreateBatch(ctx, []*entity.SalesDishData{
		{ID: "f1", DishID: "d1", ImportID: "imp-jan", RecipeID: strPtr("r1"), Quantity: 10, TotalValueCents: 12000, PeriodMonth: 1, PeriodYear: 2024},
		{ID: "f2", DishID: "d1", ImportID: "imp-feb", RecipeID: strPtr("r1"), Quantity: 5, TotalValueCents: 6000, PeriodMonth: 2, PeriodYear: 2024},
	}))
	require.NoError(t, store.RecipeSales().CreateBatch(ctx, []*entity.RecipeSale{
		{ID: "rs1", RecipeID: "r1", DishDataID: "f1", ImportID: "imp-jan", Quantity: 10, TotalValueCents: 12000, SaleDate: jan.Date()},
		{ID: "rs2", RecipeID: "r1", DishDataID: "f2", ImportID: "imp-feb", Quantity: 5, TotalValueCents: 6000, SaleDate: feb.Date()},
	}))

	facts, err := store.DishData().ListFacts(ctx, 2024, 2024)
	require.NoError(t, err)
	require.Len(t, facts, 2)
	assert.Equal(t, "carbonara", facts[0].DishName)

	t.Run("reverse subtracts one import", func(t *testing.T) {
		err := store.WithTransaction(ctx, func(ctx context.Context) error {
			if err := store.Dishes().ReverseImport(ctx, "imp-feb"); err != nil {
				return err
			}
			return store.Imports().Delete(ctx, "imp-feb")
		})
		require.NoError(t, err)

		got, err := store.Dishes().GetByID(ctx, "d1")
		require.NoError(t, err)
		assert.Equal(t, 10.0, got.TotalQuantitySold)
		assert.Equal(t, int64(12000), got.TotalValueGeneratedCents)
		assert.Equal(t, 1, got.TotalImports)

		remaining, err := store.DishData().ListByDish(ctx, "d1")
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.Equal(t, "f1", remaining[0].ID)

		sales, err := store.RecipeSales().ListByRecipe(ctx, "r1")
		require.NoError(t, err)
		require.Len(t, sales, 1, "recipe sales cascade with the import")
	})

	t.Run("recompute repairs drift", func(t *testing.T) {
		drifted, err := store.Dishes().GetByID(ctx, "d1")
		require.NoError(t, err)
		drifted.TotalQuantitySold = 999
		drifted.TotalImports = 7
		require.NoError(t, store.Dishes().Update(ctx, drifted))

		n, err := store.Dishes().RecomputeTotals(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		got, err := store.Dishes().GetByID(ctx, "d1")
		require.NoError(t, err)
		assert.Equal(t, 10.0, got.TotalQuantitySold)
		assert.Equal(t, 1, got.TotalImports)
		assert.Equal(t, jan.Date(), got.LastSeenDate)
	})

	t.Run("unlink clears facts and recipe sales", func(t *testing.T) {
		require.NoError(t, store.DishData().SetRecipe(ctx, "d1", nil))
		require.NoError(t, store.RecipeSales().DeleteByDish(ctx, "d1"))

		facts, err := store.DishData().ListByDish(ctx, "d1")
		require.NoError(t, err)
		assert.Nil(t, facts[0].RecipeID)

		sales, err := store.RecipeSales().ListByRecipe(ctx, "r1")
		require.NoError(t, err)
		assert.Empty(t, sales)
	})
}

func TestTransaction_RollsBack(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := store.Imports().Create(ctx, testImport("imp-1", "h1", 1)); err != nil {
			return err
		}
		return store.Imports().Create(ctx, testImport("imp-2", "h1", 2))
	})
	require.Error(t, err)

	got, err := store.Imports().GetByID(ctx, "imp-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestExclusionAndRecipeRepositories(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	word := &entity.ExclusionWord{ID: "w1", Word: "Coperto", WordNormalized: "coperto", Type: entity.ExclusionTypeDish}
	require.NoError(t, store.Exclusions().Create(ctx, word))
	assert.Error(t, store.Exclusions().Create(ctx, &entity.ExclusionWord{
		ID: "w2", Word: "COPERTO", WordNormalized: "coperto", Type: entity.ExclusionTypeDish,
	}))
	require.NoError(t, store.Exclusions().Create(ctx, &entity.ExclusionWord{
		ID: "w3", Word: "coperto", WordNormalized: "coperto", Type: entity.ExclusionTypeCategory,
	}))

	found, err := store.Exclusions().Find(ctx, "coperto", entity.ExclusionTypeDish)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "w1", found.ID)

	words, err := store.Exclusions().List(ctx)
	require.NoError(t, err)
	assert.Len(t, words, 2)

	require.NoError(t, store.Exclusions().Delete(ctx, "w1"))
	gone, err := store.Exclusions().GetByID(ctx, "w1")
	require.NoError(t, err)
	assert.Nil(t, gone)

	require.NoError(t, store.Recipes().Save(ctx, &entity.Recipe{ID: "r2", Name: "Tiramisù"}))
	require.NoError(t, store.Recipes().Save(ctx, &entity.Recipe{ID: "r1", Name: "Carbonara", Category: "Primi"}))
	require.NoError(t, store.Recipes().Save(ctx, &entity.Recipe{ID: "r1", Name: "Spaghetti alla carbonara", Category: "Primi"}))

	recipes, err := store.Recipes().List(ctx)
	require.NoError(t, err)
	require.Len(t, recipes, 2)
	assert.Equal(t, "Spaghetti alla carbonara", recipes[0].Name)

	r, err := store.Recipes().GetByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, r)
}
