package service

import (
	"context"
	"testing"

	"github.com/garyjia/sales-insight/internal/application/port"
	"github.com/garyjia/sales-insight/internal/domain/entity"
	"github.com/garyjia/sales-insight/internal/infrastructure/persistence/pool"
	"github.com/garyjia/sales-insight/internal/matching"
	"github.com/garyjia/sales-insight/migrations"
	"github.com/garyjia/sales-insight/pkg/database"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testLocation = "trattoria-1"

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockExtractor struct {
	extractFunc func(data []byte, fileName string) (*entity.ExtractionResult, error)
}

func (m *mockExtractor) Extract(data []byte, fileName string) (*entity.ExtractionResult, error) {
	if m.extractFunc != nil {
		return m.extractFunc(data, fileName)
	}
	return nil, nil
}

type mockFileStorage struct {
	saveFunc func(ctx context.Context, path string, content []byte) error
}

func (m *mockFileStorage) Save(ctx context.Context, path string, content []byte) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, path, content)
	}
	return nil
}

func (m *mockFileStorage) Read(ctx context.Context, path string) ([]byte, error) {
	return nil, nil
}

func (m *mockFileStorage) Exists(ctx context.Context, path string) bool {
	return false
}

func (m *mockFileStorage) Delete(ctx context.Context, path string) error {
	return nil
}

func (m *mockFileStorage) GetFullPath(relativePath string) string {
	return relativePath
}

func newTestPool(t *testing.T) *pool.Pool {
	t.Helper()
	p, err := pool.New(pool.Config{
		Driver:  database.DriverPure,
		DataDir: t.TempDir(),
	}, migrations.FS, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// acquire returns the test location store, released when the test ends
func acquire(t *testing.T, p *pool.Pool) port.Store {
	t.Helper()
	store, release, err := p.Acquire(context.Background(), testLocation)
	require.NoError(t, err)
	t.Cleanup(release)
	return store
}

func seedRecipes(t *testing.T, store port.Store, recipes ...*entity.Recipe) {
	t.Helper()
	for _, r := range recipes {
		require.NoError(t, store.Recipes().Save(context.Background(), r))
	}
}

func testMatcher() Matcher {
	return matching.DefaultChain(matching.DefaultConfig())
}

func row(n int, name, category string, qty, value float64) entity.DetailRow {
	r := entity.DetailRow{
		RowNumber:   n,
		DishName:    name,
		Category:    category,
		Quantity:    qty,
		TotalValue:  value,
		RawQuantity: qty,
		RawValue:    value,
	}
	if qty > 0 {
		r.UnitPrice = value / qty
	}
	return r
}

// extraction builds an extraction result whose summary rolls up the detail
func extraction(hash string, rows ...entity.DetailRow) *entity.ExtractionResult {
	result := &entity.ExtractionResult{
		Summary: []entity.SummaryRow{},
		Detail:  rows,
		Metadata: entity.ExtractionMetadata{
			FileName:       hash + ".xlsx",
			FileHash:       hash,
			DetectedFormat: "xlsx",
			SheetNames:     []string{"Vendite"},
			SheetUsed:      "Vendite",
			HeaderRow:      1,
			SummaryDerived: true,
		},
	}
	index := map[string]int{}
	for _, r := range rows {
		i, ok := index[r.Category]
		if !ok {
			i = len(result.Summary)
			index[r.Category] = i
			result.Summary = append(result.Summary, entity.SummaryRow{RowNumber: r.RowNumber, Category: r.Category})
		}
		result.Summary[i].Quantity += r.Quantity
		result.Summary[i].TotalValue += r.TotalValue
	}
	return result
}

// extractorFor returns a mock extractor mapping file names to results
func extractorFor(results map[string]*entity.ExtractionResult) *mockExtractor {
	return &mockExtractor{
		extractFunc: func(data []byte, fileName string) (*entity.ExtractionResult, error) {
			return results[fileName], nil
		},
	}
}

func upload(name string) Upload {
	return Upload{FileName: name, Data: []byte("content of " + name)}
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

// testPoolStore keeps the pool for services and one held store for assertions
type testPoolStore struct {
	pool  *pool.Pool
	store port.Store
}

// hookedStores hands out stores whose dish repository calls beforeArchive
// ahead of every archive write
type hookedStores struct {
	port.StoreProvider
	beforeArchive func()
}

func (h *hookedStores) Acquire(ctx context.Context, locationID string) (port.Store, func(), error) {
	store, release, err := h.StoreProvider.Acquire(ctx, locationID)
	if err != nil {
		return nil, nil, err
	}
	return &hookedStore{Store: store, beforeArchive: h.beforeArchive}, release, nil
}

type hookedStore struct {
	port.Store
	beforeArchive func()
}

func (s *hookedStore) Dishes() port.DishRepository {
	return &hookedDishes{DishRepository: s.Store.Dishes(), beforeArchive: s.beforeArchive}
}

type hookedDishes struct {
	port.DishRepository
	beforeArchive func()
}

func (d *hookedDishes) SetArchived(ctx context.Context, id string, archived bool) (bool, error) {
	if d.beforeArchive != nil {
		d.beforeArchive()
	}
	return d.DishRepository.SetArchived(ctx, id, archived)
}
