package container

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/sales-insight/internal/application/port"
	"github.com/garyjia/sales-insight/internal/application/service"
	"github.com/garyjia/sales-insight/internal/infrastructure/persistence/pool"
	"github.com/garyjia/sales-insight/internal/infrastructure/storage"
	"github.com/garyjia/sales-insight/internal/matching"
	"github.com/garyjia/sales-insight/internal/spreadsheet"
	"github.com/garyjia/sales-insight/migrations"
)

// ProvidePool creates the per-location database pool.
// Location databases are opened and migrated lazily on first use.
func ProvidePool(cfg *DatabaseConfig, logger *zap.Logger) (*pool.Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	p, err := pool.New(pool.Config{
		Driver:          cfg.Driver,
		DataDir:         cfg.DataDir,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		Size:            cfg.PoolSize,
		IdleTTL:         cfg.IdleTTL,
	}, migrations.FS, logger.Named("pool"))
	if err != nil {
		return nil, fmt.Errorf("failed to create location pool: %w", err)
	}
	return p, nil
}

// ProvideFileStorage creates the upload archive.
// Returns nil when uploads are not kept.
func ProvideFileStorage(cfg *StorageConfig, logger *zap.Logger) port.FileStorage {
	if cfg == nil || !cfg.KeepUploads {
		return nil
	}
	return storage.NewLocalFileStorage(cfg.UploadDir, logger.Named("storage"))
}

// ProvideExtractor creates the spreadsheet extractor.
func ProvideExtractor(cfg *ImportConfig, logger *zap.Logger) *spreadsheet.Extractor {
	return spreadsheet.NewExtractor(spreadsheet.Config{
		HeaderScanRows: cfg.HeaderScanRows,
	}, logger.Named("spreadsheet"))
}

// ProvideMatcher creates the matching chain.
func ProvideMatcher(cfg *MatchingConfig) *matching.Chain {
	return matching.DefaultChain(matching.Config{
		FuzzyThreshold:   cfg.FuzzyThreshold,
		AmbiguityMargin:  cfg.AmbiguityMargin,
		KeywordMinShared: cfg.KeywordMinShared,
	})
}

// ProvideServices creates all application services on top of the pool.
func ProvideServices(
	cfg *Config,
	stores port.StoreProvider,
	files port.FileStorage,
	logger *zap.Logger,
) (*ServiceBundle, error) {
	if stores == nil {
		return nil, fmt.Errorf("store provider is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	svcLogger := &zapLoggerAdapter{logger: logger}

	return &ServiceBundle{
		Imports: service.NewImportService(
			stores,
			ProvideExtractor(&cfg.Import, logger),
			ProvideMatcher(&cfg.Matching),
			files,
			service.ImportConfig{
				StrictMode:  cfg.Import.StrictMode,
				KeepUploads: cfg.Storage.KeepUploads,
			},
			svcLogger,
		),
		Dishes:     service.NewDishService(stores, svcLogger),
		Exclusions: service.NewExclusionService(stores, svcLogger),
		Dashboard:  service.NewDashboardService(stores, cfg.Dashboard.TopN, svcLogger),
	}, nil
}
