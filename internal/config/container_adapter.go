package config

import (
	"github.com/garyjia/sales-insight/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Driver:          c.Database.Driver,
			DataDir:         c.Database.DataDir,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			PoolSize:        c.Database.PoolSize,
			IdleTTL:         c.Database.IdleTTL,
		},
		Storage: container.StorageConfig{
			UploadDir:   c.Storage.UploadDir,
			KeepUploads: c.Storage.KeepUploads,
		},
		Matching: container.MatchingConfig{
			FuzzyThreshold:   c.Matching.FuzzyThreshold,
			AmbiguityMargin:  c.Matching.AmbiguityMargin,
			KeywordMinShared: c.Matching.KeywordMinShared,
		},
		Import: container.ImportConfig{
			StrictMode:     c.Import.StrictMode,
			HeaderScanRows: c.Import.HeaderScanRows,
		},
		Dashboard: container.DashboardConfig{
			TopN: c.Dashboard.TopN,
		},
		Server: container.ServerConfig{
			Host:           c.Server.Host,
			Port:           c.Server.Port,
			ReadTimeout:    c.Server.ReadTimeout,
			WriteTimeout:   c.Server.WriteTimeout,
			MaxUploadBytes: c.Server.MaxUploadBytes,
		},
	}
}
