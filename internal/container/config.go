// Package container provides dependency injection and lifecycle management
// for the sales insight service.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Upload archive configuration
	Storage StorageConfig

	// Matching thresholds
	Matching MatchingConfig

	// Import defaults
	Import ImportConfig

	// Dashboard defaults
	Dashboard DashboardConfig

	// Server configuration
	Server ServerConfig
}

// DatabaseConfig holds the per-location database settings.
type DatabaseConfig struct {
	// Driver is sqlite3 (cgo) or sqlite (pure Go)
	Driver string

	// DataDir holds one database file per location
	DataDir string

	// MaxOpenConns is the maximum number of open connections per location
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections per location
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// PoolSize caps the number of open location databases
	PoolSize int

	// IdleTTL closes a location database after this much inactivity
	IdleTTL time.Duration
}

// StorageConfig holds upload archive settings.
type StorageConfig struct {
	// UploadDir is the base directory for archived uploads
	UploadDir string

	// KeepUploads archives every imported file
	KeepUploads bool
}

// MatchingConfig holds dish to recipe matching settings.
type MatchingConfig struct {
	FuzzyThreshold   float64
	AmbiguityMargin  float64
	KeywordMinShared int
}

// ImportConfig holds import settings.
type ImportConfig struct {
	// StrictMode rejects imports with validation errors unless the request overrides it
	StrictMode bool

	// HeaderScanRows is how deep a sheet is searched for a header row
	HeaderScanRows int
}

// DashboardConfig holds dashboard settings.
type DashboardConfig struct {
	TopN int
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind to
	Host string

	// Port to listen on
	Port int

	// ReadTimeout for HTTP server
	ReadTimeout time.Duration

	// WriteTimeout for HTTP server
	WriteTimeout time.Duration

	// MaxUploadBytes limits spreadsheet uploads
	MaxUploadBytes int64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "sqlite3",
			DataDir:         "data/locations",
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			PoolSize:        32,
			IdleTTL:         15 * time.Minute,
		},
		Storage: StorageConfig{
			UploadDir: "data/uploads",
		},
		Matching: MatchingConfig{
			FuzzyThreshold:   0.8,
			AmbiguityMargin:  0.05,
			KeywordMinShared: 2,
		},
		Import: ImportConfig{
			HeaderScanRows: 20,
		},
		Dashboard: DashboardConfig{
			TopN: 10,
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
			MaxUploadBytes: 20 << 20,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.DataDir == "" {
		return fmt.Errorf("database.data_dir is required")
	}

	if c.Storage.KeepUploads && c.Storage.UploadDir == "" {
		return fmt.Errorf("storage.upload_dir is required")
	}

	return nil
}
