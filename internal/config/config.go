package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Import    ImportConfig    `mapstructure:"import"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

// DatabaseConfig holds the per-location SQLite settings
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DataDir         string        `mapstructure:"data_dir"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	PoolSize        int           `mapstructure:"pool_size"`
	IdleTTL         time.Duration `mapstructure:"idle_ttl"`
}

// StorageConfig holds upload archive settings
type StorageConfig struct {
	UploadDir   string `mapstructure:"upload_dir"`
	KeepUploads bool   `mapstructure:"keep_uploads"`
}

// MatchingConfig holds the dish to recipe matching thresholds
type MatchingConfig struct {
	FuzzyThreshold   float64 `mapstructure:"fuzzy_threshold"`
	AmbiguityMargin  float64 `mapstructure:"ambiguity_margin"`
	KeywordMinShared int     `mapstructure:"keyword_min_shared"`
}

// ImportConfig holds import defaults
type ImportConfig struct {
	StrictMode     bool `mapstructure:"strict_mode"`
	HeaderScanRows int  `mapstructure:"header_scan_rows"`
}

// DashboardConfig holds dashboard defaults
type DashboardConfig struct {
	TopN int `mapstructure:"top_n"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
	Sampling   bool   `mapstructure:"sampling"`
}

// LoadDotEnv loads variables from a .env file into the process environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := gotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load loads configuration from file and environment variables.
// An empty configPath uses defaults and environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(configPath); !errors.Is(statErr, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Override with environment variables
	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.max_upload_bytes", 20<<20)

	// Database defaults
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.data_dir", "data/locations")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.pool_size", 32)
	v.SetDefault("database.idle_ttl", 15*time.Minute)

	// Storage defaults
	v.SetDefault("storage.upload_dir", "data/uploads")
	v.SetDefault("storage.keep_uploads", false)

	// Matching defaults
	v.SetDefault("matching.fuzzy_threshold", 0.8)
	v.SetDefault("matching.ambiguity_margin", 0.05)
	v.SetDefault("matching.keyword_min_shared", 2)

	// Import defaults
	v.SetDefault("import.strict_mode", false)
	v.SetDefault("import.header_scan_rows", 20)

	v.SetDefault("dashboard.top_n", 10)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.sampling", false)
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"database.data_dir":  "SALES_DATA_DIR",
		"database.driver":    "SALES_DB_DRIVER",
		"storage.upload_dir": "SALES_UPLOAD_DIR",
		"server.port":        "SALES_SERVER_PORT",
		"logger.level":       "SALES_LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}

	switch c.Database.Driver {
	case "sqlite3", "sqlite":
	default:
		return fmt.Errorf("database.driver must be sqlite3 or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.DataDir == "" {
		return fmt.Errorf("database.data_dir is required")
	}
	if c.Database.PoolSize < 0 {
		return fmt.Errorf("database.pool_size must not be negative")
	}

	if c.Storage.KeepUploads && c.Storage.UploadDir == "" {
		return fmt.Errorf("storage.upload_dir is required when keep_uploads is set")
	}

	if c.Matching.FuzzyThreshold <= 0 || c.Matching.FuzzyThreshold > 1 {
		return fmt.Errorf("matching.fuzzy_threshold must be in (0, 1]")
	}
	if c.Matching.AmbiguityMargin < 0 {
		return fmt.Errorf("matching.ambiguity_margin must not be negative")
	}

	if c.Dashboard.TopN <= 0 || c.Dashboard.TopN > 50 {
		return fmt.Errorf("dashboard.top_n must be between 1 and 50")
	}

	return nil
}
