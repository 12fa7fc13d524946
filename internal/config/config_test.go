package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(20<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Database.IdleTTL)
	assert.Equal(t, 0.8, cfg.Matching.FuzzyThreshold)
	assert.Equal(t, 20, cfg.Import.HeaderScanRows)
	assert.Equal(t, 10, cfg.Dashboard.TopN)
	assert.False(t, cfg.Storage.KeepUploads)
	assert.False(t, cfg.Logger.Sampling)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
server:
  port: 9090
database:
  driver: sqlite
  data_dir: /srv/locations
  idle_ttl: 2m
storage:
  upload_dir: /srv/uploads
  keep_uploads: true
import:
  strict_mode: true
dashboard:
  top_n: 25
logger:
  sampling: true
`)

	t.Setenv("SALES_SERVER_PORT", "9191")
	t.Setenv("SALES_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("SALES_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.Database.DataDir)
	assert.Equal(t, 2*time.Minute, cfg.Database.IdleTTL)
	assert.True(t, cfg.Storage.KeepUploads)
	assert.Equal(t, "/srv/uploads", cfg.Storage.UploadDir)
	assert.True(t, cfg.Import.StrictMode)
	assert.Equal(t, 25, cfg.Dashboard.TopN)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.True(t, cfg.Logger.Sampling)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "server: [unclosed")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad driver", func(c *Config) { c.Database.Driver = "postgres" }, "database.driver"},
		{"no data dir", func(c *Config) { c.Database.DataDir = "" }, "database.data_dir"},
		{"keep uploads without dir", func(c *Config) {
			c.Storage.KeepUploads = true
			c.Storage.UploadDir = ""
		}, "storage.upload_dir"},
		{"fuzzy threshold above one", func(c *Config) { c.Matching.FuzzyThreshold = 1.5 }, "matching.fuzzy_threshold"},
		{"top n too large", func(c *Config) { c.Dashboard.TopN = 51 }, "dashboard.top_n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("sets variables", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), ".env", "SALES_DB_DRIVER=sqlite\n")
		t.Setenv("SALES_DB_DRIVER", "")
		require.NoError(t, os.Unsetenv("SALES_DB_DRIVER"))

		require.NoError(t, LoadDotEnv(path))
		assert.Equal(t, "sqlite", os.Getenv("SALES_DB_DRIVER"))

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "sqlite", cfg.Database.Driver)
	})
}

func TestToContainerConfig(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Storage.KeepUploads = true
	cfg.Matching.KeywordMinShared = 3

	cc := cfg.ToContainerConfig()
	assert.Equal(t, cfg.Database.DataDir, cc.Database.DataDir)
	assert.Equal(t, cfg.Database.PoolSize, cc.Database.PoolSize)
	assert.True(t, cc.Storage.KeepUploads)
	assert.Equal(t, 3, cc.Matching.KeywordMinShared)
	assert.Equal(t, cfg.Server.MaxUploadBytes, cc.Server.MaxUploadBytes)
	assert.NoError(t, cc.Validate())
}
