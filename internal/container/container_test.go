package container

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/garyjia/sales-insight/internal/application/service"
	"github.com/garyjia/sales-insight/pkg/database"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Database.Driver = database.DriverPure
	cfg.Database.DataDir = filepath.Join(t.TempDir(), "locations")
	cfg.Storage.UploadDir = filepath.Join(t.TempDir(), "uploads")
	return cfg
}

func TestNewContainer_Validation(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(DefaultConfig(), nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Database.DataDir = ""
	_, err = NewContainer(cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.data_dir")
}

func TestContainer_Lifecycle(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.KeepUploads = true

	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)

	health := c.Health()
	assert.False(t, health.Overall)
	assert.False(t, c.Ready())

	require.NoError(t, c.Start(context.Background()))
	assert.True(t, c.Ready())
	assert.Error(t, c.Start(context.Background()), "second start")

	require.NotNil(t, c.Services())
	assert.NotNil(t, c.Services().Imports)
	assert.NotNil(t, c.Services().Dishes)
	assert.NotNil(t, c.Services().Exclusions)
	assert.NotNil(t, c.Services().Dashboard)
	assert.NotNil(t, c.FileStorage())

	// touching a location opens its database
	words, err := c.Services().Exclusions.ListWords(context.Background(), "trattoria-1")
	require.NoError(t, err)
	assert.Empty(t, words)
	assert.Equal(t, 1, c.Pool().Len())

	healthy, details := c.HealthCheck(context.Background())
	assert.True(t, healthy)
	components, ok := details.(map[string]ComponentHealth)
	require.True(t, ok)
	assert.Contains(t, components["database"].Message, "driver: sqlite")
	assert.Contains(t, components["database"].Message, "open locations: 1")
	assert.Contains(t, components["storage"].Message, "archiving to")

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close(), "second close")
	assert.Error(t, c.Start(context.Background()), "start after close")
	assert.False(t, c.Health().Overall)
}

func TestContainer_UploadsNotKept(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	assert.Nil(t, c.FileStorage())
	assert.Equal(t, "uploads not archived", c.Health().Components["storage"].Message)
}

func TestZapLoggerAdapter(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	var logger service.Logger = &zapLoggerAdapter{logger: zap.New(core)}

	logger.Info("Import completed", "import_id", "imp-1", "rows", 12, 42, "ignored")
	logger.Error("Import failed", "error", errors.New("boom"))

	entries := logs.All()
	require.Len(t, entries, 2)

	info := entries[0].ContextMap()
	assert.Equal(t, "imp-1", info["import_id"])
	assert.EqualValues(t, 12, info["rows"])
	assert.Len(t, info, 2)

	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}
