package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/sales-insight/internal/application/port"
	"github.com/garyjia/sales-insight/internal/application/service"
	"github.com/garyjia/sales-insight/internal/infrastructure/persistence/pool"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in order and torn down in reverse order.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure
	pool        *pool.Pool
	fileStorage port.FileStorage

	// Application
	services *ServiceBundle

	// Lifecycle
	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Imports    service.ImportService
	Dishes     service.DishService
	Exclusions service.ExclusionService
	Dashboard  service.DashboardService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components.
// Components are initialized in dependency order:
// 1. Location database pool
// 2. Upload storage
// 3. Application services
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	// Step 1: Initialize the location pool
	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Location pool initialized",
		zap.String("driver", c.pool.Driver()),
		zap.String("data_dir", c.config.Database.DataDir))

	// Step 2: Initialize storage
	c.initStorage()
	c.logger.Info("Storage initialized", zap.Bool("keep_uploads", c.fileStorage != nil))

	// Step 3: Initialize application services
	if err := c.initServices(); err != nil {
		c.pool.Close()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	// Services and storage hold no resources of their own

	if c.pool != nil {
		if err := c.pool.Close(); err != nil {
			c.logger.Error("Failed to close location pool", zap.Error(err))
			errs = append(errs, fmt.Errorf("close pool: %w", err))
		} else {
			c.logger.Info("Location pool closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	if c.pool != nil && !c.closed.Load() {
		status.Components["database"] = ComponentHealth{
			Healthy: true,
			Message: fmt.Sprintf("driver: %s, open locations: %d", c.pool.Driver(), c.pool.Len()),
		}
	} else {
		status.Components["database"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	if c.services != nil {
		status.Components["services"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["services"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	storageMsg := "uploads not archived"
	if c.fileStorage != nil {
		storageMsg = "archiving to " + c.config.Storage.UploadDir
	}
	status.Components["storage"] = ComponentHealth{Healthy: true, Message: storageMsg}

	return status
}

// HealthCheck adapts Health to the HTTP health endpoint.
func (c *Container) HealthCheck(ctx context.Context) (bool, interface{}) {
	status := c.Health()
	return status.Overall, status.Components
}

// initDatabase creates the per-location pool.
func (c *Container) initDatabase() error {
	p, err := ProvidePool(&c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.pool = p
	return nil
}

// initStorage creates the upload archive when configured.
func (c *Container) initStorage() {
	c.fileStorage = ProvideFileStorage(&c.config.Storage, c.logger)
}

// initServices creates the application services.
func (c *Container) initServices() error {
	services, err := ProvideServices(c.config, c.pool, c.fileStorage, c.logger)
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

// Pool returns the location database pool.
func (c *Container) Pool() *pool.Pool {
	return c.pool
}

// FileStorage returns the upload archive, nil when disabled.
func (c *Container) FileStorage() port.FileStorage {
	return c.fileStorage
}

// Services returns the application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// ServiceLogger returns the key-value logger used by services and adapters.
func (c *Container) ServiceLogger() service.Logger {
	return &zapLoggerAdapter{logger: c.logger}
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}

// zapLoggerAdapter adapts zap.Logger to the service.Logger interface.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	fields := convertToZapFields(keysAndValues...)
	a.logger.Info(msg, fields...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	fields := convertToZapFields(keysAndValues...)
	a.logger.Error(msg, fields...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
