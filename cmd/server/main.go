package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/sales-insight/internal/config"
	"github.com/garyjia/sales-insight/internal/container"
	httpserver "github.com/garyjia/sales-insight/internal/interfaces/http"
	"github.com/garyjia/sales-insight/pkg/utils"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	// Environment from .env, if present
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}

	configPath := os.Getenv("SALES_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		Service:    "sales-insight",
		Sampling:   cfg.Logger.Sampling,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting sales insight service",
		zap.String("config", configPath),
		zap.Int("port", cfg.Server.Port),
		zap.String("db_driver", cfg.Database.Driver))

	// Initialize container
	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := c.Start(ctx); err != nil {
		logger.Fatal("Failed to start container", zap.Error(err))
	}

	services := c.Services()
	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Host:           cfg.Server.Host,
			Port:           cfg.Server.Port,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
		},
		httpserver.Services{
			Imports:    services.Imports,
			Dishes:     services.Dishes,
			Exclusions: services.Exclusions,
			Dashboard:  services.Dashboard,
		},
		c.HealthCheck,
		c.ServiceLogger(),
	)

	// Serve until SIGINT/SIGTERM, then shut down gracefully
	serverErr := server.Start(ctx)
	if serverErr != nil {
		logger.Error("HTTP server failed", zap.Error(serverErr))
	}

	logger.Info("Shutting down...")

	done := make(chan struct{})
	go func() {
		if err := c.Close(); err != nil {
			logger.Error("Container forced to close", zap.Error(err))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		logger.Error("Shutdown timed out")
	}

	logger.Info("Server exited")
	if serverErr != nil {
		os.Exit(1)
	}
}
