// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fady17/garagehub-go/internal/application/container"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/logging"
	"github.com/fady17/garagehub-go/internal/infrastructure/observability/performance"
	"github.com/fady17/garagehub-go/internal/infrastructure/persistence/database"
	"github.com/fady17/garagehub-go/internal/presentation/http/server"
	"github.com/fady17/garagehub-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// Initialize performs the complete startup sequence
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println("GarageHub starting...")

	// Step 1: Initialize channeled logging
	logger, err := logging.NewChanneledLogger(logging.DefaultLoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Close()

	perfTracker := performance.NewTracker()
	logger.Startup().Info("Channeled logging initialized")

	// Step 2: Open the database and apply the schema
	logger.Startup().Info("Opening database", "driver", config.DBDriver, "path", config.DBPath)
	db, err := database.NewConnectionWithLogger(config.DBDriver, config.DBPath, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	logger.Startup().Info("Database schema ready")

	// Step 3: Create dependency injection container
	logger.Startup().Info("Initializing dependency injection container...")
	appContainer := container.NewContainer(db, logger, perfTracker)
	logger.Startup().Info("Dependency injection container created with singleton services")

	// Step 4: Start the status broadcaster
	go appContainer.Broadcaster.Run()
	logger.Startup().Info("Session status broadcaster started")

	// Step 5: Connect the session status feed when one is configured,
	// and drive the auth transition coordinator from it.
	if config.StatusFeedURL != "" {
		go func() {
			if err := appContainer.StatusFeed.Run(ctx); err != nil {
				logger.Auth().Warn("Session status feed ended", "error", err.Error())
			}
		}()
		go func() {
			for status := range appContainer.StatusFeed.Updates() {
				appContainer.StatusHolder.Set(status)
				appContainer.Coordinator.HandleStatusChange(ctx, status)
			}
		}()
		logger.Startup().Info("Session status feed connected", "url", config.StatusFeedURL)
	}

	// Step 6: Warm the anonymous session so the first request never
	// pays the init cost.
	warmCtx, cancelWarm := context.WithTimeout(ctx, 10*time.Second)
	if err := appContainer.SessionManager.EnsureInitialized(warmCtx); err != nil {
		logger.Startup().Warn("Anonymous session warmup failed, will retry on demand", "error", err.Error())
	}
	cancelWarm()

	// Step 7: Start HTTP server
	logger.Startup().Info("Starting HTTP server...")
	startServerTime := time.Now()

	port := config.Port
	httpServer := server.New(port, appContainer)

	logger.Startup().Info("HTTP server initialized", "port", port, "duration", time.Since(startServerTime))

	// Step 8: Setup graceful shutdown
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+port)
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	totalStartupTime := time.Since(start)
	logger.Startup().Info("Application startup complete",
		"totalDuration", totalStartupTime,
		"port", port)

	// Wait for shutdown signal
	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")

	shutdownStart := time.Now()

	// Cancel background tasks
	cancelBackgroundTasks()

	// Stop server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Shutdown().Info("Stopping HTTP server...")
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	elapsed := time.Since(start)
	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", elapsed,
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
