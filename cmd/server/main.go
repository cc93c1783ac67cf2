package main

// Package main is the entry point for the assetpulse-core server.
//
// Responsibilities:
//   - Load and validate configuration from YAML and environment variables
//   - Open the SQLite store and run schema migrations
//   - Start the operational journal and structured application logger
//   - Start the REST API server with the ingest, calibration, and query endpoints
//   - Start the WebSocket handler for live report and event streaming
//   - Optionally run the embedded sensor simulator for demo deployments
//   - Implement graceful shutdown with context cancellation
//
// Data Flow:
//   1. Sensor readings arrive via POST /api/v1/readings (or the simulator)
//   2. Each reading is persisted, then scored against the asset's baseline
//   3. Health reports and debounced condition events are persisted and
//      pushed to WebSocket subscribers
//   4. Calibration (POST /api/v1/assets/{id}/calibrate) rebuilds the
//      baseline from accumulated healthy history
//
// Graceful Shutdown:
//   - Drains in-flight HTTP requests
//   - Stops the simulator loop
//   - Disconnects WebSocket clients
//   - Flushes and closes the journal

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/assetpulse/assetpulse-core/internal/config"
	"github.com/assetpulse/assetpulse-core/internal/db"
	"github.com/assetpulse/assetpulse-core/internal/journal"
	"github.com/assetpulse/assetpulse-core/internal/server"
)

func main() {
	configPath := os.Getenv("ASSETPULSE_CONFIG")
	if configPath == "" {
		configPath = "/etc/assetpulse/config.yaml"
	}

	// Load configuration
	ctx := context.Background()
	mgr, err := config.NewConfigManager(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create config manager: %v\n", err)
		os.Exit(1)
	}
	if err := mgr.Load(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := mgr.Validate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := mgr.Get(ctx)

	// Open persistence
	store, err := db.NewSQLiteStore(cfg.Database.SQLitePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// Start the operational journal
	jcfg := journal.DefaultConfig()
	jcfg.JournalPath = cfg.Logging.JournalPath
	jcfg.AppLogPath = cfg.Logging.AppLogPath
	jcfg.LogLevel = cfg.Logging.Level
	jnl, err := journal.NewJournal(jcfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start journal: %v\n", err)
		os.Exit(1)
	}
	defer jnl.Close()

	// Create server with all components wired together
	srv, err := server.NewServer(cfg, store, jnl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create server: %v\n", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Wait for shutdown signal (Ctrl+C or SIGTERM)
	<-sigChan
	fmt.Println("\nReceived shutdown signal...")

	if err := srv.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "Error stopping server: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Shutdown complete")
}
