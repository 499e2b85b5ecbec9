// Package main is the entry point for the fundoverlap service.
// It serves fund holdings overlap analysis over HTTP and keeps ETF holdings
// snapshots fresh in the background.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/fundoverlap/internal/config"
	"github.com/aristath/fundoverlap/internal/di"
	"github.com/aristath/fundoverlap/internal/scheduler"
	"github.com/aristath/fundoverlap/internal/server"
	"github.com/aristath/fundoverlap/pkg/logger"
)

// main is the application entry point. Startup sequence:
// 1. Loads configuration from environment variables (.env supported)
// 2. Initializes logging
// 3. Wires databases, repositories, clients, services and jobs
// 4. Starts the job scheduler and the HTTP server
// 5. Waits for SIGINT/SIGTERM and shuts down gracefully
//
// Two SQLite databases live under the data directory:
// - catalog.db: funds, holdings snapshots, security sectors
// - client_data.db: cached Alpha Vantage responses (safe to delete)
func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("match_mode", cfg.MatchMode).
		Dur("resolve_timeout", cfg.ResolveTimeout).
		Msg("Starting fundoverlap")

	sched := scheduler.New(log)

	container, jobs, err := di.Wire(cfg, log, sched)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	// Closing flushes WAL checkpoints
	defer container.Close()

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Container: container,
		Jobs:      jobs,
		Scheduler: sched,
	})

	sched.Start()
	log.Info().Msg("Scheduler started")

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Waits for a running job to finish
	sched.Stop()
	log.Info().Msg("Scheduler stopped")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
