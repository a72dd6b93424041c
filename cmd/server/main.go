/*
main.go - Application entry point

PURPOSE:
  Starts the leave tracker API. Handles configuration, dependency
  injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (defaults, config/leave-tracker.yaml, LEAVE_* env)
  2. Initialize logger
  3. Open the configured store (sqlite or memory)
  4. Build service, scheduler, handler and router
  5. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the status scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  # Run with file database
  LEAVE_STORAGE_PATH=./data/leave.db ./server

  # Run fully in memory
  LEAVE_STORAGE_DRIVER=memory ./server

  # Enable the scheduler with completion of ended requests
  LEAVE_SCHEDULER_ENABLED=true LEAVE_SCHEDULER_AUTO_COMPLETE=true ./server

SEE ALSO:
  - config/config.go: all settings
  - api/server.go: router configuration
*/
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/leave-tracker/api"
	"github.com/warp/leave-tracker/config"
	"github.com/warp/leave-tracker/logger"
	"github.com/warp/leave-tracker/store/sqlite"
	"github.com/warp/leave-tracker/tracker"
	"github.com/warp/leave-tracker/tracker/store"
)

const serviceName = "leave-tracker"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		logger.New(serviceName, config.EnvProduction).Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.New(serviceName, cfg.Server.Environment)

	data, audit, closeStore, err := openStore(cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("failed to initialize store")
	}
	defer closeStore()

	svc := tracker.NewService(data, audit, log)

	if drifts, err := svc.VerifyLedgers(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to read dataset")
	} else if len(drifts) > 0 {
		log.Warn().Int("entries", len(drifts)).Msg("ledger drift present; POST /api/admin/rebuild to repair")
	}

	scheduler := api.NewStatusScheduler(svc, log)
	scheduler.Enabled = cfg.Scheduler.Enabled
	scheduler.CheckInterval = cfg.Scheduler.Interval
	scheduler.AutoComplete = cfg.Scheduler.AutoComplete
	scheduler.Start()

	handler := api.NewHandler(svc, scheduler, log)
	router := api.NewRouter(handler, cfg.CORS.AllowedOrigins)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("storage", cfg.Storage.Driver).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// openStore builds the configured DataStore and AuditLog.
func openStore(cfg config.StorageConfig) (tracker.DataStore, tracker.AuditLog, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return store.NewMemory(), store.NewMemoryAudit(), func() {}, nil
	default:
		st, err := sqlite.New(cfg.Path, cfg.Key)
		if err != nil {
			return nil, nil, nil, err
		}
		return st, st, func() { st.Close() }, nil
	}
}
