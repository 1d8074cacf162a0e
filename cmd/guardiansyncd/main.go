package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/guardiansync/internal/adapter/driven/partnerdb"
	"github.com/ericfisherdev/guardiansync/internal/adapter/driven/sankhya"
	sqliteadapter "github.com/ericfisherdev/guardiansync/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/guardiansync/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/guardiansync/internal/adapter/driving/web"
	"github.com/ericfisherdev/guardiansync/internal/application"
	"github.com/ericfisherdev/guardiansync/internal/config"
	"github.com/ericfisherdev/guardiansync/internal/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	envFile := flag.String("env", config.EnvFile(), "dotenv file holding credentials")
	flag.Parse()

	// 1. Load configuration (fail fast on missing required keys).
	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	logger := logging.Setup(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	logger.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"history_db", cfg.HistoryDBPath,
		"api_base_url", cfg.APIBaseURL,
		"db_driver", cfg.DBDriver,
		"dest_table", cfg.DestTable,
		"schedule", cfg.Schedule,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open run history database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.HistoryDBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("error closing history database", "error", closeErr)
		}
	}()

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	logger.Info("history database ready", "path", db.Path())

	// 5. Wire adapters and the sync service.
	runStore := sqliteadapter.NewRunRepo(db)
	interrupted, err := runStore.FailInterrupted(ctx, time.Now())
	if err != nil {
		return err
	}
	if interrupted > 0 {
		logger.Warn("runs interrupted by a previous shutdown marked failed", "count", interrupted)
	}
	erp := sankhya.NewClient(cfg.APIBaseURL, cfg.Credentials, sankhya.FlagTarget{
		Entity: cfg.FlagEntity,
		PK:     cfg.FlagPK,
		Field:  cfg.FlagField,
	}, cfg.HTTPTimeout)
	opener := partnerdb.Opener(partnerdb.Config{
		Driver:   cfg.DBDriver,
		Host:     cfg.Credentials.DBHost,
		Port:     cfg.DBPort,
		Name:     cfg.Credentials.DBName,
		User:     cfg.Credentials.DBUser,
		Password: cfg.Credentials.DBPassword,
		SSLMode:  cfg.DBSSLMode,
		Table:    cfg.DestTable,
	})
	syncSvc := application.NewSyncService(erp, opener, runStore, logger.Handler())

	// 6. Optional cron schedule.
	schedulerDone := make(chan struct{})
	if cfg.Schedule != "" {
		scheduler, err := application.NewScheduler(syncSvc, cfg.Schedule, logger)
		if err != nil {
			return err
		}
		go func() {
			defer close(schedulerDone)
			if err := scheduler.Start(ctx); err != nil {
				logger.Error("scheduler error", "error", err)
			}
		}()
	} else {
		close(schedulerDone)
		logger.Info("no schedule configured, runs are triggered manually")
	}

	// 7. HTTP routes: JSON API and operator GUI.
	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, httphandler.NewHandler(syncSvc, runStore, logger))
	webhandler.RegisterRoutes(mux, webhandler.NewHandler(syncSvc, runStore, cfg.Schedule, logger))

	handler := httphandler.ApplyMiddleware(mux, logger)

	// Runs are synchronous, so the write timeout leaves room for a full
	// pipeline pass (login, fetch, one mark per partner, logout).
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	logger.Info("guardiansyncd started", "listen_addr", cfg.ListenAddr)

	// 8. Wait for shutdown signal.
	<-ctx.Done()
	logger.Info("shutting down")

	// 9. Graceful shutdown: drain HTTP requests, then let a scheduled run finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	<-schedulerDone

	logger.Info("shutdown complete")
	return nil
}
