package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/guardiansync/internal/adapter/driven/partnerdb"
	"github.com/ericfisherdev/guardiansync/internal/adapter/driven/sankhya"
	sqliteadapter "github.com/ericfisherdev/guardiansync/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/guardiansync/internal/application"
	"github.com/ericfisherdev/guardiansync/internal/config"
	"github.com/ericfisherdev/guardiansync/internal/domain/model"
	"github.com/ericfisherdev/guardiansync/internal/domain/port/driven"
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
	record := flag.Bool("history", false, "record the run in the history database")
	flag.Parse()

	// 1. Load configuration (fail fast on missing required keys, before any I/O).
	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	logger := logging.Setup(os.Stderr, cfg.LogFormat, cfg.LogLevel)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Optional run history.
	var runStore driven.RunStore
	if *record {
		db, err := sqliteadapter.NewDB(ctx, cfg.HistoryDBPath)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				logger.Error("error closing history database", "error", closeErr)
			}
		}()
		if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
			return err
		}
		runStore = sqliteadapter.NewRunRepo(db)
	}

	// 4. Wire adapters and run once.
	erp := sankhya.NewClient(cfg.APIBaseURL, cfg.Credentials, sankhya.FlagTarget{
		Entity: cfg.FlagEntity,
		PK:     cfg.FlagPK,
		Field:  cfg.FlagField,
	}, cfg.HTTPTimeout)
	opener := partnerdb.Opener(partnerDBConfig(cfg))

	svc := application.NewSyncService(erp, opener, runStore, logger.Handler())

	result, err := svc.Run(ctx, model.TriggerCLI)
	if err != nil {
		return err
	}

	logger.Info("guardiansync finished",
		"run_id", result.ID,
		"status", string(result.Status),
		"fetched", result.Fetched,
		"inserted", result.Inserted,
		"marked", result.Marked,
		"mark_failed", result.MarkFailed,
	)
	return nil
}

func partnerDBConfig(cfg *config.Config) partnerdb.Config {
	return partnerdb.Config{
		Driver:   cfg.DBDriver,
		Host:     cfg.Credentials.DBHost,
		Port:     cfg.DBPort,
		Name:     cfg.Credentials.DBName,
		User:     cfg.Credentials.DBUser,
		Password: cfg.Credentials.DBPassword,
		SSLMode:  cfg.DBSSLMode,
		Table:    cfg.DestTable,
	}
}
