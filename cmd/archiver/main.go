package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paylane-ledger/internal/archive"
	"github.com/paylane-ledger/internal/config"
	"github.com/paylane-ledger/internal/data/mongo"
	"github.com/paylane-ledger/internal/data/postgres"
	"github.com/paylane-ledger/internal/logger"
	"github.com/paylane-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("archiver")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Archiver",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
		"interval", cfg.Archive.Interval.String(),
	)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	ledgerRepo := mongo.NewLedgerRepository(log, mongoDB.Database())
	auditRepo := postgres.NewAuditRepository(log, postgresDB)

	// Initialize the S3-backed exporter
	s3Client, err := archive.NewS3Client(appCtx, cfg.Archive)
	if err != nil {
		log.Error("Failed to initialize S3 client", "error", err)
		os.Exit(1)
	}
	exporter := archive.NewExporter(log, s3Client, cfg.Archive, ledgerRepo, auditRepo)

	// Run snapshots until a shutdown signal arrives
	done := make(chan struct{})
	go func() {
		exporter.RunPeriodically(appCtx, cfg.Archive.Interval)
		close(done)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	<-quit
	log.Info("Shutdown signal received")

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	select {
	case <-done:
		log.Info("Exporter stopped")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if err != nil {
		log.Error("Archiver shutdown completed with errors")
	} else {
		log.Info("Archiver shutdown completed successfully")
	}
}
