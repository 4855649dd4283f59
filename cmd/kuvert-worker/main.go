package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"kuvert/internal/amqp"
	"kuvert/internal/cache"
	"kuvert/internal/config"
	"kuvert/internal/log"
	"kuvert/internal/services"
	"kuvert/internal/store"
)

// refreshInterval bounds report staleness when recompute messages get
// lost or the queue was down.
const refreshInterval = 15 * time.Minute

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := log.New(log.Config{Level: slog.LevelInfo, Component: log.ComponentWorker})
	log.SetDefault(logger)

	logger.Info("Starting kuvert-worker", log.FieldOperation, log.OpStartup)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	sqliteKV, err := store.NewSQLiteKV(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer sqliteKV.Close()
	txStore := store.New(sqliteKV)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	snapshots := cache.NewLRU[*services.Snapshot](cfg.SnapshotCacheSize, cfg.SnapshotCacheTTL)
	derivation := services.NewDerivation(txStore, snapshots, nil)
	processor := services.NewRecomputeProcessor(txStore, derivation)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Recompute once on startup so a fresh worker serves a report even
	// before the first message arrives.
	if err := processor.Process(ctx, 0); err != nil {
		logger.Error("Startup recompute failed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeRecompute(gctx, func(msg *amqp.RecomputeMessage) error {
			return processor.Process(gctx, msg.Revision)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := processor.Process(gctx, 0); err != nil {
					logger.Error("Periodic recompute failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker shutdown complete", log.FieldOperation, log.OpShutdown)
}
