package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"presensi/internal/app"
	"presensi/internal/config"
	"presensi/internal/logger"
	"presensi/internal/notifier"
)

// Worker consumes snapshot change notifications from a shared queue and logs
// the daily summary for each.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile, JSON: cfg.LogJSON})

	if cfg.QueueBackend != config.BackendRedis {
		log.Fatal("worker needs QUEUE_BACKEND=redis; the dashboard drains in-memory queues itself")
	}

	loc, err := cfg.Location()
	if err != nil {
		log.WithError(err).Fatal("timezone")
	}
	policy, err := cfg.Policy()
	if err != nil {
		log.WithError(err).Fatal("cutoff")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backends, err := app.OpenBackends(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("open backends")
	}
	defer backends.Close()

	if cfg.StoreBackend == config.BackendMemory {
		log.Warn("STORE_BACKEND=memory: summaries will lack attendance figures")
	}

	log.Info("worker started, waiting for messages...")
	if err := notifier.New(backends.Store, policy, loc, log).Run(ctx, backends.Queue); err != nil {
		log.WithError(err).Error("worker failed")
		os.Exit(1)
	}
	log.Info("worker stopped")
}
