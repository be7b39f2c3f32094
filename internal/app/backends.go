package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"presensi/internal/config"
	"presensi/internal/queue"
	"presensi/internal/store"
)

const (
	redisPrefix = "presensi"
	queueKey    = "presensi:events"
	queueSize   = 64
)

// Backends holds the storage and messaging selected by configuration.
type Backends struct {
	Store store.KV
	Queue queue.Queue

	closers []func() error
}

// OpenBackends connects the configured store and queue. Redis is shared
// when both use it.
func OpenBackends(ctx context.Context, cfg config.App, log *logrus.Logger) (*Backends, error) {
	b := &Backends{}
	var rds *store.Redis
	redisClient := func() *store.Redis {
		if rds == nil {
			rds = store.NewRedis(cfg.RedisAddr, redisPrefix)
			b.closers = append(b.closers, rds.Close)
		}
		return rds
	}

	switch cfg.StoreBackend {
	case config.BackendMemory:
		b.Store = store.NewMemory()
	case config.BackendRedis:
		b.Store = redisClient()
	case config.BackendPostgres:
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		b.closers = append(b.closers, db.Close)
		b.Store = db
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	switch cfg.QueueBackend {
	case config.BackendMemory:
		b.Queue = queue.NewInMemory(queueSize)
	case config.BackendRedis:
		b.Queue = queue.NewRedisQueue(redisClient().Client, queueKey)
	default:
		_ = b.Close()
		return nil, fmt.Errorf("unknown queue backend %q", cfg.QueueBackend)
	}

	if !b.Store.Healthy(ctx) {
		log.WithField("backend", cfg.StoreBackend).Warn("store not reachable yet")
	}
	log.WithFields(logrus.Fields{
		"store": cfg.StoreBackend,
		"queue": cfg.QueueBackend,
	}).Info("backends ready")
	return b, nil
}

// Close releases connections in reverse order of opening.
func (b *Backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}
