package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"presensi/internal/app"
	"presensi/internal/config"
	"presensi/internal/feed"
	"presensi/internal/forum"
	"presensi/internal/httpapi"
	"presensi/internal/logger"
	"presensi/internal/metrics"
	"presensi/internal/notifier"
	"presensi/internal/poller"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile, JSON: cfg.LogJSON})

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Error("dashboard stopped")
		os.Exit(1)
	}
	log.Info("dashboard exited")
}

func run(ctx context.Context, cfg config.App, log *logrus.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	backends, err := app.OpenBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := backends.Close(); err != nil {
			log.WithError(err).Warn("close backends")
		}
	}()

	m := metrics.New(prometheus.DefaultRegisterer)
	hub := httpapi.NewHub()
	poll := poller.New(poller.Config{
		Fetcher:  feed.New(cfg.FeedURL, cfg.FeedPath, cfg.FetchTimeout),
		Store:    backends.Store,
		Queue:    backends.Queue,
		Metrics:  m,
		Logger:   log,
		Location: loc,
		Interval: cfg.PollInterval,
		OnChange: hub.Publish,
	})

	router := httpapi.NewRouter(httpapi.Deps{
		Snapshots:       poll,
		Forum:           forum.NewService(backends.Store, log),
		Hub:             hub,
		Store:           backends.Store,
		Metrics:         m,
		Gatherer:        prometheus.DefaultGatherer,
		Policy:          policy,
		Location:        loc,
		Logger:          log,
		RateLimitPerMin: cfg.RateLimitPerMin,
		AllowedOrigins:  cfg.AllowedOrigins,
	})
	g, ctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		// Open event streams end with the process context.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("starting http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return poll.Run(ctx)
	})
	if cfg.QueueBackend == config.BackendMemory {
		// Nobody outside this process can drain an in-memory queue.
		g.Go(func() error {
			return notifier.New(backends.Store, policy, loc, log).Run(ctx, backends.Queue)
		})
	}
	return g.Wait()
}
