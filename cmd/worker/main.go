package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/wellness-api/internal/config"
	"github.com/jwalitptl/wellness-api/internal/datastore"
	"github.com/jwalitptl/wellness-api/pkg/logger"
	"github.com/jwalitptl/wellness-api/pkg/messaging/redis"
	"github.com/jwalitptl/wellness-api/pkg/metrics"
	"github.com/jwalitptl/wellness-api/pkg/worker"
)

func setupHealthCheck(port int, store *datastore.Datastore, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger(nil).Fatal(err, "Failed to load config")
	}

	log := logger.NewLogger(cfg.Log.ToLoggerConfig("wellness-worker"))
	if err := run(cfg, log); err != nil {
		log.Fatal(err, "Worker stopped with error")
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	// Initialize datastore
	store, err := datastore.Open(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open %s datastore: %w", cfg.Datastore.Driver, err)
	}
	defer store.Close()

	// Initialize Redis broker
	broker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &log.ZL)
	if err != nil {
		return fmt.Errorf("failed to create Redis broker: %w", err)
	}
	defer broker.Close()

	registry := prometheus.NewRegistry()
	m := metrics.New("wellness", registry)

	// Initialize outbox processor
	processor, err := worker.NewOutboxProcessor(
		store.Outbox,
		broker,
		cfg.Outbox.ToWorkerConfig(cfg.Redis.Channel),
		log,
		m,
	)
	if err != nil {
		return fmt.Errorf("invalid outbox configuration: %w", err)
	}

	// Setup health check endpoints
	health := setupHealthCheck(cfg.Outbox.HealthPort, store, registry)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := health.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health check server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		processor.Start(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return health.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
