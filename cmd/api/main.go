package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/wellness-api/internal/config"
	"github.com/jwalitptl/wellness-api/internal/datastore"
	checkinHandler "github.com/jwalitptl/wellness-api/internal/handler/checkin"
	"github.com/jwalitptl/wellness-api/internal/handler/health"
	linkerHandler "github.com/jwalitptl/wellness-api/internal/handler/linker"
	"github.com/jwalitptl/wellness-api/internal/middleware"
	"github.com/jwalitptl/wellness-api/internal/router"
	checkinService "github.com/jwalitptl/wellness-api/internal/service/checkin"
	eventService "github.com/jwalitptl/wellness-api/internal/service/event"
	linkerService "github.com/jwalitptl/wellness-api/internal/service/linker"
	"github.com/jwalitptl/wellness-api/pkg/auth"
	"github.com/jwalitptl/wellness-api/pkg/logger"
	"github.com/jwalitptl/wellness-api/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger(nil).Fatal(err, "Failed to load configuration")
	}

	log := logger.NewLogger(cfg.Log.ToLoggerConfig("wellness-api"))

	// Initialize datastore
	store, err := datastore.Open(cfg, log)
	if err != nil {
		log.Fatal(err, "Failed to open datastore", "driver", cfg.Datastore.Driver)
	}
	defer store.Close()

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New("wellness", registry)

	// Initialize services
	events := eventService.NewEventService(store.Outbox)
	linkSvc := linkerService.NewService(store.Patients, store.Intakes, events, log, m)
	checkinSvc := checkinService.NewService(
		store.Protocols,
		store.Checkins,
		events,
		cache.New(cfg.Cache.PatientsTTL, cfg.Cache.CleanupInterval),
		log,
		m,
	)

	// Initialize middleware
	var authMiddleware *middleware.AuthMiddleware
	if cfg.Auth.Enabled {
		jwt := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, 0)
		authMiddleware = middleware.NewAuthMiddleware(jwt)
	} else {
		log.Warn("Staff authentication is disabled")
	}

	routerConfig := router.RouterConfig{
		Mode:           cfg.Server.Mode,
		RequestTimeout: cfg.Server.RequestTimeout,
	}
	if cfg.RateLimit.Enabled {
		routerConfig.RateLimit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
		routerConfig.RateBurst = cfg.RateLimit.Burst
	}

	// Setup router
	r := router.NewRouter(
		authMiddleware,
		health.NewHandler(store.Ping),
		linkerHandler.NewHandler(linkSvc, log),
		checkinHandler.NewHandler(checkinSvc, log),
		log,
		m,
		registry,
		routerConfig,
	)
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info("Starting server", "port", cfg.Server.Port, "driver", cfg.Datastore.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "Server forced to shutdown")
		return
	}

	log.Info("Server exited properly")
}
