package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/branchpos-backend/api/controllers"
	"github.com/angelmondragon/branchpos-backend/api/routes"
	"github.com/angelmondragon/branchpos-backend/internal/branches"
	"github.com/angelmondragon/branchpos-backend/internal/checkout"
	products "github.com/angelmondragon/branchpos-backend/internal/products"
	"github.com/angelmondragon/branchpos-backend/internal/session"
	"github.com/angelmondragon/branchpos-backend/pkg/config"
	"github.com/angelmondragon/branchpos-backend/pkg/db"
	"github.com/angelmondragon/branchpos-backend/pkg/instance"
	"github.com/angelmondragon/branchpos-backend/pkg/logger"
	"github.com/angelmondragon/branchpos-backend/pkg/metrics"
	"github.com/angelmondragon/branchpos-backend/pkg/migrate"
	"github.com/angelmondragon/branchpos-backend/pkg/outbox"
	"github.com/angelmondragon/branchpos-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Instance:    instance.GetID(),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	readiness := map[string]controllers.Pinger{"db": dbClient}
	branchParams := branches.ServiceParams{
		Repo:   branches.NewRepository(dbClient.DB()),
		TTL:    cfg.Catalog.CacheTTL,
		Logger: logg,
	}
	var idempotencyStore redis.IdempotencyStore
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		readiness["redis"] = redisClient
		branchParams.Cache = redisClient
		idempotencyStore = redisClient
	} else {
		readiness["redis"] = nil
		logg.Warn(ctx, "redis not configured, catalog cache and idempotency disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pricingMetrics := metrics.NewPricingMetrics(reg)
	jobMetrics := metrics.NewJobMetrics(reg)

	branchService, err := branches.NewService(branchParams)
	if err != nil {
		logg.Error(ctx, "failed to create branch service", err)
		os.Exit(1)
	}

	productService, err := products.NewService(products.ServiceParams{
		Repo:     products.NewRepository(dbClient.DB()),
		Tx:       dbClient,
		Branches: branchService,
		Metrics:  pricingMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create product service", err)
		os.Exit(1)
	}

	registry := session.NewRegistry(session.RegistryOptions{
		IdleTTL:  cfg.Session.IdleTTL,
		Outcomes: pricingMetrics,
		Jobs:     jobMetrics,
		Logger:   logg,
	})
	go registry.Run(ctx, cfg.Session.SweepInterval)

	sessionService, err := session.NewService(session.ServiceParams{
		Registry: registry,
		Branches: branchService,
		Products: productService,
		Metrics:  pricingMetrics,
		Logger:   logg,
		MaxLines: cfg.Session.MaxLines,
	})
	if err != nil {
		logg.Error(ctx, "failed to create session service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Tx:       dbClient,
		Repo:     checkout.NewRepository(dbClient.DB()),
		Registry: registry,
		Metrics:  pricingMetrics,
		Logger:   logg,
		Outbox:   outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
	})
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			readiness,
			idempotencyStore,
			promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			branchService,
			productService,
			sessionService,
			checkoutService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "api server shutdown failed", err)
		}
		logg.Info(logCtx, "api server stopped")
	}
}
