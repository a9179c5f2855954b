package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/veldmarket/farmcart-backend/api/routes"
	"github.com/veldmarket/farmcart-backend/internal/cart"
	"github.com/veldmarket/farmcart-backend/internal/catalog"
	"github.com/veldmarket/farmcart-backend/internal/effects"
	"github.com/veldmarket/farmcart-backend/internal/orders"
	"github.com/veldmarket/farmcart-backend/internal/payments"
	"github.com/veldmarket/farmcart-backend/internal/reconciliation"
	"github.com/veldmarket/farmcart-backend/internal/summary"
	"github.com/veldmarket/farmcart-backend/pkg/config"
	"github.com/veldmarket/farmcart-backend/pkg/db"
	"github.com/veldmarket/farmcart-backend/pkg/logger"
	"github.com/veldmarket/farmcart-backend/pkg/metrics"
	"github.com/veldmarket/farmcart-backend/pkg/migrate"
	"github.com/veldmarket/farmcart-backend/pkg/outbox"
	"github.com/veldmarket/farmcart-backend/pkg/redis"
)

const callbackGuardScope = "payment-callback"

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
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	reconciliationMetrics := metrics.NewReconciliationMetrics(registry)

	ordersRepo := orders.NewRepository(dbClient.DB())
	paymentsRepo := payments.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	stateMachine, err := orders.NewStateMachine(ordersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create order state machine", err)
		os.Exit(1)
	}

	reconciler, err := payments.NewService(payments.ServiceParams{
		Repo:    paymentsRepo,
		Log:     logg,
		Metrics: reconciliationMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment reconciler", err)
		os.Exit(1)
	}

	guard, err := payments.NewIdempotencyGuard(redisClient, cfg.Eventing.ReconcileIdempotencyTTL, callbackGuardScope)
	if err != nil {
		logg.Error(context.Background(), "failed to create callback idempotency guard", err)
		os.Exit(1)
	}

	partitioner, err := cart.NewService(cart.ServiceParams{
		Repo:    cartRepo,
		Catalog: catalogRepo,
		Log:     logg,
		Metrics: reconciliationMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart partitioner", err)
		os.Exit(1)
	}

	projector, err := summary.NewService(summary.ServiceParams{
		Partitioner: partitioner,
		Catalog:     catalogRepo,
		Delivery:    cfg.Delivery,
		Tax:         cfg.Tax,
		Log:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create summary projector", err)
		os.Exit(1)
	}

	effectsRunner, err := effects.NewService(effects.ServiceParams{
		DB:      dbClient,
		Outbox:  outboxService,
		Config:  cfg.Effects,
		Log:     logg,
		Metrics: reconciliationMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create post-confirmation effects", err)
		os.Exit(1)
	}

	reconciliationService, err := reconciliation.NewService(reconciliation.ServiceParams{
		DB:             dbClient,
		Orders:         ordersRepo,
		StateMachine:   stateMachine,
		Reconciler:     reconciler,
		Partitioner:    partitioner,
		Projector:      projector,
		Effects:        effectsRunner,
		Guard:          guard,
		Outbox:         outboxService,
		CallbackWindow: cfg.Gateway.CallbackWindow,
		Log:            logg,
		Metrics:        reconciliationMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciliation service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, reconciliationService, registry),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
