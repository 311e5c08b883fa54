package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/athathco/athath-backend/internal/analytics"
	"github.com/athathco/athath-backend/internal/commission"
	"github.com/athathco/athath-backend/internal/consumers"
	"github.com/athathco/athath-backend/internal/inventory"
	"github.com/athathco/athath-backend/internal/orders"
	"github.com/athathco/athath-backend/pkg/config"
	"github.com/athathco/athath-backend/pkg/db"
	"github.com/athathco/athath-backend/pkg/gateway"
	"github.com/athathco/athath-backend/pkg/logger"
	"github.com/athathco/athath-backend/pkg/metrics"
	"github.com/athathco/athath-backend/pkg/migrate"
	"github.com/athathco/athath-backend/pkg/pubsub"
)

// The worker consumes order lifecycle events and advances paid orders into
// fulfillment.
func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	gw, err := buildGateway(cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	commissionService := commission.NewService(commission.NewRepo(gormDB), logg, cfg.Commission.DefaultRateBps)
	settlement := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)
	tracker := analytics.NewTracker(pubsubClient.AnalyticsPublisher(), logg)
	orderService := orders.NewService(dbClient, orders.NewRepo(gormDB), inventory.NewRepo(gormDB),
		commissionService, gw, tracker, nil, settlement, logg)

	consumer, err := consumers.NewOrdersConsumer(pubsubClient.OrdersSubscription(), orderService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders consumer", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting worker")

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "worker shutting down gracefully")
}

func buildGateway(cfg *config.Config, logg *logger.Logger) (gateway.Gateway, error) {
	if cfg.Gateway.Provider == "simulator" {
		logg.Warn(context.Background(), "using simulated payment gateway")
		return gateway.NewSimulator(), nil
	}
	return gateway.NewClient(context.Background(), cfg.Gateway, logg)
}
