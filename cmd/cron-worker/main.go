package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/athathco/athath-backend/internal/analytics"
	"github.com/athathco/athath-backend/internal/commission"
	"github.com/athathco/athath-backend/internal/cron"
	"github.com/athathco/athath-backend/internal/cron/jobs"
	"github.com/athathco/athath-backend/internal/inventory"
	"github.com/athathco/athath-backend/internal/orders"
	"github.com/athathco/athath-backend/pkg/config"
	"github.com/athathco/athath-backend/pkg/db"
	"github.com/athathco/athath-backend/pkg/gateway"
	"github.com/athathco/athath-backend/pkg/logger"
	"github.com/athathco/athath-backend/pkg/metrics"
	"github.com/athathco/athath-backend/pkg/migrate"
	"github.com/athathco/athath-backend/pkg/redis"
)

const lockKeyFormat = "athath:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	gw, err := buildGateway(cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	commissionService := commission.NewService(commission.NewRepo(gormDB), logg, cfg.Commission.DefaultRateBps)
	settlement := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)
	// Reconciliation never publishes analytics or order events from the cron
	// path; its settlements are crash-recovery, not new activity.
	orderService := orders.NewService(dbClient, orders.NewRepo(gormDB), inventory.NewRepo(gormDB),
		commissionService, gw, analytics.NewTracker(nil, logg), nil, settlement, logg)

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(
		jobs.NewPaymentReconcileJob(orderService, logg, cfg.Cron.PendingPaymentAge, cfg.Cron.ReconcileBatchSize),
	)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.ReconcileInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildGateway(cfg *config.Config, logg *logger.Logger) (gateway.Gateway, error) {
	if cfg.Gateway.Provider == "simulator" {
		logg.Warn(context.Background(), "using simulated payment gateway")
		return gateway.NewSimulator(), nil
	}
	return gateway.NewClient(context.Background(), cfg.Gateway, logg)
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
