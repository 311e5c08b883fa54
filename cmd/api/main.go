package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/athathco/athath-backend/api/routes"
	"github.com/athathco/athath-backend/internal/analytics"
	"github.com/athathco/athath-backend/internal/cart"
	"github.com/athathco/athath-backend/internal/catalog"
	checkoutsvc "github.com/athathco/athath-backend/internal/checkout"
	"github.com/athathco/athath-backend/internal/commission"
	"github.com/athathco/athath-backend/internal/disputes"
	"github.com/athathco/athath-backend/internal/inventory"
	"github.com/athathco/athath-backend/internal/orders"
	"github.com/athathco/athath-backend/pkg/config"
	"github.com/athathco/athath-backend/pkg/db"
	"github.com/athathco/athath-backend/pkg/gateway"
	"github.com/athathco/athath-backend/pkg/logger"
	"github.com/athathco/athath-backend/pkg/metrics"
	"github.com/athathco/athath-backend/pkg/migrate"
	"github.com/athathco/athath-backend/pkg/pubsub"
	"github.com/athathco/athath-backend/pkg/redis"
)

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

	gw, err := buildGateway(cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway", err)
		os.Exit(1)
	}

	var tracker *analytics.Tracker
	var events orders.EventPublisher
	if cfg.GCP.ProjectID != "" {
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
		tracker = analytics.NewTracker(pubsubClient.AnalyticsPublisher(), logg)
		events = pubsubClient.OrdersPublisher()
	} else {
		logg.Warn(context.Background(), "pubsub disabled, events will not be published")
		tracker = analytics.NewTracker(nil, logg)
	}

	settlement := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)

	gormDB := dbClient.DB()
	catalogRepo := catalog.NewRepo(gormDB)
	cartRepo := cart.NewRepo(gormDB)
	orderRepo := orders.NewRepo(gormDB)
	inventoryRepo := inventory.NewRepo(gormDB)
	commissionRepo := commission.NewRepo(gormDB)
	disputeRepo := disputes.NewRepo(gormDB)

	cartService := cart.NewService(dbClient, cartRepo, catalogRepo, logg)
	commissionService := commission.NewService(commissionRepo, logg, cfg.Commission.DefaultRateBps)
	orderService := orders.NewService(dbClient, orderRepo, inventoryRepo, commissionService,
		gw, tracker, events, settlement, logg)
	checkoutService := checkoutsvc.NewService(dbClient, cartRepo, orderRepo, inventoryRepo,
		tracker, checkoutsvc.DeliveryPolicy{
			FlatFee:       cfg.Delivery.FlatFee,
			FreeThreshold: cfg.Delivery.FreeThreshold,
		}, settlement, logg)
	disputeService := disputes.NewService(dbClient, disputeRepo, orderRepo, orderService, tracker, logg)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"gateway": cfg.Gateway.Provider,
		"sandbox": cfg.Gateway.Sandbox(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			Catalog:     catalogRepo,
			Cart:        cartService,
			Checkout:    checkoutService,
			Orders:      orderService,
			Disputes:    disputeService,
			Commissions: commissionService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildGateway(cfg *config.Config, logg *logger.Logger) (gateway.Gateway, error) {
	if cfg.Gateway.Provider == "simulator" {
		logg.Warn(context.Background(), "using simulated payment gateway")
		return gateway.NewSimulator(), nil
	}
	return gateway.NewClient(context.Background(), cfg.Gateway, logg)
}
