package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/api/controllers"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/api/routes"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/internal/events"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/internal/inventory"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/internal/notifications"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/internal/orders"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/internal/products"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/internal/reservations"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/internal/tables"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/catalog"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/config"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/db"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/logger"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/metrics"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/migrate"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/pubsub"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/redis"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ledger, err := db.New(ctx, cfg.Ledger, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap ledger store", err)
		os.Exit(1)
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			logg.Error(context.Background(), "error closing ledger store", err)
		}
	}()

	cat, err := catalog.New(ctx, cfg.Catalog, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap catalog store", err)
		os.Exit(1)
	}
	defer func() {
		if err := cat.Close(); err != nil {
			logg.Error(context.Background(), "error closing catalog store", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, ledger, cat); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

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

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	registry := prometheus.NewRegistry()
	sagaMetrics := metrics.NewSagaMetrics(registry)
	dispatchMetrics := metrics.NewDispatchMetrics(registry)

	inventorySvc, err := inventory.NewService(inventory.NewRepository(ledger.DB()), ledger)
	if err != nil {
		logg.Error(ctx, "failed to create inventory service", err)
		os.Exit(1)
	}

	productsSvc, err := products.NewService(products.NewRepository(cat.DB()), inventorySvc)
	if err != nil {
		logg.Error(ctx, "failed to create product service", err)
		os.Exit(1)
	}

	tablesSvc, err := tables.NewService(tables.NewRepository(cat.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create table service", err)
		os.Exit(1)
	}

	eventsSvc, err := events.NewService(events.NewRepository(cat.DB()), tablesSvc)
	if err != nil {
		logg.Error(ctx, "failed to create event service", err)
		os.Exit(1)
	}

	notificationsRepo := notifications.NewRepository(cat.DB())
	notificationsSvc, err := notifications.NewService(notificationsRepo)
	if err != nil {
		logg.Error(ctx, "failed to create notification service", err)
		os.Exit(1)
	}

	dispatcher, err := notifications.NewDispatcher(notificationsRepo, pubsubClient, dispatchMetrics, cfg.Notifications.DispatchTimeout, logg)
	if err != nil {
		logg.Error(ctx, "failed to create notification dispatcher", err)
		os.Exit(1)
	}
	defer dispatcher.Drain()

	ordersSvc, err := orders.NewService(orders.NewRepository(cat.DB()), inventorySvc, productsSvc, dispatcher, sagaMetrics, logg)
	if err != nil {
		logg.Error(ctx, "failed to create order service", err)
		os.Exit(1)
	}

	reservationsSvc, err := reservations.NewService(reservations.NewRepository(cat.DB()), tablesSvc, dispatcher, logg)
	if err != nil {
		logg.Error(ctx, "failed to create reservation service", err)
		os.Exit(1)
	}

	router := routes.New(routes.Deps{
		Config:        cfg,
		Logger:        logg,
		Orders:        ordersSvc,
		Reservations:  reservationsSvc,
		Tables:        tablesSvc,
		Inventory:     inventorySvc,
		Products:      productsSvc,
		Notifications: notificationsSvc,
		Events:        eventsSvc,
		Idempotency:   redisClient,
		HealthTargets: []controllers.HealthTarget{
			{Name: "ledger store", Pinger: ledger},
			{Name: "catalog store", Pinger: cat},
			{Name: "redis", Pinger: redisClient},
			{Name: "pubsub", Pinger: pubsubClient},
		},
		Metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	runCtx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(runCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "api server shut down gracefully")
}
