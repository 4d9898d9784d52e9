package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/moda-commerce/moda-backend/api/routes"
	"github.com/moda-commerce/moda-backend/internal/cart"
	"github.com/moda-commerce/moda-backend/internal/catalog"
	"github.com/moda-commerce/moda-backend/internal/checkout"
	"github.com/moda-commerce/moda-backend/internal/devices"
	"github.com/moda-commerce/moda-backend/internal/inventory"
	"github.com/moda-commerce/moda-backend/internal/listings"
	"github.com/moda-commerce/moda-backend/internal/payments"
	"github.com/moda-commerce/moda-backend/internal/payments/momo"
	"github.com/moda-commerce/moda-backend/internal/payments/vnpay"
	"github.com/moda-commerce/moda-backend/internal/refunds"
	"github.com/moda-commerce/moda-backend/internal/reputation"
	"github.com/moda-commerce/moda-backend/internal/stock"
	"github.com/moda-commerce/moda-backend/internal/trades"
	"github.com/moda-commerce/moda-backend/pkg/config"
	"github.com/moda-commerce/moda-backend/pkg/db"
	"github.com/moda-commerce/moda-backend/pkg/env"
	"github.com/moda-commerce/moda-backend/pkg/logger"
	"github.com/moda-commerce/moda-backend/pkg/metrics"
	"github.com/moda-commerce/moda-backend/pkg/migrate"
	"github.com/moda-commerce/moda-backend/pkg/outbox"
	"github.com/moda-commerce/moda-backend/pkg/redis"
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
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps, err := buildDeps(cfg, logg, dbClient, redisClient, registry)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := env.InstanceID("local")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shutting down gracefully")
	}
}

func buildDeps(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, reg *prometheus.Registry) (routes.Deps, error) {
	conn := dbClient.DB()
	commerceMetrics := metrics.NewCommerceMetrics(reg)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	deps := routes.Deps{
		DB:          dbClient,
		Redis:       redisClient,
		Idempotency: redisClient,
		Gatherer:    reg,
	}

	var gateways []payments.Gateway
	if vnpayClient, err := vnpay.New(cfg.VNPay); err == nil {
		deps.VNPay = vnpayClient
		gateways = append(gateways, vnpayClient)
	} else {
		logg.Warn(context.Background(), "vnpay disabled: "+err.Error())
	}
	if momoClient, err := momo.New(cfg.MoMo); err == nil {
		deps.MoMo = momoClient
		gateways = append(gateways, momoClient)
	} else {
		logg.Warn(context.Background(), "momo disabled: "+err.Error())
	}
	gatewayRegistry := payments.NewRegistry(gateways...)

	guard, err := payments.NewCallbackGuard(redisClient, cfg.Checkout.CallbackTTL)
	if err != nil {
		return deps, err
	}
	deps.CallbackGuard = guard

	if deps.Catalog, err = catalog.NewService(catalog.NewRepository(conn), dbClient); err != nil {
		return deps, err
	}
	stockService, err := stock.NewService(stock.NewRepository(conn), dbClient, stock.Options{
		PessimisticLocking: cfg.Checkout.PessimisticLocking(),
		Metrics:            commerceMetrics,
		Logger:             logg,
	})
	if err != nil {
		return deps, err
	}
	deps.Stock = stockService

	cartRepo := cart.NewRepository(conn)
	if deps.Cart, err = cart.NewService(cartRepo, stockService); err != nil {
		return deps, err
	}

	inventoryService, err := inventory.NewService(inventory.NewRepository(conn), dbClient)
	if err != nil {
		return deps, err
	}
	deps.Inventory = inventoryService

	refundService, err := refunds.NewService(refunds.NewRepository(conn), gatewayRegistry, refunds.Options{
		MaxRetries: cfg.Checkout.RefundRetries,
		BaseDelay:  cfg.Checkout.RefundBaseDelay,
		Metrics:    commerceMetrics,
		Logger:     logg,
	})
	if err != nil {
		return deps, err
	}

	deps.Checkout, err = checkout.NewService(checkout.Deps{
		Tx:        dbClient,
		Repo:      checkout.NewRepository(conn),
		Carts:     cartRepo,
		Stock:     stockService,
		Inventory: inventoryService,
		Refunds:   refundService,
		Gateways:  gatewayRegistry,
		Outbox:    emitter,
		TxOptions: db.TxOptions{
			Isolation:  sql.LevelSerializable,
			MaxWait:    cfg.Checkout.TxMaxWait,
			Timeout:    cfg.Checkout.TxTimeout,
			MaxRetries: cfg.Checkout.TxMaxRetries,
		},
		PointValue: cfg.Checkout.PointValue,
		Metrics:    commerceMetrics,
		Logger:     logg,
	})
	if err != nil {
		return deps, err
	}

	listingService, err := listings.NewService(listings.NewRepository(conn), dbClient, inventoryService, emitter)
	if err != nil {
		return deps, err
	}
	deps.Listings = listingService

	reputationService, err := reputation.NewService(reputation.NewRepository(conn))
	if err != nil {
		return deps, err
	}
	deps.Reputation = reputationService

	deps.Trades, err = trades.NewService(trades.Deps{
		Repo:              trades.NewRepository(conn),
		Tx:                dbClient,
		Listings:          listingService,
		Inventory:         inventoryService,
		Reputation:        reputationService,
		Outbox:            emitter,
		AutoCompleteAfter: cfg.Trades.AutoCompleteAfter,
		AutoCompleteBatch: cfg.Trades.AutoCompleteBatch,
		Logger:            logg,
	})
	if err != nil {
		return deps, err
	}

	if deps.Devices, err = devices.NewService(devices.NewRepository(conn)); err != nil {
		return deps, err
	}
	return deps, nil
}
