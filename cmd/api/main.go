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
	"go.uber.org/multierr"

	"github.com/angelmondragon/herbstore-backend/api/routes"
	"github.com/angelmondragon/herbstore-backend/internal/auth"
	"github.com/angelmondragon/herbstore-backend/internal/cart"
	"github.com/angelmondragon/herbstore-backend/internal/orders"
	"github.com/angelmondragon/herbstore-backend/internal/pricing"
	products "github.com/angelmondragon/herbstore-backend/internal/products"
	"github.com/angelmondragon/herbstore-backend/pkg/auth/session"
	"github.com/angelmondragon/herbstore-backend/pkg/config"
	"github.com/angelmondragon/herbstore-backend/pkg/db"
	"github.com/angelmondragon/herbstore-backend/pkg/logger"
	"github.com/angelmondragon/herbstore-backend/pkg/metrics"
	"github.com/angelmondragon/herbstore-backend/pkg/migrate"
	"github.com/angelmondragon/herbstore-backend/pkg/redis"
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
		Format:      cfg.App.LogFormat,
		Env:         cfg.App.Env,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	resolver := pricing.NewResolver(metrics.NewPricingMetrics(registry))

	sessionManager, err := session.NewManager(redisClient)
	if err != nil {
		return err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Admin:          cfg.Admin,
		JWTConfig:      cfg.JWT,
		Password:       cfg.Password,
		SessionManager: sessionManager,
		Logger:         logg,
	})
	if err != nil {
		return err
	}
	if !cfg.Admin.Enabled() {
		logg.Warn(ctx, "admin account not configured, admin login disabled")
	}

	productService, err := products.NewService(products.NewRepository(dbClient.DB()), dbClient, resolver)
	if err != nil {
		return err
	}

	shippingFee, err := cfg.Storefront.ShippingFeeAmount()
	if err != nil {
		return err
	}
	cartStore, err := cart.NewStore(redisClient, cfg.Storefront.CartTTL)
	if err != nil {
		return err
	}
	cartService, err := cart.NewService(cart.ServiceParams{
		Store:         cartStore,
		Products:      productService,
		Resolver:      resolver,
		Logger:        logg,
		ShippingFee:   shippingFee,
		CurrencyLabel: cfg.Storefront.CurrencyLabel,
		LockHold:      cfg.Storefront.CheckoutLockGrace,
	})
	if err != nil {
		return err
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:   orders.NewRepository(dbClient.DB()),
		Tx:     dbClient,
		Carts:  cartService,
		Lines:  orders.NewLineResolver(productService, resolver, cfg.Storefront.OrderViewFanout, logg),
		Logger: logg,
	})
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"db_driver": dbClient.Driver(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			DB:             dbClient,
			Redis:          redisClient,
			Sessions:       sessionManager,
			Gatherer:       registry,
			HTTPMetrics:    metrics.NewHTTPMetrics(registry),
			AuthService:    authService,
			ProductService: productService,
			CartService:    cartService,
			OrdersService:  ordersService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
