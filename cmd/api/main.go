package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/dmoratto/storefront-backend/api/routes"
	internalauth "github.com/dmoratto/storefront-backend/internal/auth"
	"github.com/dmoratto/storefront-backend/internal/cart"
	"github.com/dmoratto/storefront-backend/internal/catalog"
	"github.com/dmoratto/storefront-backend/internal/checkout"
	"github.com/dmoratto/storefront-backend/internal/identity"
	"github.com/dmoratto/storefront-backend/internal/pricing"
	pkgauth "github.com/dmoratto/storefront-backend/pkg/auth"
	"github.com/dmoratto/storefront-backend/pkg/config"
	"github.com/dmoratto/storefront-backend/pkg/db"
	"github.com/dmoratto/storefront-backend/pkg/enums"
	"github.com/dmoratto/storefront-backend/pkg/logger"
	"github.com/dmoratto/storefront-backend/pkg/migrate"
	"github.com/dmoratto/storefront-backend/pkg/outbox"
	"github.com/dmoratto/storefront-backend/pkg/rates"
	"github.com/dmoratto/storefront-backend/pkg/redis"
	"github.com/dmoratto/storefront-backend/pkg/security"
	"github.com/dmoratto/storefront-backend/pkg/tax"
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

	identityRepo := identity.NewRepository(dbClient.DB())

	authService, err := internalauth.NewService(internalauth.ServiceParams{
		Codec:     pkgauth.NewCodec(cfg.JWT.Secret),
		Directory: identityRepo,
		Customers: identityRepo,
		Passwords: security.NewHasher(cfg.Password),
		JWTConfig: cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	taxClient, err := tax.NewClient(cfg.Tax)
	if err != nil {
		logg.Error(context.Background(), "failed to create tax client", err)
		os.Exit(1)
	}
	ratesClient, err := rates.NewClient(cfg.Rates)
	if err != nil {
		logg.Error(context.Background(), "failed to create rates client", err)
		os.Exit(1)
	}

	aggregator, err := pricing.NewAggregator(taxClient, ratesClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing aggregator", err)
		os.Exit(1)
	}

	currency, err := enums.ParseCurrency(cfg.Checkout.Currency)
	if err != nil {
		logg.Error(context.Background(), "invalid checkout currency", err)
		os.Exit(1)
	}

	cartRepo := cart.NewRepository(dbClient.DB())
	cartService, err := cart.NewService(cart.ServiceParams{
		Orders:   cartRepo,
		Products: catalog.NewRepository(dbClient.DB()),
		Totals:   aggregator,
		Currency: currency,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Tx:        dbClient,
		Carts:     cartService,
		Orders:    cartRepo,
		Carriers:  ratesClient,
		Directory: identityRepo,
		Outbox:    outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Config:    cfg.Checkout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
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
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, authService, cartService, checkoutService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
