package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmoratto/storefront-backend/api/controllers"
	"github.com/dmoratto/storefront-backend/api/middleware"
	"github.com/dmoratto/storefront-backend/internal/auth"
	"github.com/dmoratto/storefront-backend/internal/cart"
	checkoutsvc "github.com/dmoratto/storefront-backend/internal/checkout"
	"github.com/dmoratto/storefront-backend/pkg/config"
	"github.com/dmoratto/storefront-backend/pkg/enums"
	"github.com/dmoratto/storefront-backend/pkg/logger"
	pkgredis "github.com/dmoratto/storefront-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger controllers.Pinger,
	redisClient *pkgredis.Client,
	authService auth.Service,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	currency, err := enums.ParseCurrency(cfg.Checkout.Currency)
	if err != nil {
		currency = enums.CurrencyUSD
	}

	var idempotencyStore pkgredis.IdempotencyStore
	readiness := map[string]controllers.Pinger{"database": dbPinger}
	if redisClient != nil {
		idempotencyStore = redisClient
		readiness["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		if redisClient != nil {
			r.Use(middleware.LoginRateLimit(cfg.RateLimit, redisClient, logg))
		}
		r.Post("/login", controllers.AuthLogin(authService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(
			middleware.Auth(authService, logg),
			middleware.Idempotency(idempotencyStore, logg),
		)

		r.Get("/ping", controllers.PrivatePing())
		r.Get("/me", controllers.Me(authService, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Patch("/items/{lineID}", controllers.CartUpdateItem(cartService, logg))
			r.Delete("/items/{lineID}", controllers.CartRemoveItem(cartService, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", controllers.CheckoutView(checkoutService, currency, logg))
			r.Post("/address", controllers.CheckoutAddress(checkoutService, logg))
			r.Post("/carrier", controllers.CheckoutCarrier(checkoutService, logg))
			r.Post("/confirm", controllers.CheckoutConfirm(checkoutService, logg))
		})
	})

	return r
}
