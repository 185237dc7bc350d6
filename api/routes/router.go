package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/herbstore-backend/api/controllers"
	"github.com/angelmondragon/herbstore-backend/api/middleware"
	"github.com/angelmondragon/herbstore-backend/internal/auth"
	"github.com/angelmondragon/herbstore-backend/internal/cart"
	"github.com/angelmondragon/herbstore-backend/internal/orders"
	products "github.com/angelmondragon/herbstore-backend/internal/products"
	"github.com/angelmondragon/herbstore-backend/pkg/auth/session"
	"github.com/angelmondragon/herbstore-backend/pkg/config"
	"github.com/angelmondragon/herbstore-backend/pkg/enums"
	"github.com/angelmondragon/herbstore-backend/pkg/logger"
	"github.com/angelmondragon/herbstore-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/herbstore-backend/pkg/redis"
)

// RedisStore is the Redis surface the HTTP layer needs.
type RedisStore interface {
	pkgredis.IdempotencyStore
	pkgredis.RateLimiter
	Ping(context.Context) error
}

// Dependencies carries everything the router wires into handlers.
type Dependencies struct {
	DB             controllers.Pinger
	Redis          RedisStore
	Sessions       session.AccessSessionChecker
	Gatherer       prometheus.Gatherer
	HTTPMetrics    *metrics.HTTPMetrics
	AuthService    auth.Service
	ProductService products.Service
	CartService    cart.Service
	OrdersService  orders.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	hops := cfg.RateLimit.TrustedProxyHops
	cartPolicy := middleware.NewRateLimitPolicy("cart", cfg.RateLimit.Window, cfg.RateLimit.CartLimit, 0).WithTrustedProxies(hops)
	checkoutPolicy := middleware.NewRateLimitPolicy("checkout", cfg.RateLimit.Window, cfg.RateLimit.CheckoutLimit, 0).WithTrustedProxies(hops)
	loginPolicy := middleware.NewRateLimitPolicy("login", cfg.RateLimit.Window, cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginLimit).WithTrustedProxies(hops)

	var (
		limiter     pkgredis.RateLimiter
		idempotency pkgredis.IdempotencyStore
	)
	pingers := map[string]controllers.Pinger{}
	if deps.DB != nil {
		pingers["db"] = deps.DB
	}
	if deps.Redis != nil {
		limiter = deps.Redis
		idempotency = deps.Redis
		pingers["redis"] = deps.Redis
	}
	idempotencyMW := middleware.Idempotency(idempotency, cfg.Storefront.IdempotencyTTL, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, pingers, logg))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{Timeout: 5 * time.Second}))
	}

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(deps.ProductService, cfg.Storefront.DefaultPageLimit, logg))
		r.Get("/search", controllers.SearchProducts(deps.ProductService, logg))
		r.Get("/best-selling", controllers.BestSellingProducts(deps.ProductService, cfg.Storefront.BestSellingLimit, logg))
		r.Get("/related/{productId}", controllers.RelatedProducts(deps.ProductService, cfg.Storefront.RelatedLimit, logg))
		r.Get("/{productId}", controllers.ProductDetail(deps.ProductService, logg))
		r.Get("/{productId}/price", controllers.ProductPrice(deps.ProductService, logg))
		r.With(middleware.RateLimit(cartPolicy, limiter, logg)).Post("/{productId}/reviews", controllers.CreateReview(deps.ProductService, logg))
	})

	r.Route("/api/cart", func(r chi.Router) {
		r.Use(
			middleware.CartSession(logg),
			middleware.RateLimit(cartPolicy, limiter, logg),
		)
		r.Get("/", controllers.GetCart(deps.CartService, logg))
		r.Delete("/", controllers.ClearCart(deps.CartService, logg))
		r.Post("/lines", controllers.AddCartLine(deps.CartService, logg))
		r.Delete("/lines/{lineId}", controllers.RemoveCartLine(deps.CartService, logg))
	})

	r.With(
		middleware.CartSession(logg),
		middleware.RateLimit(checkoutPolicy, limiter, logg),
		idempotencyMW,
	).Post("/api/checkout", controllers.Checkout(deps.OrdersService, logg))

	r.Route("/api/admin", func(r chi.Router) {
		r.With(middleware.RateLimit(loginPolicy, limiter, logg)).Post("/auth/login", controllers.AdminAuthLogin(deps.AuthService, logg))

		r.Group(func(r chi.Router) {
			r.Use(
				middleware.Auth(cfg.JWT, deps.Sessions, logg),
				middleware.RequireRole(logg, enums.RoleAdmin),
			)
			r.Post("/auth/logout", controllers.AdminAuthLogout(deps.AuthService, logg))

			r.With(idempotencyMW).Post("/products", controllers.AdminCreateProduct(deps.ProductService, logg))
			r.Patch("/products/{productId}", controllers.AdminUpdateProduct(deps.ProductService, logg))
			r.Patch("/products/{productId}/quantity", controllers.AdminUpdateProductQuantity(deps.ProductService, logg))
			r.Delete("/products/{productId}", controllers.AdminDeleteProduct(deps.ProductService, logg))

			r.Get("/orders", controllers.AdminListOrders(deps.OrdersService, logg))
			r.Get("/orders/{orderId}", controllers.AdminOrderView(deps.OrdersService, logg))
			r.Patch("/orders/{orderId}", controllers.AdminUpdateOrderStatus(deps.OrdersService, logg))
			r.Delete("/orders/{orderId}", controllers.AdminDeleteOrder(deps.OrdersService, logg))
		})
	})

	return r
}
