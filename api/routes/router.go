package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// RedisStore is the slice of the redis client the HTTP layer depends on.
type RedisStore interface {
	pkgredis.Pinger
	pkgredis.IdempotencyStore
	pkgredis.RateLimiter
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Services bundles the domain services mounted on the router.
type Services struct {
	Auth     auth.Service
	Cart     cart.Service
	Checkout checkoutsvc.Service
	Orders   orders.Service
	Users    users.Service
	Catalog  catalog.Service

	DeadLetters ordercontrollers.DeadLetterReader
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient RedisStore,
	metrics http.Handler,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	limits := cfg.RateLimit
	loginLimit := middleware.RateLimit(redisClient, logg,
		middleware.RateRule{Scope: "login:ip", Limit: limits.LoginIPLimit, Window: limits.LoginWindow, Key: middleware.ByClientIP},
		middleware.RateRule{Scope: "login:email", Limit: limits.LoginEmailLimit, Window: limits.LoginWindow, Key: middleware.ByJSONField("email")},
	)
	checkoutLimit := middleware.RateLimit(redisClient, logg,
		middleware.RateRule{Scope: "checkout:user", Limit: limits.CheckoutUserLimit, Window: limits.CheckoutWindow, Key: middleware.ByUser},
	)

	if metrics == nil {
		metrics = promhttp.Handler()
	}
	r.Handle("/metrics", metrics)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisClient,
		}))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/shipping-methods", controllers.ShippingMethods(svc.Catalog, logg))

		r.Route("/auth", func(r chi.Router) {
			r.With(loginLimit).Post("/login", controllers.AuthLogin(svc.Auth, logg))
			r.With(middleware.Auth(cfg.JWT, redisClient, logg)).Post("/logout", controllers.AuthLogout(svc.Auth, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, redisClient, logg))
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.Get(svc.Cart, logg))
				r.Delete("/", cartcontrollers.Delete(svc.Cart, logg))
				r.Post("/items", cartcontrollers.AddItem(svc.Cart, logg))
				r.Patch("/items/{productId}", cartcontrollers.UpdateItem(svc.Cart, logg))
				r.Delete("/items/{productId}", cartcontrollers.RemoveItem(svc.Cart, logg))
				r.Post("/clear", cartcontrollers.Clear(svc.Cart, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, redisClient, logg))
			once := middleware.Idempotent(redisClient, logg, middleware.IdempotencyTTL)
			onceCritical := middleware.Idempotent(redisClient, logg, middleware.CriticalIdempotencyTTL)

			r.With(once).Post("/cart/merge", cartcontrollers.Merge(svc.Cart, logg))
			r.With(checkoutLimit, onceCritical).Post("/checkout", controllers.Checkout(svc.Checkout, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(svc.Orders, logg))
				r.Get("/stats", ordercontrollers.Stats(svc.Orders, logg))
				r.Route("/{orderId}", func(r chi.Router) {
					r.Get("/", ordercontrollers.Detail(svc.Orders, logg))
					r.Get("/history", ordercontrollers.History(svc.Orders, logg))
					r.With(once).Post("/items", ordercontrollers.AddItem(svc.Orders, logg))
					r.Delete("/items/{itemId}", ordercontrollers.RemoveItem(svc.Orders, logg))
					r.With(onceCritical).Post("/cancel", ordercontrollers.Cancel(svc.Orders, logg))
				})
			})

			r.Route("/me/addresses", func(r chi.Router) {
				r.Get("/", controllers.ListAddresses(svc.Users, logg))
				r.Post("/", controllers.CreateAddress(svc.Users, logg))
				r.Post("/{addressId}/default", controllers.SetDefaultAddress(svc.Users, logg))
			})

			r.Route("/admin/orders", func(r chi.Router) {
				r.Use(middleware.RequireStaff(logg))
				r.Get("/", ordercontrollers.AdminList(svc.Orders, logg))
				r.Get("/{orderId}/dead-letters", ordercontrollers.AdminDeadLetters(svc.DeadLetters, logg))
				r.Patch("/{orderId}", ordercontrollers.AdminUpdate(svc.Orders, logg))
				r.Group(func(r chi.Router) {
					r.Use(once)
					r.Post("/{orderId}/status", ordercontrollers.AdminTransitionStatus(svc.Orders, logg))
					r.Post("/{orderId}/payment-status", ordercontrollers.AdminTransitionPaymentStatus(svc.Orders, logg))
					r.Post("/{orderId}/ship", ordercontrollers.AdminShip(svc.Orders, logg))
					r.Post("/{orderId}/recalculate", ordercontrollers.AdminRecalculate(svc.Orders, logg))
				})
			})
		})
	})

	return r
}
