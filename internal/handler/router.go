package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"storefront/internal/mw"
	"storefront/internal/service"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type RouterDeps struct {
	Checkout       *service.CheckoutService
	Orders         *service.OrderService
	DB             Pinger
	JWTSecret      string
	AllowedOrigins []string
}

func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", HealthHandler(deps.DB))

	r.Post("/create-checkout-session", CreateCheckoutSessionHandler(deps.Checkout))
	r.Post("/webhook", WebhookHandler(deps.Checkout))

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(mw.AdminAuth(deps.JWTSecret))

		r.Get("/", ListOrdersHandler(deps.Orders))
		r.Get("/{id}", GetOrderHandler(deps.Orders))
		r.Put("/{id}", UpdateDeliveryStatusHandler(deps.Orders))
		r.Delete("/{id}", DeleteOrderHandler(deps.Orders))
	})

	return r
}

func HealthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
