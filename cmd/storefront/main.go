package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/broker"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handler"
	"storefront/internal/payment"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/worker"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.NewDB(context.Background(), cfg.DatabaseURI)
	if err != nil {
		slog.Error("failed to connect to DB", "error", err)
		os.Exit(1)
	}
	defer database.CloseDB(db)

	if err := database.InitSchema(context.Background(), db); err != nil {
		slog.Error("failed to init DB schema", "error", err)
		os.Exit(1)
	}

	gateway, err := payment.NewStripeGateway(payment.StripeConfig{
		APIKey:        cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
	})
	if err != nil {
		slog.Error("failed to init payment gateway", "error", err)
		os.Exit(1)
	}

	// Repositories
	products := repository.NewProductRepository(db)
	orders := repository.NewOrderRepository(db)
	events := repository.NewEventRepository(db)

	// Services
	checkoutSvc := service.NewCheckoutService(products, orders, gateway, service.CheckoutConfig{
		Currency:          cfg.Currency,
		SuccessURL:        cfg.SuccessURL(),
		CancelURL:         cfg.CancelURL(),
		ShippingCountries: cfg.ShippingCountries,
		Timeout:           cfg.RequestTimeout,
	})
	orderSvc := service.NewOrderService(orders)

	// Worker
	var publisher broker.Publisher = broker.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = broker.NewKafkaPublisher(cfg.KafkaBrokers)
	}
	defer publisher.Close()
	outboxWorker := worker.NewOutboxWorker(events, publisher, cfg.OrderEventsTopic)

	srv := &http.Server{
		Addr: cfg.RunAddress,
		Handler: handler.NewRouter(handler.RouterDeps{
			Checkout:       checkoutSvc,
			Orders:         orderSvc,
			DB:             db,
			JWTSecret:      cfg.JWTSecret,
			AllowedOrigins: cfg.AllowedOrigins,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2*cfg.RequestTimeout + 5*time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go outboxWorker.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	slog.Info("starting server", "addr", cfg.RunAddress)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
		}
	}()

	<-quit
	slog.Info("shutting down...")

	cancel() // stop worker
	ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()

	if err := srv.Shutdown(ctxShut); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	slog.Info("server stopped")
}
