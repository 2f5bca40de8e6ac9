package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/model"
	"storefront/internal/payment"
	"storefront/internal/repository"
)

type Catalog interface {
	FindByID(ctx context.Context, id string) (model.Product, error)
}

type OrderStore interface {
	Create(ctx context.Context, o model.Order) error
	MarkPaid(ctx context.Context, id string, upd repository.PaymentUpdate) (bool, error)
}

type PaymentGateway interface {
	CreateSession(ctx context.Context, req payment.SessionRequest) (payment.Session, error)
	ParseEvent(payload []byte, signatureHeader string) (payment.Event, error)
}

type CheckoutConfig struct {
	Currency          string
	SuccessURL        string
	CancelURL         string
	ShippingCountries []string
	// Timeout bounds each call to the order store and the payment gateway.
	Timeout time.Duration
}

type CartItem struct {
	ProductID string
	Quantity  int64
}

type CheckoutRequest struct {
	Cart  []CartItem
	Email string
	Total decimal.Decimal
}

type CheckoutResult struct {
	OrderID    string
	SessionID  string
	SessionURL string
}

type CheckoutService struct {
	catalog Catalog
	orders  OrderStore
	gateway PaymentGateway
	cfg     CheckoutConfig
	now     func() time.Time
}

func NewCheckoutService(catalog Catalog, orders OrderStore, gateway PaymentGateway, cfg CheckoutConfig) *CheckoutService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &CheckoutService{
		catalog: catalog,
		orders:  orders,
		gateway: gateway,
		cfg:     cfg,
		now:     time.Now,
	}
}

// InitiateCheckout persists a pending order for the cart and opens a hosted checkout
// session correlated to it. If the gateway fails the pending order is kept.
func (s *CheckoutService) InitiateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error) {
	if err := validateCheckout(req); err != nil {
		return CheckoutResult{}, err
	}

	items := make([]model.OrderItem, 0, len(req.Cart))
	lines := make([]payment.LineItem, 0, len(req.Cart))
	for _, c := range req.Cart {
		p, err := s.resolve(ctx, c.ProductID)
		if err != nil {
			return CheckoutResult{}, err
		}
		items = append(items, model.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    c.Quantity,
			UnitPrice:   p.Price,
		})
		lines = append(lines, payment.LineItem{
			Name:       p.Name,
			ImageURL:   p.ImageURL,
			Quantity:   c.Quantity,
			UnitAmount: payment.ToMinorUnits(p.Price),
		})
	}

	now := s.now().UTC()
	order := model.Order{
		ID:             uuid.NewString(),
		Items:          items,
		Email:          req.Email,
		Total:          req.Total,
		PaymentStatus:  model.PaymentStatusPending,
		DeliveryStatus: model.DeliveryStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	err := s.orders.Create(storeCtx, order)
	cancel()
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("%w: create order: %w", ErrStorage, err)
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	session, err := s.gateway.CreateSession(gwCtx, payment.SessionRequest{
		Items:                    lines,
		Currency:                 s.cfg.Currency,
		CustomerEmail:            req.Email,
		SuccessURL:               s.cfg.SuccessURL,
		CancelURL:                s.cfg.CancelURL,
		CorrelationID:            order.ID,
		AllowedShippingCountries: s.cfg.ShippingCountries,
	})
	if err != nil {
		slog.Error("checkout session failed, pending order kept", "order_id", order.ID, "error", err)
		return CheckoutResult{}, fmt.Errorf("%w: %w", ErrPaymentGateway, err)
	}

	return CheckoutResult{
		OrderID:    order.ID,
		SessionID:  session.ID,
		SessionURL: session.URL,
	}, nil
}

func (s *CheckoutService) resolve(ctx context.Context, productID string) (model.Product, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	p, err := s.catalog.FindByID(lookupCtx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return model.Product{}, fmt.Errorf("%w: unknown product %q: %w", ErrValidation, productID, err)
		}
		return model.Product{}, fmt.Errorf("%w: resolve product %q: %w", ErrStorage, productID, err)
	}
	if p.Price.IsNegative() {
		return model.Product{}, fmt.Errorf("%w: product %q has a negative price", ErrValidation, productID)
	}
	return p, nil
}

// totalLimit is the first amount the orders.total column (NUMERIC(10,2)) cannot hold.
var totalLimit = decimal.New(1, 8)

func validateCheckout(req CheckoutRequest) error {
	if len(req.Cart) == 0 {
		return fmt.Errorf("%w: cart is empty", ErrValidation)
	}
	for i, c := range req.Cart {
		if c.ProductID == "" {
			return fmt.Errorf("%w: cart item %d has no product", ErrValidation, i)
		}
		if c.Quantity <= 0 {
			return fmt.Errorf("%w: cart item %d has quantity %d", ErrValidation, i, c.Quantity)
		}
	}
	if req.Total.IsNegative() {
		return fmt.Errorf("%w: total must not be negative", ErrValidation)
	}
	if req.Total.GreaterThanOrEqual(totalLimit) {
		return fmt.Errorf("%w: total must be below %s", ErrValidation, totalLimit)
	}
	if !req.Total.Equal(req.Total.Round(2)) {
		return fmt.Errorf("%w: total has more than two decimal places", ErrValidation)
	}
	return nil
}

// HandleWebhook authenticates and applies a payment provider event. Only a failed
// signature check is returned; every other failure is logged and absorbed so the
// provider does not keep redelivering.
func (s *CheckoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ParseEvent(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			slog.Warn("webhook rejected", "error", err)
			return fmt.Errorf("%w: %w", ErrSignatureVerification, err)
		}
		slog.Error("webhook event could not be decoded", "event_id", event.ID, "type", event.Type, "error", err)
		return nil
	}

	if event.Type != payment.EventCheckoutSessionCompleted {
		slog.Debug("webhook event ignored", "event_id", event.ID, "type", event.Type)
		return nil
	}

	s.applyCompletedSession(ctx, event)
	return nil
}

func (s *CheckoutService) applyCompletedSession(ctx context.Context, event payment.Event) {
	orderID := event.CorrelationID
	if _, err := uuid.Parse(orderID); err != nil {
		slog.Warn("order not found for completed session", "event_id", event.ID, "order_id", orderID)
		return
	}

	var method string
	if len(event.PaymentMethodTypes) > 0 {
		method = event.PaymentMethodTypes[0]
	}

	// An authenticated event is applied even if the provider hangs up mid-request.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
	defer cancel()

	transitioned, err := s.orders.MarkPaid(storeCtx, orderID, repository.PaymentUpdate{
		Email:             event.CustomerEmail,
		Address:           event.Shipping,
		PaymentMethod:     method,
		ProviderPaymentID: event.ProviderPaymentID,
	})
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		slog.Warn("order not found for completed session", "event_id", event.ID, "order_id", orderID)
	case err != nil:
		slog.Error("failed to mark order paid", "event_id", event.ID, "order_id", orderID, "error", err)
	case transitioned:
		slog.Info("order paid", "order_id", orderID, "session_id", event.ProviderPaymentID)
	default:
		slog.Info("duplicate completed session applied", "order_id", orderID, "event_id", event.ID)
	}
}
