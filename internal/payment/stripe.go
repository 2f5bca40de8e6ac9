package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
)

type stripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type StripeConfig struct {
	APIKey        string
	WebhookSecret string
	Backends      *stripe.Backends

	sessions stripeSessionAPI
}

// StripeGateway creates Stripe Checkout sessions and verifies Stripe webhook signatures.
type StripeGateway struct {
	sessions      stripeSessionAPI
	webhookSecret string
}

func NewStripeGateway(cfg StripeConfig) (*StripeGateway, error) {
	secret := strings.TrimSpace(cfg.WebhookSecret)
	if secret == "" {
		return nil, errors.New("stripe: webhook secret is required")
	}

	sessions := cfg.sessions
	if sessions == nil {
		apiKey := strings.TrimSpace(cfg.APIKey)
		if apiKey == "" {
			return nil, errors.New("stripe: api key is required")
		}
		sessions = client.New(apiKey, cfg.Backends).CheckoutSessions
	}

	return &StripeGateway{
		sessions:      sessions,
		webhookSecret: secret,
	}, nil
}

func (g *StripeGateway) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.CorrelationID),
	}
	params.Context = ctx
	// Retries of the same order must not open a second session.
	params.SetIdempotencyKey("checkout-session-" + req.CorrelationID)

	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if len(req.AllowedShippingCountries) > 0 {
		params.ShippingAddressCollection = &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(req.AllowedShippingCountries),
		}
	}

	currency := strings.ToLower(req.Currency)
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		line := &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(item.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(item.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		}
		if item.ImageURL != "" {
			line.PriceData.ProductData.Images = stripe.StringSlice([]string{item.ImageURL})
		}
		lineItems = append(lineItems, line)
	}
	params.LineItems = lineItems

	session, err := g.sessions.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	slog.Info("checkout session created", "session_id", session.ID, "order_id", req.CorrelationID)

	return Session{ID: session.ID, URL: session.URL}, nil
}

// collectedShipping is where API versions from 2025-03-31 onward report the
// shipping address of a checkout session.
type collectedShipping struct {
	CollectedInformation *struct {
		ShippingDetails *stripe.ShippingDetails `json:"shipping_details"`
	} `json:"collected_information"`
}

// ParseEvent authenticates a raw webhook body against its Stripe-Signature header and
// decodes it. The payload must be the exact bytes received.
func (g *StripeGateway) ParseEvent(payload []byte, signatureHeader string) (Event, error) {
	if err := webhook.ValidatePayloadWithTolerance(payload, signatureHeader, g.webhookSecret, webhook.DefaultTolerance); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	// Endpoint API versions are pinned in the dashboard and may differ from the SDK's,
	// so the version is not checked.
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return Event{}, fmt.Errorf("%w: decode event: %w", ErrMalformedEvent, err)
	}

	out := Event{ID: event.ID, Type: string(event.Type)}
	if out.Type != EventCheckoutSessionCompleted {
		return out, nil
	}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return out, fmt.Errorf("%w: event %s has no data", ErrMalformedEvent, event.ID)
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return out, fmt.Errorf("%w: decode checkout session: %w", ErrMalformedEvent, err)
	}

	out.CorrelationID = session.ClientReferenceID
	out.ProviderPaymentID = session.ID
	out.PaymentMethodTypes = session.PaymentMethodTypes
	out.CustomerEmail = session.CustomerEmail
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		out.CustomerEmail = session.CustomerDetails.Email
	}

	sd := session.ShippingDetails
	if sd == nil {
		var collected collectedShipping
		if err := json.Unmarshal(event.Data.Raw, &collected); err != nil {
			return out, fmt.Errorf("%w: decode collected information: %w", ErrMalformedEvent, err)
		}
		if collected.CollectedInformation != nil {
			sd = collected.CollectedInformation.ShippingDetails
		}
	}
	if sd != nil {
		out.Shipping.Name = sd.Name
		if a := sd.Address; a != nil {
			out.Shipping.Street = a.Line1
			out.Shipping.City = a.City
			out.Shipping.State = a.State
			out.Shipping.PostalCode = a.PostalCode
			out.Shipping.Country = a.Country
		}
	}

	return out, nil
}
