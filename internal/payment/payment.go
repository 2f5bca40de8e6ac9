// Package payment talks to the hosted checkout provider: it opens checkout sessions
// and authenticates the webhook events the provider sends back.
package payment

import (
	"errors"

	"github.com/shopspring/decimal"

	"storefront/internal/model"
)

const EventCheckoutSessionCompleted = "checkout.session.completed"

var (
	// ErrInvalidSignature is returned when a webhook payload fails authentication.
	ErrInvalidSignature = errors.New("payment: invalid webhook signature")
	// ErrMalformedEvent is returned for authentic events whose body cannot be decoded.
	ErrMalformedEvent = errors.New("payment: malformed event")
)

// LineItem is one priced line of a checkout session. UnitAmount is in minor units.
type LineItem struct {
	Name       string
	ImageURL   string
	Quantity   int64
	UnitAmount int64
}

type SessionRequest struct {
	Items                    []LineItem
	Currency                 string
	CustomerEmail            string
	SuccessURL               string
	CancelURL                string
	CorrelationID            string
	AllowedShippingCountries []string
}

type Session struct {
	ID  string
	URL string
}

// Event is the provider-neutral view of a webhook delivery. Only the fields of a
// completed checkout session are populated; other event types carry ID and Type.
type Event struct {
	ID                 string
	Type               string
	CorrelationID      string
	CustomerEmail      string
	Shipping           model.Address
	PaymentMethodTypes []string
	ProviderPaymentID  string
}

// ToMinorUnits converts a major-unit amount (e.g. 15.00) to integer cents, rounding
// half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
