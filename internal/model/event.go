package model

import (
	"encoding/json"
	"time"
)

const EventOrderPaid = "order.paid"

// OrderEvent is an outbox row waiting to be published to the broker.
type OrderEvent struct {
	ID          int64           `json:"id"`
	OrderID     string          `json:"order_id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
}

// OrderPaid is the payload of an EventOrderPaid event.
type OrderPaid struct {
	OrderID           string    `json:"order_id"`
	Email             string    `json:"email"`
	Total             string    `json:"total"`
	PaymentMethod     string    `json:"payment_method"`
	ProviderPaymentID string    `json:"provider_payment_id"`
	PaidAt            time.Time `json:"paid_at"`
}
