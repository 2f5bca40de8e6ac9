package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// Delivery status is free-form; these are the values the storefront uses.
const (
	DeliveryStatusPending = "En attente"
	DeliveryStatusShipped = "Expédié"
)

type Order struct {
	ID                string          `json:"id"`
	Items             []OrderItem     `json:"products"`
	Email             string          `json:"email"`
	Address           Address         `json:"address"`
	Total             decimal.Decimal `json:"total"`
	PaymentStatus     PaymentStatus   `json:"paymentStatus"`
	DeliveryStatus    string          `json:"deliveryStatus"`
	PaymentMethod     string          `json:"paymentMethod"`
	ProviderPaymentID string          `json:"orderID"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// OrderItem is a snapshot of a cart line taken when the order is created.
type OrderItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

type Address struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}
