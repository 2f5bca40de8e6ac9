package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"storefront/internal/service"
)

// Stripe event bodies stay far below this.
const maxWebhookBody = 1 << 20

type cartItemRequest struct {
	ProductID string `json:"productId"`
	LegacyID  string `json:"_id"`
	Quantity  int64  `json:"quantity"`
	Qty       int64  `json:"qty"`
}

// The client also posts an address; it is ignored because the shipping address is
// only ever taken from the completed checkout session.
type checkoutRequest struct {
	Cart  []cartItemRequest `json:"cart"`
	Email string            `json:"email"`
	Total decimal.Decimal   `json:"total"`
}

type checkoutResponse struct {
	SessionURL string `json:"sessionUrl"`
	OrderID    string `json:"orderId"`
	Success    bool   `json:"success"`
}

func CreateCheckoutSessionHandler(checkoutSvc *service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req checkoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}

		cart := make([]service.CartItem, 0, len(req.Cart))
		for _, item := range req.Cart {
			c := service.CartItem{ProductID: item.ProductID, Quantity: item.Quantity}
			if c.ProductID == "" {
				c.ProductID = item.LegacyID
			}
			if c.Quantity == 0 {
				c.Quantity = item.Qty
			}
			cart = append(cart, c)
		}

		res, err := checkoutSvc.InitiateCheckout(r.Context(), service.CheckoutRequest{
			Cart:  cart,
			Email: req.Email,
			Total: req.Total,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, checkoutResponse{
			SessionURL: res.SessionURL,
			OrderID:    res.OrderID,
			Success:    true,
		})
	}
}

// WebhookHandler acknowledges every authentic delivery with 200. Only a payload that
// cannot be authenticated gets a 500, which makes the provider retry.
func WebhookHandler(checkoutSvc *service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				slog.Error("webhook body too large", "limit", tooLarge.Limit)
				writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
				return
			}
			slog.Warn("webhook body unreadable", "error", err)
			http.Error(w, "Error", http.StatusInternalServerError)
			return
		}

		if err := checkoutSvc.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
			http.Error(w, "Error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}
