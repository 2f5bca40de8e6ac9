package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/internal/service"
)

type deliveryStatusRequest struct {
	DeliveryStatus string `json:"deliveryStatus"`
}

func ListOrdersHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := orderSvc.List(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}

		if len(orders) == 0 {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "no orders found"})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
	}
}

func GetOrderHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := orderSvc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, order)
	}
}

func UpdateDeliveryStatusHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req deliveryStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}

		if err := orderSvc.UpdateDeliveryStatus(r.Context(), chi.URLParam(r, "id"), req.DeliveryStatus); err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "delivery status updated"})
	}
}

func DeleteOrderHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := orderSvc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "order deleted"})
	}
}
