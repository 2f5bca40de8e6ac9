package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"storefront/internal/repository"
	"storefront/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps a service error category to a status code. Causes are
// logged but not exposed to the client.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, service.ErrPaymentGateway):
		slog.Error("payment gateway failure", "error", err)
		writeError(w, http.StatusBadGateway, "failed to create checkout session")
	case errors.Is(err, service.ErrStorage):
		slog.Error("storage failure", "error", err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		slog.Error("unexpected error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
