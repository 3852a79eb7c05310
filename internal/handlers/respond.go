package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/chargeseller/backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeDomainError maps the service error taxonomy onto HTTP statuses. Every
// domain error reaches the caller; unknown errors are logged and reported as
// internal (this includes reference id collisions, which are invariant
// violations, not client mistakes).
func writeDomainError(w http.ResponseWriter, err error) {
	var dup *services.DuplicateOrderError
	switch {
	case errors.As(err, &dup):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":       "duplicate charge order",
			"order_id":    dup.OrderID,
			"retry_count": dup.RetryCount,
		})
	case errors.Is(err, services.ErrInvalidAmount):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, services.ErrAlreadyProcessed), errors.Is(err, services.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrInsufficientFunds):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrBusy):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		log.Printf("[HTTP] Internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func sellerFromContext(r *http.Request) (int64, bool) {
	sellerID, ok := r.Context().Value("sellerID").(int64)
	return sellerID, ok && sellerID != 0
}

func userFromContext(r *http.Request) (int64, bool) {
	userID, ok := r.Context().Value("userID").(int64)
	return userID, ok && userID != 0
}

func isAdmin(r *http.Request) bool {
	admin, ok := r.Context().Value("isAdmin").(bool)
	return ok && admin
}
