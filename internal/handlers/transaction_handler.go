package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/chargeseller/backend/internal/models"
	"github.com/chargeseller/backend/internal/services"
)

type TransactionHandler struct {
	service *services.TransactionService
}

func NewTransactionHandler(service *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{service: service}
}

// List returns ledger entries
// @Summary List transactions
// @Description List ledger entries, newest first. Sellers see their own entries only; admins may filter by seller. Supports type, phone_number and limit query filters.
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param type query string false "Transaction type (credit_increase or charge_sale)"
// @Param seller query int false "Seller ID (admin only)"
// @Param phone_number query int false "Phone number ID"
// @Param limit query int false "Max entries (default 100, cap 500)"
// @Success 200 {array} models.Transaction
// @Router /transactions [get]
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	var filters services.TransactionFilters

	if raw := r.URL.Query().Get("type"); raw != "" {
		var t models.TransactionType
		if err := t.UnmarshalText([]byte(raw)); err != nil {
			services.SendErrorResponse(w, "Invalid transaction type", http.StatusBadRequest, nil)
			return
		}
		filters.Type = &t
	}

	if raw := r.URL.Query().Get("phone_number"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			services.SendErrorResponse(w, "Invalid phone_number filter", http.StatusBadRequest, nil)
			return
		}
		filters.PhoneNumberID = &id
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			services.SendErrorResponse(w, "Invalid limit", http.StatusBadRequest, nil)
			return
		}
		filters.Limit = limit
	}

	// Sellers are always scoped to their own ledger, regardless of any
	// seller filter they pass. Admins may pick a seller or see everything.
	if isAdmin(r) {
		if raw := r.URL.Query().Get("seller"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				services.SendErrorResponse(w, "Invalid seller filter", http.StatusBadRequest, nil)
				return
			}
			filters.SellerID = &id
		}
	} else {
		sellerID, ok := sellerFromContext(r)
		if !ok {
			services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
			return
		}
		filters.SellerID = &sellerID
	}

	transactions, err := h.service.List(r.Context(), filters)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transactions)
}

// Get returns one ledger entry by reference id
// @Summary Get a transaction
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param reference path string true "Transaction reference ID"
// @Success 200 {object} models.Transaction
// @Failure 404 {object} services.ErrorResponse
// @Router /transactions/{reference} [get]
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	t, err := h.service.Get(r.Context(), reference)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if sellerID, ok := sellerFromContext(r); !isAdmin(r) && (!ok || t.SellerID != sellerID) {
		writeDomainError(w, services.ErrNotFound)
		return
	}

	writeJSON(w, http.StatusOK, t)
}
