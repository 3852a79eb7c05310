package handlers

import (
	"net/http"

	"github.com/chargeseller/backend/internal/services"
)

type SellerHandler struct {
	sellers      *services.SellerService
	transactions *services.TransactionService
}

func NewSellerHandler(sellers *services.SellerService, transactions *services.TransactionService) *SellerHandler {
	return &SellerHandler{sellers: sellers, transactions: transactions}
}

// Me returns the calling seller's account
// @Summary Get own seller account
// @Tags sellers
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Seller
// @Failure 404 {object} services.ErrorResponse
// @Router /sellers/me [get]
func (h *SellerHandler) Me(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := sellerFromContext(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	seller, err := h.sellers.Get(r.Context(), sellerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, seller)
}

// Reconcile checks the calling seller's ledger against their balance
// @Summary Reconcile own ledger
// @Description Sum the signed deltas of completed ledger entries and compare them with the current balance.
// @Tags sellers
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /sellers/me/reconcile [get]
func (h *SellerHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := sellerFromContext(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	delta, balance, err := h.transactions.Reconcile(r.Context(), sellerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ledger_delta": delta,
		"balance":      balance,
		"consistent":   delta.Equal(balance),
	})
}
