package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/chargeseller/backend/internal/services"
)

type ChargeOrderHandler struct {
	service   *services.ChargeOrderService
	validator *services.ValidationHelper
}

func NewChargeOrderHandler(service *services.ChargeOrderService) *ChargeOrderHandler {
	return &ChargeOrderHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// Submit creates and settles a charge order
// @Summary Submit a charge order
// @Description Charge a phone number against the calling seller's balance. Duplicate submissions within the dedupe window are rejected with 409. Insufficient balance records a failed order and returns 422.
// @Tags charge-orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{phone_number=int,amount=string} true "Charge order"
// @Success 201 {object} models.ChargeOrder
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} map[string]interface{} "Duplicate order"
// @Failure 422 {object} map[string]interface{} "Insufficient balance"
// @Failure 503 {object} map[string]string "Seller account busy"
// @Router /charge-orders [post]
func (h *ChargeOrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := sellerFromContext(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		PhoneNumber int64           `json:"phone_number" validate:"required"`
		Amount      decimal.Decimal `json:"amount"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	order, err := h.service.Submit(r.Context(), sellerID, req.PhoneNumber, req.Amount)
	if errors.Is(err, services.ErrInsufficientFunds) && order != nil {
		// The failed order is committed and returned so the caller can see
		// the audit record.
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": err.Error(),
			"order": order,
		})
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// List returns the calling seller's charge orders
// @Summary List charge orders
// @Tags charge-orders
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.ChargeOrder
// @Router /charge-orders [get]
func (h *ChargeOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := sellerFromContext(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	orders, err := h.service.ListBySeller(r.Context(), sellerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// Get returns one charge order
// @Summary Get a charge order
// @Tags charge-orders
// @Produce json
// @Security BearerAuth
// @Param id path int true "Charge order ID"
// @Success 200 {object} models.ChargeOrder
// @Failure 404 {object} services.ErrorResponse
// @Router /charge-orders/{id} [get]
func (h *ChargeOrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		services.SendErrorResponse(w, "Invalid id", http.StatusBadRequest, nil)
		return
	}

	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if sellerID, ok := sellerFromContext(r); !isAdmin(r) && (!ok || order.SellerID != sellerID) {
		writeDomainError(w, services.ErrNotFound)
		return
	}

	writeJSON(w, http.StatusOK, order)
}
