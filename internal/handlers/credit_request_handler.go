package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/chargeseller/backend/internal/models"
	"github.com/chargeseller/backend/internal/services"
)

type CreditRequestHandler struct {
	service   *services.CreditRequestService
	validator *services.ValidationHelper
}

func NewCreditRequestHandler(service *services.CreditRequestService) *CreditRequestHandler {
	return &CreditRequestHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// Submit creates a pending credit request for the calling seller
// @Summary Submit a credit request
// @Description Request a balance top-up, pending admin approval
// @Tags credit-requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{amount=string,description=string} true "Credit request"
// @Success 201 {object} models.CreditRequest
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /credit-requests [post]
func (h *CreditRequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := sellerFromContext(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description" validate:"max=500"`
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

	created, err := h.service.Submit(r.Context(), sellerID, req.Amount, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// List returns the calling seller's credit requests
// @Summary List credit requests
// @Tags credit-requests
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.CreditRequest
// @Router /credit-requests [get]
func (h *CreditRequestHandler) List(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := sellerFromContext(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	requests, err := h.service.ListBySeller(r.Context(), sellerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requests)
}

// Get returns one credit request
// @Summary Get a credit request
// @Tags credit-requests
// @Produce json
// @Security BearerAuth
// @Param id path int true "Credit request ID"
// @Success 200 {object} models.CreditRequest
// @Failure 404 {object} services.ErrorResponse
// @Router /credit-requests/{id} [get]
func (h *CreditRequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		services.SendErrorResponse(w, "Invalid id", http.StatusBadRequest, nil)
		return
	}

	req, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Sellers only see their own requests; admins see all.
	if sellerID, ok := sellerFromContext(r); !isAdmin(r) && (!ok || req.SellerID != sellerID) {
		writeDomainError(w, services.ErrNotFound)
		return
	}

	writeJSON(w, http.StatusOK, req)
}

// Decide approves or rejects a pending credit request
// @Summary Decide a credit request
// @Description Approve or reject a pending credit request. Approval credits the seller's balance. A request is decided at most once.
// @Tags credit-requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Credit request ID"
// @Param request body object{decision=string} true "Decision: approved or rejected"
// @Success 200 {object} models.CreditRequest
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /credit-requests/{id}/decision [put]
func (h *CreditRequestHandler) Decide(w http.ResponseWriter, r *http.Request) {
	actorID, ok := userFromContext(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		services.SendErrorResponse(w, "Invalid id", http.StatusBadRequest, nil)
		return
	}

	var req struct {
		Decision models.CreditRequestStatus `json:"decision"`
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

	decided, err := h.service.Decide(r.Context(), id, req.Decision, actorID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, decided)
}
