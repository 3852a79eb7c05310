package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/chargeseller/backend/internal/services"
)

type PhoneNumberHandler struct {
	service   *services.PhoneNumberService
	validator *services.ValidationHelper
}

func NewPhoneNumberHandler(service *services.PhoneNumberService) *PhoneNumberHandler {
	return &PhoneNumberHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// List returns chargeable phone numbers
// @Summary List phone numbers
// @Tags phone-numbers
// @Produce json
// @Security BearerAuth
// @Param all query bool false "Include inactive numbers (admin view)"
// @Success 200 {array} models.PhoneNumber
// @Router /phone-numbers [get]
func (h *PhoneNumberHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := true
	if r.URL.Query().Get("all") == "true" && isAdmin(r) {
		activeOnly = false
	}

	numbers, err := h.service.List(r.Context(), activeOnly)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, numbers)
}

// Create registers a new chargeable phone number
// @Summary Create a phone number
// @Tags phone-numbers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{phone_number=string} true "Phone number"
// @Success 201 {object} models.PhoneNumber
// @Failure 409 {object} map[string]string "Number already exists"
// @Router /phone-numbers [post]
func (h *PhoneNumberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhoneNumber string `json:"phone_number" validate:"required,min=7,max=20"`
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

	created, err := h.service.Create(r.Context(), req.PhoneNumber)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// Deactivate retires a phone number from the chargeable pool
// @Summary Deactivate a phone number
// @Tags phone-numbers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Phone number ID"
// @Success 204 "Deactivated"
// @Failure 404 {object} services.ErrorResponse
// @Router /phone-numbers/{id} [delete]
func (h *PhoneNumberHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		services.SendErrorResponse(w, "Invalid id", http.StatusBadRequest, nil)
		return
	}

	if err := h.service.Deactivate(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
