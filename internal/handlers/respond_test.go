package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chargeseller/backend/internal/services"
)

func TestWriteDomainError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"invalid amount", services.ErrInvalidAmount, http.StatusBadRequest},
		{"not found", services.ErrNotFound, http.StatusNotFound},
		{"already processed", services.ErrAlreadyProcessed, http.StatusConflict},
		{"already exists", services.ErrAlreadyExists, http.StatusConflict},
		{"insufficient funds", services.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{"busy", services.ErrBusy, http.StatusServiceUnavailable},
		{"reference collision", services.ErrDuplicateReference, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeDomainError(w, c.err)
			assert.Equal(t, c.code, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		})
	}

	t.Run("duplicate order carries the original order", func(t *testing.T) {
		w := httptest.NewRecorder()
		writeDomainError(w, &services.DuplicateOrderError{OrderID: 7, RetryCount: 2})

		assert.Equal(t, http.StatusConflict, w.Code)

		var body map[string]any
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.EqualValues(t, 7, body["order_id"])
		assert.EqualValues(t, 2, body["retry_count"])
	})
}
