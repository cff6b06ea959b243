package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/farmdirect/marketplace_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", utils.ErrorRecordNotFound, http.StatusNotFound},
		{"validation", utils.NewValidationError("quantity", "must be positive"), http.StatusBadRequest},
		{"invalid transition", utils.NewInvalidTransitionError("order", "DELIVERED", "PENDING"), http.StatusConflict},
		{"insufficient stock", &utils.InsufficientStockError{ProductId: 1, Requested: 300, Available: 267}, http.StatusConflict},
		{"concurrency conflict", &utils.ConcurrencyConflictError{Resource: "product 1 stock"}, http.StatusConflict},
		{"external service", &utils.ExternalServiceError{Service: "stripe", Err: errors.New("timeout")}, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		respondError(c, tc.err)

		assert.Equal(t, tc.status, w.Code, tc.name)
		assert.Contains(t, w.Body.String(), "error", tc.name)
	}

	// internal errors never leak their message
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, errors.New("dsn=root:secret@tcp(db)"))
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestPathId(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		raw string
		ok  bool
	}{
		{"42", true},
		{"0", false},
		{"-1", false},
		{"abc", false},
		{"", false},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Params = gin.Params{{Key: "id", Value: tc.raw}}

		id, ok := pathId(c, "id")
		assert.Equal(t, tc.ok, ok, "raw %q", tc.raw)
		if tc.ok {
			assert.Equal(t, 42, id)
		} else {
			assert.Equal(t, http.StatusBadRequest, w.Code, "raw %q", tc.raw)
		}
	}
}
