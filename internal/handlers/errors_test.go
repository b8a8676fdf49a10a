package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/sjperalta/pratiche-api/pkg/errors"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperrors.Validation("bad"), http.StatusBadRequest},
		{apperrors.RateResolution("none"), http.StatusUnprocessableEntity},
		{apperrors.StateConflict("paid", "already paid"), http.StatusConflict},
		{apperrors.NotFound("plan", 1), http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", apperrors.NotFound("plan", 1)), http.StatusNotFound},
		{apperrors.Database(errors.New("deadlock")), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestRespondError_HidesServerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	respondError(c, apperrors.Database(errors.New("pq: password authentication failed")))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}
