package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjperalta/pratiche-api/internal/models"
)

func rateEnv(t *testing.T) *testEnv {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	june := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	return newTestEnv(t,
		rateRow(1, models.RateTypeLegal, "2.5", jan, nil),
		rateRow(2, models.RateTypeMoratory, "12.25", jan, &june),
	)
}

func TestRateHandler_Index(t *testing.T) {
	env := rateEnv(t)

	w := env.do(http.MethodGet, "/rates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(w)["rates"], 2)

	w = env.do(http.MethodGet, "/rates?type=moratory", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(w)["rates"], 1)

	w = env.do(http.MethodGet, "/rates?type=usury", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateHandler_Resolve(t *testing.T) {
	env := rateEnv(t)

	w := env.do(http.MethodGet, "/rates/resolve?type=legal&date=2024-03-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(w)
	assert.Equal(t, "2.5", body["rate"])
	assert.Equal(t, float64(1), body["rate_id"])
	assert.Equal(t, false, body["fallback"])

	w = env.do(http.MethodGet, "/rates/resolve?type=moratory&date=2024-09-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(w)["fallback"])

	w = env.do(http.MethodGet, "/rates/resolve?type=legal&date=2023-03-01", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(http.MethodGet, "/rates/resolve?type=legal", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
