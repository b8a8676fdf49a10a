package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.PlansGenerated.WithLabelValues("french").Inc()
	m.PlansGenerated.WithLabelValues("french").Inc()
	m.PaymentsRegistered.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PlansGenerated.WithLabelValues("french")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PaymentsRegistered))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.PaymentsReversed))
}

func TestHandler(t *testing.T) {
	m := New()
	m.FallbackResolutions.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pratiche_rate_fallback_resolutions_total 1")
}
