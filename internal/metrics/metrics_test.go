package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("POST", "/book", 201)
		IncDistanceLookup("cache_hit")
		AddBooked(-5)
		AddRefunded(0)
	})

	before := testutil.ToFloat64(rideOperations.WithLabelValues("book", "ok"))
	IncRideOperation("book", "ok")
	assert.Equal(t, before+1, testutil.ToFloat64(rideOperations.WithLabelValues("book", "ok")))

	booked := testutil.ToFloat64(bookedAmount)
	AddBooked(700)
	assert.Equal(t, booked+700, testutil.ToFloat64(bookedAmount))
}

func TestHandlerExposesCounters(t *testing.T) {
	Register()
	IncRideOperation("cancel", "ok")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "ridebook_ride_operations_total"))
}
