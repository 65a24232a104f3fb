package http

import (
	"context"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"ridebook/internal/calendar"
	"ridebook/internal/metrics"
	"ridebook/internal/modules/pricing"
	"ridebook/internal/modules/ride"
	"ridebook/internal/storage"
)

func newTestServer(ready func(context.Context) error) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := ride.NewService(storage.NewMemory(), pricing.NewService(pricing.DefaultRate), calendar.NewSystem(nil), nil)
	return NewServer(ServerDeps{
		Rides:       svc,
		Logger:      zerolog.Nop(),
		MetricsPath: "/metrics",
		Ready:       ready,
	}).Routes()
}

func TestHealth(t *testing.T) {
	r := newTestServer(nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(nethttp.MethodGet, "/health", nil))
	assert.Equal(t, nethttp.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	r = newTestServer(func(context.Context) error { return errors.New("db down") })
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(nethttp.MethodGet, "/health", nil))
	assert.Equal(t, nethttp.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "db down")
}

func TestMetricsEndpoint(t *testing.T) {
	metrics.Register()
	r := newTestServer(nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(nethttp.MethodGet, "/history/r1", nil))
	assert.Equal(t, nethttp.StatusOK, w.Code)
	assert.JSONEq(t, `{"rides":[]}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(nethttp.MethodGet, "/metrics", nil))
	assert.Equal(t, nethttp.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `ridebook_http_requests_total{method="GET",route="/history/:riderId",status="200"}`)
}
