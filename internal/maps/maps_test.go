package maps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

const distanceMatrixOK = `{
  "status": "OK",
  "origin_addresses": ["Paris, France"],
  "destination_addresses": ["Montreuil, France"],
  "rows": [{"elements": [{"status": "OK",
    "distance": {"text": "7.9 km", "value": 7912},
    "duration": {"text": "20 mins", "value": 1200}}]}]
}`

const geocodeOK = `{
  "status": "OK",
  "results": [{
    "formatted_address": "3 Rue Armand Moisant, 75015 Paris, France",
    "address_components": [
      {"long_name": "3", "short_name": "3", "types": ["street_number"]},
      {"long_name": "Paris", "short_name": "Paris", "types": ["locality", "political"]},
      {"long_name": "France", "short_name": "FR", "types": ["country", "political"]}
    ],
    "geometry": {"location": {"lat": 48.84, "lng": 2.31}}
  }]
}`

func fakeGoogle(t *testing.T, handler http.HandlerFunc) *DistanceService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	svc, err := NewDistanceService("test-key", time.Second, zerolog.Nop(), maps.WithBaseURL(srv.URL))
	require.NoError(t, err)
	return svc
}

func TestDistanceKm(t *testing.T) {
	svc := fakeGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/distancematrix/json"))
		assert.Equal(t, "Paris", r.URL.Query().Get("origins"))
		assert.Equal(t, "Montreuil", r.URL.Query().Get("destinations"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(distanceMatrixOK))
	})

	km, err := svc.DistanceKm(context.Background(), "Paris", "Montreuil")
	require.NoError(t, err)
	assert.InDelta(t, 7.912, km, 1e-9)
}

func TestDistanceKmFailures(t *testing.T) {
	cases := []struct {
		name string
		body string
		code int
	}{
		{"api status", `{"status":"REQUEST_DENIED","error_message":"bad key","rows":[]}`, http.StatusOK},
		{"no rows", `{"status":"OK","rows":[]}`, http.StatusOK},
		{"element not found", `{"status":"OK","rows":[{"elements":[{"status":"NOT_FOUND"}]}]}`, http.StatusOK},
		{"server error", `oops`, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := fakeGoogle(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.code)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := svc.DistanceKm(context.Background(), "Paris", "Nowhere")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNoDistance))
		})
	}
}

func TestCityName(t *testing.T) {
	svc := fakeGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(geocodeOK))
	})
	city, ok := svc.CityName(context.Background(), "3 rue Armand Moisant, 75015 Paris")
	require.True(t, ok)
	assert.Equal(t, "Paris", city)
}

func TestCityNameBestEffort(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"denied", `{"status":"REQUEST_DENIED","results":[]}`},
		{"zero results", `{"status":"ZERO_RESULTS","results":[]}`},
		{"no locality", `{"status":"OK","results":[{"address_components":[{"long_name":"France","types":["country"]}]}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := fakeGoogle(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			})
			city, ok := svc.CityName(context.Background(), "somewhere")
			assert.False(t, ok)
			assert.Empty(t, city)
		})
	}
}

type countingProvider struct {
	km    float64
	err   error
	calls int
}

func (p *countingProvider) DistanceKm(context.Context, string, string) (float64, error) {
	p.calls++
	return p.km, p.err
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCachedDistance(t *testing.T) {
	mr, rdb := setupRedis(t)
	next := &countingProvider{km: 7.912}
	c := NewCachedDistance(next, rdb, time.Hour, zerolog.Nop())
	ctx := context.Background()

	km, err := c.DistanceKm(ctx, "Paris", "Montreuil")
	require.NoError(t, err)
	assert.Equal(t, 7.912, km)

	km, err = c.DistanceKm(ctx, " paris ", "MONTREUIL")
	require.NoError(t, err)
	assert.Equal(t, 7.912, km)
	assert.Equal(t, 1, next.calls, "second lookup should be served from redis")

	val, err := mr.Get("ridebook:distance:5:paris|montreuil")
	require.NoError(t, err)
	assert.Equal(t, "7.912", val)

	mr.FastForward(2 * time.Hour)
	_, err = c.DistanceKm(ctx, "Paris", "Montreuil")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls, "expired entry should refetch")
}

func TestCachedDistanceSeparatorInAddress(t *testing.T) {
	assert.NotEqual(t, cacheKey("a|b", "c"), cacheKey("a", "b|c"))

	_, rdb := setupRedis(t)
	next := &countingProvider{km: 3}
	c := NewCachedDistance(next, rdb, time.Hour, zerolog.Nop())
	ctx := context.Background()

	_, err := c.DistanceKm(ctx, "a|b", "c")
	require.NoError(t, err)
	next.km = 9
	km, err := c.DistanceKm(ctx, "a", "b|c")
	require.NoError(t, err)
	assert.Equal(t, 9.0, km)
	assert.Equal(t, 2, next.calls)
}

func TestCachedDistanceDoesNotCacheErrors(t *testing.T) {
	mr, rdb := setupRedis(t)
	next := &countingProvider{err: errors.New("quota exceeded")}
	c := NewCachedDistance(next, rdb, time.Hour, zerolog.Nop())

	_, err := c.DistanceKm(context.Background(), "Paris", "Lyon")
	require.Error(t, err)
	assert.False(t, mr.Exists("ridebook:distance:5:paris|lyon"))
}

func TestCachedDistanceRedisDown(t *testing.T) {
	mr, rdb := setupRedis(t)
	next := &countingProvider{km: 3}
	c := NewCachedDistance(next, rdb, time.Hour, zerolog.Nop())
	mr.Close()

	km, err := c.DistanceKm(context.Background(), "Paris", "Lyon")
	require.NoError(t, err)
	assert.Equal(t, 3.0, km)
}

func TestCachedDistanceMalformedEntry(t *testing.T) {
	mr, rdb := setupRedis(t)
	require.NoError(t, mr.Set("ridebook:distance:5:paris|lyon", "not-a-number"))
	next := &countingProvider{km: 465}
	c := NewCachedDistance(next, rdb, time.Hour, zerolog.Nop())

	km, err := c.DistanceKm(context.Background(), "Paris", "Lyon")
	require.NoError(t, err)
	assert.Equal(t, 465.0, km)
	assert.Equal(t, 1, next.calls)
}
