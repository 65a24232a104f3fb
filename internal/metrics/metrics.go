// README: Prometheus counters for HTTP traffic, workflow outcomes and distance lookups.
package metrics

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ridebook"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	rideOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ride_operations_total",
			Help:      "Booking workflow operations by outcome.",
		},
		[]string{"operation", "result"},
	)

	bookedAmount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booked_amount_cents_total",
			Help:      "Sum of booked amounts in cents.",
		},
	)

	refundedAmount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refunded_amount_cents_total",
			Help:      "Sum of cancellation refunds in cents.",
		},
	)

	distanceLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "distance_lookups_total",
			Help:      "Distance lookups by source (cache_hit, cache_miss, provided, error).",
		},
		[]string{"source"},
	)
)

// Register registers the collectors once. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, rideOperations, bookedAmount, refundedAmount, distanceLookups)
	})
}

func IncHTTP(method, route string, status int) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func IncRideOperation(operation, result string) {
	rideOperations.WithLabelValues(operation, result).Inc()
}

func AddBooked(cents int64) {
	if cents > 0 {
		bookedAmount.Add(float64(cents))
	}
}

func AddRefunded(cents int64) {
	if cents > 0 {
		refundedAmount.Add(float64(cents))
	}
}

func IncDistanceLookup(source string) {
	distanceLookups.WithLabelValues(source).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
