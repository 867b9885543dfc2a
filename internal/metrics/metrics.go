package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rental_http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rental_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// BookingsTotal counts createBooking outcomes: created, conflict, unavailable
	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rental_bookings_total",
			Help: "Booking creation attempts by outcome",
		},
		[]string{"outcome"},
	)

	BookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rental_booking_transitions_total",
			Help: "Booking state transitions",
		},
		[]string{"to"},
	)

	PaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rental_payments_total",
			Help: "Payment submissions by method and resulting status",
		},
		[]string{"method", "status"},
	)

	CardGatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rental_card_gateway_duration_seconds",
			Help:    "Card intent confirmation latency by gateway and result",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 15, 30},
		},
		[]string{"gateway", "result"},
	)

	ReviewDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rental_review_decisions_total",
			Help: "Owner/admin review decisions",
		},
		[]string{"subject", "outcome"},
	)

	LockWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rental_lock_wait_seconds",
			Help:    "Time spent waiting for per-property and per-booking locks",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
	)
)
