// Package metrics holds the business counters exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_capacity_claims_total",
			Help: "Capacity claims by booking kind and result",
		},
		[]string{"kind", "result"},
	)

	ReleasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_capacity_releases_total",
			Help: "Capacity releases by booking kind and result",
		},
		[]string{"kind", "result"},
	)

	ClaimConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "travel_capacity_version_conflicts_total",
			Help: "Optimistic claim attempts lost to a concurrent writer",
		},
	)

	BookingTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_booking_transitions_total",
			Help: "Booking status changes by kind and target status",
		},
		[]string{"kind", "status"},
	)

	PaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_payments_total",
			Help: "Payment status changes by status",
		},
		[]string{"status"},
	)

	FanoutStepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_payment_fanout_steps_total",
			Help: "Per-booking confirmation steps after payment verification",
		},
		[]string{"kind", "result"},
	)

	PanicsRecoveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "travel_panics_recovered_total",
			Help: "Total number of recovered panics",
		},
	)
)
