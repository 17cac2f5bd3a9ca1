// Package monitoring exposes Prometheus metrics for the booking core.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_total",
			Help: "Booking attempts by outcome (seated, waitlisted, rejected)",
		},
		[]string{"outcome"},
	)

	cancellations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cancellations_total",
			Help: "Cancellations by whether a waitlisted member was promoted",
		},
		[]string{"promoted"},
	)

	checkins = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkins_total",
			Help: "Successful member check-ins",
		},
	)

	remindersSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_sent_total",
			Help: "Class reminders dispatched by the sweeper, per kind",
		},
		[]string{"kind"},
	)

	noShowsMarked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "no_shows_marked_total",
			Help: "Reservations transitioned to NO_SHOW by the sweeper",
		},
	)

	bookingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "booking_op_duration_seconds",
			Help:    "Duration of booking service operations",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)
)

// Booking outcomes.
const (
	OutcomeSeated     = "seated"
	OutcomeWaitlisted = "waitlisted"
	OutcomeRejected   = "rejected"
)

func RecordBooking(outcome string)     { bookings.WithLabelValues(outcome).Inc() }
func RecordCheckIn()                   { checkins.Inc() }
func RecordReminder(kind string)       { remindersSent.WithLabelValues(kind).Inc() }
func RecordNoShows(n int64)            { noShowsMarked.Add(float64(n)) }
func ObserveBookingDuration(s float64) { bookingDuration.Observe(s) }

// RecordCancellation tracks a cancellation and whether it promoted the
// head of the waitlist.
func RecordCancellation(promoted bool) {
	v := "false"
	if promoted {
		v = "true"
	}
	cancellations.WithLabelValues(v).Inc()
}
