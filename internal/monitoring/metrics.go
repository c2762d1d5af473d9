package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.  Failed operations are labelled with the error kind
// (not_found, conflict, quota_exceeded, ...) instead.
const (
	OutcomeOK = "ok"
)

var (
	bookingOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seat_booking_operations_total",
			Help: "Booking engine operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	bookingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seat_booking_operation_duration_seconds",
			Help:    "Latency of booking engine operations",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation"},
	)

	eventPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seat_event_publish_failures_total",
			Help: "Seat events that could not be delivered to the broker",
		},
	)
)

// TrackOperation records one finished booking engine call.
func TrackOperation(operation, outcome string, started time.Time) {
	bookingOperations.WithLabelValues(operation, outcome).Inc()
	bookingDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// TrackPublishFailure counts an event that the broker did not accept.
func TrackPublishFailure() {
	eventPublishFailures.Inc()
}
