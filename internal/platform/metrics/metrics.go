package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the registration backend.
type Metrics struct {
	RegistrationsCreated prometheus.Counter
	StudentsEnrolled     prometheus.Counter
	PaymentsSubmitted    prometheus.Counter
	ReviewsApplied       *prometheus.CounterVec
	NotificationsFailed  prometheus.Counter
	NotificationsDropped prometheus.Counter
	RequestLatency       *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RegistrationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bom_registrations_created_total",
			Help: "Total number of registrations created.",
		}),
		StudentsEnrolled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bom_students_enrolled_total",
			Help: "Total number of students added to registrations.",
		}),
		PaymentsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bom_payments_submitted_total",
			Help: "Total number of payment references submitted.",
		}),
		ReviewsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bom_reviews_applied_total",
			Help: "Admin review transitions applied, by outcome.",
		}, []string{"outcome"}),
		NotificationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bom_notifications_failed_total",
			Help: "Notification deliveries that failed after the response was sent.",
		}),
		NotificationsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bom_notifications_dropped_total",
			Help: "Notifications dropped because the dispatch queue was full.",
		}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bom_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// NewForTest creates metrics on a private registry so parallel tests do not
// collide on duplicate registration.
func NewForTest() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		RegistrationsCreated: factory.NewCounter(prometheus.CounterOpts{Name: "bom_registrations_created_total"}),
		StudentsEnrolled:     factory.NewCounter(prometheus.CounterOpts{Name: "bom_students_enrolled_total"}),
		PaymentsSubmitted:    factory.NewCounter(prometheus.CounterOpts{Name: "bom_payments_submitted_total"}),
		ReviewsApplied:       factory.NewCounterVec(prometheus.CounterOpts{Name: "bom_reviews_applied_total"}, []string{"outcome"}),
		NotificationsFailed:  factory.NewCounter(prometheus.CounterOpts{Name: "bom_notifications_failed_total"}),
		NotificationsDropped: factory.NewCounter(prometheus.CounterOpts{Name: "bom_notifications_dropped_total"}),
		RequestLatency:       factory.NewHistogramVec(prometheus.HistogramOpts{Name: "bom_http_request_duration_seconds"}, []string{"route", "status"}),
	}
}
