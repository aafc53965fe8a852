package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// HTTP
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Audit fan-out
	AuditWrites       *prometheus.CounterVec
	AuditWriteErrors  *prometheus.CounterVec
	AuditWriteLatency prometheus.Histogram

	// Notifications
	NotificationsSent   *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec
	RemindersDispatched prometheus.Counter
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		AuditWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "audit_writes_total",
			Help:      "Audit log writes by target table",
		}, []string{"target"}),
		AuditWriteErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "audit_write_errors_total",
			Help:      "Swallowed audit write failures by target table",
		}, []string{"target"}),
		AuditWriteLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "audit_write_duration_seconds",
			Help:      "Time spent writing audit entries",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_sent_total",
			Help:      "Notifications delivered by channel",
		}, []string{"channel"}),
		NotificationsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_failed_total",
			Help:      "Notification delivery failures by channel",
		}, []string{"channel"}),
		RemindersDispatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reminders_dispatched_total",
			Help:      "Appointment reminders dispatched by the worker",
		}),
	}
}
