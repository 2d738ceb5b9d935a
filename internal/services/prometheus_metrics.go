package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric names accepted by the recorder
const (
	MetricAnalyticsRequest     = "analytics_request"
	MetricAnalyticsDuration    = "analytics_duration"
	MetricAnomalyFlagged       = "anomaly_flagged"
	MetricRedistribution       = "redistribution"
	MetricTransactionRecorded  = "transaction_recorded"
	MetricNotificationSent     = "notification_sent"
	MetricNotificationDuration = "notification_delivery"
	MetricCircuitBreakerState  = "circuit_breaker_state"
	MetricAuthenticationEvent  = "authentication_event"
)

type PrometheusMetrics struct {
	analyticsRequests        *prometheus.CounterVec
	analyticsDuration        prometheus.Histogram
	anomaliesFlagged         *prometheus.CounterVec
	redistributions          *prometheus.CounterVec
	transactionsRecorded     prometheus.Counter
	notificationsSent        *prometheus.CounterVec
	notificationDuration     prometheus.Histogram
	circuitBreakerState      *prometheus.GaugeVec
	authenticationEventTotal *prometheus.CounterVec
}

// NewPrometheusMetrics registers the collectors with the default registry.
// Call it once per process.
func NewPrometheusMetrics() MetricsRecorderInterface {
	return &PrometheusMetrics{
		analyticsRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_requests_total",
				Help: "Total number of analytics operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		analyticsDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "analytics_duration_milliseconds",
				Help:    "Analytics operation duration in milliseconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		anomaliesFlagged: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anomalies_flagged_total",
				Help: "Total number of anomaly flags raised by kind and severity",
			},
			[]string{"kind", "severity"},
		),
		redistributions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redistributions_total",
				Help: "Total number of budget redistributions by strategy",
			},
			[]string{"strategy", "stored"},
		),
		transactionsRecorded: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "transactions_recorded_total",
				Help: "Total number of expense transactions recorded",
			},
		),
		notificationsSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_sent_total",
				Help: "Total number of notification delivery attempts by channel and status",
			},
			[]string{"channel", "status"},
		),
		notificationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "notification_delivery_duration_milliseconds",
				Help:    "Notification delivery duration in milliseconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 14),
			},
		),
		circuitBreakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"service"},
		),
		authenticationEventTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authentication_events_total",
				Help: "Total number of authentication events",
			},
			[]string{"event_type"},
		),
	}
}

func (m *PrometheusMetrics) IncrementCounter(name string, tags map[string]string) {
	switch name {
	case MetricAnalyticsRequest:
		m.analyticsRequests.WithLabelValues(tags["operation"], tags["status"]).Inc()
	case MetricAnomalyFlagged:
		m.anomaliesFlagged.WithLabelValues(tags["kind"], tags["severity"]).Inc()
	case MetricRedistribution:
		m.redistributions.WithLabelValues(tags["strategy"], tags["stored"]).Inc()
	case MetricTransactionRecorded:
		m.transactionsRecorded.Inc()
	case MetricNotificationSent:
		m.notificationsSent.WithLabelValues(tags["channel"], tags["status"]).Inc()
	case MetricAuthenticationEvent:
		if eventType := tags["event_type"]; eventType != "" {
			m.authenticationEventTotal.WithLabelValues(eventType).Inc()
		}
	}
}

func (m *PrometheusMetrics) RecordProcessingTime(name string, duration time.Duration) {
	switch name {
	case MetricAnalyticsDuration:
		m.analyticsDuration.Observe(float64(duration.Milliseconds()))
	case MetricNotificationDuration:
		m.notificationDuration.Observe(float64(duration.Milliseconds()))
	}
}

func (m *PrometheusMetrics) RecordGauge(name string, value float64, tags map[string]string) {
	if name == MetricCircuitBreakerState {
		m.circuitBreakerState.WithLabelValues(tags["service"]).Set(value)
	}
}

// noopMetrics discards every measurement
type noopMetrics struct{}

func (noopMetrics) IncrementCounter(string, map[string]string) {}
func (noopMetrics) RecordProcessingTime(string, time.Duration) {}
func (noopMetrics) RecordGauge(string, float64, map[string]string) {}

// recordOperation counts an analytics operation and observes its duration
func recordOperation(m MetricsRecorderInterface, operation string, started time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.IncrementCounter(MetricAnalyticsRequest, map[string]string{"operation": operation, "status": status})
	m.RecordProcessingTime(MetricAnalyticsDuration, time.Since(started))
}
