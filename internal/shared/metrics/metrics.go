package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request latency (seconds)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// Payment provider call latency (milliseconds)
	PaymentProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_provider_latency_ms",
			Help:    "Payment provider call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(50, 2, 10),
		},
		[]string{"provider", "operation", "status"},
	)

	PaymentsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_created_total",
			Help: "Total number of payment creations by provider and outcome",
		},
		[]string{"provider", "status"},
	)

	DiscountValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discount_validations_total",
			Help: "Total number of discount code validations",
		},
		[]string{"result"}, // valid, invalid
	)

	TemplatesApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "project_templates_applied_total",
			Help: "Total number of template applications",
		},
		[]string{"status"}, // success, failed
	)

	AchievementsAwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "achievements_awarded_total",
			Help: "Total number of achievements awarded",
		},
		[]string{"code"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domain_events_published_total",
			Help: "Total number of domain events published",
		},
		[]string{"routing_key", "status"},
	)
)

// RecordHTTPRequestDuration observes one request.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordPaymentProviderLatency observes one provider round trip.
func RecordPaymentProviderLatency(provider, operation, status string, duration time.Duration) {
	PaymentProviderLatency.WithLabelValues(provider, operation, status).Observe(float64(duration.Milliseconds()))
}

func IncrementPaymentsCreated(provider, status string) {
	PaymentsCreated.WithLabelValues(provider, status).Inc()
}

func IncrementDiscountValidation(valid bool) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	DiscountValidations.WithLabelValues(result).Inc()
}

func IncrementTemplatesApplied(status string) {
	TemplatesApplied.WithLabelValues(status).Inc()
}

func IncrementAchievementsAwarded(code string) {
	AchievementsAwarded.WithLabelValues(code).Inc()
}

func IncrementEventsPublished(routingKey, status string) {
	EventsPublished.WithLabelValues(routingKey, status).Inc()
}
