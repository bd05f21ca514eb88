// Package metrics holds the Prometheus collectors exported by the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "users"

// HTTPRequestDuration measures API request latency.
// Labels: route template, HTTP method and response status code.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by the user API.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"route", "method", "code"},
)

// ProviderRequestsTotal counts calls made to the identity provider.
// Labels: client operation and response status code ("error" when no response was received).
var ProviderRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_requests_total",
		Help:      "Total number of identity provider admin API calls.",
	},
	[]string{"operation", "code"},
)

// EventsProcessedTotal counts user events handled by the consumer.
// Labels: event action and result ("ok" or "error").
var EventsProcessedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_processed_total",
		Help:      "Total number of user lifecycle events consumed.",
	},
	[]string{"action", "result"},
)
