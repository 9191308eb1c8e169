package monitoring

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Server side, recorded by the mock backend's middleware.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhub_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"server", "method", "path", "status_class"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clubhub_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"server", "method", "path", "status_class"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clubhub_http_inflight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Client side.
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhub_dispatch_total",
			Help: "Outbound API calls by final outcome kind",
		},
		[]string{"method", "kind"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clubhub_dispatch_duration_seconds",
			Help:    "End-to-end dispatch latency including renewal and replay",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"method"},
	)

	RenewalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhub_credential_renewals_total",
			Help: "Credential renewal attempts by result",
		},
		[]string{"result"},
	)

	RenewalDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clubhub_credential_renewal_duration_seconds",
			Help:    "Latency of the refresh call",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
		},
	)

	RenewalWaiters = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clubhub_credential_renewal_waiters",
			Help: "Requests parked behind an in-flight renewal",
		},
	)

	ReplaysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhub_dispatch_replays_total",
			Help: "Requests replayed after a renewal, by the requester role",
		},
		[]string{"role"}, // role: initiator|waiter
	)

	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhub_store_operations_total",
			Help: "Credential store operations",
		},
		[]string{"backend", "op", "result"},
	)

	SessionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhub_session_events_total",
			Help: "Session lifecycle events",
		},
		[]string{"event"},
	)
)

// StatusClass buckets an HTTP status into 2xx/4xx/... labels.
func StatusClass(code int) string {
	if code <= 0 {
		return "error"
	}
	if code >= 600 {
		return "unknown"
	}
	return fmt.Sprintf("%dxx", code/100)
}

// Result turns an error into an ok/error label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
