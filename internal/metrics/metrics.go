package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors shared by the picker components.
type Metrics struct {
	ProviderRequests   *prometheus.CounterVec
	APIErrors          prometheus.Counter
	RequestSeconds     *prometheus.HistogramVec
	Searches           *prometheus.CounterVec
	Submits            *prometheus.CounterVec
	PendingResolutions prometheus.Gauge
	DebouncedInputs    prometheus.Counter
}

// NewMetrics registers all collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		ProviderRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_provider_requests_total",
			Help: "Total number of geocoding provider requests by operation and status.",
		}, []string{"provider", "op", "status"}),
		APIErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "waypoint_provider_api_errors_total",
			Help: "Total number of errors received from the geocoding provider API.",
		}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "waypoint_provider_request_duration_seconds",
			Help:    "Duration of requests to the geocoding provider API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider", "op"}),
		Searches: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_place_searches_total",
			Help: "Total number of autocomplete searches by outcome.",
		}, []string{"status"}),
		Submits: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_submits_total",
			Help: "Total number of submits by outcome (emitted, unusable, failure, stale).",
		}, []string{"status"}),
		PendingResolutions: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "waypoint_pending_resolutions",
			Help: "Current number of outstanding submit-triggered reverse lookups.",
		}),
		DebouncedInputs: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "waypoint_debounced_inputs_total",
			Help: "Total number of input changes handed to the debouncer.",
		}),
	}
}
