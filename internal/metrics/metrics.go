package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the router. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Decisions         *prometheus.CounterVec
	Errors            *prometheus.CounterVec
	Candidates        *prometheus.HistogramVec
	Excluded          prometheus.Counter
	InferenceDuration prometheus.Histogram
	ModelLoaded       prometheus.Gauge
	HTTPRequests      *prometheus.CounterVec
}

// New registers every collector with registry.
func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		Decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentrouter_decisions_total",
				Help: "Routing decisions by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentrouter_errors_total",
				Help: "Failed routing requests by error kind",
			},
			[]string{"kind"},
		),
		Candidates: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentrouter_candidates",
				Help:    "Candidates scored per routing decision",
				Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34, 55},
			},
			[]string{"strategy"},
		),
		Excluded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agentrouter_candidates_excluded_total",
				Help: "Candidate records dropped as malformed",
			},
		),
		InferenceDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "agentrouter_inference_duration_seconds",
				Help:    "Latency of a single model prediction",
				Buckets: prometheus.ExponentialBuckets(0.000005, 4, 10),
			},
		),
		ModelLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "agentrouter_model_loaded",
				Help: "1 when a predictive model is loaded",
			},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentrouter_http_requests_total",
				Help: "HTTP requests by route pattern and status code",
			},
			[]string{"method", "route", "status"},
		),
	}
}

// NewRegistry creates a fresh registry with the router metrics registered.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	return reg, New(reg)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveDecision(strategy, outcome string, candidates, excluded int) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(strategy, outcome).Inc()
	m.Candidates.WithLabelValues(strategy).Observe(float64(candidates))
	m.Excluded.Add(float64(excluded))
}

func (m *Metrics) ObserveError(kind string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveInference(d time.Duration) {
	if m == nil {
		return
	}
	m.InferenceDuration.Observe(d.Seconds())
}

func (m *Metrics) SetModelLoaded(loaded bool) {
	if m == nil {
		return
	}
	if loaded {
		m.ModelLoaded.Set(1)
		return
	}
	m.ModelLoaded.Set(0)
}

func (m *Metrics) ObserveHTTP(method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
