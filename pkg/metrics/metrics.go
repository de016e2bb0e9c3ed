package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fleetdispatch"

// Metrics groups the dispatch collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	MatchRequests       *prometheus.CounterVec
	MatchLatency        prometheus.Histogram
	CandidatesScored    prometheus.Histogram
	Assignments         *prometheus.CounterVec
	BatchTrips          *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers every collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		MatchRequests: factory.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "match_requests_total", Help: "Match requests by outcome status"},
			[]string{"status"},
		),
		MatchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_latency_seconds",
			Help:      "Time spent locating and scoring candidates",
			Buckets:   prometheus.DefBuckets,
		}),
		CandidatesScored: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_candidates_scored",
			Help:      "Candidates scored per match request",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100, 200},
		}),
		Assignments: factory.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "assignments_total", Help: "Assignment attempts by operation and result"},
			[]string{"operation", "result"},
		),
		BatchTrips: factory.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "batch_trips_total", Help: "Trips processed by batch assignment"},
			[]string{"result"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distribution",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
}

func (m *Metrics) ObserveMatch(status string, considered int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.MatchRequests.WithLabelValues(status).Inc()
	m.MatchLatency.Observe(elapsed.Seconds())
	m.CandidatesScored.Observe(float64(considered))
}

func (m *Metrics) ObserveAssignment(operation, result string) {
	if m == nil {
		return
	}
	m.Assignments.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) ObserveBatch(successful, failed int) {
	if m == nil {
		return
	}
	m.BatchTrips.WithLabelValues("success").Add(float64(successful))
	m.BatchTrips.WithLabelValues("failed").Add(float64(failed))
}

func (m *Metrics) ObserveHTTP(method, path, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(elapsed.Seconds())
}
