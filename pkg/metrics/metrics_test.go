package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveMatch(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveMatch("matched", 4, 20*time.Millisecond)
	m.ObserveMatch("matched", 2, 10*time.Millisecond)
	m.ObserveMatch("no_candidates_nearby", 0, time.Millisecond)

	if got := testutil.ToFloat64(m.MatchRequests.WithLabelValues("matched")); got != 2 {
		t.Errorf("matched count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.MatchRequests.WithLabelValues("no_candidates_nearby")); got != 1 {
		t.Errorf("no_candidates_nearby count = %v, want 1", got)
	}
}

func TestObserveBatch(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveBatch(4, 1)

	if got := testutil.ToFloat64(m.BatchTrips.WithLabelValues("success")); got != 4 {
		t.Errorf("success = %v, want 4", got)
	}
	if got := testutil.ToFloat64(m.BatchTrips.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveMatch("matched", 1, time.Millisecond)
	m.ObserveAssignment("assign", "success")
	m.ObserveBatch(1, 1)
	m.ObserveHTTP("GET", "/health", "200", time.Millisecond)
}
