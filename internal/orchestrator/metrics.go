// ABOUTME: Prometheus metrics for query orchestration
// ABOUTME: Counts outcomes and agent failures by kind and times each run
package orchestrator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/harper/finassist/internal/models"
)

// Metrics records orchestration counters; a nil *Metrics records nothing
type Metrics struct {
	queries       *prometheus.CounterVec
	agentFailures *prometheus.CounterVec
	duration      prometheus.Histogram
	passages      prometheus.Histogram
}

// NewMetrics creates the orchestrator metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finassist_queries_total",
				Help: "Total number of orchestrated queries by outcome",
			},
			[]string{"outcome"},
		),
		agentFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finassist_agent_failures_total",
				Help: "Collaborator failures by agent and failure kind",
			},
			[]string{"agent", "kind"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "finassist_query_duration_seconds",
				Help:    "End-to-end orchestration latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
			},
		),
		passages: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "finassist_retrieved_passages",
				Help:    "Number of passages retrieved per query",
				Buckets: prometheus.LinearBuckets(0, 1, 11),
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.queries, m.agentFailures, m.duration, m.passages)
	}
	return m
}

func (m *Metrics) observeOutcome(outcome models.Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "ok"
	if outcome.Failed() {
		label = "error"
	}
	m.queries.WithLabelValues(label).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) observeFailure(agent string, kind models.FailureKind) {
	if m == nil {
		return
	}
	m.agentFailures.WithLabelValues(agent, string(kind)).Inc()
}

func (m *Metrics) observePassages(n int) {
	if m == nil {
		return
	}
	m.passages.Observe(float64(n))
}
