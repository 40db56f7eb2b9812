// Package metrics holds the Prometheus collectors Concord exports.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "concord"

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Matching
	matchRequests *prometheus.CounterVec
	matchScore    prometheus.Histogram
	rankDuration  prometheus.Histogram
	assignments   *prometheus.CounterVec
	unmatched     prometheus.Counter
	assignErrors  *prometheus.CounterVec

	// Team state
	activeMembers    prometheus.Gauge
	tasksByStatus    *prometheus.GaugeVec
	balanceDeviation *prometheus.GaugeVec

	// HTTP
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers all collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	auto := promauto.With(reg)
	return &Metrics{
		matchRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "requests_total",
			Help:      "Match rankings computed, by strategy.",
		}, []string{"strategy"}),
		matchScore: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "winning_score",
			Help:      "Total score of the best candidate per ranking.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		rankDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "rank_duration_seconds",
			Help:      "Time spent ranking a candidate pool.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		assignments: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assignment",
			Name:      "total",
			Help:      "Tasks assigned, by mode (auto or explicit).",
		}, []string{"mode"}),
		unmatched: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assignment",
			Name:      "unmatched_total",
			Help:      "Auto-assign attempts that found no eligible member.",
		}),
		assignErrors: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assignment",
			Name:      "errors_total",
			Help:      "Assignment attempts rejected, by reason.",
		}, []string{"reason"}),
		activeMembers: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "team",
			Name:      "active_members",
			Help:      "Members currently eligible for work.",
		}),
		tasksByStatus: auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "team",
			Name:      "tasks",
			Help:      "Tasks by status.",
		}, []string{"status"}),
		balanceDeviation: auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "team",
			Name:      "balance_deviation_percent",
			Help:      "Deviation of active work from the ideal elemental share.",
		}, []string{"element"}),
		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) ObserveRanking(strategy string, bestScore int, hasCandidates bool, took time.Duration) {
	if m == nil {
		return
	}
	m.matchRequests.WithLabelValues(strategy).Inc()
	m.rankDuration.Observe(took.Seconds())
	if hasCandidates {
		m.matchScore.Observe(float64(bestScore))
	}
}

func (m *Metrics) IncAssignment(auto bool) {
	if m == nil {
		return
	}
	mode := "explicit"
	if auto {
		mode = "auto"
	}
	m.assignments.WithLabelValues(mode).Inc()
}

func (m *Metrics) IncUnmatched() {
	if m == nil {
		return
	}
	m.unmatched.Inc()
}

func (m *Metrics) IncAssignError(reason string) {
	if m == nil {
		return
	}
	m.assignErrors.WithLabelValues(reason).Inc()
}

// SetTeamState refreshes the team gauges from a stats snapshot.
func (m *Metrics) SetTeamState(activeMembers int, byStatus map[string]int, deviations map[string]int) {
	if m == nil {
		return
	}
	m.activeMembers.Set(float64(activeMembers))
	for status, n := range byStatus {
		m.tasksByStatus.WithLabelValues(status).Set(float64(n))
	}
	for element, d := range deviations {
		m.balanceDeviation.WithLabelValues(element).Set(float64(d))
	}
}

func (m *Metrics) ObserveHTTP(method, route string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
