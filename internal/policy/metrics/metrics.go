// Package metrics exposes Prometheus counters for the policy daemon.
// Only aggregate counts are recorded; individual decisions are never logged.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Decision metrics
var (
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rr_policy_decisions_total",
			Help: "Total number of policy decisions by action",
		},
		[]string{"action"},
	)

	FailOpenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rr_policy_fail_open_total",
			Help: "Total number of requests answered OK because evaluation failed",
		},
	)

	EmptyFramesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rr_policy_empty_frames_total",
			Help: "Total number of request frames skipped for carrying no attributes",
		},
	)
)

// Session metrics
var (
	SessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rr_policy_sessions_total",
			Help: "Total number of policy sessions started",
		},
		[]string{"transport"},
	)

	SessionsCurrent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rr_policy_sessions_current",
			Help: "Current number of open policy sessions",
		},
		[]string{"transport"},
	)
)

// Rule store metrics
var (
	RulesLoaded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rr_policy_rules_loaded",
			Help: "Number of entries loaded per rule source",
		},
		[]string{"source"},
	)
)

// SetRulesLoaded publishes per-source entry counts.
func SetRulesLoaded(counts map[string]int) {
	for source, n := range counts {
		RulesLoaded.WithLabelValues(source).Set(float64(n))
	}
}
