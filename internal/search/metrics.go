package search

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// searchesTotal counts finished searches by outcome
	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "costplan_searches_total",
		Help: "Total searches by outcome",
	}, []string{"outcome"})

	// searchSteps tracks closed nodes per search
	searchSteps = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "costplan_search_steps",
		Help:    "Closed nodes per search",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10), // 1 to ~260k
	})

	// expandedNodes counts installed successors
	expandedNodes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "costplan_expanded_nodes_total",
		Help: "Total successor nodes installed",
	})

	// searchDuration tracks search latency
	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "costplan_search_duration_seconds",
		Help:    "Search duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 0.1ms to ~26s
	})

	consistencyWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "costplan_consistency_warnings_total",
		Help: "Total heuristic consistency warnings",
	})

	prunedTargets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "costplan_pruned_targets_total",
		Help: "Total targets dropped as unreachable",
	})
)

// Search outcomes.
const (
	OutcomeFound      = "found"
	OutcomeNoSolution = "no_solution"
	OutcomeAborted    = "aborted"
	OutcomeError      = "error"
)

func observe(r Result, generated int) {
	searchesTotal.WithLabelValues(r.Outcome()).Inc()
	searchSteps.Observe(float64(r.Steps))
	searchDuration.Observe(r.Duration.Seconds())
	expandedNodes.Add(float64(generated))
}

// WriteMetrics writes all metrics of the default registry to path in the
// text exposition format.
func WriteMetrics(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
