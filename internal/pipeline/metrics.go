package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the compiler pipeline, registered once at
// package init the same way the teacher's internal/observability/metrics.go
// registers rule-engine metrics via promauto.
var (
	compileDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulsar_compile_stage_duration_seconds",
			Help:    "Time taken by each compiler pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		},
		[]string{"stage"},
	)

	compileTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsar_compile_total",
			Help: "Total number of compile invocations by outcome",
		},
		[]string{"outcome"}, // outcome: success|failure
	)

	rulesCompiled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pulsar_rules_compiled",
			Help: "Number of rules parsed in the most recent compile",
		},
	)

	groupsEmitted = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pulsar_groups_emitted",
			Help: "Number of groups emitted in the most recent emission",
		},
	)

	warningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsar_compile_warnings_total",
			Help: "Total number of warnings accumulated across compile stages",
		},
		[]string{"stage"},
	)
)
