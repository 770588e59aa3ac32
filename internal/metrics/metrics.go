// Package metrics holds the Prometheus instruments exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Research run metrics
	ResearchSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orgscout_research_submitted_total",
			Help: "Total number of research queries submitted",
		},
	)

	ResearchRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgscout_research_runs_total",
			Help: "Total number of pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	ResearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orgscout_research_duration_seconds",
			Help:    "Pipeline run duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	// Step metrics
	StepsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgscout_steps_total",
			Help: "Total number of trace steps recorded by final status",
		},
		[]string{"status"},
	)

	StageFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgscout_stage_fallbacks_total",
			Help: "Total number of times a stage used its deterministic fallback",
		},
		[]string{"stage"},
	)

	ProfilesFound = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orgscout_profiles_found",
			Help:    "Number of profiles collected per run",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)

	// Queue metrics
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "orgscout_queue_depth",
			Help: "Number of research runs waiting for a worker",
		},
	)

	RunnerErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orgscout_runner_errors_total",
			Help: "Total number of runs that ended with a runner error",
		},
	)
)
