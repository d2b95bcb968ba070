package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes.
const (
	outcomeOK        = "ok"
	outcomeFailed    = "failed"
	outcomeCancelled = "cancelled"
	outcomeBusy      = "busy"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_feed_runs_total",
		Help: "Total pipeline runs by outcome",
	}, []string{"outcome"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "parking_feed_run_duration_seconds",
		Help:    "Pipeline run duration in seconds, delivered or not",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})
)
