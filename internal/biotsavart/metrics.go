package biotsavart

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// pointsSolved counts query points evaluated by batched solves.
	pointsSolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "knotfield_biotsavart_points_total",
		Help: "Total query points evaluated by batched Biot-Savart solves",
	})

	// solveDuration tracks wall time of batched solves.
	solveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "knotfield_biotsavart_duration_seconds",
		Help:    "Batched Biot-Savart solve duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	})

	// solveCancelled counts batched solves aborted by their context.
	solveCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "knotfield_biotsavart_cancelled_total",
		Help: "Total batched Biot-Savart solves aborted by cancellation",
	})
)
