package recompute

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recompute outcomes.
const (
	OutcomeAccepted   = "accepted"
	OutcomeSuperseded = "superseded"
	OutcomeFailed     = "failed"
)

var (
	// recomputeTotal counts finished Recomputer requests by outcome.
	recomputeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "knotfield_recompute_total",
		Help: "Total finished recompute requests by outcome",
	}, []string{"outcome"})

	// memoLookups counts Memo lookups by result (hit, miss).
	memoLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "knotfield_memo_lookups_total",
		Help: "Total memo lookups by result",
	}, []string{"result"})
)
