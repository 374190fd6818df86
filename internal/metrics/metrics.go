package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesHandled counts every delivery by the result it settled with.
	MessagesHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "saga",
			Name:      "messages_total",
			Help:      "The total number of saga messages handled, by result",
		},
		[]string{"queue", "kind", "result"},
	)

	MessageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "saga",
			Name:      "message_duration_seconds",
			Help:      "Time spent dispatching a saga message",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"queue", "kind"},
	)

	// LedgerOutcomes counts capacity decisions of the flight ledger.
	LedgerOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flight",
			Name:      "ledger_outcomes_total",
			Help:      "Capacity decisions taken by the flight ledger",
		},
		[]string{"operation", "outcome"},
	)

	Duplicates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "saga",
			Name:      "duplicates_total",
			Help:      "Deliveries skipped because the event was already processed",
		},
		[]string{"consumer"},
	)
)
