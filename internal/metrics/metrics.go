package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Métricas del ledger y del navegador. Se exponen en /metrics desde el
// servidor HTTP; en modo CLI simplemente se acumulan.

// TradesLogged cuenta trades registrados por resultado.
var TradesLogged = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradejournal",
		Subsystem: "ledger",
		Name:      "trades_logged_total",
		Help:      "Trades logged, by result",
	},
	[]string{"result"},
)

// TradesDeleted cuenta trades borrados por resultado.
var TradesDeleted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradejournal",
		Subsystem: "ledger",
		Name:      "trades_deleted_total",
		Help:      "Trades deleted, by result",
	},
	[]string{"result"},
)

// LedgerClamps cuenta deletes que habrían dejado contadores negativos.
var LedgerClamps = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "tradejournal",
		Subsystem: "ledger",
		Name:      "counter_clamps_total",
		Help:      "Deletes whose counters were clamped at zero",
	},
)

// SessionTransitions cuenta transiciones del ledger (started, ended, emptied, deleted).
var SessionTransitions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradejournal",
		Subsystem: "ledger",
		Name:      "session_transitions_total",
		Help:      "Session lifecycle transitions",
	},
	[]string{"transition"},
)

// BucketFetchFailures cuenta buckets degradados a placeholder.
var BucketFetchFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradejournal",
		Subsystem: "navigator",
		Name:      "bucket_fetch_failures_total",
		Help:      "Bucket fetches that failed and were replaced by a zero placeholder",
	},
	[]string{"granularity"},
)

// BucketBatchDuration mide cuánto tarda en cargarse un scope completo.
var BucketBatchDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "tradejournal",
		Subsystem: "navigator",
		Name:      "bucket_batch_duration_seconds",
		Help:      "Time to fetch a full scope of buckets",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	},
	[]string{"granularity"},
)
