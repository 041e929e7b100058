package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PSEAPICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ksewatch_pse_api_calls_total",
			Help: "Total PSE reports API calls",
		},
		[]string{"entity", "status"},
	)

	PSEAPILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ksewatch_pse_api_latency_seconds",
			Help:    "PSE reports API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"entity"},
	)

	RowsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ksewatch_rows_ingested_total",
			Help: "Total feed rows successfully stored",
		},
		[]string{"entity"},
	)

	ScoringPassesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ksewatch_scoring_passes_total",
			Help: "Total full-grid risk scoring passes",
		},
	)

	ScoringDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ksewatch_scoring_duration_seconds",
			Help:    "Duration of a full-grid risk scoring pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReserveMisalignedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ksewatch_reserve_misaligned_total",
			Help: "Snapshots built with a coordination plan that did not start on the anchor day",
		},
	)

	BriefGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ksewatch_brief_generations_total",
			Help: "Daily brief generation attempts",
		},
		[]string{"status"},
	)
)
