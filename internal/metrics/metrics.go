package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Stream consumption metrics
	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carelog_projector_records_total",
			Help: "Change records seen, by outcome (projected, skipped, failed)",
		},
		[]string{"outcome"},
	)

	RecordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carelog_projector_records_skipped_total",
			Help: "Change records skipped, by reason (change_kind, decode, validation)",
		},
		[]string{"reason"},
	)

	// Fan-out metrics
	CandidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carelog_projector_candidates_total",
			Help: "Candidate index records produced, by record kind",
		},
		[]string{"kind"},
	)

	DedupeDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carelog_projector_dedupe_dropped_total",
			Help: "Candidate records dropped in favor of a newer candidate, by store",
		},
		[]string{"store"},
	)

	// Write metrics
	RecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carelog_projector_records_written_total",
			Help: "Records durably written, by store",
		},
		[]string{"store"},
	)

	WriteRedrives = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carelog_projector_write_redrives_total",
			Help: "Records re-attempted after partial batch failure, by store",
		},
		[]string{"store"},
	)

	WriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carelog_projector_write_failures_total",
			Help: "Whole-call write failures, by store",
		},
		[]string{"store"},
	)

	// Batch metrics
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "carelog_projector_batch_duration_seconds",
			Help:    "Duration of one stream-batch invocation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	DLQPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carelog_projector_dlq_published_total",
			Help: "Records published to the dead-letter stream, by reason",
		},
		[]string{"reason"},
	)
)
