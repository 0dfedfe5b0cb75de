// Package metrics declares the Prometheus collectors for sync and
// enforcement passes. Collectors are registered on the default registry; the
// CLI optionally exposes them on a dedicated listener.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsSynced counts moderation-log events written to the local store,
	// labeled by destination table.
	EventsSynced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subguard_events_synced_total",
			Help: "Moderation-log events upserted into the local store",
		},
		[]string{"table"},
	)

	// SyncPassDuration observes the wall time of a full sync pass.
	SyncPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "subguard_sync_pass_duration_seconds",
			Help:    "Duration of a full sync pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	// CandidatesScored counts users evaluated by the scoring engine.
	CandidatesScored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "subguard_candidates_scored_total",
			Help: "Candidate users evaluated by the scoring engine",
		},
	)

	// BansIssued counts successful remote ban actions.
	BansIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "subguard_bans_issued_total",
			Help: "Ban actions accepted by the remote platform",
		},
	)

	// BansReconciled counts vanished-user rejections absorbed via a
	// synthetic reconciliation row.
	BansReconciled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "subguard_bans_reconciled_total",
			Help: "Ban attempts against vanished users recorded locally",
		},
	)
)
