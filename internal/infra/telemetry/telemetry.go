package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// VersioningMetrics exposes Prometheus collectors for the versioning engine.
// It satisfies the usecase metrics interfaces.
type VersioningMetrics struct {
	versionsCreated  prometheus.Counter
	versionConflicts prometheus.Counter
	cardsDeleted     prometheus.Counter
	diffsComputed    prometheus.Counter
	deletionNotices  prometheus.Counter
	redactedNotices  prometheus.Counter
}

// NewVersioningMetrics registers the versioning collectors with the default
// registerer.
func NewVersioningMetrics() *VersioningMetrics {
	return &VersioningMetrics{
		versionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "memcheck",
			Name:      "card_versions_created_total",
			Help:      "Total number of card versions created (creations and edits).",
		}),
		versionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "memcheck",
			Name:      "card_version_conflicts_total",
			Help:      "Total number of edits rejected because of a concurrent modification.",
		}),
		cardsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "memcheck",
			Name:      "cards_deleted_total",
			Help:      "Total number of cards deleted.",
		}),
		diffsComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "memcheck",
			Name:      "card_diffs_computed_total",
			Help:      "Total number of version diffs computed.",
		}),
		deletionNotices: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "memcheck",
			Name:      "deletion_notices_total",
			Help:      "Total number of deletion notices produced.",
		}),
		redactedNotices: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "memcheck",
			Name:      "deletion_notices_redacted_total",
			Help:      "Total number of deletion notices redacted for visibility.",
		}),
	}
}

func (m *VersioningMetrics) IncVersionCreated()  { m.versionsCreated.Inc() }
func (m *VersioningMetrics) IncVersionConflict() { m.versionConflicts.Inc() }
func (m *VersioningMetrics) IncCardDeleted()     { m.cardsDeleted.Inc() }
func (m *VersioningMetrics) IncDiffComputed()    { m.diffsComputed.Inc() }
func (m *VersioningMetrics) IncDeletionNotice()  { m.deletionNotices.Inc() }
func (m *VersioningMetrics) IncRedactedNotice()  { m.redactedNotices.Inc() }
