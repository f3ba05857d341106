package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	LeadsAdmitted   prometheus.Counter
	LeadsRejected   prometheus.Counter
	LeadsStored     prometheus.Counter
	LeadsFailed     prometheus.Counter
	ArchiveWarnings prometheus.Counter
	AuditFailures   prometheus.Counter
	BatchDuration   prometheus.Histogram
}

// New creates and registers all pipeline metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers on a caller-supplied registry so tests can run multiple
// pipelines without duplicate-registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LeadsAdmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "leadgate_leads_admitted_total",
			Help: "Leads that passed the consent gate.",
		}),
		LeadsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "leadgate_leads_rejected_total",
			Help: "Leads rejected for missing consent.",
		}),
		LeadsStored: factory.NewCounter(prometheus.CounterOpts{
			Name: "leadgate_leads_stored_total",
			Help: "Leads durably written to the primary store.",
		}),
		LeadsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "leadgate_leads_failed_total",
			Help: "Leads whose primary store write failed.",
		}),
		ArchiveWarnings: factory.NewCounter(prometheus.CounterOpts{
			Name: "leadgate_archive_warnings_total",
			Help: "Stored leads whose secondary archive write failed.",
		}),
		AuditFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "leadgate_audit_failures_total",
			Help: "Audit trail appends that failed (fail-closed).",
		}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "leadgate_batch_duration_seconds",
			Help:    "Wall time of full batch runs.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
