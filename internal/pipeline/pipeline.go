// Package pipeline sequences the compliance stages every lead passes
// through: consent gate, field protection, persistence, audit. Records in a
// batch are independent; failures are isolated per record except where the
// run's preconditions (encryption, audit completeness) are violated.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"leadgate/internal/archive"
	"leadgate/internal/audit"
	"leadgate/internal/dedup"
	"leadgate/internal/lead"
	"leadgate/internal/lead/consent"
	"leadgate/internal/lead/protect"
	"leadgate/internal/platform/metrics"
	"leadgate/internal/store"
)

// Outcome is the terminal state of one record.
type Outcome string

const (
	OutcomeRejected        Outcome = "rejected"
	OutcomeStored          Outcome = "stored"
	OutcomeArchivedPartial Outcome = "archived-partial"
	OutcomeFailed          Outcome = "failed"
)

// Summary aggregates a batch run. It is final only after every record has
// reached a terminal state.
type Summary struct {
	Total           int `json:"total"`
	Admitted        int `json:"admitted"`
	Rejected        int `json:"rejected"`
	Stored          int `json:"stored"`
	Failed          int `json:"failed"`
	ArchiveWarnings int `json:"archive_warnings"`
}

// Processed counts records that reached durable storage.
func (s Summary) Processed() int { return s.Stored }

// Pipeline wires the compliance stages together. Construct once per run
// configuration; safe for concurrent batches.
type Pipeline struct {
	protector *protect.Protector
	store     store.Store
	archive   archive.Archive
	dedup     dedup.Index
	trail     *audit.Trail
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer

	workers     int
	callTimeout time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers bounds batch concurrency. Values below 1 fall back to serial.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithCallTimeout bounds each record's persistence work.
func WithCallTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.callTimeout = d
		}
	}
}

// New builds a Pipeline. All collaborators are required except the dedup
// index, which may be nil when duplicate detection is disabled.
func New(
	protector *protect.Protector,
	primary store.Store,
	arch archive.Archive,
	index dedup.Index,
	trail *audit.Trail,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts ...Option,
) (*Pipeline, error) {
	if protector == nil {
		return nil, errors.New("pipeline: protector is required")
	}
	if primary == nil {
		return nil, errors.New("pipeline: primary store is required")
	}
	if arch == nil {
		arch = archive.Noop{}
	}
	if trail == nil {
		return nil, errors.New("pipeline: audit trail is required")
	}

	p := &Pipeline{
		protector:   protector,
		store:       primary,
		archive:     arch,
		dedup:       index,
		trail:       trail,
		metrics:     m,
		logger:      logger,
		tracer:      otel.Tracer("leadgate/pipeline"),
		workers:     4,
		callTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run processes one batch. Per-record errors are isolated; the returned
// error is non-nil only for run-fatal conditions (encryption failure, audit
// sink unavailable, context cancellation). The Summary is valid either way
// and covers every record that reached a terminal state.
func (p *Pipeline) Run(ctx context.Context, records []lead.Record) (Summary, error) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "pipeline.Run",
		trace.WithAttributes(attribute.Int("batch.size", len(records))))
	defer span.End()

	var (
		mu      sync.Mutex
		summary = Summary{Total: len(records)}
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for _, record := range records {
		// Cancellation stops admitting new records; in-flight ones run to a
		// terminal state on their own contexts.
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcome, archiveWarned, err := p.processOne(ctx, record)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case OutcomeRejected:
				summary.Rejected++
			case OutcomeStored, OutcomeArchivedPartial:
				summary.Admitted++
				summary.Stored++
			case OutcomeFailed:
				summary.Admitted++
				summary.Failed++
			}
			if archiveWarned {
				summary.ArchiveWarnings++
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		// Cancellation before every record reached a terminal state is an
		// incomplete run, not a silent success.
		if terminal := summary.Rejected + summary.Stored + summary.Failed; terminal < summary.Total {
			err = ctx.Err()
		}
	}
	if p.metrics != nil {
		p.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	}
	p.logger.InfoContext(ctx, "batch complete",
		"total", summary.Total,
		"admitted", summary.Admitted,
		"stored", summary.Stored,
		"rejected", summary.Rejected,
		"failed", summary.Failed,
	)
	return summary, err
}

// processOne walks a single record to its terminal state. The returned error
// is run-fatal; per-record failures are reflected in the outcome instead.
func (p *Pipeline) processOne(ctx context.Context, record lead.Record) (Outcome, bool, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.processOne",
		trace.WithAttributes(attribute.String("lead.id", record.LeadID)))
	defer span.End()

	// Consent is checked on the record exactly as the source declared it,
	// before any transformation.
	if admitted, reason := consent.Admit(record); !admitted {
		p.logger.WarnContext(ctx, "lead rejected", "lead_id", record.LeadID, "reason", reason)
		if p.metrics != nil {
			p.metrics.LeadsRejected.Inc()
		}
		if err := p.audit(ctx, audit.KindLeadRejected, record.LeadID, map[string]string{"reason": reason}); err != nil {
			return "", false, err
		}
		return OutcomeRejected, false, nil
	}
	if p.metrics != nil {
		p.metrics.LeadsAdmitted.Inc()
	}

	protected, err := p.protector.Protect(record)
	if err != nil {
		// Encryption is a run precondition. A record that cannot be
		// protected means the key material is unusable; continuing would
		// risk plaintext reaching a sink.
		return "", false, fmt.Errorf("encryption unavailable: %w", err)
	}

	detail := map[string]string{
		"source":        string(protected.Source),
		"coverage_type": protected.CoverageType,
		"encrypted":     "true",
	}
	if duplicate := p.checkDuplicate(ctx, protected); duplicate {
		detail["duplicate"] = "true"
	}

	storeCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	_, storeErr := p.store.Upsert(storeCtx, protected)
	cancel()
	if storeErr != nil {
		p.logger.ErrorContext(ctx, "primary store write failed", "lead_id", record.LeadID, "error", storeErr)
		if p.metrics != nil {
			p.metrics.LeadsFailed.Inc()
		}
		if err := p.audit(ctx, audit.KindLeadStoreFailed, record.LeadID, map[string]string{"error": storeErr.Error()}); err != nil {
			return "", false, err
		}
		return OutcomeFailed, false, nil
	}
	if p.metrics != nil {
		p.metrics.LeadsStored.Inc()
	}

	outcome := OutcomeStored
	archiveWarned := false
	archiveCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	archiveErr := p.archive.Put(archiveCtx, protected)
	cancel()
	if archiveErr != nil && !errors.Is(archiveErr, archive.ErrAlreadyArchived) {
		// Archive failure never demotes a stored record; it is a distinct
		// warning-grade condition.
		outcome = OutcomeArchivedPartial
		archiveWarned = true
		p.logger.WarnContext(ctx, "archive write failed", "lead_id", record.LeadID, "error", archiveErr)
		if p.metrics != nil {
			p.metrics.ArchiveWarnings.Inc()
		}
		if err := p.audit(ctx, audit.KindLeadArchiveFailed, record.LeadID, map[string]string{"error": archiveErr.Error()}); err != nil {
			return "", false, err
		}
	}

	if err := p.audit(ctx, audit.KindLeadStored, record.LeadID, detail); err != nil {
		return "", false, err
	}
	return outcome, archiveWarned, nil
}

// audit records one entry, fail-closed. Audit completeness is a hard
// requirement: an append failure aborts the run.
func (p *Pipeline) audit(ctx context.Context, kind audit.Kind, leadID string, detail map[string]string) error {
	if err := p.trail.Record(ctx, kind, leadID, detail); err != nil {
		if p.metrics != nil {
			p.metrics.AuditFailures.Inc()
		}
		return err
	}
	return nil
}

// checkDuplicate consults the fingerprint index. Index unavailability is an
// enrichment-grade degradation: log and treat the record as unseen.
func (p *Pipeline) checkDuplicate(ctx context.Context, protected lead.Protected) bool {
	if p.dedup == nil || protected.Fingerprint == "" {
		return false
	}
	seen, err := p.dedup.Seen(ctx, protected.Fingerprint, protected.LeadID)
	if err != nil {
		p.logger.WarnContext(ctx, "dedup index unavailable", "lead_id", protected.LeadID, "error", err)
		return false
	}
	return seen
}
