package services

import (
	"context"
	"fmt"
	"log/slog"

	"kuvert/internal/aggregate"
	"kuvert/internal/log"
	"kuvert/internal/store"
)

// RecomputeProcessor rebuilds the persisted per-envelope report from
// the current store contents. The worker runs it for every recompute
// message.
type RecomputeProcessor struct {
	store      *store.TransactionStore
	derivation *Derivation
}

func NewRecomputeProcessor(s *store.TransactionStore, d *Derivation) *RecomputeProcessor {
	return &RecomputeProcessor{store: s, derivation: d}
}

// Process derives a fresh snapshot and persists its envelope report.
// The message revision is informational only: the derivation always
// reads the latest revision, so stale messages just do the same work.
func (p *RecomputeProcessor) Process(ctx context.Context, revision int64) error {
	snap, err := p.derivation.Derive(ctx)
	if err != nil {
		return fmt.Errorf("derive snapshot: %w", err)
	}

	if snap.Revision < revision {
		slog.WarnContext(ctx, "Derived snapshot is older than requested revision",
			log.FieldComponent, log.ComponentWorker,
			"snapshot_revision", snap.Revision,
			"requested_revision", revision)
	}

	envelopes := aggregate.DistinctEnvelopes(snap.Transactions)
	report := aggregate.PerEnvelope(snap.Transactions, envelopes)

	if err := p.store.SaveEnvelopeReport(ctx, report); err != nil {
		return fmt.Errorf("save envelope report: %w", err)
	}

	slog.InfoContext(ctx, "Envelope report recomputed",
		log.FieldComponent, log.ComponentWorker,
		log.FieldOperation, log.OpRecompute,
		log.FieldRevision, snap.Revision,
		"envelopes", len(report))

	return nil
}
