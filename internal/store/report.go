package store

import (
	"context"
	"fmt"

	"kuvert/internal/aggregate"
	"kuvert/internal/core"
)

// SaveEnvelopeReport persists the worker's derived per-envelope report.
// The report is a cache of derived data, safe to lose and rebuilt on the
// next recompute, so saving it does not bump the revision.
func (s *TransactionStore) SaveEnvelopeReport(ctx context.Context, report map[core.Envelope]aggregate.EnvelopeStats) error {
	if err := s.kv.Save(ctx, KeyEnvelopeReport, report); err != nil {
		return fmt.Errorf("save envelope report: %w", err)
	}
	return nil
}

func (s *TransactionStore) EnvelopeReport(ctx context.Context) (map[core.Envelope]aggregate.EnvelopeStats, error) {
	report := map[core.Envelope]aggregate.EnvelopeStats{}
	if err := s.kv.Load(ctx, KeyEnvelopeReport, &report); err != nil {
		return nil, fmt.Errorf("load envelope report: %w", err)
	}
	return report, nil
}
