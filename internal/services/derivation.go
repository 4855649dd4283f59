package services

import (
	"context"
	"fmt"
	"log/slog"

	"kuvert/internal/cache"
	"kuvert/internal/classify"
	"kuvert/internal/core"
	"kuvert/internal/filterexpr"
	"kuvert/internal/log"
	"kuvert/internal/normalize"
	"kuvert/internal/schema"
	"kuvert/internal/store"
)

// RecomputePublisher notifies the report worker that stored inputs
// changed. Nil publisher means no worker is wired in.
type RecomputePublisher interface {
	PublishRecompute(ctx context.Context, revision int64) error
}

// Snapshot is one fully derived view of the store: every stored CSV
// parsed, deduplicated, projected, filtered and classified.
type Snapshot struct {
	Revision     int64
	Transactions []core.Transaction
	Warnings     []normalize.Warning
	Unmapped     []core.SchemaKey
}

// Derivation turns the raw store contents into classified transactions,
// memoized per store revision.
type Derivation struct {
	store     *store.TransactionStore
	snapshots *cache.LRU[*Snapshot]
	publisher RecomputePublisher
}

func NewDerivation(s *store.TransactionStore, snapshots *cache.LRU[*Snapshot], publisher RecomputePublisher) *Derivation {
	return &Derivation{
		store:     s,
		snapshots: snapshots,
		publisher: publisher,
	}
}

// Derive returns the snapshot for the store's current revision, reusing
// a cached one when nothing changed since it was built.
func (d *Derivation) Derive(ctx context.Context) (*Snapshot, error) {
	rev, err := d.store.Revision(ctx)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("snapshot:%d", rev)
	if snap, ok := d.snapshots.Get(key); ok {
		return snap, nil
	}

	snap, err := d.build(ctx, rev)
	if err != nil {
		return nil, err
	}
	d.snapshots.Set(key, snap)

	slog.InfoContext(ctx, "Derived transaction snapshot",
		log.FieldComponent, log.ComponentDerive,
		log.FieldOperation, log.OpDerive,
		log.FieldRevision, rev,
		log.FieldRows, len(snap.Transactions),
		log.FieldWarnings, len(snap.Warnings),
		"unmapped_schemas", len(snap.Unmapped))

	return snap, nil
}

func (d *Derivation) build(ctx context.Context, rev int64) (*Snapshot, error) {
	files, err := d.store.CSVFiles(ctx)
	if err != nil {
		return nil, err
	}

	var rows []core.RawRow
	var warnings []normalize.Warning
	for _, f := range files {
		fileRows, fileWarnings, err := normalize.Parse(f.Name, []byte(f.Content))
		if err != nil {
			// A broken file must not take down the whole derivation.
			slog.WarnContext(ctx, "Skipping unparseable CSV file",
				log.FieldComponent, log.ComponentDerive,
				log.FieldOperation, log.OpParse,
				log.FieldFile, f.Name,
				log.FieldError, err)
			warnings = append(warnings, normalize.Warning{File: f.Name, Message: err.Error()})
			continue
		}
		rows = append(rows, fileRows...)
		warnings = append(warnings, fileWarnings...)
	}
	rows = normalize.Deduplicate(rows)

	mappings, err := d.store.Mappings(ctx)
	if err != nil {
		return nil, err
	}
	unmapped := schema.Unmapped(rows, mappings)

	mapped, projectWarnings := normalize.ProjectAll(rows, schema.KeyOf, mappings)
	warnings = append(warnings, projectWarnings...)

	mapped, undated := classify.SplitUndated(mapped)
	for _, row := range undated {
		warnings = append(warnings, normalize.Warning{
			File:    row.Row.File(),
			Message: fmt.Sprintf("unparseable date %q, row skipped", row.Date),
		})
	}

	rules, err := d.store.ExclusionRules(ctx)
	if err != nil {
		return nil, err
	}
	mapped = normalize.ApplyExclusions(mapped, rules)

	sources, err := d.store.Filters(ctx)
	if err != nil {
		return nil, err
	}
	filters, filterErrs := filterexpr.CompileAll(sources)
	for _, ferr := range filterErrs {
		slog.WarnContext(ctx, "Skipping invalid filter",
			log.FieldComponent, log.ComponentDerive,
			log.FieldError, ferr)
	}
	mapped = withoutFiltered(filters, mapped)

	in := classify.Inputs{Rows: mapped}
	if in.Categories, err = d.store.CategoryMap(ctx); err != nil {
		return nil, err
	}
	if in.TypeOverrides, err = d.store.TypeOverrides(ctx); err != nil {
		return nil, err
	}
	if in.IncomeEnvelopes, err = d.store.IncomeEnvelopes(ctx); err != nil {
		return nil, err
	}
	if in.Links, err = d.store.Links(ctx); err != nil {
		return nil, err
	}
	if in.OwnedAccounts, err = d.store.OwnedAccounts(ctx); err != nil {
		return nil, err
	}
	if in.AccountLabels, err = d.store.AccountLabels(ctx); err != nil {
		return nil, err
	}

	return &Snapshot{
		Revision:     rev,
		Transactions: classify.Transactions(in),
		Warnings:     warnings,
		Unmapped:     unmapped,
	}, nil
}

func withoutFiltered(filters []*filterexpr.Filter, rows []core.MappedRow) []core.MappedRow {
	if len(filters) == 0 {
		return rows
	}
	out := rows[:0]
	for _, row := range rows {
		if !filterexpr.Excluded(filters, row) {
			out = append(out, row)
		}
	}
	return out
}

// NotifyChanged publishes a recompute message for the current revision.
// Publish failures are logged, not returned: the store write already
// succeeded and reads derive on demand anyway.
func (d *Derivation) NotifyChanged(ctx context.Context) {
	if d.publisher == nil {
		return
	}
	rev, err := d.store.Revision(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read revision for recompute message",
			log.FieldComponent, log.ComponentDerive,
			log.FieldError, err)
		return
	}
	if err := d.publisher.PublishRecompute(ctx, rev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish recompute message",
			log.FieldComponent, log.ComponentDerive,
			log.FieldRevision, rev,
			log.FieldError, err)
	}
}
