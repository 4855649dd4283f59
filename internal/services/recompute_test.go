package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kuvert/internal/core"
)

func TestRecomputeProcessor_Process(t *testing.T) {
	d, s := newTestDerivation(t, nil)
	seedStore(t, s)
	ctx := context.Background()

	snap, err := d.Derive(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Transactions, 3)
	require.NoError(t, s.SetIncomeEnvelope(ctx, snap.Transactions[1].ID, "01-2024"))

	p := NewRecomputeProcessor(s, d)
	require.NoError(t, p.Process(ctx, 0))

	report, err := s.EnvelopeReport(ctx)
	require.NoError(t, err)
	require.Len(t, report, 2)

	jan := report[core.Envelope("01-2024")]
	assert.True(t, jan.Income.Equal(decimal.NewFromInt(15000)), "income %s", jan.Income)
	assert.True(t, jan.Expense.Equal(decimal.NewFromInt(-250)), "expense %s", jan.Expense)

	feb := report[core.Envelope("02-2024")]
	assert.True(t, feb.Expense.Equal(decimal.NewFromInt(-8000)), "expense %s", feb.Expense)
}

func TestRecomputeProcessor_EmptyStore(t *testing.T) {
	d, s := newTestDerivation(t, nil)
	ctx := context.Background()

	p := NewRecomputeProcessor(s, d)
	require.NoError(t, p.Process(ctx, 0))

	report, err := s.EnvelopeReport(ctx)
	require.NoError(t, err)
	assert.Empty(t, report)
}

func TestRecomputeProcessor_ReportDoesNotBumpRevision(t *testing.T) {
	d, s := newTestDerivation(t, nil)
	seedStore(t, s)
	ctx := context.Background()

	before, err := s.Revision(ctx)
	require.NoError(t, err)

	p := NewRecomputeProcessor(s, d)
	require.NoError(t, p.Process(ctx, 0))

	after, err := s.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
