// Package aggregate computes reporting statistics over classified
// transactions. Every function is pure: callers pre-filter the input to
// the envelope or category subset they care about, and the same input
// always yields the same output.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"kuvert/internal/core"
)

type (
	// Totals sums a transaction set by type. Expense is naturally zero
	// or negative; Net is Income + Expense.
	Totals struct {
		Income  decimal.Decimal `json:"income"`
		Expense decimal.Decimal `json:"expense"`
		Net     decimal.Decimal `json:"net"`
	}

	// EnvelopeStats are the totals of one budgeting period plus its
	// expense breakdown by category.
	EnvelopeStats struct {
		Totals
		ExpensesByCategory map[string]decimal.Decimal `json:"expensesByCategory"`
	}

	// Averages are totals normalized by the number of distinct envelopes
	// present in the input, not by a fixed calendar length.
	Averages struct {
		IncomePerEnvelope  decimal.Decimal            `json:"incomePerEnvelope"`
		ExpensePerEnvelope decimal.Decimal            `json:"expensePerEnvelope"`
		NetPerEnvelope     decimal.Decimal            `json:"netPerEnvelope"`
		ExpenseByCategory  map[string]decimal.Decimal `json:"expenseByCategoryPerEnvelope"`
	}

	// BudgetLine is one budget post compared against actuals. A negative
	// Net means the post is over budget.
	BudgetLine struct {
		Title string          `json:"title"`
		Net   decimal.Decimal `json:"net"`
	}
)

func newTotals() Totals {
	return Totals{Income: decimal.Zero, Expense: decimal.Zero, Net: decimal.Zero}
}

func (t *Totals) add(tx core.Transaction) {
	switch tx.Type {
	case core.TypeIncome:
		t.Income = t.Income.Add(tx.Amount)
	case core.TypeExpense:
		t.Expense = t.Expense.Add(tx.Amount)
	case core.TypeRefund:
		// A refund leg offsets spending rather than earning.
		t.Expense = t.Expense.Add(tx.Amount)
	}
	t.Net = t.Income.Add(t.Expense)
}

// ComputeTotals sums the set by type. Transfers and unknown rows do not
// contribute.
func ComputeTotals(txs []core.Transaction) Totals {
	t := newTotals()
	for _, tx := range txs {
		t.add(tx)
	}
	return t
}

// PerEnvelope groups by envelope, then by type, then by category within
// expenses. Envelopes named in the second argument appear in the result
// with zeroed stats even when no transaction matches, so callers can
// render a complete period range.
func PerEnvelope(txs []core.Transaction, envelopes []core.Envelope) map[core.Envelope]EnvelopeStats {
	out := make(map[core.Envelope]EnvelopeStats)
	for _, e := range envelopes {
		out[e] = EnvelopeStats{Totals: newTotals(), ExpensesByCategory: map[string]decimal.Decimal{}}
	}
	for _, tx := range txs {
		stats, ok := out[tx.Envelope]
		if !ok {
			stats = EnvelopeStats{Totals: newTotals(), ExpensesByCategory: map[string]decimal.Decimal{}}
		}
		stats.add(tx)
		if tx.Type == core.TypeExpense {
			cat := core.CategoryOrUnassigned(tx.Category)
			stats.ExpensesByCategory[cat] = stats.ExpensesByCategory[cat].Add(tx.Amount)
		}
		out[tx.Envelope] = stats
	}
	return out
}

// DistinctEnvelopes returns the sorted set of envelopes present in txs.
func DistinctEnvelopes(txs []core.Transaction) []core.Envelope {
	seen := make(map[core.Envelope]struct{})
	var out []core.Envelope
	for _, tx := range txs {
		if _, ok := seen[tx.Envelope]; ok {
			continue
		}
		seen[tx.Envelope] = struct{}{}
		out = append(out, tx.Envelope)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// ComputeAverages divides the set's totals by the count of distinct
// envelopes actually present, guarding against skew from partial-month
// selections. An empty set yields zeros, never NaN.
func ComputeAverages(txs []core.Transaction) Averages {
	avg := Averages{
		IncomePerEnvelope:  decimal.Zero,
		ExpensePerEnvelope: decimal.Zero,
		NetPerEnvelope:     decimal.Zero,
		ExpenseByCategory:  map[string]decimal.Decimal{},
	}
	n := int64(len(DistinctEnvelopes(txs)))
	if n == 0 {
		return avg
	}
	div := decimal.NewFromInt(n)

	totals := newTotals()
	byCategory := map[string]decimal.Decimal{}
	for _, tx := range txs {
		totals.add(tx)
		if tx.Type == core.TypeExpense {
			cat := core.CategoryOrUnassigned(tx.Category)
			byCategory[cat] = byCategory[cat].Add(tx.Amount)
		}
	}

	avg.IncomePerEnvelope = totals.Income.Div(div)
	avg.ExpensePerEnvelope = totals.Expense.Div(div)
	avg.NetPerEnvelope = totals.Net.Div(div)
	for cat, sum := range byCategory {
		avg.ExpenseByCategory[cat] = sum.Div(div)
	}
	return avg
}

// BudgetVariance compares each budget post against the refund-netted
// expenses of its categories over envelopeCount periods:
//
//	net = post.Amount * envelopeCount + sum(AmountAfterRefund)
//
// Output keeps the order of posts.
func BudgetVariance(posts []core.BudgetPost, categoryPosts map[string]string, txs []core.Transaction, envelopeCount int) []BudgetLine {
	spent := make(map[string]decimal.Decimal, len(posts))
	for _, tx := range txs {
		if tx.Type != core.TypeExpense {
			continue
		}
		post, ok := categoryPosts[core.CategoryOrUnassigned(tx.Category)]
		if !ok {
			continue
		}
		spent[post] = spent[post].Add(tx.AmountAfterRefund)
	}

	lines := make([]BudgetLine, 0, len(posts))
	for _, post := range posts {
		budgeted := post.Amount.Mul(decimal.NewFromInt(int64(envelopeCount)))
		lines = append(lines, BudgetLine{
			Title: post.Title,
			Net:   budgeted.Add(spent[post.Title]),
		})
	}
	return lines
}
