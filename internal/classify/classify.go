// Package classify derives canonical transactions from mapped rows.
// All user decisions live in the override maps passed in; the engine's
// own guesses are fallbacks, so re-running classification with the same
// inputs always yields the same output.
package classify

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"kuvert/internal/core"
)

// Inputs bundles the mapped rows with every persisted override map the
// derivation depends on.
type Inputs struct {
	Rows []core.MappedRow

	Categories      map[uint32]string
	TypeOverrides   map[uint32]core.TransactionType
	IncomeEnvelopes map[uint32]core.Envelope
	Links           map[uint32][]core.Link

	OwnedAccounts []string
	AccountLabels map[string]string
}

// SplitUndated partitions rows into those whose date parses under some
// candidate layout and those no layout can parse. Undated rows have no
// envelope to land in and must not reach classification: a single
// garbage date would otherwise register as its own distinct envelope
// and skew every per-envelope average.
func SplitUndated(rows []core.MappedRow) (dated, undated []core.MappedRow) {
	for _, row := range rows {
		if DateParses(row.Date) {
			dated = append(dated, row)
		} else {
			undated = append(undated, row)
		}
	}
	return dated, undated
}

// Transactions classifies every mapped row. Output order is by date
// (batch-detected layout), then by id for rows sharing a date, so the
// result is stable across runs.
func Transactions(in Inputs) []core.Transaction {
	dates := make([]string, len(in.Rows))
	for i, r := range in.Rows {
		dates[i] = r.Date
	}
	layout := DetectDateLayout(dates)

	owned := make(map[string]struct{}, len(in.OwnedAccounts))
	for _, a := range in.OwnedAccounts {
		owned[a] = struct{}{}
	}

	txs := make([]core.Transaction, 0, len(in.Rows))
	for _, row := range in.Rows {
		txs = append(txs, classifyRow(row, layout, owned, in))
	}

	byID := make(map[uint32]*core.Transaction, len(txs))
	for i := range txs {
		byID[txs[i].ID] = &txs[i]
	}
	for i := range txs {
		txs[i].AmountAfterRefund = amountAfterRefund(&txs[i], byID)
	}
	guessLinks(txs)

	sort.SliceStable(txs, func(i, j int) bool {
		ti, tj := parseDate(layout, txs[i].Date), parseDate(layout, txs[j].Date)
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return txs[i].ID < txs[j].ID
	})
	return txs
}

func classifyRow(row core.MappedRow, layout string, owned map[string]struct{}, in Inputs) core.Transaction {
	tx := core.Transaction{
		ID:        row.ID,
		Date:      row.Date,
		Text:      row.Text,
		From:      row.From,
		To:        row.To,
		FromLabel: label(in.AccountLabels, row.From),
		ToLabel:   label(in.AccountLabels, row.To),
		Amount:    row.Amount,
		Type:      resolveType(row, in),
		Category:  core.CategoryOrUnassigned(in.Categories[row.ID]),
		Envelope:  resolveEnvelope(row, layout, in),
		Linked:    in.Links[row.ID],
	}
	_, fromOwned := owned[row.From]
	_, toOwned := owned[row.To]
	tx.IsTransfer = fromOwned && toOwned
	return tx
}

// resolveType applies the type priority: explicit override, income
// envelope marking, amount sign, unknown.
func resolveType(row core.MappedRow, in Inputs) core.TransactionType {
	if t, ok := in.TypeOverrides[row.ID]; ok {
		return t
	}
	if _, ok := in.IncomeEnvelopes[row.ID]; ok {
		return core.TypeIncome
	}
	if row.Amount.IsNegative() {
		return core.TypeExpense
	}
	return core.TypeUnknown
}

// resolveEnvelope derives the budgeting period from the row date, unless
// an explicit income envelope override exists. Overrides exist to push
// month-end salary payments into the period they pay for.
func resolveEnvelope(row core.MappedRow, layout string, in Inputs) core.Envelope {
	if e, ok := in.IncomeEnvelopes[row.ID]; ok && e != "" {
		return e
	}
	return core.EnvelopeOf(parseDate(layout, row.Date))
}

// parseDate falls back through the candidate layouts when the detected
// one fails, so a stray row in a different format still resolves to its
// real date. Callers filter out rows no layout parses via SplitUndated;
// anything that slips through lands on the zero time.
func parseDate(layout, date string) time.Time {
	if t, err := time.Parse(layout, date); err == nil {
		return t
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, date); err == nil {
			return t
		}
	}
	return time.Time{}
}

// amountAfterRefund nets a transaction against its refund-linked
// counterparts. Aggregation consumes this instead of the raw amount so a
// refunded expense is not double-counted.
func amountAfterRefund(tx *core.Transaction, byID map[uint32]*core.Transaction) decimal.Decimal {
	net := tx.Amount
	for _, link := range tx.Linked {
		if link.Type != core.LinkRefund {
			continue
		}
		other, ok := byID[link.ID]
		if !ok {
			continue
		}
		net = net.Add(other.Amount)
	}
	return net
}

func label(labels map[string]string, account string) string {
	if l, ok := labels[account]; ok && l != "" {
		return l
	}
	return account
}
