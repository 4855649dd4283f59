package aggregate

import (
	"testing"

	"github.com/shopspring/decimal"

	"kuvert/internal/core"
)

func tx(id uint32, typ core.TransactionType, envelope core.Envelope, category, amount string) core.Transaction {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		panic(err)
	}
	return core.Transaction{
		ID: id, Type: typ, Envelope: envelope, Category: category,
		Amount: d, AmountAfterRefund: d,
	}
}

func TestComputeTotals(t *testing.T) {
	txs := []core.Transaction{
		tx(1, core.TypeIncome, "01-2024", "", "20000"),
		tx(2, core.TypeExpense, "01-2024", "Rent", "-8500"),
		tx(3, core.TypeExpense, "01-2024", "Food", "-1500"),
		tx(4, core.TypeTransfer, "01-2024", "", "-1000"),
		tx(5, core.TypeUnknown, "01-2024", "", "42"),
	}
	got := ComputeTotals(txs)
	if got.Income.String() != "20000" {
		t.Fatalf("income %s", got.Income)
	}
	if got.Expense.String() != "-10000" {
		t.Fatalf("expense %s", got.Expense)
	}
	if got.Net.String() != "10000" {
		t.Fatalf("net %s", got.Net)
	}
}

func TestTotalsRefundOffsetsExpense(t *testing.T) {
	txs := []core.Transaction{
		tx(1, core.TypeExpense, "01-2024", "Shopping", "-500"),
		tx(2, core.TypeRefund, "01-2024", "Shopping", "200"),
	}
	got := ComputeTotals(txs)
	if got.Expense.String() != "-300" {
		t.Fatalf("expected refund leg to offset expense, got %s", got.Expense)
	}
}

func TestPerEnvelope(t *testing.T) {
	txs := []core.Transaction{
		tx(1, core.TypeIncome, "01-2024", "", "1000"),
		tx(2, core.TypeExpense, "01-2024", "Food", "-200"),
		tx(3, core.TypeExpense, "01-2024", "Food", "-100"),
		tx(4, core.TypeExpense, "01-2024", "", "-50"),
		tx(5, core.TypeIncome, "02-2024", "", "2000"),
	}
	got := PerEnvelope(txs, nil)
	jan := got["01-2024"]
	if jan.Income.String() != "1000" || jan.Expense.String() != "-350" {
		t.Fatalf("unexpected january stats: %+v", jan)
	}
	if jan.ExpensesByCategory["Food"].String() != "-300" {
		t.Fatalf("food %s", jan.ExpensesByCategory["Food"])
	}
	if jan.ExpensesByCategory[core.UnassignedCategory].String() != "-50" {
		t.Fatalf("unassigned %s", jan.ExpensesByCategory[core.UnassignedCategory])
	}
	if got["02-2024"].Income.String() != "2000" {
		t.Fatalf("february income %s", got["02-2024"].Income)
	}
}

func TestPerEnvelopeZeroedWhenRequested(t *testing.T) {
	got := PerEnvelope(nil, []core.Envelope{"03-2024"})
	stats, ok := got["03-2024"]
	if !ok {
		t.Fatal("requested envelope missing from result")
	}
	if !stats.Income.IsZero() || !stats.Expense.IsZero() || !stats.Net.IsZero() {
		t.Fatalf("expected zeroed stats, got %+v", stats)
	}
}

func TestComputeAveragesByDistinctEnvelopes(t *testing.T) {
	txs := []core.Transaction{
		tx(1, core.TypeIncome, "01-2024", "", "1000"),
		tx(2, core.TypeIncome, "02-2024", "", "2000"),
	}
	got := ComputeAverages(txs)
	// Divided by the two envelopes present, not by twelve months or by
	// row count.
	if got.IncomePerEnvelope.String() != "1500" {
		t.Fatalf("expected 1500, got %s", got.IncomePerEnvelope)
	}
}

func TestComputeAveragesEmptyInput(t *testing.T) {
	got := ComputeAverages(nil)
	if !got.IncomePerEnvelope.IsZero() || !got.NetPerEnvelope.IsZero() {
		t.Fatalf("expected zeros for empty input, got %+v", got)
	}
}

func TestComputeAveragesExpenseByCategory(t *testing.T) {
	txs := []core.Transaction{
		tx(1, core.TypeExpense, "01-2024", "Food", "-300"),
		tx(2, core.TypeExpense, "02-2024", "Food", "-100"),
	}
	got := ComputeAverages(txs)
	if got.ExpenseByCategory["Food"].String() != "-200" {
		t.Fatalf("expected -200, got %s", got.ExpenseByCategory["Food"])
	}
}

func TestDistinctEnvelopes(t *testing.T) {
	txs := []core.Transaction{
		tx(1, core.TypeIncome, "02-2024", "", "1"),
		tx(2, core.TypeIncome, "01-2024", "", "1"),
		tx(3, core.TypeIncome, "02-2024", "", "1"),
	}
	got := DistinctEnvelopes(txs)
	if len(got) != 2 || got[0] != "01-2024" || got[1] != "02-2024" {
		t.Fatalf("unexpected envelopes: %v", got)
	}
}

func TestBudgetVariance(t *testing.T) {
	posts := []core.BudgetPost{
		{Title: "Living", Amount: decimal.NewFromInt(5000)},
		{Title: "Fun", Amount: decimal.NewFromInt(500)},
	}
	categoryPosts := map[string]string{"Food": "Living", "Rent": "Living", "Cinema": "Fun"}
	txs := []core.Transaction{
		tx(1, core.TypeExpense, "01-2024", "Food", "-2000"),
		tx(2, core.TypeExpense, "01-2024", "Rent", "-8500"),
		tx(3, core.TypeExpense, "02-2024", "Food", "-1800"),
		tx(4, core.TypeExpense, "01-2024", "Cinema", "-120"),
		tx(5, core.TypeIncome, "01-2024", "Food", "9999"),
	}
	lines := BudgetVariance(posts, categoryPosts, txs, 2)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	// Living: 5000*2 - 2000 - 8500 - 1800 = -2300 (over budget).
	if lines[0].Title != "Living" || lines[0].Net.String() != "-2300" {
		t.Fatalf("living: %+v", lines[0])
	}
	// Fun: 500*2 - 120 = 880.
	if lines[1].Title != "Fun" || lines[1].Net.String() != "880" {
		t.Fatalf("fun: %+v", lines[1])
	}
}

func TestBudgetVarianceUsesRefundNetting(t *testing.T) {
	posts := []core.BudgetPost{{Title: "Shopping", Amount: decimal.NewFromInt(400)}}
	categoryPosts := map[string]string{"Clothes": "Shopping"}

	expense := tx(1, core.TypeExpense, "01-2024", "Clothes", "-500")
	expense.AmountAfterRefund = decimal.NewFromInt(-300) // 200 refunded

	lines := BudgetVariance(posts, categoryPosts, []core.Transaction{expense}, 1)
	// 400 - 300, not 400 - 500.
	if lines[0].Net.String() != "100" {
		t.Fatalf("expected 100, got %s", lines[0].Net)
	}
}
