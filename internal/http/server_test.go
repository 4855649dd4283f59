package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kuvert/internal/aggregate"
	"kuvert/internal/cache"
	"kuvert/internal/core"
	"kuvert/internal/services"
	"kuvert/internal/store"
)

const exportCSV = `Date,Text,Amount,To,From
15-01-2024,Grocery store,"-250,00",Shop 123,Account A
20-01-2024,Salary January,"15.000,00",Account A,Employer
05-02-2024,Rent February,"-8.000,00",Landlord,Account A
`

func newTestServer(t *testing.T) (*Server, *store.TransactionStore) {
	t.Helper()
	s := store.New(store.NewMemoryKV())
	d := services.NewDerivation(s, cache.NewLRU[*services.Snapshot](4, time.Minute), nil)
	return NewServer(":0", s, d), s
}

func seedServer(t *testing.T, s *store.TransactionStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.AddCSVFile(ctx, core.CSVFile{Name: "export.csv", Content: exportCSV}))
	require.NoError(t, s.SaveMapping(ctx, "Amount|Date|From|Text|To", core.ColumnMapping{
		Date:    "Date",
		Posting: "Text",
		Amount:  "Amount",
		To:      "To",
		From:    "From",
	}))
	require.NoError(t, s.SaveOwnedAccounts(ctx, []string{"Account A"}))
}

func doRequest(srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func idPath(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFileLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/api/files", core.CSVFile{Name: "export.csv", Content: exportCSV})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/files", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var infos []fileInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "export.csv", infos[0].Name)

	rec = doRequest(srv, http.MethodDelete, "/api/files/export.csv", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/files", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	assert.Empty(t, infos)
}

func TestAddFileWithoutName(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/api/files", core.CSVFile{Content: "a,b\n1,2\n"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSchemasReportUnmapped(t *testing.T) {
	srv, s := newTestServer(t)
	require.NoError(t, s.AddCSVFile(context.Background(), core.CSVFile{Name: "export.csv", Content: exportCSV}))

	rec := doRequest(srv, http.MethodGet, "/api/schemas", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp schemasResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Unmapped, 1)
	assert.Equal(t, core.SchemaKey("Amount|Date|From|Text|To"), resp.Unmapped[0].Key)
	assert.Equal(t, []string{"Amount", "Date", "From", "Text", "To"}, resp.Unmapped[0].Columns)
}

func TestSaveMappingValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	// Mapping referencing a column the schema does not have.
	rec := doRequest(srv, http.MethodPut, "/api/mappings/Amount|Date|From|Text|To", core.ColumnMapping{
		Date:    "Date",
		Posting: "Text",
		Amount:  "Betrag",
		To:      "To",
		From:    "From",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListTransactions(t *testing.T) {
	srv, s := newTestServer(t)
	seedServer(t, s)

	rec := doRequest(srv, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp transactionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Transactions, 3)
	assert.Equal(t, core.TypeExpense, resp.Transactions[0].Type)
	assert.Equal(t, core.TypeUnknown, resp.Transactions[1].Type)

	// An income envelope marks the salary as income for its pay period.
	rec = doRequest(srv, http.MethodPut,
		"/api/transactions/"+idPath(resp.Transactions[1].ID)+"/income-envelope",
		map[string]string{"envelope": "01-2024"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/transactions", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, core.TypeIncome, resp.Transactions[1].Type)
}

func TestCategoryAssignment(t *testing.T) {
	srv, s := newTestServer(t)
	seedServer(t, s)

	rec := doRequest(srv, http.MethodGet, "/api/transactions", nil)
	var resp transactionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	id := resp.Transactions[0].ID

	rec = doRequest(srv, http.MethodPut,
		"/api/transactions/"+idPath(id)+"/category",
		map[string]string{"category": "Food"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/transactions", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Food", resp.Transactions[0].Category)
}

func TestTypeOverrideRoundTrip(t *testing.T) {
	srv, s := newTestServer(t)
	seedServer(t, s)

	rec := doRequest(srv, http.MethodGet, "/api/transactions", nil)
	var resp transactionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	id := resp.Transactions[0].ID

	rec = doRequest(srv, http.MethodPut,
		"/api/transactions/"+idPath(id)+"/type",
		map[string]string{"type": "transfer"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/transactions", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, core.TypeTransfer, resp.Transactions[0].Type)

	rec = doRequest(srv, http.MethodDelete, "/api/transactions/"+idPath(id)+"/type", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/transactions", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, core.TypeExpense, resp.Transactions[0].Type)
}

func TestTypeOverrideRejectsUnknown(t *testing.T) {
	srv, s := newTestServer(t)
	seedServer(t, s)

	rec := doRequest(srv, http.MethodPut, "/api/transactions/1/type",
		map[string]string{"type": "mystery"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestLinkEndpoints(t *testing.T) {
	srv, s := newTestServer(t)
	seedServer(t, s)

	rec := doRequest(srv, http.MethodGet, "/api/transactions", nil)
	var resp transactionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	a, b := resp.Transactions[0].ID, resp.Transactions[1].ID

	rec = doRequest(srv, http.MethodPost, "/api/links",
		map[string]any{"a": a, "b": b, "type": "refund"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/transactions", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Transactions[0].Linked, 1)
	assert.Equal(t, b, resp.Transactions[0].Linked[0].ID)

	rec = doRequest(srv, http.MethodDelete,
		"/api/links/"+idPath(a)+"/"+idPath(b), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/transactions", nil)
	var after transactionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
	assert.Empty(t, after.Transactions[0].Linked)
}

func TestSelfLinkRejected(t *testing.T) {
	srv, s := newTestServer(t)
	seedServer(t, s)

	rec := doRequest(srv, http.MethodPost, "/api/links",
		map[string]any{"a": 7, "b": 7, "type": "refund"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestBudgetPostValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPut, "/api/budget/posts", []core.BudgetPost{{Title: ""}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestReports(t *testing.T) {
	srv, s := newTestServer(t)
	seedServer(t, s)

	rec := doRequest(srv, http.MethodGet, "/api/transactions", nil)
	var txs transactionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txs))
	require.Len(t, txs.Transactions, 3)
	require.NoError(t, s.SetIncomeEnvelope(context.Background(), txs.Transactions[1].ID, "01-2024"))

	rec = doRequest(srv, http.MethodGet, "/api/reports/totals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var totals aggregate.Totals
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &totals))
	assert.True(t, totals.Income.Equal(decimal.NewFromInt(15000)), "income %s", totals.Income)
	assert.True(t, totals.Expense.Equal(decimal.NewFromInt(-8250)), "expense %s", totals.Expense)

	rec = doRequest(srv, http.MethodGet, "/api/reports/envelopes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var report map[core.Envelope]aggregate.EnvelopeStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Len(t, report, 2)

	rec = doRequest(srv, http.MethodGet, "/api/reports/averages", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/reports/budget?envelopes=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFiltersReportInvalidSources(t *testing.T) {
	srv, s := newTestServer(t)
	require.NoError(t, s.SaveFilters(context.Background(), []string{
		`amount < -1000`,
		`(((`,
	}))

	rec := doRequest(srv, http.MethodGet, "/api/filters", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp filtersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Filters, 2)
	assert.Len(t, resp.Invalid, 1)
}
