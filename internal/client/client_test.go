package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
	ledgerhttp "ledger/internal/http"
	"ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/storage/memory"
)

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, prefix string) *Client {
	t.Helper()
	store := memory.New().WithClock(func() time.Time { return fixedNow })
	queries := services.NewQueryService(store)
	export, err := services.NewExportService(queries, services.ExportOptions{Locale: "ko"})
	require.NoError(t, err)

	srv := ledgerhttp.NewServer(":0", ledgerhttp.Deps{
		Ledger:     services.NewLedgerService(store, nil),
		Queries:    queries,
		Aggregates: services.NewAggregationService(store),
		Export:     export,
	}, ledgerhttp.Options{
		Logger: log.New(log.Config{Level: slog.LevelError, Output: io.Discard}),
		Now:    func() time.Time { return fixedNow },
	})
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})

	c, err := New(ts.URL + prefix)
	require.NoError(t, err)
	return c
}

func input(typ, amount, category, date string) core.TransactionInput {
	return core.TransactionInput{Type: typ, Amount: amount, Category: category, Date: date}
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)
	_, err = New("://")
	assert.Error(t, err)
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, "/api")

	created, err := c.Create(ctx, input("expense", "12,50", "food", "2024-03-01"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, int64(1250), created.Amount.Cents)
	assert.Equal(t, core.Expense, created.Type)

	_, err = c.Create(ctx, input("income", "100", "salary", "2024-03-02"))
	require.NoError(t, err)

	got, err := c.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))

	list, err := c.List(ctx, core.Query{Type: core.Expense})
	require.NoError(t, err)
	require.Len(t, list, 1)

	updated, err := c.Update(ctx, created.ID, input("expense", "20", "groceries", "2024-03-01"))
	require.NoError(t, err)
	assert.Equal(t, "groceries", updated.Category)

	summary, err := c.MonthlySummary(ctx, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), summary.TotalIncome.Cents)
	assert.Equal(t, int64(2000), summary.TotalExpense.Cents)
	assert.Equal(t, int64(8000), summary.NetProfit.Cents)

	rows, err := c.CategoryBreakdown(ctx, 2024, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "groceries", rows[0].Category)

	trends, err := c.MonthlyTrends(ctx)
	require.NoError(t, err)
	require.Len(t, trends, 1)

	removed, err := c.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "groceries", removed.Category)

	_, err = c.Get(ctx, created.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound), "got %v", err)
}

func TestClientValidationError(t *testing.T) {
	c := newTestClient(t, "")

	_, err := c.Create(context.Background(), input("expense", "-1", "food", "2024-03-01"))
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "amount", apiErr.Field)
	assert.NotEmpty(t, apiErr.Reason)
	assert.Contains(t, apiErr.Error(), "amount")
}

func TestClientExport(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, "")
	_, err := c.Create(ctx, input("income", "5000", "salary", "2024-01-10"))
	require.NoError(t, err)

	doc, err := c.Export(ctx, core.Query{}, 2024, 1)
	require.NoError(t, err)
	assert.Equal(t, "가계부_내역_2024년1월.csv", doc.Filename)
	assert.True(t, strings.HasPrefix(string(doc.Body), "날짜,유형,카테고리,금액,내용"))
	assert.Contains(t, string(doc.Body), "2024-01-10,수입,salary,5000,")

	_, err = c.Export(ctx, core.Query{}, 2024, 0)
	assert.True(t, IsValidation(err))
}
