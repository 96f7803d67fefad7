package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/storage/memory"
)

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type publishedEvent struct {
	id   int64
	kind amqp.EventKind
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) PublishTransactionEvent(_ context.Context, id int64, kind amqp.EventKind) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{id: id, kind: kind})
	return p.err
}

func newStore() *memory.Store {
	return memory.New().WithClock(func() time.Time { return fixedNow })
}

func tx(typ core.Type, cents int64, category, date, description string) core.Transaction {
	return core.Transaction{
		Type:        typ,
		Amount:      core.Money{Cents: cents},
		Category:    category,
		Description: description,
		Date:        core.MustParseDate(date),
	}
}

func seed(t *testing.T, s Store, txs ...core.Transaction) []core.Transaction {
	t.Helper()
	out := make([]core.Transaction, 0, len(txs))
	for _, in := range txs {
		created, err := s.Insert(context.Background(), in)
		require.NoError(t, err)
		out = append(out, created)
	}
	return out
}

func TestLedgerServicePublishesAfterCommit(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewLedgerService(newStore(), pub)
	ctx := context.Background()

	created, err := svc.Create(ctx, tx(core.Expense, 500000, "food", "2024-01-10", ""))
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, tx(core.Expense, 400000, "food", "2024-01-10", "fixed"))
	require.NoError(t, err)

	removed, err := svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "fixed", removed.Description)

	assert.Equal(t, []publishedEvent{
		{created.ID, amqp.EventCreated},
		{created.ID, amqp.EventUpdated},
		{created.ID, amqp.EventDeleted},
	}, pub.events)
}

func TestLedgerServiceFailuresDoNotPublish(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewLedgerService(newStore(), pub)
	ctx := context.Background()

	_, err := svc.Create(ctx, tx(core.Expense, 0, "food", "2024-01-10", ""))
	assert.True(t, core.IsValidation(err))

	_, err = svc.Update(ctx, 42, tx(core.Expense, 1, "food", "2024-01-10", ""))
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.Delete(ctx, 42)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.Get(ctx, 42)
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.Empty(t, pub.events)
}

func TestLedgerServicePublishErrorIsSwallowed(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewLedgerService(newStore(), pub)

	created, err := svc.Create(context.Background(), tx(core.Income, 100, "salary", "2024-01-10", ""))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Len(t, pub.events, 1)
}

func TestLedgerServiceWithoutPublisher(t *testing.T) {
	svc := NewLedgerService(newStore(), nil)
	_, err := svc.Create(context.Background(), tx(core.Income, 100, "salary", "2024-01-10", ""))
	require.NoError(t, err)
}

func TestQueryServiceList(t *testing.T) {
	store := newStore()
	created := seed(t, store,
		tx(core.Expense, 500, "food", "2024-01-10", ""),
		tx(core.Income, 9000, "salary", "2024-01-15", ""),
		tx(core.Expense, 200, "food", "2024-01-10", ""),
	)
	svc := NewQueryService(store)
	ctx := context.Background()

	all, err := svc.List(ctx, core.Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, created[1].ID, all[0].ID)
	// same date: the later insert comes first
	assert.Equal(t, created[2].ID, all[1].ID)
	assert.Equal(t, created[0].ID, all[2].ID)

	none, err := svc.List(ctx, core.Query{Category: "travel"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestAggregationService(t *testing.T) {
	store := newStore()
	seed(t, store,
		tx(core.Expense, 500000, "food", "2024-01-10", ""),
		tx(core.Income, 2000000, "salary", "2024-01-15", ""),
		tx(core.Expense, 100, "Food", "2024-02-01", ""),
	)
	svc := NewAggregationService(store)
	ctx := context.Background()

	sum, err := svc.MonthlySummary(ctx, 2024, 1)
	require.NoError(t, err)
	assert.Equal(t, core.NewMonthSummary(2024, 1, core.Money{Cents: 2000000}, core.Money{Cents: 500000}), sum)

	_, err = svc.MonthlySummary(ctx, 2024, 13)
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
	_, err = svc.MonthlySummary(ctx, 0, 1)
	assert.ErrorIs(t, err, core.ErrInvalidYear)

	trends, err := svc.MonthlyTrends(ctx)
	require.NoError(t, err)
	require.Len(t, trends, 2)
	assert.Equal(t, 1, trends[0].Month)
	assert.Equal(t, 2, trends[1].Month)

	cats, err := svc.CategoryBreakdown(ctx, 2024, 1)
	require.NoError(t, err)
	assert.Equal(t, []core.CategoryAmount{{Category: "food", Amount: core.Money{Cents: 500000}}}, cats)

	empty, err := NewAggregationService(newStore()).MonthlyTrends(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
}

func TestParseExportScope(t *testing.T) {
	scope, err := ParseExportScope("", "")
	require.NoError(t, err)
	assert.True(t, scope.All())

	scope, err = ParseExportScope("2024", "1")
	require.NoError(t, err)
	assert.Equal(t, ExportScope{Year: 2024, Month: 1}, scope)

	_, err = ParseExportScope("2024", "")
	assert.ErrorIs(t, err, core.ErrIncompleteScope)
	_, err = ParseExportScope("", "3")
	assert.ErrorIs(t, err, core.ErrIncompleteScope)
	_, err = ParseExportScope("2024", "13")
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
	_, err = ParseExportScope("abc", "1")
	assert.ErrorIs(t, err, core.ErrInvalidYear)
}

func TestExportAll(t *testing.T) {
	store := newStore()
	seed(t, store,
		tx(core.Expense, 500000, "food", "2024-01-10", `said "hi", then left`),
		tx(core.Income, 1234, "salary", "2024-02-01", ""),
	)
	svc, err := NewExportService(NewQueryService(store), ExportOptions{})
	require.NoError(t, err)

	doc, err := svc.Export(context.Background(), core.Query{}, ExportScope{})
	require.NoError(t, err)
	assert.Equal(t, "ledger_all.csv", doc.Filename)
	assert.Equal(t, 2, doc.Rows)

	lines := strings.Split(strings.TrimRight(string(doc.Body), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,type,category,amount,description", lines[0])
	assert.Equal(t, "2024-02-01,Income,salary,12.34,", lines[1])
	assert.Equal(t, `2024-01-10,Expense,food,5000,"said ""hi"", then left"`, lines[2])
	assert.Equal(t, `attachment; filename=ledger_all.csv`, doc.ContentDisposition())
}

func TestExportScopedKorean(t *testing.T) {
	store := newStore()
	seed(t, store,
		tx(core.Expense, 500000, "식비", "2024-01-10", ""),
		tx(core.Income, 100, "salary", "2024-02-01", ""),
	)
	svc, err := NewExportService(NewQueryService(store), ExportOptions{Locale: "ko", BOM: true})
	require.NoError(t, err)

	doc, err := svc.Export(context.Background(), core.Query{}, ExportScope{Year: 2024, Month: 1})
	require.NoError(t, err)
	assert.Equal(t, "가계부_내역_2024년1월.csv", doc.Filename)
	assert.True(t, strings.HasPrefix(string(doc.Body), "\ufeff날짜,유형,카테고리,금액,내용\n"))
	assert.Contains(t, string(doc.Body), "2024-01-10,지출,식비,5000,\n")
	assert.NotContains(t, string(doc.Body), "salary")
	assert.Contains(t, doc.ContentDisposition(), "filename*=utf-8''")

	_, err = NewExportService(NewQueryService(store), ExportOptions{Locale: "fr"})
	assert.Error(t, err)
}

func TestExportRespectsQuery(t *testing.T) {
	store := newStore()
	seed(t, store,
		tx(core.Expense, 300, "food", "2024-01-10", ""),
		tx(core.Expense, 100, "food", "2024-01-11", ""),
		tx(core.Income, 900, "salary", "2024-01-12", ""),
	)
	svc, err := NewExportService(NewQueryService(store), ExportOptions{Locale: "en"})
	require.NoError(t, err)

	doc, err := svc.Export(context.Background(), core.Query{Type: core.Expense, SortBy: core.SortByAmount, SortOrder: core.Asc}, ExportScope{})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(doc.Body), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "2024-01-11,Expense,food,1,"))
	assert.True(t, strings.HasPrefix(lines[2], "2024-01-10,Expense,food,3,"))
}

// captureLogs routes the default logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestServicesLogStructuredFields(t *testing.T) {
	logs := captureLogs(t)
	store := newStore()
	ctx := context.Background()

	svc := NewLedgerService(store, &recordingPublisher{err: errors.New("broker down")})
	_, err := svc.Create(ctx, tx(core.Expense, 1250, "food", "2024-01-10", ""))
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, `"component":"ledger"`)
	assert.Contains(t, out, `"operation":"create"`)
	assert.Contains(t, out, `"amount_cents":1250`)
	assert.Contains(t, out, `"component":"amqp"`)

	export, err := NewExportService(NewQueryService(store), ExportOptions{})
	require.NoError(t, err)
	_, err = export.Export(ctx, core.Query{}, ExportScope{Year: 2024, Month: 1})
	require.NoError(t, err)

	out = logs.String()
	assert.Contains(t, out, `"component":"export"`)
	assert.Contains(t, out, `"year":2024`)
	assert.Contains(t, out, `"month":1`)
}
