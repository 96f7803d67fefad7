package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

// fakeRemote applies mutations to an in-memory slice and counts loads.
type fakeRemote struct {
	records []core.Transaction
	lists   int
	fail    error
}

func (f *fakeRemote) List(_ context.Context, q core.Query) ([]core.Transaction, error) {
	f.lists++
	if f.fail != nil {
		return nil, f.fail
	}
	return q.Apply(f.records), nil
}

func (f *fakeRemote) Create(_ context.Context, in core.TransactionInput) (core.Transaction, error) {
	if f.fail != nil {
		return core.Transaction{}, f.fail
	}
	tx, err := in.Parse(fixedNow)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.ID = int64(len(f.records) + 1)
	tx.CreatedAt = fixedNow.Add(time.Duration(len(f.records)) * time.Microsecond)
	f.records = append(f.records, tx)
	return tx, nil
}

func (f *fakeRemote) Update(_ context.Context, id int64, in core.TransactionInput) (core.Transaction, error) {
	if f.fail != nil {
		return core.Transaction{}, f.fail
	}
	for i := range f.records {
		if f.records[i].ID == id {
			tx, err := in.Parse(fixedNow)
			if err != nil {
				return core.Transaction{}, err
			}
			tx.ID, tx.CreatedAt = id, f.records[i].CreatedAt
			f.records[i] = tx
			return tx, nil
		}
	}
	return core.Transaction{}, core.ErrNotFound
}

func (f *fakeRemote) Delete(_ context.Context, id int64) (core.Transaction, error) {
	for i, tx := range f.records {
		if tx.ID == id {
			f.records = append(f.records[:i], f.records[i+1:]...)
			return tx, nil
		}
	}
	return core.Transaction{}, core.ErrNotFound
}

func seededLedger(t *testing.T) (*Ledger, *fakeRemote) {
	t.Helper()
	remote := &fakeRemote{}
	for _, in := range []core.TransactionInput{
		input("expense", "30", "food", "2024-01-05"),
		input("income", "100", "salary", "2024-01-31"),
		input("expense", "20", "rent", "2024-01-15"),
		input("expense", "30", "Food", "2024-02-01"),
	} {
		_, err := remote.Create(context.Background(), in)
		require.NoError(t, err)
	}
	return NewLedger(remote), remote
}

func ids(txs []core.Transaction) []int64 {
	out := make([]int64, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.ID)
	}
	return out
}

func TestLedgerFetchesOnce(t *testing.T) {
	ctx := context.Background()
	l, remote := seededLedger(t)

	all, err := l.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 2, 3, 1}, ids(all))

	expenses, err := l.Filter(ctx, core.Query{Type: core.Expense})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 3, 1}, ids(expenses))

	byAmount, err := l.Sort(ctx, core.SortByAmount, core.Asc)
	require.NoError(t, err)
	// ties keep the default order
	assert.Equal(t, []int64{3, 4, 1, 2}, ids(byAmount))

	_, err = l.Filter(ctx, core.Query{Type: core.Expense})
	require.NoError(t, err)
	assert.Equal(t, 1, remote.lists)
	assert.Equal(t, 1, l.Fetches())
}

func TestLedgerFilterMatchesServerSemantics(t *testing.T) {
	ctx := context.Background()
	l, remote := seededLedger(t)

	queries := []core.Query{
		{Category: "food"},
		{Start: core.MustParseDate("2024-01-10"), End: core.MustParseDate("2024-01-31")},
		{Type: core.Expense, SortBy: core.SortByDate, SortOrder: core.Asc},
		{Start: core.MustParseDate("2024-02-01"), End: core.MustParseDate("2024-01-01")},
	}
	for _, q := range queries {
		local, err := l.Filter(ctx, q)
		require.NoError(t, err)
		server, err := remote.List(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, ids(server), ids(local), "query %v", q.Values())
	}
}

func TestLedgerCategoryBreakdown(t *testing.T) {
	ctx := context.Background()
	l, _ := seededLedger(t)

	rows, err := l.CategoryBreakdown(ctx, 2024, 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "food", rows[0].Category)
	assert.Equal(t, int64(3000), rows[0].Amount.Cents)
	assert.Equal(t, "rent", rows[1].Category)

	// categories are literal: "Food" in February is its own group
	rows, err = l.CategoryBreakdown(ctx, 2024, 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Food", rows[0].Category)

	_, err = l.CategoryBreakdown(ctx, 2024, 13)
	assert.True(t, core.IsValidation(err))
}

func TestLedgerInvalidatesOnMutation(t *testing.T) {
	ctx := context.Background()
	l, remote := seededLedger(t)

	before, err := l.Filter(ctx, core.Query{Type: core.Income})
	require.NoError(t, err)
	require.Len(t, before, 1)

	_, err = l.Create(ctx, input("income", "5", "gift", "2024-03-01"))
	require.NoError(t, err)

	after, err := l.Filter(ctx, core.Query{Type: core.Income})
	require.NoError(t, err)
	assert.Len(t, after, 2)
	assert.Equal(t, 2, remote.lists)

	_, err = l.Update(ctx, 1, input("expense", "1", "food", "2024-01-05"))
	require.NoError(t, err)
	rows, err := l.CategoryBreakdown(ctx, 2024, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), rows[len(rows)-1].Amount.Cents)
	assert.Equal(t, 3, remote.lists)

	_, err = l.Delete(ctx, 2)
	require.NoError(t, err)
	all, err := l.Records(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, 4, remote.lists)
}

func TestLedgerFailedMutationKeepsCache(t *testing.T) {
	ctx := context.Background()
	l, remote := seededLedger(t)
	_, err := l.Records(ctx)
	require.NoError(t, err)

	_, err = l.Delete(ctx, 99)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = l.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, remote.lists)

	l.Invalidate()
	remote.fail = errors.New("connection refused")
	_, err = l.Filter(ctx, core.Query{})
	assert.ErrorContains(t, err, "load ledger")
}
