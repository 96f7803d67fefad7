package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	repo.now = func() time.Time { return fixedNow }
	t.Cleanup(func() { repo.Close() })
	return repo
}

func entry(typ core.Type, cents int64, category, date string) core.Transaction {
	return core.Transaction{
		Type:     typ,
		Amount:   core.Money{Cents: cents},
		Category: category,
		Date:     core.MustParseDate(date),
	}
}

func TestSQLiteInsertAssignsIdentity(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a, err := repo.Insert(ctx, entry(core.Expense, 500000, " food ", "2024-01-10"))
	require.NoError(t, err)
	b, err := repo.Insert(ctx, entry(core.Income, 100, "salary", "2024-01-11"))
	require.NoError(t, err)

	assert.Equal(t, "food", a.Category)
	assert.Greater(t, b.ID, a.ID)
	// same clock reading for both inserts
	assert.True(t, b.CreatedAt.After(a.CreatedAt))

	got, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.SameContent(a))
	assert.True(t, got.CreatedAt.Equal(a.CreatedAt))
}

func TestSQLiteInsertRejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Insert(ctx, entry(core.Expense, 0, "food", "2024-01-10"))
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = repo.Insert(ctx, entry(core.Expense, 100, "food", "2024-03-16"))
	assert.ErrorIs(t, err, core.ErrFutureDate)
	assert.True(t, core.IsValidation(err))

	all, err := repo.FindAll(ctx, core.Query{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSQLiteUpdateAndDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	orig, err := repo.Insert(ctx, entry(core.Expense, 500, "food", "2024-01-10"))
	require.NoError(t, err)

	upd := entry(core.Income, 700, "gift", "2024-01-12")
	upd.Description = "birthday"
	got, err := repo.Update(ctx, orig.ID, upd)
	require.NoError(t, err)
	assert.Equal(t, orig.ID, got.ID)
	assert.True(t, got.CreatedAt.Equal(orig.CreatedAt))
	assert.True(t, got.SameContent(upd))

	_, err = repo.Update(ctx, 999, upd)
	assert.ErrorIs(t, err, core.ErrNotFound)

	removed, err := repo.Delete(ctx, orig.ID)
	require.NoError(t, err)
	assert.Equal(t, "gift", removed.Category)

	_, err = repo.Delete(ctx, orig.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = repo.FindByID(ctx, orig.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	// ids are never reused
	next, err := repo.Insert(ctx, entry(core.Expense, 1, "x", "2024-01-01"))
	require.NoError(t, err)
	assert.Greater(t, next.ID, orig.ID)
}

func TestSQLiteFindAll(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seed := []core.Transaction{
		entry(core.Expense, 500, "food", "2024-01-10"),
		entry(core.Income, 9000, "salary", "2024-01-15"),
		entry(core.Expense, 200, "food", "2024-01-10"),
		entry(core.Expense, 300, "Food", "2024-02-01"),
	}
	var ids []int64
	for _, tx := range seed {
		got, err := repo.Insert(ctx, tx)
		require.NoError(t, err)
		ids = append(ids, got.ID)
	}

	all, err := repo.FindAll(ctx, core.Query{})
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[3], ids[1], ids[2], ids[0]}, idsOf(all))

	food, err := repo.FindAll(ctx, core.Query{Category: "food"})
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[2], ids[0]}, idsOf(food))

	ranged, err := repo.FindAll(ctx, core.Query{
		Type:  core.Expense,
		Start: core.NewDate(2024, 1, 10),
		End:   core.NewDate(2024, 1, 31),
	})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	byAmount, err := repo.FindAll(ctx, core.Query{SortBy: core.SortByAmount, SortOrder: core.Asc})
	require.NoError(t, err)
	for i := 1; i < len(byAmount); i++ {
		assert.LessOrEqual(t, byAmount[i-1].Amount.Cents, byAmount[i].Amount.Cents)
	}
}

func TestSQLiteAggregates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, tx := range []core.Transaction{
		entry(core.Expense, 100000, "food", "2024-01-03"),
		entry(core.Expense, 200000, "food", "2024-01-20"),
		entry(core.Expense, 700, "Food", "2024-01-31"),
		entry(core.Income, 2000000, "salary", "2024-01-15"),
		entry(core.Expense, 999, "food", "2024-02-01"),
		entry(core.Income, 50, "misc", "2023-12-31"),
	} {
		_, err := repo.Insert(ctx, tx)
		require.NoError(t, err)
	}

	jan, err := repo.MonthTotals(ctx, 2024, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2000000), jan.TotalIncome.Cents)
	assert.Equal(t, int64(300700), jan.TotalExpense.Cents)
	assert.Equal(t, int64(1699300), jan.NetProfit.Cents)

	empty, err := repo.MonthTotals(ctx, 2022, 7)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalIncome.Cents)
	assert.Zero(t, empty.NetProfit.Cents)

	trends, err := repo.MonthlyTrends(ctx)
	require.NoError(t, err)
	require.Len(t, trends, 3)
	assert.Equal(t, 2023, trends[0].Year)
	assert.Equal(t, 12, trends[0].Month)
	assert.Equal(t, 2, trends[2].Month)
	assert.Equal(t, int64(-999), trends[2].NetProfit.Cents)

	cats, err := repo.CategoryTotals(ctx, 2024, 1, core.Expense)
	require.NoError(t, err)
	assert.Equal(t, []core.CategoryAmount{
		{Category: "food", Amount: core.Money{Cents: 300000}},
		{Category: "Food", Amount: core.Money{Cents: 700}},
	}, cats)
}

func TestSQLiteLargeAmountsSumExactly(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Insert(ctx, entry(core.Expense, core.MaxAmountCents+1, "big", "2024-01-05"))
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	for i := 0; i < 10; i++ {
		_, err := repo.Insert(ctx, entry(core.Expense, core.MaxAmountCents, "big", "2024-01-05"))
		require.NoError(t, err)
	}

	jan, err := repo.MonthTotals(ctx, 2024, 1)
	require.NoError(t, err)
	assert.Equal(t, 10*core.MaxAmountCents, jan.TotalExpense.Cents)
	assert.Equal(t, -10*core.MaxAmountCents, jan.NetProfit.Cents)
}

func TestSQLiteCreatedAtSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	repo.now = func() time.Time { return fixedNow }
	first, err := repo.Insert(ctx, entry(core.Expense, 1, "x", "2024-01-01"))
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	// reopened with a clock that went backwards
	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()
	repo.now = func() time.Time { return fixedNow.Add(-time.Hour) }
	second, err := repo.Insert(ctx, entry(core.Expense, 1, "x", "2024-01-01"))
	require.NoError(t, err)
	assert.True(t, second.CreatedAt.After(first.CreatedAt))
}

func idsOf(txs []core.Transaction) []int64 {
	out := make([]int64, len(txs))
	for i, tx := range txs {
		out[i] = tx.ID
	}
	return out
}
