package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ledger/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries

	// mu serialises inserts so createdAt stays strictly increasing.
	mu   sync.Mutex
	last int64

	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}

	last, err := repo.queries.MaxCreatedAt(context.Background())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("read latest createdAt: %w", err)
	}
	repo.last = last

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) validate(tx *core.Transaction) error {
	tx.Normalize()
	return tx.Validate(r.now())
}

// Insert stores a new entry and returns it with id and createdAt assigned.
func (r *SQLiteRepository) Insert(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := r.validate(&tx); err != nil {
		return core.Transaction{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	createdAt := r.now().UnixMicro()
	if createdAt <= r.last {
		createdAt = r.last + 1
	}

	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		Type:        tx.Type.String(),
		AmountCents: tx.Amount.Cents,
		Category:    tx.Category,
		Description: tx.Description,
		Date:        tx.Date.String(),
		CreatedAt:   createdAt,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	r.last = createdAt

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"type", row.Type,
		"amount_cents", row.AmountCents,
		"date", row.Date)

	return row.toCore()
}

// Update replaces the editable fields of entry id.
func (r *SQLiteRepository) Update(ctx context.Context, id int64, tx core.Transaction) (core.Transaction, error) {
	if err := r.validate(&tx); err != nil {
		return core.Transaction{}, err
	}

	row, err := r.queries.UpdateTransaction(ctx, UpdateTransactionParams{
		ID:          id,
		Type:        tx.Type.String(),
		AmountCents: tx.Amount.Cents,
		Category:    tx.Category,
		Description: tx.Description,
		Date:        tx.Date.String(),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
	}
	return row.toCore()
}

// Delete removes entry id and returns what was removed.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := r.queries.DeleteTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return row.toCore()
}

func (r *SQLiteRepository) FindByID(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return row.toCore()
}

// FindAll returns the entries matching q in q's order.
func (r *SQLiteRepository) FindAll(ctx context.Context, q core.Query) ([]core.Transaction, error) {
	params := ListTransactionsParams{
		Type:      q.Type.String(),
		Category:  q.Category,
		StartDate: q.Start.String(),
		EndDate:   q.End.String(),
		OrderBy:   orderClause(q),
	}
	rows, err := r.queries.ListTransactions(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := row.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func orderClause(q core.Query) string {
	switch {
	case q.SortBy == core.SortByDate && q.SortOrder == core.Asc:
		return orderByDateAsc
	case q.SortBy == core.SortByDate:
		return orderByDateDesc
	case q.SortBy == core.SortByAmount && q.SortOrder == core.Asc:
		return orderByAmountAsc
	case q.SortBy == core.SortByAmount:
		return orderByAmountDesc
	default:
		return orderByDefault
	}
}

func (r *SQLiteRepository) MonthTotals(ctx context.Context, year, month int) (core.MonthSummary, error) {
	first, last := core.MonthRange(year, month)
	income, expense, err := r.queries.GetMonthTotals(ctx, first.String(), last.String())
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("get month totals: %w", err)
	}
	return core.NewMonthSummary(year, month, core.Money{Cents: income}, core.Money{Cents: expense}), nil
}

func (r *SQLiteRepository) MonthlyTrends(ctx context.Context) ([]core.TrendPoint, error) {
	rows, err := r.queries.GetMonthlyTrends(ctx)
	if err != nil {
		return nil, fmt.Errorf("get monthly trends: %w", err)
	}

	out := make([]core.TrendPoint, 0, len(rows))
	for _, row := range rows {
		s := core.NewMonthSummary(int(row.Year), int(row.Month),
			core.Money{Cents: row.TotalIncome}, core.Money{Cents: row.TotalExpense})
		out = append(out, core.TrendPoint(s))
	}
	return out, nil
}

func (r *SQLiteRepository) CategoryTotals(ctx context.Context, year, month int, t core.Type) ([]core.CategoryAmount, error) {
	first, last := core.MonthRange(year, month)
	rows, err := r.queries.GetCategorySums(ctx, t.String(), first.String(), last.String())
	if err != nil {
		return nil, fmt.Errorf("get category sums: %w", err)
	}

	out := make([]core.CategoryAmount, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.CategoryAmount{
			Category: row.Category,
			Amount:   core.Money{Cents: row.TotalAmount},
		})
	}
	return out, nil
}

func (row TransactionRow) toCore() (core.Transaction, error) {
	d, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d has corrupt date %q: %w", row.ID, row.Date, err)
	}
	return core.Transaction{
		ID:          row.ID,
		Type:        core.Type(row.Type),
		Amount:      core.Money{Cents: row.AmountCents},
		Category:    row.Category,
		Description: row.Description,
		Date:        d,
		CreatedAt:   time.UnixMicro(row.CreatedAt).UTC(),
	}, nil
}
