package storage

import (
	"context"
	"database/sql"
	"strings"
)

// DBTX is the subset of *sql.DB and *sql.Tx the queries need.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds every SQL statement of the ledger table.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// TransactionRow mirrors one row of the transactions table.
type TransactionRow struct {
	ID          int64
	Type        string
	AmountCents int64
	Category    string
	Description string
	Date        string
	CreatedAt   int64 // unix microseconds
}

const transactionColumns = `id, type, amount_cents, category, description, date, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(s rowScanner) (TransactionRow, error) {
	var i TransactionRow
	err := s.Scan(
		&i.ID,
		&i.Type,
		&i.AmountCents,
		&i.Category,
		&i.Description,
		&i.Date,
		&i.CreatedAt,
	)
	return i, err
}

const createTransaction = `INSERT INTO transactions (type, amount_cents, category, description, date, created_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

type CreateTransactionParams struct {
	Type        string
	AmountCents int64
	Category    string
	Description string
	Date        string
	CreatedAt   int64
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.Type,
		arg.AmountCents,
		arg.Category,
		arg.Description,
		arg.Date,
		arg.CreatedAt,
	)
	return scanTransaction(row)
}

const updateTransaction = `UPDATE transactions
SET type = ?, amount_cents = ?, category = ?, description = ?, date = ?
WHERE id = ?
RETURNING ` + transactionColumns

type UpdateTransactionParams struct {
	ID          int64
	Type        string
	AmountCents int64
	Category    string
	Description string
	Date        string
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, updateTransaction,
		arg.Type,
		arg.AmountCents,
		arg.Category,
		arg.Description,
		arg.Date,
		arg.ID,
	)
	return scanTransaction(row)
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ? RETURNING ` + transactionColumns

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, deleteTransaction, id)
	return scanTransaction(row)
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	return scanTransaction(row)
}

const maxCreatedAt = `SELECT COALESCE(MAX(created_at), 0) FROM transactions`

func (q *Queries) MaxCreatedAt(ctx context.Context) (int64, error) {
	var v int64
	err := q.db.QueryRowContext(ctx, maxCreatedAt).Scan(&v)
	return v, err
}

// ListTransactionsParams carries optional predicates; empty strings mean
// "no constraint". OrderBy must come from the orderBy* constants.
type ListTransactionsParams struct {
	Type      string
	Category  string
	StartDate string
	EndDate   string
	OrderBy   string
}

const (
	orderByDefault    = `date DESC, created_at DESC, id DESC`
	orderByDateAsc    = `date ASC`
	orderByDateDesc   = `date DESC`
	orderByAmountAsc  = `amount_cents ASC`
	orderByAmountDesc = `amount_cents DESC`
)

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]TransactionRow, error) {
	var (
		where []string
		args  []interface{}
	)
	if arg.Type != "" {
		where = append(where, "type = ?")
		args = append(args, arg.Type)
	}
	if arg.Category != "" {
		where = append(where, "category = ?")
		args = append(args, arg.Category)
	}
	if arg.StartDate != "" {
		where = append(where, "date >= ?")
		args = append(args, arg.StartDate)
	}
	if arg.EndDate != "" {
		where = append(where, "date <= ?")
		args = append(args, arg.EndDate)
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + transactionColumns + ` FROM transactions`)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	orderBy := arg.OrderBy
	if orderBy == "" {
		orderBy = orderByDefault
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(orderBy)

	rows, err := q.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TransactionRow
	for rows.Next() {
		i, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getMonthTotals = `SELECT
    COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents END), 0),
    COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents END), 0)
FROM transactions
WHERE date >= ? AND date <= ?`

func (q *Queries) GetMonthTotals(ctx context.Context, startDate, endDate string) (income int64, expense int64, err error) {
	err = q.db.QueryRowContext(ctx, getMonthTotals, startDate, endDate).Scan(&income, &expense)
	return income, expense, err
}

const getMonthlyTrends = `SELECT
    CAST(substr(date, 1, 4) AS INTEGER) AS year,
    CAST(substr(date, 6, 2) AS INTEGER) AS month,
    COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents END), 0) AS total_income,
    COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents END), 0) AS total_expense
FROM transactions
GROUP BY substr(date, 1, 7)
ORDER BY year ASC, month ASC`

type MonthlyTrendRow struct {
	Year         int64
	Month        int64
	TotalIncome  int64
	TotalExpense int64
}

func (q *Queries) GetMonthlyTrends(ctx context.Context) ([]MonthlyTrendRow, error) {
	rows, err := q.db.QueryContext(ctx, getMonthlyTrends)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MonthlyTrendRow
	for rows.Next() {
		var i MonthlyTrendRow
		if err := rows.Scan(&i.Year, &i.Month, &i.TotalIncome, &i.TotalExpense); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// SQLite's default BINARY collation keeps the grouping case-sensitive.
const getCategorySums = `SELECT category, SUM(amount_cents) AS total_amount
FROM transactions
WHERE type = ? AND date >= ? AND date <= ?
GROUP BY category
ORDER BY total_amount DESC, category ASC`

type CategorySumRow struct {
	Category    string
	TotalAmount int64
}

func (q *Queries) GetCategorySums(ctx context.Context, typ, startDate, endDate string) ([]CategorySumRow, error) {
	rows, err := q.db.QueryContext(ctx, getCategorySums, typ, startDate, endDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CategorySumRow
	for rows.Next() {
		var i CategorySumRow
		if err := rows.Scan(&i.Category, &i.TotalAmount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
