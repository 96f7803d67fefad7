package core

import "sort"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Category string `json:"category"`
	Amount   Money  `json:"amount"`
}

// MonthSummary holds the income/expense totals of one calendar month.
type MonthSummary struct {
	Year         int   `json:"year"`
	Month        int   `json:"month"` // 1-12
	TotalIncome  Money `json:"totalIncome"`
	TotalExpense Money `json:"totalExpense"`
	NetProfit    Money `json:"netProfit"`
}

// TrendPoint is one row of the monthly trend series.
type TrendPoint struct {
	Year         int   `json:"year"`
	Month        int   `json:"month"`
	TotalIncome  Money `json:"totalIncome"`
	TotalExpense Money `json:"totalExpense"`
	NetProfit    Money `json:"netProfit"`
}

// NewMonthSummary fills in the net profit.
func NewMonthSummary(year, month int, income, expense Money) MonthSummary {
	return MonthSummary{
		Year:         year,
		Month:        month,
		TotalIncome:  income,
		TotalExpense: expense,
		NetProfit:    income.Sub(expense),
	}
}

// SummarizeMonth totals txs falling inside the given month.
func SummarizeMonth(txs []Transaction, year, month int) MonthSummary {
	first, last := MonthRange(year, month)
	var income, expense Money
	for _, tx := range txs {
		if tx.Date.Before(first.Time) || tx.Date.After(last.Time) {
			continue
		}
		switch tx.Type {
		case Income:
			income = income.Add(tx.Amount)
		case Expense:
			expense = expense.Add(tx.Amount)
		}
	}
	return NewMonthSummary(year, month, income, expense)
}

// Trends groups txs by calendar month, oldest first. Months without
// entries are absent from the result.
func Trends(txs []Transaction) []TrendPoint {
	type key struct{ year, month int }
	byMonth := make(map[key]*TrendPoint)
	for _, tx := range txs {
		k := key{tx.Date.Year(), tx.Date.Month()}
		p, ok := byMonth[k]
		if !ok {
			p = &TrendPoint{Year: k.year, Month: k.month}
			byMonth[k] = p
		}
		switch tx.Type {
		case Income:
			p.TotalIncome = p.TotalIncome.Add(tx.Amount)
		case Expense:
			p.TotalExpense = p.TotalExpense.Add(tx.Amount)
		}
	}

	out := make([]TrendPoint, 0, len(byMonth))
	for _, p := range byMonth {
		p.NetProfit = p.TotalIncome.Sub(p.TotalExpense)
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// BreakdownByCategory sums entries of type t per category within the month.
// Categories are compared literally, case included.
func BreakdownByCategory(txs []Transaction, year, month int, t Type) []CategoryAmount {
	first, last := MonthRange(year, month)
	sums := make(map[string]Money)
	for _, tx := range txs {
		if tx.Type != t || tx.Date.Before(first.Time) || tx.Date.After(last.Time) {
			continue
		}
		sums[tx.Category] = sums[tx.Category].Add(tx.Amount)
	}

	out := make([]CategoryAmount, 0, len(sums))
	for name, amount := range sums {
		out = append(out, CategoryAmount{Category: name, Amount: amount})
	}
	SortCategoryAmounts(out)
	return out
}

// SortCategoryAmounts orders by amount descending, then by name.
func SortCategoryAmounts(rows []CategoryAmount) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Amount.Cents != rows[j].Amount.Cents {
			return rows[i].Amount.Cents > rows[j].Amount.Cents
		}
		return rows[i].Category < rows[j].Category
	})
}
