package services

import (
	"context"
	"fmt"

	"ledger/internal/core"
)

// AggregationService computes totals from the store on every call.
type AggregationService struct {
	store Store
}

func NewAggregationService(store Store) *AggregationService {
	return &AggregationService{store: store}
}

// MonthlySummary totals income and expense for one calendar month.
func (s *AggregationService) MonthlySummary(ctx context.Context, year, month int) (core.MonthSummary, error) {
	if err := core.ValidateYearMonth(year, month); err != nil {
		return core.MonthSummary{}, err
	}
	sum, err := s.store.MonthTotals(ctx, year, month)
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("monthly summary %04d-%02d: %w", year, month, err)
	}
	return sum, nil
}

// MonthlyTrends returns one row per month that has entries, oldest first.
func (s *AggregationService) MonthlyTrends(ctx context.Context) ([]core.TrendPoint, error) {
	rows, err := s.store.MonthlyTrends(ctx)
	if err != nil {
		return nil, fmt.Errorf("monthly trends: %w", err)
	}
	if rows == nil {
		rows = []core.TrendPoint{}
	}
	return rows, nil
}

// CategoryBreakdown sums expenses per category for the month.
func (s *AggregationService) CategoryBreakdown(ctx context.Context, year, month int) ([]core.CategoryAmount, error) {
	if err := core.ValidateYearMonth(year, month); err != nil {
		return nil, err
	}
	rows, err := s.store.CategoryTotals(ctx, year, month, core.Expense)
	if err != nil {
		return nil, fmt.Errorf("category breakdown %04d-%02d: %w", year, month, err)
	}
	if rows == nil {
		rows = []core.CategoryAmount{}
	}
	return rows, nil
}
