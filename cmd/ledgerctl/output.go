package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"ledger/internal/core"
)

var timeNow = time.Now

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printTransactions(w io.Writer, txs []core.Transaction) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tCATEGORY\tAMOUNT\tDESCRIPTION")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			tx.ID, tx.Date, tx.Type, tx.Category, tx.Amount.Decimal().StringFixed(2), tx.Description)
	}
	return tw.Flush()
}

func printSummary(w io.Writer, s core.MonthSummary) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "MONTH\t%04d-%02d\n", s.Year, s.Month)
	fmt.Fprintf(tw, "INCOME\t%s\n", s.TotalIncome.Decimal().StringFixed(2))
	fmt.Fprintf(tw, "EXPENSE\t%s\n", s.TotalExpense.Decimal().StringFixed(2))
	fmt.Fprintf(tw, "NET\t%s\n", s.NetProfit.Decimal().StringFixed(2))
	return tw.Flush()
}

func printBreakdown(w io.Writer, rows []core.CategoryAmount) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "CATEGORY\tAMOUNT")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r.Category, r.Amount.Decimal().StringFixed(2))
	}
	return tw.Flush()
}

func printTrends(w io.Writer, points []core.TrendPoint) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "MONTH\tINCOME\tEXPENSE\tNET")
	for _, p := range points {
		fmt.Fprintf(tw, "%04d-%02d\t%s\t%s\t%s\n", p.Year, p.Month,
			p.TotalIncome.Decimal().StringFixed(2),
			p.TotalExpense.Decimal().StringFixed(2),
			p.NetProfit.Decimal().StringFixed(2))
	}
	return tw.Flush()
}
