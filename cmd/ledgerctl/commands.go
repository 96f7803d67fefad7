package main

import (
	"fmt"
	"os"
	"path/filepath"

	"ledger/internal/client"
	"ledger/internal/core"
)

type FilterFlags struct {
	Type     string `help:"income, expense or all."`
	Category string `help:"Exact category, or all."`
	From     string `help:"First date (YYYY-MM-DD)."`
	To       string `help:"Last date (YYYY-MM-DD)."`
	SortBy   string `help:"date or amount."`
	Order    string `help:"asc or desc."`
}

func (f FilterFlags) query() (core.Query, error) {
	v := map[string][]string{}
	set := func(k, val string) {
		if val != "" {
			v[k] = []string{val}
		}
	}
	set("type", f.Type)
	set("category", f.Category)
	set("startDate", f.From)
	set("endDate", f.To)
	set("sortBy", f.SortBy)
	set("sortOrder", f.Order)
	return core.ParseQuery(v)
}

type listCmd struct {
	FilterFlags `embed:""`
}

// Run filters the locally cached ledger, which is what the server would return.
func (c *listCmd) Run(g *globals) error {
	if err := g.connect(); err != nil {
		return err
	}
	q, err := c.query()
	if err != nil {
		return err
	}
	ctx, cancel := g.context()
	defer cancel()

	txs, err := g.ledger.Filter(ctx, q)
	if err != nil {
		return err
	}
	return printTransactions(os.Stdout, txs)
}

type getCmd struct {
	ID int64 `arg help:"Transaction id."`
}

func (c *getCmd) Run(g *globals) error {
	if err := g.connect(); err != nil {
		return err
	}
	ctx, cancel := g.context()
	defer cancel()

	tx, err := g.api.Get(ctx, c.ID)
	if err != nil {
		return err
	}
	return printTransactions(os.Stdout, []core.Transaction{tx})
}

type EntryFlags struct {
	Type        string `help:"income or expense."`
	Amount      string `help:"Positive amount, e.g. 12.50."`
	Category    string `help:"Category label."`
	Description string `help:"Free-text note."`
	Date        string `help:"Date (YYYY-MM-DD), default today."`
}

// apply overwrites the fields that were given on the command line.
func (e EntryFlags) apply(in core.TransactionInput) core.TransactionInput {
	if e.Type != "" {
		in.Type = e.Type
	}
	if e.Amount != "" {
		in.Amount = e.Amount
	}
	if e.Category != "" {
		in.Category = e.Category
	}
	if e.Description != "" {
		in.Description = e.Description
	}
	if e.Date != "" {
		in.Date = e.Date
	}
	return in
}

type addCmd struct {
	EntryFlags `embed:""`
}

func (c *addCmd) Run(g *globals) error {
	if err := g.connect(); err != nil {
		return err
	}
	ctx, cancel := g.context()
	defer cancel()

	in := c.apply(core.TransactionInput{Date: core.Today(timeNow()).String()})
	form := client.NewForm(g.ledger)
	if err := form.SetInput(in); err != nil {
		return err
	}
	tx, err := form.Submit(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("created transaction %d\n", tx.ID)
	return printTransactions(os.Stdout, []core.Transaction{tx})
}

type editCmd struct {
	EntryFlags `embed:""`

	ID int64 `arg help:"Transaction id."`
}

func (c *editCmd) Run(g *globals) error {
	if err := g.connect(); err != nil {
		return err
	}
	ctx, cancel := g.context()
	defer cancel()

	current, err := g.api.Get(ctx, c.ID)
	if err != nil {
		return err
	}
	form := client.NewForm(g.ledger)
	if err := form.Edit(current); err != nil {
		return err
	}
	if err := form.SetInput(c.apply(form.Input())); err != nil {
		return err
	}
	tx, err := form.Submit(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("updated transaction %d\n", tx.ID)
	return printTransactions(os.Stdout, []core.Transaction{tx})
}

type deleteCmd struct {
	ID int64 `arg help:"Transaction id."`
}

func (c *deleteCmd) Run(g *globals) error {
	if err := g.connect(); err != nil {
		return err
	}
	ctx, cancel := g.context()
	defer cancel()

	tx, err := g.ledger.Delete(ctx, c.ID)
	if err != nil {
		return err
	}
	fmt.Printf("deleted transaction %d\n", tx.ID)
	return nil
}

type summaryCmd struct {
	Year  int `arg help:"Year."`
	Month int `arg help:"Month (1-12)."`
}

func (c *summaryCmd) Run(g *globals) error {
	if err := g.connect(); err != nil {
		return err
	}
	ctx, cancel := g.context()
	defer cancel()

	s, err := g.api.MonthlySummary(ctx, c.Year, c.Month)
	if err != nil {
		return err
	}
	return printSummary(os.Stdout, s)
}

type breakdownCmd struct {
	Year  int  `arg help:"Year."`
	Month int  `arg help:"Month (1-12)."`
	Local bool `help:"Compute from the local copy instead of asking the server."`
}

func (c *breakdownCmd) Run(g *globals) error {
	if err := g.connect(); err != nil {
		return err
	}
	ctx, cancel := g.context()
	defer cancel()

	var (
		rows []core.CategoryAmount
		err  error
	)
	if c.Local {
		rows, err = g.ledger.CategoryBreakdown(ctx, c.Year, c.Month)
	} else {
		rows, err = g.api.CategoryBreakdown(ctx, c.Year, c.Month)
	}
	if err != nil {
		return err
	}
	return printBreakdown(os.Stdout, rows)
}

type trendsCmd struct{}

func (c *trendsCmd) Run(g *globals) error {
	if err := g.connect(); err != nil {
		return err
	}
	ctx, cancel := g.context()
	defer cancel()

	points, err := g.api.MonthlyTrends(ctx)
	if err != nil {
		return err
	}
	return printTrends(os.Stdout, points)
}

type exportCmd struct {
	FilterFlags `embed:""`

	Year  int    `help:"Restrict to one year (with --month)."`
	Month int    `help:"Restrict to one month (with --year)."`
	Dir   string `help:"Directory to write the file into." default:"." type:"existingdir"`
}

func (c *exportCmd) Run(g *globals) error {
	if err := g.connect(); err != nil {
		return err
	}
	q, err := c.query()
	if err != nil {
		return err
	}
	ctx, cancel := g.context()
	defer cancel()

	doc, err := g.api.Export(ctx, q, c.Year, c.Month)
	if err != nil {
		return err
	}
	path := filepath.Join(c.Dir, filepath.Base(doc.Filename))
	if err := os.WriteFile(path, doc.Body, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", path, len(doc.Body))
	return nil
}
