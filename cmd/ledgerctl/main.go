// Command ledgerctl is a terminal client for the ledger API.
package main

import (
	"context"
	"time"

	"github.com/alecthomas/kong"

	"ledger/internal/client"
)

// globals holds options shared by every command.
type globals struct {
	Server  string        `help:"Ledger API base URL." default:"http://localhost:8081" env:"LEDGER_URL"`
	Timeout time.Duration `help:"Request timeout." default:"15s"`

	api    *client.Client
	ledger *client.Ledger
}

var cli struct {
	Globals globals `embed:""`

	List      listCmd      `cmd help:"List transactions."`
	Get       getCmd       `cmd help:"Show one transaction."`
	Add       addCmd       `cmd help:"Record a transaction."`
	Edit      editCmd      `cmd help:"Change a transaction."`
	Delete    deleteCmd    `cmd help:"Delete a transaction."`
	Summary   summaryCmd   `cmd help:"Income, expense and net for a month."`
	Breakdown breakdownCmd `cmd help:"Expenses per category for a month."`
	Trends    trendsCmd    `cmd help:"Monthly totals over time."`
	Export    exportCmd    `cmd help:"Download transactions as CSV."`
}

func (g *globals) connect() error {
	if g.api != nil {
		return nil
	}
	api, err := client.New(g.Server)
	if err != nil {
		return err
	}
	g.api = api
	g.ledger = client.NewLedger(api)
	return nil
}

func (g *globals) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), g.Timeout)
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("ledgerctl"),
		kong.Description("Record and inspect ledger transactions."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
