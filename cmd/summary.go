package cmd

import (
	"context"
	"flag"

	"github.com/etnz/moneymanager/renderer"
	"github.com/google/subcommands"
)

// summaryCmd holds the flags for the 'summary' subcommand.
type summaryCmd struct {
	currency string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display income, expenses and balance" }
func (*summaryCmd) Usage() string {
	return `mm summary [-c <currency>]

  Displays the totals of all the transactions.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "c", "", "Currency to display amounts in. Defaults to the configured one.")
}

func (c *summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(a *app) subcommands.ExitStatus {
		if err := a.store.FetchAll(ctx); err != nil {
			return failure(err)
		}
		currency := a.cfg.Currency
		if c.currency != "" {
			currency = c.currency
		}
		printMarkdown(renderer.Summary(a.store.Summary(), currency))
		return subcommands.ExitSuccess
	})
}
