package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/etnz/moneymanager/export"
	"github.com/google/subcommands"
)

type exportCmd struct {
	format string
	output string
	db     string
	table  string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export transactions to csv, xlsx or postgres" }
func (*exportCmd) Usage() string {
	return `mm export [-format csv|xlsx] [-o <file>]
mm export -format postgres -db <url> [-table <name>]

  Exports the transactions with their title, amount, type, date and time.

Usage Examples:
$ mm export -format xlsx -o transactions.xlsx
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.format, "format", "csv", "Export format: csv, xlsx or postgres.")
	f.StringVar(&c.output, "o", "", "Output file. Defaults to stdout.")
	f.StringVar(&c.db, "db", os.Getenv("DATABASE_URL"), "PostgreSQL URL for the postgres format.")
	f.StringVar(&c.table, "table", "transactions", "Table for the postgres format.")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var write func(io.Writer) error
	switch c.format {
	case "csv", "xlsx":
	case "postgres":
		if c.db == "" {
			fmt.Fprintln(os.Stderr, "Error: -db is required for the postgres format.")
			return subcommands.ExitUsageError
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown format %q.\n", c.format)
		return subcommands.ExitUsageError
	}

	return withApp(ctx, func(a *app) subcommands.ExitStatus {
		if err := a.store.FetchAll(ctx); err != nil {
			return failure(err)
		}
		txs, now := a.store.Records(), a.clock.Now()

		switch c.format {
		case "postgres":
			n, err := export.Postgres(ctx, c.db, c.table, txs, now)
			if err != nil {
				return failure(err)
			}
			fmt.Fprintf(os.Stderr, "Exported %d transaction(s) to table %s.\n", n, c.table)
			return subcommands.ExitSuccess
		case "xlsx":
			write = func(w io.Writer) error { return export.XLSX(w, txs, now) }
		default:
			write = func(w io.Writer) error { return export.CSV(w, txs, now) }
		}

		if c.output == "" {
			if err := write(os.Stdout); err != nil {
				return failure(err)
			}
			return subcommands.ExitSuccess
		}
		out, err := os.Create(c.output)
		if err != nil {
			return failure(err)
		}
		if err := write(out); err != nil {
			out.Close()
			return failure(err)
		}
		if err := out.Close(); err != nil {
			return failure(err)
		}
		fmt.Fprintf(os.Stderr, "Exported %d transaction(s) to %s.\n", len(txs), c.output)
		return subcommands.ExitSuccess
	})
}
