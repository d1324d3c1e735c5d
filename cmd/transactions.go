package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/etnz/moneymanager"
	"github.com/etnz/moneymanager/renderer"
	"github.com/google/subcommands"
)

type lsCmd struct {
	kind moneymanager.Kind
	head int
}

func (*lsCmd) Name() string     { return "ls" }
func (*lsCmd) Synopsis() string { return "list transactions, newest first" }
func (*lsCmd) Usage() string {
	return `mm ls [-kind INCOME|EXPENSE] [-head <n>]

  Fetches the transactions from the backend and lists them.
`
}

func (c *lsCmd) SetFlags(f *flag.FlagSet) {
	f.Var(&c.kind, "kind", "Only list INCOME or EXPENSE transactions.")
	f.IntVar(&c.head, "head", 0, "Show only the first N transactions.")
}

func (c *lsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(a *app) subcommands.ExitStatus {
		if err := a.store.FetchAll(ctx); err != nil {
			return failure(err)
		}
		txs := a.store.Records()
		if c.kind != "" {
			txs = slices.DeleteFunc(txs, func(tx moneymanager.Transaction) bool { return tx.Kind != c.kind })
		}
		if c.head > 0 && len(txs) > c.head {
			txs = txs[:c.head]
		}
		printMarkdown(renderer.Transactions(txs, a.cfg.Currency, a.clock.Now()))
		return subcommands.ExitSuccess
	})
}

// inputFlags are the fields of a transaction form.
type inputFlags struct {
	title  string
	amount string
	kind   moneymanager.Kind
}

func (in *inputFlags) set(f *flag.FlagSet) {
	f.StringVar(&in.title, "title", "", "Title of the transaction.")
	f.StringVar(&in.amount, "amount", "", "Positive amount, e.g. 150 or 12.50.")
	f.Var(&in.kind, "kind", "INCOME or EXPENSE.")
}

// over returns base with the fields that were given on the command line.
func (in *inputFlags) over(base moneymanager.Input) moneymanager.Input {
	if in.title != "" {
		base.Title = in.title
	}
	if in.amount != "" {
		base.Amount = in.amount
	}
	if in.kind != "" {
		base.Kind = in.kind
	}
	return base
}

type addCmd struct {
	inputFlags
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record an income or an expense" }
func (*addCmd) Usage() string {
	return `mm add -title <title> -amount <amount> -kind INCOME|EXPENSE

Usage Examples:
$ mm add -title Coffee -amount 150 -kind EXPENSE
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) { c.set(f) }

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	in := c.over(moneymanager.Input{})
	if err := in.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	return withApp(ctx, func(a *app) subcommands.ExitStatus {
		tx, err := a.store.Create(ctx, in)
		if err != nil {
			return failure(err)
		}
		fmt.Printf("Added %s %q (%s).\n", tx.Signed().Format(a.cfg.Currency), tx.Title, tx.ID)
		warnLast(a)
		return subcommands.ExitSuccess
	})
}

type editCmd struct {
	inputFlags
	id string
}

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "change a transaction" }
func (*editCmd) Usage() string {
	return `mm edit -id <id> [-title <title>] [-amount <amount>] [-kind INCOME|EXPENSE]

  Changes the given fields of a transaction, the others are kept.
`
}

func (c *editCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "ID of the transaction, as listed by 'mm ls'.")
	c.set(f)
}

func (c *editCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == "" {
		fmt.Fprintln(os.Stderr, "Error: -id is required.")
		return subcommands.ExitUsageError
	}
	return withApp(ctx, func(a *app) subcommands.ExitStatus {
		if err := a.store.FetchAll(ctx); err != nil {
			return failure(err)
		}
		if err := a.store.Edit(c.id); err != nil {
			return failure(fmt.Errorf("%w: %q", err, c.id))
		}
		a.store.SetDraft(c.over(a.store.Draft().Input))
		tx, err := a.store.Submit(ctx)
		if err != nil {
			return failure(err)
		}
		fmt.Printf("Updated %q: %s.\n", tx.Title, tx.Signed().Format(a.cfg.Currency))
		warnLast(a)
		return subcommands.ExitSuccess
	})
}

type rmCmd struct{}

func (*rmCmd) Name() string     { return "rm" }
func (*rmCmd) Synopsis() string { return "delete transactions" }
func (*rmCmd) Usage() string {
	return `mm rm <id>...

  Deletes the transactions with the given IDs. A transaction already deleted
  is reported but is not an error.
`
}
func (*rmCmd) SetFlags(f *flag.FlagSet) {}

func (c *rmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one transaction ID is required.")
		return subcommands.ExitUsageError
	}
	return withApp(ctx, func(a *app) subcommands.ExitStatus {
		for _, id := range f.Args() {
			if err := a.store.Delete(ctx, id); err != nil {
				return failure(err)
			}
			if last := a.store.LastError(); last != nil && last.Soft {
				fmt.Fprintf(os.Stderr, "Warning: %s: %v\n", id, last)
				continue
			}
			fmt.Printf("Deleted %s.\n", id)
		}
		return subcommands.ExitSuccess
	})
}

type purgeCmd struct {
	yes bool
}

func (*purgeCmd) Name() string     { return "purge" }
func (*purgeCmd) Synopsis() string { return "delete every transaction" }
func (*purgeCmd) Usage() string {
	return `mm purge -yes

  Deletes all the transactions of the account. This cannot be undone.
`
}

func (c *purgeCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "Confirm the deletion.")
}

func (c *purgeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.yes {
		fmt.Fprintln(os.Stderr, "Error: this deletes every transaction, confirm with -yes.")
		return subcommands.ExitUsageError
	}
	return withApp(ctx, func(a *app) subcommands.ExitStatus {
		if err := a.store.DeleteAll(ctx); err != nil {
			return failure(err)
		}
		fmt.Println("All transactions deleted.")
		return subcommands.ExitSuccess
	})
}

// warnLast reports a failure that did not prevent the operation.
func warnLast(a *app) {
	if last := a.store.LastError(); last != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", last)
	}
}
