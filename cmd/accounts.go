package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/books"
	"github.com/etnz/books/renderer"
)

type accountsCmd struct {
	transactions bool
}

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "list the accounts of the assembled ledger" }
func (*accountsCmd) Usage() string {
	return `bk accounts [-tx] [<account>]

  Lists the source and derived accounts of the last assembled ledger with
  their start and end values. With -tx, prints the transactions of the
  accounts as JSON lines instead.
`
}

func (c *accountsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.transactions, "tx", false, "Print the transactions of the accounts as JSON lines")
}

func (c *accountsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Error: at most one account name is expected.")
		return subcommands.ExitUsageError
	}
	cfg, _, ok := setup(ctx)
	if !ok {
		return subcommands.ExitUsageError
	}
	query := f.Arg(0)

	if c.transactions {
		accounts, err := books.FindAccounts(cfg.OutputPath, query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		for _, acc := range accounts {
			if err := books.EncodeTransactions(os.Stdout, acc.Transactions); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return subcommands.ExitFailure
			}
		}
		return subcommands.ExitSuccess
	}

	r, err := loadReport(cfg.OutputPath, cfg.Currency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if query != "" {
		r.Accounts = filterAccounts(r.Accounts, query)
		if len(r.Accounts) == 0 {
			fmt.Fprintf(os.Stderr, "Error: could not find account %q\n", query)
			return subcommands.ExitFailure
		}
	}
	printMarkdown(renderer.RenderAccounts(r))
	return subcommands.ExitSuccess
}

// loadReport reads the saved ledger of dir.
func loadReport(dir, currency string) (*renderer.Report, error) {
	a, err := books.LoadAssembly(dir)
	if err != nil {
		return nil, fmt.Errorf("could not read the assembled ledger, run bk assemble first: %w", err)
	}
	return renderer.NewReport(a, currency), nil
}

func filterAccounts(rows []renderer.AccountRow, name string) []renderer.AccountRow {
	var kept []renderer.AccountRow
	for _, row := range rows {
		if row.Name == name {
			kept = append(kept, row)
		}
	}
	return kept
}
