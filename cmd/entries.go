package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/books/renderer"
)

type entriesCmd struct {
	account string
}

func (*entriesCmd) Name() string     { return "entries" }
func (*entriesCmd) Synopsis() string { return "list the ledger entries" }
func (*entriesCmd) Usage() string {
	return `bk entries [-a <account>]

  Lists the ledger entries of the last assembled ledger: each one links a
  transaction of one account to a transaction of another.
`
}

func (c *entriesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Only list the entries from or to this account")
}

func (c *entriesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, _, ok := setup(ctx)
	if !ok {
		return subcommands.ExitUsageError
	}
	r, err := loadReport(cfg.OutputPath, cfg.Currency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.account != "" {
		r.Entries = filterEntries(r.Entries, c.account)
	}
	if len(r.Entries) == 0 {
		fmt.Fprintln(os.Stderr, "No ledger entries.")
		return subcommands.ExitSuccess
	}
	printMarkdown(renderer.RenderEntries(r))
	return subcommands.ExitSuccess
}

func filterEntries(rows []renderer.EntryRow, account string) []renderer.EntryRow {
	var kept []renderer.EntryRow
	for _, row := range rows {
		if row.From == account || row.To == account {
			kept = append(kept, row)
		}
	}
	return kept
}
