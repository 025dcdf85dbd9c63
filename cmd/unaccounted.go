package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/books/renderer"
)

type unaccountedCmd struct{}

func (*unaccountedCmd) Name() string { return "unaccounted" }
func (*unaccountedCmd) Synopsis() string {
	return "list the source transactions no ledger entry accounts for"
}
func (*unaccountedCmd) Usage() string {
	return `bk unaccounted

  Lists the source transactions of the last assembled ledger that are
  neither mirrored in a derived account nor reconciled as an internal
  transfer, then the discrepancies found while reconciling.
`
}

func (c *unaccountedCmd) SetFlags(f *flag.FlagSet) {}

func (c *unaccountedCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, _, ok := setup(ctx)
	if !ok {
		return subcommands.ExitUsageError
	}
	r, err := loadReport(cfg.OutputPath, cfg.Currency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.RenderUnaccounted(r))
	return subcommands.ExitSuccess
}
