package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/books"
	"github.com/etnz/books/internal/logger"
	"github.com/etnz/books/renderer"
)

type assembleCmd struct {
	full        bool
	skipEntries bool
}

func (*assembleCmd) Name() string     { return "assemble" }
func (*assembleCmd) Synopsis() string { return "assemble the ledger of the source accounts" }
func (*assembleCmd) Usage() string {
	return `bk assemble [-full [-skip-entries]]

  Reads the source accounts, builds the derived accounts and reconciles the
  internal transfers declared in the ledger configuration, then saves the
  ledger in the output folder.

  Units whose inputs did not change since the last run are read from the
  cache store. A unit that fails is reported and left out of the ledger.
`
}

func (c *assembleCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.full, "full", false, "Print the full report instead of the summary")
	f.BoolVar(&c.skipEntries, "skip-entries", false, "Leave the ledger entries out of the full report")
}

func (c *assembleCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, ctx, ok := setup(ctx)
	if !ok {
		return subcommands.ExitUsageError
	}
	log := logger.FromContext(ctx)

	book, store, err := OpenBook(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	a, err := book.Assemble(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error assembling the ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	stats := book.Stats()
	log.Info().Int64("hits", stats.Hits).Int64("misses", stats.Misses).Int64("failures", stats.Failures).Msg("cache")

	if err := books.SaveAssembly(cfg.OutputPath, a); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving the ledger: %v\n", err)
		return subcommands.ExitFailure
	}

	r := renderer.NewReport(a, cfg.Currency)
	if c.full {
		printMarkdown(renderer.RenderReport(r, renderer.RenderOptions{SkipEntries: c.skipEntries}))
	} else {
		printMarkdown(renderer.SummaryMarkdown(r))
	}

	if len(a.Failures) > 0 {
		fmt.Fprintf(os.Stderr, "⚠️ Ledger saved to %s with %d failed units.\n", cfg.OutputPath, len(a.Failures))
		return subcommands.ExitFailure
	}
	fmt.Fprintf(os.Stderr, "✅ Ledger saved to %s.\n", cfg.OutputPath)
	return subcommands.ExitSuccess
}
