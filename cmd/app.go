// Package cmd implements the bk command line: it assembles the ledger of the
// source accounts and reports on the saved result.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"github.com/etnz/books"
	"github.com/etnz/books/blob"
	"github.com/etnz/books/cache"
	"github.com/etnz/books/internal/config"
	"github.com/etnz/books/internal/logger"
	"github.com/etnz/books/source"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&assembleCmd{}, "ledger")
	c.Register(&checkCmd{}, "ledger")

	c.Register(&accountsCmd{}, "reports")
	c.Register(&entriesCmd{}, "reports")
	c.Register(&unaccountedCmd{}, "reports")

	c.Register(&cacheCmd{}, "cache")

	c.Register(&topicCmd{}, "help")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.
// Flags left empty keep the value of the environment, see internal/config.

var ledgerFile = flag.String("config", "", "Path to the ledger configuration file (default $BOOKS_CONFIG or books.yaml)")
var sourcesPath = flag.String("sources", "", "Path to the source accounts folder (default $BOOKS_SOURCES or sources)")
var outputPath = flag.String("output", "", "Path to the assembled ledger folder (default $BOOKS_OUTPUT or out)")
var storeKind = flag.String("store", "", "Cache store: memory, dir, bolt, redis, postgres or gcs (default $BOOKS_STORE or bolt)")
var currency = flag.String("currency", "", "Currency code used to display amounts (default $BOOKS_CURRENCY or EUR)")
var verbose = flag.Bool("v", false, "Log debug messages")

// Settings reads the runtime configuration from the environment, then
// applies the global flags.
func Settings() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	override(&cfg.LedgerFile, *ledgerFile)
	override(&cfg.SourcesPath, *sourcesPath)
	override(&cfg.OutputPath, *outputPath)
	override(&cfg.Store, *storeKind)
	override(&cfg.Currency, *currency)
	if *verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

func override(dst *string, flagValue string) {
	if flagValue != "" {
		*dst = flagValue
	}
}

// setup returns the settings and a context carrying the logger, reporting errors on stderr.
func setup(ctx context.Context) (*config.Config, context.Context, bool) {
	cfg, err := Settings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil, ctx, false
	}
	return cfg, logger.WithContext(ctx, logger.New(cfg.LogLevel)), true
}

// OpenBook opens the book of the source folder, cached in the configured
// store. The store must be closed by the caller.
func OpenBook(ctx context.Context, cfg *config.Config) (*books.Book, blob.Store, error) {
	ledger, err := books.LoadConfig(cfg.LedgerFile)
	if err != nil {
		return nil, nil, err
	}
	store, err := blob.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open the %s cache store: %w", cfg.Store, err)
	}
	opts := books.Options{Workers: cfg.Workers, ScanTimeout: cfg.ScanTimeout}
	b, err := books.Open(ctx, source.NewFolder(cfg.SourcesPath), ledger, cache.New(store, books.RecordCodec{}), opts)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return b, store, nil
}

// printMarkdown renders markdown for the terminal, or prints it raw when
// stdout is not one.
func printMarkdown(md string) {
	if fi, err := os.Stdout.Stat(); err != nil || fi.Mode()&os.ModeCharDevice == 0 {
		fmt.Print(md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
