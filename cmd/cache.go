package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/books/cache"
)

type cacheCmd struct{}

func (*cacheCmd) Name() string     { return "cache" }
func (*cacheCmd) Synopsis() string { return "show the fingerprints stored in the cache" }
func (*cacheCmd) Usage() string {
	return `bk cache [<name>...]

  Prints the fingerprint stored for each cache name, "never" for a name that
  was never computed. Without names, prints every unit of the book: the
  source accounts, the derived accounts and the mappings.
`
}

func (c *cacheCmd) SetFlags(f *flag.FlagSet) {}

func (c *cacheCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, ctx, ok := setup(ctx)
	if !ok {
		return subcommands.ExitUsageError
	}
	book, store, err := OpenBook(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	names := f.Args()
	if len(names) == 0 {
		names = book.CacheNames()
	}
	if err := printFingerprints(ctx, os.Stdout, cache.New(store, nil), names); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// printFingerprints writes one "<fingerprint> <name>" line per name.
func printFingerprints(ctx context.Context, w io.Writer, c *cache.Cache, names []string) error {
	for _, name := range names {
		fp, err := c.Fingerprint(ctx, name)
		if err != nil {
			return err
		}
		if fp == cache.Never {
			fp = "never"
		}
		fmt.Fprintf(w, "%-32s %s\n", fp, name)
	}
	return nil
}
