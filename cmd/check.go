package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/books"
	"github.com/etnz/books/source"
)

type checkCmd struct{}

func (*checkCmd) Name() string     { return "check" }
func (*checkCmd) Synopsis() string { return "check the ledger configuration against the source accounts" }
func (*checkCmd) Usage() string {
	return `bk check

  Reports every error of the ledger configuration: invalid derived accounts
  and mappings, references to unknown source accounts, and derived accounts
  that would derive from themselves.
`
}

func (c *checkCmd) SetFlags(f *flag.FlagSet) {}

func (c *checkCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, ctx, ok := setup(ctx)
	if !ok {
		return subcommands.ExitUsageError
	}
	ledger, err := books.LoadConfig(cfg.LedgerFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	names, err := source.NewFolder(cfg.SourcesPath).Accounts(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing source accounts: %v\n", err)
		return subcommands.ExitFailure
	}

	if err := CheckLedger(ledger, names); err != nil {
		for _, e := range unjoin(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", e)
		}
		return subcommands.ExitFailure
	}
	fmt.Printf("✅ %s is valid: sources: %d, derived: %d, mappings: %d.\n",
		cfg.LedgerFile, len(names), len(ledger.Derived), len(ledger.Internal))
	return subcommands.ExitSuccess
}

// CheckLedger validates the configuration against the available source accounts.
func CheckLedger(ledger *books.Config, sources []string) error {
	known := make(map[string]bool, len(sources))
	for _, name := range sources {
		known[name] = true
	}
	errs := []error{ledger.Validate()}
	for _, spec := range ledger.Derived {
		if err := books.CheckSelfDerivation(spec, sources); err != nil {
			errs = append(errs, err)
		}
		if known[spec.Name] {
			errs = append(errs, &books.ConfigurationError{Unit: spec.Name, Reason: "name already used by a source account"})
		}
		for _, m := range spec.Matchings {
			if !m.IsWildcard() && !known[m.AccountName] {
				errs = append(errs, &books.ConfigurationError{Unit: spec.Name, Reason: fmt.Sprintf("unknown source account %q", m.AccountName)})
			}
		}
	}
	for _, m := range ledger.Internal {
		for _, name := range []string{m.FromAccount, m.ToAccount} {
			if name != "" && !known[name] {
				errs = append(errs, &books.ConfigurationError{Unit: m.Name(), Reason: fmt.Sprintf("unknown source account %q", name)})
			}
		}
	}
	return errors.Join(errs...)
}

// unjoin flattens joined errors.
func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var all []error
		for _, e := range j.Unwrap() {
			all = append(all, unjoin(e)...)
		}
		return all
	}
	return []error{err}
}
