package books

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/etnz/books/internal/logger"
)

// Units computes the independent units of an assembly. Assemble computes them
// directly; a Book serves them from its cache.
type Units interface {
	Derive(ctx context.Context, spec DerivedAccountSpec) (*Derivation, error)
	Reconcile(ctx context.Context, m InternalTransactionMapping) (*Reconciliation, error)
}

// Options tunes an assembly run.
type Options struct {
	// Workers is the number of units computed in parallel. Defaults to GOMAXPROCS.
	Workers int
	// ScanTimeout bounds the time a single unit may spend, 0 means no limit.
	ScanTimeout time.Duration
	// Registry holds transaction IDs claimed outside the ledger. Each run
	// claims the IDs of its accounts into a copy of it, so that the same
	// options serve any number of runs.
	Registry *IDRegistry
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return o.Workers
}

// UnitFailure records a unit replaced by an empty result.
type UnitFailure struct {
	Unit string
	Err  error
}

func (f UnitFailure) Error() string { return fmt.Sprintf("%s: %v", f.Unit, f.Err) }

// Assembly is an assembled ledger.
type Assembly struct {
	RunID       string
	Fingerprint string // set by Book.Assemble
	Sources     []*Account
	Derived     []*Account
	Entries     []LedgerEntry
	Unaccounted []UnaccountedTransaction
	Desyncs     []Desync
	Failures    []UnitFailure

	accounted map[string]struct{}
}

// Accounts returns the source accounts followed by the derived ones.
func (a *Assembly) Accounts() []*Account {
	return slices.Concat(a.Sources, a.Derived)
}

// Account returns the source or derived account with this name.
func (a *Assembly) Account(name string) (*Account, bool) {
	for _, acc := range a.Accounts() {
		if acc.Name == name {
			return acc, true
		}
	}
	return nil, false
}

// Assemble derives every derived account of cfg, reconciles every internal
// mapping, and merges their ledger entries.
//
// Units are computed in parallel. A unit failing on its own (invalid
// definition, bad data, strict desync, timeout) is logged, recorded in
// Failures and contributes nothing. A ConsistencyError (a derived account
// reading from itself, a transaction accounted for twice, an ID collision)
// aborts the assembly.
func Assemble(ctx context.Context, sources []*Account, cfg *Config, opts Options) (*Assembly, error) {
	return assemble(ctx, sources, cfg, directUnits{sources: indexAccounts(sources)}, opts)
}

type directUnits struct {
	sources map[string]*Account
}

func (u directUnits) Derive(ctx context.Context, spec DerivedAccountSpec) (*Derivation, error) {
	return Derive(ctx, spec, u.sources)
}

func (u directUnits) Reconcile(ctx context.Context, m InternalTransactionMapping) (*Reconciliation, error) {
	return Reconcile(ctx, m, u.sources[m.FromAccount], u.sources[m.ToAccount])
}

func indexAccounts(accounts []*Account) map[string]*Account {
	index := make(map[string]*Account, len(accounts))
	for _, acc := range accounts {
		index[acc.Name] = acc
	}
	return index
}

func assemble(ctx context.Context, sources []*Account, cfg *Config, units Units, opts Options) (*Assembly, error) {
	a := &Assembly{RunID: uuid.NewString(), Sources: sources, accounted: make(map[string]struct{})}
	ctx = logger.With(ctx, "run", a.RunID)
	log := logger.FromContext(ctx)

	reg := opts.Registry.Copy()
	for _, acc := range sources {
		if err := reg.ClaimAccount(acc); err != nil {
			return nil, err
		}
	}

	derivations := make([]*Derivation, len(cfg.Derived))
	derivationErrs := make([]error, len(cfg.Derived))
	reconciliations := make([]*Reconciliation, len(cfg.Internal))
	reconciliationErrs := make([]error, len(cfg.Internal))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i, spec := range cfg.Derived {
		g.Go(func() error {
			d, err := runUnit(gctx, opts.ScanTimeout, func(ctx context.Context) (*Derivation, error) {
				return units.Derive(ctx, spec)
			})
			if isFatal(err) {
				return err
			}
			derivations[i], derivationErrs[i] = d, err
			return nil
		})
	}
	for i, m := range cfg.Internal {
		if m.FromAccount == m.ToAccount {
			continue
		}
		g.Go(func() error {
			r, err := runUnit(gctx, opts.ScanTimeout, func(ctx context.Context) (*Reconciliation, error) {
				return units.Reconcile(ctx, m)
			})
			if isFatal(err) {
				return err
			}
			reconciliations[i], reconciliationErrs[i] = r, err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Merge in configuration order, so that the ledger does not depend on scheduling.
	names := make(map[string]bool)
	for _, acc := range sources {
		names[acc.Name] = true
	}
	for i, spec := range cfg.Derived {
		unit := "derived " + spec.Name
		if err := derivationErrs[i]; err != nil {
			a.fail(ctx, unit, err)
			continue
		}
		d := derivations[i]
		if d == nil || d.Account == nil {
			continue
		}
		if names[d.Account.Name] {
			a.fail(ctx, unit, &ConfigurationError{Unit: spec.Name, Reason: "an account with this name already exists"})
			continue
		}
		if err := a.appendEntries(d.Entries); err != nil {
			return nil, fmt.Errorf("derived account %q: %w", spec.Name, err)
		}
		if err := reg.ClaimAccount(d.Account); err != nil {
			return nil, err
		}
		names[d.Account.Name] = true
		a.Derived = append(a.Derived, d.Account)
	}
	for i, m := range cfg.Internal {
		unit := "mapping " + m.Name()
		if m.FromAccount == m.ToAccount {
			a.fail(ctx, unit, &ConfigurationError{Unit: m.Name(), Reason: "an account cannot be mapped to itself"})
			continue
		}
		if err := reconciliationErrs[i]; err != nil {
			a.fail(ctx, unit, err)
			continue
		}
		r := reconciliations[i]
		if r == nil {
			continue
		}
		if err := a.appendEntries(r.Entries); err != nil {
			return nil, fmt.Errorf("mapping %q: %w", m.Name(), err)
		}
		a.Desyncs = append(a.Desyncs, r.Desyncs...)
	}

	a.Unaccounted = unaccounted(sources, a.accounted)
	log.Info().
		Int("derived", len(a.Derived)).
		Int("entries", len(a.Entries)).
		Int("unaccounted", len(a.Unaccounted)).
		Int("desyncs", len(a.Desyncs)).
		Int("failures", len(a.Failures)).
		Msg("ledger assembled")
	return a, nil
}

// runUnit runs f under the unit deadline and turns a panic into an error.
func runUnit[T any](ctx context.Context, timeout time.Duration, f func(context.Context) (T, error)) (res T, err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unit panicked: %v", r)
		}
	}()
	return f(ctx)
}

func isFatal(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}

func (a *Assembly) fail(ctx context.Context, unit string, err error) {
	log := logger.FromContext(ctx)
	log.Error().Err(err).Str("unit", unit).Msg("unit failed, using an empty result")
	a.Failures = append(a.Failures, UnitFailure{Unit: unit, Err: err})
}

// appendEntries appends a batch of entries, unless one of their transaction
// IDs is already accounted for, or used twice in the batch.
func (a *Assembly) appendEntries(batch []LedgerEntry) error {
	incoming := make(map[string]struct{}, 2*len(batch))
	var dups []string
	for _, e := range batch {
		for _, id := range [2]string{e.FromTransactionID, e.ToTransactionID} {
			_, recorded := a.accounted[id]
			_, repeated := incoming[id]
			if recorded || repeated {
				dups = append(dups, id)
			}
			incoming[id] = struct{}{}
		}
	}
	if len(dups) > 0 {
		slices.Sort(dups)
		return &ConsistencyError{Reason: "double matched", IDs: slices.Compact(dups)}
	}
	for id := range incoming {
		a.accounted[id] = struct{}{}
	}
	a.Entries = append(a.Entries, batch...)
	return nil
}

// unaccounted returns the source transactions no entry refers to.
func unaccounted(sources []*Account, accounted map[string]struct{}) []UnaccountedTransaction {
	var list []UnaccountedTransaction
	for _, acc := range sources {
		for _, tx := range acc.Transactions {
			if _, ok := accounted[tx.ID]; !ok {
				list = append(list, UnaccountedTransaction{Account: acc.Name, Transaction: tx})
			}
		}
	}
	return list
}
