package books

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/etnz/books/cache"
	"github.com/etnz/books/internal/logger"
)

// Book assembles the ledger of a provider's source accounts, serving every
// unit of work from a cache.
//
// Each unit is cached under a name with a fingerprint of its inputs:
//
//	source/<account>                  the identified source account
//	derived/<name>                    a derivation
//	internal/<from>/<to>/<mapping>    a reconciliation
//
// so that a run only recomputes the units whose inputs changed. The global
// checks of an assembly always run.
type Book struct {
	provider Provider
	config   *Config
	cache    *cache.Cache
	opts     Options

	names        []string          // all the provider accounts, sorted
	fingerprints map[string]string // source account -> provider fingerprint
}

// Open scans the provider for its accounts and their fingerprints.
func Open(ctx context.Context, provider Provider, cfg *Config, c *cache.Cache, opts Options) (*Book, error) {
	names, err := provider.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list source accounts: %w", err)
	}
	names = slices.Clone(names)
	slices.Sort(names)
	if len(slices.Compact(names)) != len(names) {
		return nil, errors.New("provider lists the same account twice")
	}
	b := &Book{
		provider:     provider,
		config:       cfg,
		cache:        c,
		opts:         opts,
		names:        names,
		fingerprints: make(map[string]string, len(names)),
	}
	for _, name := range names {
		fp, err := provider.Fingerprint(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("could not fingerprint source account %q: %w", name, err)
		}
		b.fingerprints[name] = fp
	}
	return b, nil
}

// Names returns the source account names.
func (b *Book) Names() []string { return slices.Clone(b.names) }

// Stats returns the cache counters.
func (b *Book) Stats() cache.Stats { return b.cache.Stats() }

// Fingerprint identifies the inputs of the whole assembly: the configuration
// and every source account.
func (b *Book) Fingerprint() string {
	parts := [][]byte{canonical(b.config)}
	for _, name := range b.names {
		parts = append(parts, []byte(name), []byte(b.fingerprints[name]))
	}
	return fingerprint(parts...)
}

// CacheNames lists the cache name of every unit of the book: the source
// accounts, then the derived accounts and the mappings in configuration order.
func (b *Book) CacheNames() []string {
	names := make([]string, 0, len(b.names)+len(b.config.Derived)+len(b.config.Internal))
	for _, name := range b.names {
		names = append(names, SourceCacheName(name))
	}
	for _, spec := range b.config.Derived {
		names = append(names, DerivedCacheName(spec))
	}
	for _, m := range b.config.Internal {
		names = append(names, InternalCacheName(m))
	}
	return names
}

// SourceCacheName is the cache name of a source account.
func SourceCacheName(account string) string { return "source/" + account }

// DerivedCacheName is the cache name of a derivation.
func DerivedCacheName(spec DerivedAccountSpec) string { return "derived/" + spec.Name }

// InternalCacheName is the cache name of a reconciliation.
func InternalCacheName(m InternalTransactionMapping) string {
	return "internal/" + m.FromAccount + "/" + m.ToAccount + "/" + fingerprint(canonical(m))[:8]
}

// Sources returns the source accounts that could be loaded, and the errors of
// the others.
func (b *Book) Sources(ctx context.Context) ([]*Account, error) {
	accounts, failures := b.sources(ctx)
	errs := make([]error, len(failures))
	for i, f := range failures {
		errs[i] = f
	}
	return accounts, errors.Join(errs...)
}

func (b *Book) sources(ctx context.Context) ([]*Account, []UnitFailure) {
	accounts := make([]*Account, len(b.names))
	errs := make([]error, len(b.names))

	var g errgroup.Group
	g.SetLimit(b.opts.workers())
	for i, name := range b.names {
		g.Go(func() error {
			accounts[i], errs[i] = b.source(ctx, name)
			return nil
		})
	}
	g.Wait()

	log := logger.FromContext(ctx)
	var loaded []*Account
	var failures []UnitFailure
	for i, name := range b.names {
		if errs[i] != nil {
			log.Error().Err(errs[i]).Str("account", name).Msg("source account unavailable")
			failures = append(failures, UnitFailure{Unit: "source " + name, Err: errs[i]})
			continue
		}
		loaded = append(loaded, accounts[i])
	}
	return loaded, failures
}

func (b *Book) source(ctx context.Context, name string) (*Account, error) {
	var genErr error
	acc := cache.Typed(ctx, b.cache, SourceCacheName(name), b.fingerprints[name], func(ctx context.Context, _ string) (*Account, error) {
		batch, err := b.provider.Load(ctx, name)
		if err != nil {
			genErr = err
			return nil, err
		}
		if batch.Fingerprint != "" && batch.Fingerprint != b.fingerprints[name] {
			genErr = fmt.Errorf("source account %q changed while loading", name)
			return nil, genErr
		}
		acc, err := batch.Account()
		genErr = err
		return acc, err
	}, nil)
	return acc, unavailable(acc == nil, genErr)
}

// unavailable returns the error of a unit the cache could not serve.
func unavailable(missing bool, genErr error) error {
	if !missing {
		return nil
	}
	if genErr != nil {
		return genErr
	}
	return errors.New("unit unavailable, see the cache logs")
}

// Assemble assembles the ledger. Source accounts that cannot be loaded are
// reported as failures, like failing units.
func (b *Book) Assemble(ctx context.Context) (*Assembly, error) {
	sources, failures := b.sources(ctx)
	for _, f := range failures {
		if isFatal(f.Err) {
			return nil, f.Err
		}
	}
	units := &bookUnits{book: b, sources: indexAccounts(sources)}
	a, err := assemble(ctx, sources, b.config, units, b.opts)
	if err != nil {
		return nil, err
	}
	a.Fingerprint = b.Fingerprint()
	a.Failures = append(failures, a.Failures...)
	return a, nil
}

// bookUnits computes units through the Book cache.
type bookUnits struct {
	book    *Book
	sources map[string]*Account
}

// sourceParts returns the fingerprint parts of the named source accounts.
// An account that did not load is fingerprinted as never computed.
func (u *bookUnits) sourceParts(names ...string) [][]byte {
	var parts [][]byte
	for _, name := range names {
		fp := cache.Never
		if _, ok := u.sources[name]; ok {
			fp = u.book.fingerprints[name]
		}
		parts = append(parts, []byte(name), []byte(fp))
	}
	return parts
}

func (u *bookUnits) Derive(ctx context.Context, spec DerivedAccountSpec) (*Derivation, error) {
	// Invalid and self-derived definitions never reach the cache, it would
	// turn their errors into empty results.
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := CheckSelfDerivation(spec, u.book.names); err != nil {
		return nil, err
	}

	var names []string
	if spec.IsWildcard() {
		names = u.book.names
	} else {
		for _, m := range spec.Matchings {
			names = append(names, m.AccountName)
		}
	}
	fp := fingerprint(append([][]byte{canonical(spec)}, u.sourceParts(names...)...)...)

	var genErr error
	d := cache.Typed(ctx, u.book.cache, DerivedCacheName(spec), fp, func(ctx context.Context, _ string) (*Derivation, error) {
		d, err := Derive(ctx, spec, u.sources)
		genErr = err
		return d, err
	}, nil)
	return d, unavailable(d == nil, genErr)
}

func (u *bookUnits) Reconcile(ctx context.Context, m InternalTransactionMapping) (*Reconciliation, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	fp := fingerprint(append([][]byte{canonical(m)}, u.sourceParts(m.FromAccount, m.ToAccount)...)...)

	var genErr error
	r := cache.Typed(ctx, u.book.cache, InternalCacheName(m), fp, func(ctx context.Context, _ string) (*Reconciliation, error) {
		r, err := Reconcile(ctx, m, u.sources[m.FromAccount], u.sources[m.ToAccount])
		genErr = err
		return r, err
	}, nil)
	return r, unavailable(r == nil, genErr)
}
