package books

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/etnz/books/internal/logger"
)

// Derivation is the outcome of a derived account definition.
// Account is nil when nothing matched: the derived account is dropped.
type Derivation struct {
	Name    string        `json:"name"`
	Account *Account      `json:"account,omitempty"`
	Entries []LedgerEntry `json:"entries"`
}

// pair is one (source account, match strings) unit of a derivation.
type pair struct {
	account *Account
	strs    []string
}

// Derive builds the derived account defined by spec from the source accounts.
//
// Every source transaction whose description matches is mirrored, with the
// opposite sign, into the derived account: money leaving the source enters
// the virtual account. Mirrors are stable-sorted by timestamp, with ties kept
// in matching order (and source name order for a wildcard), then identified
// afresh. Each one yields a ledger entry from the source transaction to its
// mirror.
func Derive(ctx context.Context, spec DerivedAccountSpec, sources map[string]*Account) (*Derivation, error) {
	log := logger.FromContext(ctx).With().Str("derived", spec.Name).Logger()

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := CheckSelfDerivation(spec, accountNames(sources)); err != nil {
		return nil, err
	}
	pairs, err := derivationPairs(spec, sources)
	if err != nil {
		return nil, err
	}

	var mirrors []Transaction
	for _, p := range pairs {
		re, err := matchPattern(p.strs)
		if err != nil {
			return nil, &ConfigurationError{Unit: spec.Name, Reason: err.Error()}
		}
		selected, err := selectMatching(ctx, p.account, re)
		if err != nil {
			return nil, err
		}
		for _, tx := range selected {
			mirrors = append(mirrors, Transaction{
				Date:          tx.Date,
				Timestamp:     tx.Timestamp,
				Delta:         tx.Delta.Neg(),
				Description:   tx.Description,
				SourceAccount: p.account.Name,
				SourceID:      tx.ID,
			})
		}
	}

	if len(mirrors) == 0 {
		log.Info().Msg("no matching transaction, derived account dropped")
		return &Derivation{Name: spec.Name}, nil
	}

	sort.SliceStable(mirrors, func(i, j int) bool {
		return mirrors[i].Timestamp < mirrors[j].Timestamp
	})

	raw := make([]RawTransaction, len(mirrors))
	for i, tx := range mirrors {
		raw[i] = tx.Raw()
	}
	identified, err := Identify(raw)
	if err != nil {
		var de *DataError
		if errors.As(err, &de) {
			de.Account = spec.Name
		}
		return nil, err
	}

	entries := make([]LedgerEntry, len(mirrors))
	for i := range mirrors {
		mirrors[i].ID = identified[i].ID
		entries[i] = LedgerEntry{
			FromAccount:       mirrors[i].SourceAccount,
			FromTransactionID: mirrors[i].SourceID,
			ToAccount:         spec.Name,
			ToTransactionID:   mirrors[i].ID,
			Delta:             mirrors[i].Delta.Abs(),
		}
	}

	acc := NewAccount(spec.Name, spec.StartValue, mirrors)
	log.Debug().Int("transactions", acc.Len()).Str("end_value", acc.EndValue.String()).Msg("derived")
	return &Derivation{Name: spec.Name, Account: acc, Entries: entries}, nil
}

// derivationPairs resolves the source accounts a spec reads, in the order
// their transactions are collected.
func derivationPairs(spec DerivedAccountSpec, sources map[string]*Account) ([]pair, error) {
	if spec.IsWildcard() {
		names := accountNames(sources)
		pairs := make([]pair, len(names))
		for i, name := range names {
			pairs[i] = pair{account: sources[name], strs: spec.Matchings[0].MatchStrings}
		}
		return pairs, nil
	}

	pairs := make([]pair, 0, len(spec.Matchings))
	for _, m := range spec.Matchings {
		acc, ok := sources[m.AccountName]
		if !ok {
			return nil, &ConfigurationError{Unit: spec.Name, Reason: fmt.Sprintf("unknown source account %q", m.AccountName)}
		}
		pairs = append(pairs, pair{account: acc, strs: m.MatchStrings})
	}
	return pairs, nil
}

// accountNames returns the names of sources in lexicographic order.
func accountNames(sources map[string]*Account) []string {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// CheckSelfDerivation fails when a derived account would read from an account
// of its own name. available lists the source accounts a wildcard reads.
func CheckSelfDerivation(spec DerivedAccountSpec, available []string) error {
	var self bool
	if spec.IsWildcard() {
		self = slices.Contains(available, spec.Name)
	} else {
		self = slices.ContainsFunc(spec.Matchings, func(m Matching) bool { return m.AccountName == spec.Name })
	}
	if self {
		return &ConsistencyError{Reason: fmt.Sprintf("derived account %q derives from itself", spec.Name)}
	}
	return nil
}
