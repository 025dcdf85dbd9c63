package books

import (
	"context"
	"fmt"

	"github.com/etnz/books/internal/logger"
)

// DesyncKind tells what disagrees between the two sides of a mapping.
type DesyncKind string

const (
	// DesyncDelta is a pair whose deltas are not exact opposites.
	DesyncDelta DesyncKind = "delta"
	// DesyncMissing is a matched transaction with no counterpart on the other side.
	DesyncMissing DesyncKind = "missing"
)

// Desync is one discrepancy found while reconciling a mapping.
type Desync struct {
	Mapping string     `json:"mapping"`
	Kind    DesyncKind `json:"kind"`
	Index   int        `json:"index"`
	// Account is the account holding Transaction. For DesyncMissing, the
	// counterpart is missing from the other account of the mapping.
	Account     string       `json:"account"`
	Transaction Transaction  `json:"transaction"`
	Other       *Transaction `json:"other,omitempty"` // the "to" side of a DesyncDelta pair
}

func (d Desync) String() string {
	switch d.Kind {
	case DesyncDelta:
		return fmt.Sprintf("%s: pair %d: %s %s != -(%s)", d.Mapping, d.Index, d.Account, d.Transaction.Delta, d.Other.Delta)
	default:
		return fmt.Sprintf("%s: %s transaction %s (%s %s) has no counterpart", d.Mapping, d.Account, d.Transaction.ID, d.Transaction.Date, d.Transaction.Delta)
	}
}

// Reconciliation is the outcome of an internal transaction mapping.
type Reconciliation struct {
	Mapping InternalTransactionMapping `json:"mapping"`
	Entries []LedgerEntry              `json:"entries"`
	Desyncs []Desync                   `json:"desyncs,omitempty"`
}

// Reconcile links the transfers leaving from with the transfers arriving in to.
//
// The matching transactions of each side are paired by position: the i-th
// transfer out corresponds to the i-th transfer in. Nothing is re-sorted and no
// content is compared, choosing match strings that select exactly the same
// transfers on both sides is the caller's contract. Pairs whose deltas are not
// opposite, and surplus transactions of the longer side, are reported as
// desyncs; a strict mapping fails on any of them.
func Reconcile(ctx context.Context, m InternalTransactionMapping, from, to *Account) (*Reconciliation, error) {
	log := logger.FromContext(ctx).With().Str("mapping", m.Name()).Logger()

	if err := m.Validate(); err != nil {
		return nil, err
	}
	if from == nil || to == nil {
		return nil, &ConfigurationError{Unit: m.Name(), Reason: "unknown source account"}
	}

	fromRe, err := matchPattern(m.FromMatchStrings)
	if err != nil {
		return nil, &ConfigurationError{Unit: m.Name(), Reason: err.Error()}
	}
	toRe, err := matchPattern(m.ToMatchStrings)
	if err != nil {
		return nil, &ConfigurationError{Unit: m.Name(), Reason: err.Error()}
	}
	outs, err := selectMatching(ctx, from, fromRe)
	if err != nil {
		return nil, err
	}
	ins, err := selectMatching(ctx, to, toRe)
	if err != nil {
		return nil, err
	}

	r := &Reconciliation{Mapping: m}
	if len(outs) == 0 || len(ins) == 0 {
		log.Info().Int("from", len(outs)).Int("to", len(ins)).Msg("nothing to map")
		return r, nil
	}

	n := min(len(outs), len(ins))
	for i := range n {
		out, in := outs[i], ins[i]
		if !out.Delta.Equal(in.Delta.Neg()) {
			other := in
			r.Desyncs = append(r.Desyncs, Desync{Mapping: m.Name(), Kind: DesyncDelta, Index: i, Account: from.Name, Transaction: out, Other: &other})
		}
		r.Entries = append(r.Entries, LedgerEntry{
			FromAccount:       from.Name,
			FromTransactionID: out.ID,
			ToAccount:         to.Name,
			ToTransactionID:   in.ID,
			Delta:             out.Delta.Abs(),
		})
	}
	for i := n; i < len(outs); i++ {
		r.Desyncs = append(r.Desyncs, Desync{Mapping: m.Name(), Kind: DesyncMissing, Index: i, Account: from.Name, Transaction: outs[i]})
	}
	for i := n; i < len(ins); i++ {
		r.Desyncs = append(r.Desyncs, Desync{Mapping: m.Name(), Kind: DesyncMissing, Index: i, Account: to.Name, Transaction: ins[i]})
	}

	for _, d := range r.Desyncs {
		log.Warn().Str("kind", string(d.Kind)).Int("index", d.Index).Msg(d.String())
	}
	if m.Strict && len(r.Desyncs) > 0 {
		return nil, &DesyncError{Mapping: m.Name(), Desyncs: r.Desyncs}
	}
	log.Debug().Int("entries", len(r.Entries)).Int("desyncs", len(r.Desyncs)).Msg("reconciled")
	return r, nil
}
