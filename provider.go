package books

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/shopspring/decimal"
)

// SourceBatch is the raw content of a source account, in bank order.
type SourceBatch struct {
	Name        string
	StartValue  decimal.Decimal
	Raw         []RawTransaction
	Fingerprint string
}

// Account identifies the batch records and returns the source account.
func (b *SourceBatch) Account() (*Account, error) {
	txs, err := Identify(b.Raw)
	if err != nil {
		var de *DataError
		if errors.As(err, &de) {
			de.Account = b.Name
		}
		return nil, fmt.Errorf("source account %q: %w", b.Name, err)
	}
	return NewAccount(b.Name, b.StartValue, txs), nil
}

// Provider lists and loads source accounts.
//
// Fingerprint must change whenever the content Load would return changes, and
// should be cheaper than Load.
type Provider interface {
	Accounts(ctx context.Context) ([]string, error)
	Fingerprint(ctx context.Context, name string) (string, error)
	Load(ctx context.Context, name string) (*SourceBatch, error)
}

// Batches is a Provider over in-memory batches.
type Batches []*SourceBatch

func (bs Batches) find(name string) (*SourceBatch, error) {
	for _, b := range bs {
		if b.Name == name {
			return b, nil
		}
	}
	return nil, fmt.Errorf("unknown source account %q", name)
}

// Accounts returns the sorted batch names.
func (bs Batches) Accounts(ctx context.Context) ([]string, error) {
	names := make([]string, len(bs))
	for i, b := range bs {
		names[i] = b.Name
	}
	sort.Strings(names)
	return names, nil
}

// Fingerprint hashes the batch content, unless the batch carries a fingerprint.
func (bs Batches) Fingerprint(ctx context.Context, name string) (string, error) {
	b, err := bs.find(name)
	if err != nil {
		return "", err
	}
	if b.Fingerprint != "" {
		return b.Fingerprint, nil
	}
	return batchFingerprint(b)
}

// Load returns a copy of the named batch.
func (bs Batches) Load(ctx context.Context, name string) (*SourceBatch, error) {
	b, err := bs.find(name)
	if err != nil {
		return nil, err
	}
	fp, err := bs.Fingerprint(ctx, name)
	if err != nil {
		return nil, err
	}
	return &SourceBatch{Name: b.Name, StartValue: b.StartValue, Raw: slices.Clone(b.Raw), Fingerprint: fp}, nil
}

func batchFingerprint(b *SourceBatch) (string, error) {
	type jraw struct {
		Date        string          `json:"date"`
		Delta       decimal.Decimal `json:"delta"`
		Description string          `json:"description"`
		Timestamp   float64         `json:"timestamp"`
	}
	raws := make([]jraw, len(b.Raw))
	for i, r := range b.Raw {
		raws[i] = jraw(r)
	}
	data, err := json.Marshal(raws)
	if err != nil {
		return "", fmt.Errorf("cannot fingerprint %q: %w", b.Name, err)
	}
	return fingerprint([]byte(b.Name), []byte(b.StartValue.String()), data), nil
}
