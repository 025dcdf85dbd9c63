package books

import (
	"encoding/json"
	"fmt"

	"github.com/etnz/books/cache"
)

// Kinds of the records a Book caches.
const (
	KindAccount        = "account"
	KindDerivation     = "derivation"
	KindReconciliation = "reconciliation"
)

// recordVersion is bumped whenever the JSON form of a cached record changes,
// so that older payloads are regenerated instead of misread.
const recordVersion = 1

func (*Account) Kind() string        { return KindAccount }
func (*Derivation) Kind() string     { return KindDerivation }
func (*Reconciliation) Kind() string { return KindReconciliation }

// RecordCodec encodes the records of a Book for a cache.Cache.
type RecordCodec struct{}

var _ cache.Codec = RecordCodec{}

type recordEnvelope struct {
	Kind    string          `json:"kind"`
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// Encode wraps the record JSON in an envelope naming its kind.
func (RecordCodec) Encode(rec cache.Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s record: %w", rec.Kind(), err)
	}
	return json.Marshal(recordEnvelope{Kind: rec.Kind(), Version: recordVersion, Data: data})
}

// Decode reads a record written by Encode.
func (RecordCodec) Decode(b []byte) (cache.Record, error) {
	var env recordEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("could not identify record: %w", err)
	}
	if env.Version != recordVersion {
		return nil, fmt.Errorf("unsupported %s record version %d", env.Kind, env.Version)
	}

	var rec cache.Record
	switch env.Kind {
	case KindAccount:
		rec = new(Account)
	case KindDerivation:
		rec = new(Derivation)
	case KindReconciliation:
		rec = new(Reconciliation)
	default:
		return nil, fmt.Errorf("unknown record kind: %q", env.Kind)
	}
	if err := json.Unmarshal(env.Data, rec); err != nil {
		return nil, fmt.Errorf("could not decode %s record: %w", env.Kind, err)
	}
	return rec, nil
}
