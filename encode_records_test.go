package books

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etnz/books/cache"
)

func TestRecordCodec(t *testing.T) {
	src := checking(t)
	d, err := Derive(context.Background(), dining(), map[string]*Account{"Checking": src})
	require.NoError(t, err)
	r := &Reconciliation{
		Mapping: transfer(true),
		Desyncs: []Desync{{Mapping: "Checking -> Savings", Kind: DesyncMissing, Account: "Checking", Transaction: src.Transactions[0]}},
	}

	testCases := []struct {
		name string
		rec  cache.Record
	}{
		{KindAccount, src},
		{KindDerivation, d},
		{"dropped derivation", &Derivation{Name: "Travel"}},
		{KindReconciliation, r},
	}
	var codec RecordCodec
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := codec.Encode(tc.rec)
			require.NoError(t, err)
			got, err := codec.Decode(b)
			require.NoError(t, err)
			assert.Equal(t, tc.rec.Kind(), got.Kind())
			assertEqual(t, tc.rec, got)
		})
	}
}

func TestRecordCodec_Rejects(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{"not json", `nope`},
		{"unknown kind", `{"kind":"ledger","version":1,"data":{}}`},
		{"old version", `{"kind":"account","version":0,"data":{}}`},
		{"bad data", `{"kind":"account","version":1,"data":{"name":"A","start_value":0,"end_value":3,"transactions":[]}}`},
	}
	var codec RecordCodec
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := codec.Decode([]byte(tc.input))
			assert.Error(t, err)
		})
	}
}
