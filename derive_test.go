package books

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive_Dining(t *testing.T) {
	src := checking(t)
	spec := DerivedAccountSpec{
		Name:      "Dining",
		Matchings: []Matching{{MatchStrings: []string{"COFFEE"}}},
	}

	d, err := Derive(context.Background(), spec, map[string]*Account{"Checking": src})
	require.NoError(t, err)
	require.NotNil(t, d.Account)

	dining := d.Account
	require.Equal(t, 1, dining.Len())
	mirror := dining.Transactions[0]
	assert.True(t, mirror.Delta.Equal(D("50.00")))
	assert.Equal(t, "Checking", mirror.SourceAccount)
	assert.Equal(t, src.Transactions[0].ID, mirror.SourceID)
	assert.Equal(t, src.Transactions[0].Date, mirror.Date)
	assert.NotEqual(t, src.Transactions[0].ID, mirror.ID)
	assert.Regexp(t, hexID, mirror.ID)
	assert.True(t, dining.EndValue.Equal(D("50")))

	require.Len(t, d.Entries, 1)
	want := LedgerEntry{
		FromAccount:       "Checking",
		FromTransactionID: src.Transactions[0].ID,
		ToAccount:         "Dining",
		ToTransactionID:   mirror.ID,
	}
	got := d.Entries[0]
	assert.True(t, got.Delta.Equal(D("50.00")))
	got.Delta = want.Delta
	assert.Equal(t, want, got)
}

func TestDerive_Deterministic(t *testing.T) {
	sources := map[string]*Account{"Checking": checking(t)}
	spec := DerivedAccountSpec{Name: "Dining", Matchings: []Matching{{MatchStrings: []string{"COFFEE"}}}}
	a, err := Derive(context.Background(), spec, sources)
	require.NoError(t, err)
	b, err := Derive(context.Background(), spec, sources)
	require.NoError(t, err)
	assert.Equal(t, a.Account.IDs(), b.Account.IDs())
}

func TestDerive_WildcardTieBreak(t *testing.T) {
	// Same timestamp in both accounts: ties keep the account name order.
	zeta := account(t, "Zeta", "0", raw("2024-03-01", "-10", "FUEL STATION"))
	alpha := account(t, "Alpha", "0", raw("2024-03-01", "-20", "FUEL STATION"))
	earlier := account(t, "Mid", "0", raw("2024-02-01", "-5", "FUEL STATION"))
	sources := map[string]*Account{"Zeta": zeta, "Alpha": alpha, "Mid": earlier}

	spec := DerivedAccountSpec{Name: "Car", Matchings: []Matching{{MatchStrings: []string{"FUEL"}}}}
	d, err := Derive(context.Background(), spec, sources)
	require.NoError(t, err)

	var order []string
	for _, tx := range d.Account.Transactions {
		order = append(order, tx.SourceAccount)
	}
	assert.Equal(t, []string{"Mid", "Alpha", "Zeta"}, order)
	assert.True(t, d.Account.EndValue.Equal(D("35")))
}

func TestDerive_ExplicitMatchingOrder(t *testing.T) {
	a := account(t, "A", "0", raw("2024-03-01", "-1", "GYM"))
	b := account(t, "B", "0", raw("2024-03-01", "-2", "POOL"))
	spec := DerivedAccountSpec{Name: "Sport", Matchings: []Matching{
		{AccountName: "B", MatchStrings: []string{"POOL"}},
		{AccountName: "A", MatchStrings: []string{"GYM"}},
	}}
	d, err := Derive(context.Background(), spec, map[string]*Account{"A": a, "B": b})
	require.NoError(t, err)
	require.Equal(t, 2, d.Account.Len())
	assert.Equal(t, "B", d.Account.Transactions[0].SourceAccount)
	assert.Equal(t, "A", d.Account.Transactions[1].SourceAccount)
}

func TestDerive_MixedMatchingIsConfigurationError(t *testing.T) {
	spec := DerivedAccountSpec{Name: "Bad", Matchings: []Matching{
		{MatchStrings: []string{"X"}},
		{AccountName: "Checking", MatchStrings: []string{"Y"}},
	}}
	// A nil account would panic if any matching was evaluated.
	_, err := Derive(context.Background(), spec, map[string]*Account{"Checking": nil})
	var ce *ConfigurationError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, "Bad", ce.Unit)
}

func TestDerive_ConfigurationErrors(t *testing.T) {
	sources := map[string]*Account{"Checking": checking(t)}
	testCases := []struct {
		name string
		spec DerivedAccountSpec
	}{
		{"no name", DerivedAccountSpec{Matchings: []Matching{{MatchStrings: []string{"X"}}}}},
		{"no matchings", DerivedAccountSpec{Name: "D"}},
		{"no match strings", DerivedAccountSpec{Name: "D", Matchings: []Matching{{AccountName: "Checking"}}}},
		{"empty match string", DerivedAccountSpec{Name: "D", Matchings: []Matching{{MatchStrings: []string{""}}}}},
		{"unknown account", DerivedAccountSpec{Name: "D", Matchings: []Matching{{AccountName: "Nope", MatchStrings: []string{"X"}}}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Derive(context.Background(), tc.spec, sources)
			var ce *ConfigurationError
			assert.True(t, errors.As(err, &ce), "got %v", err)
		})
	}
}

func TestDerive_SelfDerivation(t *testing.T) {
	sources := map[string]*Account{"Checking": checking(t)}

	t.Run("wildcard", func(t *testing.T) {
		spec := DerivedAccountSpec{Name: "Checking", Matchings: []Matching{{MatchStrings: []string{"COFFEE"}}}}
		_, err := Derive(context.Background(), spec, sources)
		var ce *ConsistencyError
		assert.True(t, errors.As(err, &ce), "got %v", err)
	})
	t.Run("explicit", func(t *testing.T) {
		spec := DerivedAccountSpec{Name: "Checking", Matchings: []Matching{{AccountName: "Checking", MatchStrings: []string{"COFFEE"}}}}
		_, err := Derive(context.Background(), spec, sources)
		var ce *ConsistencyError
		assert.True(t, errors.As(err, &ce), "got %v", err)
	})
}

func TestDerive_NothingMatched(t *testing.T) {
	spec := DerivedAccountSpec{Name: "Travel", Matchings: []Matching{{MatchStrings: []string{"AIRLINE"}}}}
	d, err := Derive(context.Background(), spec, map[string]*Account{"Checking": checking(t)})
	require.NoError(t, err)
	assert.Equal(t, "Travel", d.Name)
	assert.Nil(t, d.Account)
	assert.Empty(t, d.Entries)
}

func TestDerive_MatchStringsAreLiteral(t *testing.T) {
	src := account(t, "A", "0",
		raw("2024-01-01", "-1", "A.B"),
		raw("2024-01-02", "-2", "AXB"),
	)
	spec := DerivedAccountSpec{Name: "D", Matchings: []Matching{{MatchStrings: []string{"A.B"}}}}
	d, err := Derive(context.Background(), spec, map[string]*Account{"A": src})
	require.NoError(t, err)
	require.Equal(t, 1, d.Account.Len())
	assert.Equal(t, "A.B", d.Account.Transactions[0].Description)
}

func TestDerive_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	spec := DerivedAccountSpec{Name: "Dining", Matchings: []Matching{{MatchStrings: []string{"COFFEE"}}}}
	_, err := Derive(ctx, spec, map[string]*Account{"Checking": checking(t)})
	assert.ErrorIs(t, err, context.Canceled)
}
