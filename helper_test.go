package books

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/etnz/books/date"
)

// byValue compares decimals and dates by value: a decimal read back from JSON
// has lost its trailing zeros.
var byValue = cmp.Options{
	cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
	cmp.Comparer(func(a, b date.Date) bool { return a == b }),
}

// assertEqual reports a diff between want and got, compared by value.
func assertEqual(t *testing.T, want, got any) {
	t.Helper()
	if diff := cmp.Diff(want, got, byValue); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

// D is a helper for tests to create a decimal from a constant.
func D(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// raw is a helper for tests to create a raw transaction stamped at noon UTC of its date.
func raw(day, delta, description string) RawTransaction {
	t, err := time.Parse(time.DateOnly, day)
	if err != nil {
		panic(err)
	}
	return RawTransaction{
		Date:        day,
		Delta:       D(delta),
		Description: description,
		Timestamp:   float64(t.Add(12 * time.Hour).Unix()),
	}
}

// account is a helper for tests to identify raw transactions into a source account.
func account(t *testing.T, name, start string, raws ...RawTransaction) *Account {
	t.Helper()
	txs, err := Identify(raws)
	require.NoError(t, err)
	return NewAccount(name, D(start), txs)
}

// checking is the source account of the worked examples.
func checking(t *testing.T) *Account {
	return account(t, "Checking", "0",
		raw("2024-01-01", "-50.00", "COFFEE SHOP"),
		raw("2024-01-05", "1000.00", "PAYROLL"),
	)
}
