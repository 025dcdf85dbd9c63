package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etnz/books"
	"github.com/etnz/books/blob"
	"github.com/etnz/books/cache"
	"github.com/etnz/books/internal/config"
	"github.com/etnz/books/renderer"
)

func TestCheckLedger(t *testing.T) {
	sources := []string{"Checking", "Savings"}
	testCases := []struct {
		name    string
		ledger  books.Config
		wantErr []string
	}{
		{
			name: "valid",
			ledger: books.Config{
				Derived: []books.DerivedAccountSpec{{Name: "Dining", Matchings: []books.Matching{{MatchStrings: []string{"COFFEE"}}}}},
				Internal: []books.InternalTransactionMapping{{
					FromAccount: "Checking", FromMatchStrings: []string{"OUT"},
					ToAccount: "Savings", ToMatchStrings: []string{"IN"},
				}},
			},
		},
		{
			name: "unknown accounts",
			ledger: books.Config{
				Derived: []books.DerivedAccountSpec{{Name: "Rent", Matchings: []books.Matching{{AccountName: "Joint", MatchStrings: []string{"RENT"}}}}},
				Internal: []books.InternalTransactionMapping{{
					FromAccount: "Checking", FromMatchStrings: []string{"OUT"},
					ToAccount: "Broker", ToMatchStrings: []string{"IN"},
				}},
			},
			wantErr: []string{`unknown source account "Joint"`, `unknown source account "Broker"`},
		},
		{
			name: "derives from itself",
			ledger: books.Config{
				Derived: []books.DerivedAccountSpec{{Name: "Savings", Matchings: []books.Matching{{MatchStrings: []string{"INTEREST"}}}}},
			},
			wantErr: []string{"derives from itself", "name already used by a source account"},
		},
		{
			name: "invalid unit",
			ledger: books.Config{
				Derived: []books.DerivedAccountSpec{{Name: "Empty"}},
			},
			wantErr: []string{"no matchings"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckLedger(&tc.ledger, sources)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Len(t, unjoin(err), len(tc.wantErr))
			for _, want := range tc.wantErr {
				assert.ErrorContains(t, err, want)
			}
		})
	}
}

func TestFilters(t *testing.T) {
	accounts := []renderer.AccountRow{{Name: "Checking"}, {Name: "Dining", Derived: true}}
	assert.Equal(t, []renderer.AccountRow{{Name: "Dining", Derived: true}}, filterAccounts(accounts, "Dining"))
	assert.Empty(t, filterAccounts(accounts, "Savings"))

	entries := []renderer.EntryRow{
		{From: "Checking", To: "Dining"},
		{From: "Checking", To: "Savings"},
	}
	assert.Len(t, filterEntries(entries, "Checking"), 2)
	assert.Equal(t, []renderer.EntryRow{{From: "Checking", To: "Savings"}}, filterEntries(entries, "Savings"))
}

func TestPrintFingerprints(t *testing.T) {
	ctx := context.Background()
	c := cache.New(blob.NewMemory(), nil)
	require.NoError(t, c.SetFingerprint(ctx, "source/Checking", "0123456789abcdef0123456789abcdef"))

	var buf bytes.Buffer
	require.NoError(t, printFingerprints(ctx, &buf, c, []string{"source/Checking", "derived/Dining"}))
	assert.Equal(t, "0123456789abcdef0123456789abcdef source/Checking\n"+
		"never                            derived/Dining\n", buf.String())
}

func TestSettings(t *testing.T) {
	t.Setenv("BOOKS_STORE", config.StoreMemory)
	t.Setenv("BOOKS_OUTPUT", "from-env")

	*outputPath = "from-flag"
	*verbose = true
	t.Cleanup(func() {
		*outputPath = ""
		*verbose = false
	})

	cfg, err := Settings()
	require.NoError(t, err)
	assert.Equal(t, config.StoreMemory, cfg.Store)
	assert.Equal(t, "from-flag", cfg.OutputPath)
	assert.Equal(t, "debug", cfg.LogLevel)

	*storeKind = "floppy"
	t.Cleanup(func() { *storeKind = "" })
	_, err = Settings()
	assert.ErrorContains(t, err, `unknown store "floppy"`)
}
