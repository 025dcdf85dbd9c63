package books

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etnz/books/blob"
	"github.com/etnz/books/cache"
)

// countingProvider counts the loads of its batches.
type countingProvider struct {
	Batches
	loads atomic.Int64
}

func (p *countingProvider) Load(ctx context.Context, name string) (*SourceBatch, error) {
	p.loads.Add(1)
	return p.Batches.Load(ctx, name)
}

func householdBatches() Batches {
	return Batches{
		{Name: "Checking", StartValue: D("100"), Raw: []RawTransaction{
			raw("2024-01-01", "-50.00", "COFFEE SHOP"),
			raw("2024-01-03", "-200.00", "TRANSFER OUT"),
			raw("2024-01-05", "1000.00", "PAYROLL"),
		}},
		{Name: "Savings", Raw: []RawTransaction{
			raw("2024-01-04", "200.00", "TRANSFER IN"),
			raw("2024-01-31", "0.42", "INTEREST"),
		}},
	}
}

func householdConfig() *Config {
	return &Config{
		Derived: []DerivedAccountSpec{dining()},
		Internal: []InternalTransactionMapping{{
			FromAccount: "Checking", FromMatchStrings: []string{"TRANSFER OUT"},
			ToAccount: "Savings", ToMatchStrings: []string{"TRANSFER IN"},
		}},
	}
}

func openBook(t *testing.T, p Provider, cfg *Config, c *cache.Cache) *Book {
	t.Helper()
	b, err := Open(context.Background(), p, cfg, c, Options{Workers: 2})
	require.NoError(t, err)
	return b
}

func TestBook_Assemble(t *testing.T) {
	ctx := context.Background()
	p := &countingProvider{Batches: householdBatches()}
	c := cache.New(blob.NewMemory(), RecordCodec{})

	first, err := openBook(t, p, householdConfig(), c).Assemble(ctx)
	require.NoError(t, err)
	assert.Equal(t, cache.Stats{Misses: 4}, c.Stats())
	assert.EqualValues(t, 2, p.loads.Load())
	assert.NotEmpty(t, first.Fingerprint)

	// Same inputs: every unit is served from the cache.
	second, err := openBook(t, p, householdConfig(), c).Assemble(ctx)
	require.NoError(t, err)
	assert.Equal(t, cache.Stats{Hits: 4, Misses: 4}, c.Stats())
	assert.EqualValues(t, 2, p.loads.Load())

	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assertEqual(t, first.Entries, second.Entries)
	assertEqual(t, first.Unaccounted, second.Unaccounted)
	assert.NotEqual(t, first.RunID, second.RunID)

	// The cached assembly equals a direct one.
	sources, err := openBook(t, p, householdConfig(), c).Sources(ctx)
	require.NoError(t, err)
	direct, err := Assemble(ctx, sources, householdConfig(), Options{})
	require.NoError(t, err)
	assertEqual(t, direct.Entries, second.Entries)
}

func TestBook_RecomputesChangedUnits(t *testing.T) {
	ctx := context.Background()
	batches := householdBatches()
	p := &countingProvider{Batches: batches}
	c := cache.New(blob.NewMemory(), RecordCodec{})

	_, err := openBook(t, p, householdConfig(), c).Assemble(ctx)
	require.NoError(t, err)
	before := c.Stats()

	batches[1].Raw = append(batches[1].Raw, raw("2024-02-01", "5.00", "GIFT"))
	a, err := openBook(t, p, householdConfig(), c).Assemble(ctx)
	require.NoError(t, err)

	after := c.Stats()
	// Checking is a hit; Savings, the wildcard Dining and the mapping read Savings.
	assert.EqualValues(t, 1, after.Hits-before.Hits)
	assert.EqualValues(t, 3, after.Misses-before.Misses)
	assert.EqualValues(t, 3, p.loads.Load())
	assert.Len(t, a.Unaccounted, 3)
}

func TestBook_ConfigChangeRecomputesOnlyThatUnit(t *testing.T) {
	ctx := context.Background()
	p := &countingProvider{Batches: householdBatches()}
	c := cache.New(blob.NewMemory(), RecordCodec{})

	_, err := openBook(t, p, householdConfig(), c).Assemble(ctx)
	require.NoError(t, err)
	before := c.Stats()

	cfg := householdConfig()
	cfg.Derived[0].Matchings[0].MatchStrings = []string{"COFFEE", "PAYROLL"}
	a, err := openBook(t, p, cfg, c).Assemble(ctx)
	require.NoError(t, err)

	after := c.Stats()
	assert.EqualValues(t, 3, after.Hits-before.Hits)
	assert.EqualValues(t, 1, after.Misses-before.Misses)
	assert.Len(t, a.Unaccounted, 1)
}

func TestBook_SelfDerivationAborts(t *testing.T) {
	cfg := &Config{Derived: []DerivedAccountSpec{{Name: "Savings", Matchings: []Matching{{MatchStrings: []string{"COFFEE"}}}}}}
	c := cache.New(blob.NewMemory(), RecordCodec{})
	_, err := openBook(t, householdBatches(), cfg, c).Assemble(context.Background())
	var ce *ConsistencyError
	assert.True(t, errors.As(err, &ce), "got %v", err)
}

func TestBook_BrokenSource(t *testing.T) {
	batches := householdBatches()
	batches[1].Raw[1].Date = "not a date"
	c := cache.New(blob.NewMemory(), RecordCodec{})

	a, err := openBook(t, batches, householdConfig(), c).Assemble(context.Background())
	require.NoError(t, err)
	require.Len(t, a.Sources, 1)
	assert.Equal(t, "Checking", a.Sources[0].Name)

	var units []string
	for _, f := range a.Failures {
		units = append(units, f.Unit)
	}
	assert.Equal(t, []string{"source Savings", "mapping Checking -> Savings"}, units)
	var de *DataError
	require.True(t, errors.As(a.Failures[0].Err, &de))
	assert.Equal(t, "Savings", de.Account)
	assert.Equal(t, 1, de.Index)
}

func TestBook_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p := &countingProvider{Batches: householdBatches()}

	store, err := blob.OpenDir(dir)
	require.NoError(t, err)
	first, err := openBook(t, p, householdConfig(), cache.New(store, RecordCodec{})).Assemble(ctx)
	require.NoError(t, err)

	store, err = blob.OpenDir(dir)
	require.NoError(t, err)
	c := cache.New(store, RecordCodec{})
	second, err := openBook(t, p, householdConfig(), c).Assemble(ctx)
	require.NoError(t, err)

	assert.Equal(t, cache.Stats{Hits: 4}, c.Stats())
	assert.EqualValues(t, 2, p.loads.Load())
	require.Len(t, second.Derived, 1)
	assert.Equal(t, first.Derived[0].IDs(), second.Derived[0].IDs())
	assert.True(t, first.Derived[0].EndValue.Equal(second.Derived[0].EndValue))
}

func TestBook_CacheNames(t *testing.T) {
	c := cache.New(blob.NewMemory(), RecordCodec{})
	b := openBook(t, householdBatches(), householdConfig(), c)

	names := b.CacheNames()
	require.Len(t, names, 4)
	assert.Equal(t, []string{"source/Checking", "source/Savings", "derived/Dining"}, names[:3])
	assert.Regexp(t, `^internal/Checking/Savings/[0-9a-f]{8}$`, names[3])

	_, err := b.Assemble(context.Background())
	require.NoError(t, err)
	for _, name := range names {
		fp, err := c.Fingerprint(context.Background(), name)
		require.NoError(t, err)
		assert.NotEqual(t, cache.Never, fp, name)
	}
}

func TestBook_AssembleTwiceWithRegistry(t *testing.T) {
	ctx := context.Background()
	reg := NewIDRegistry()
	require.NoError(t, reg.Claim("elsewhere", "not-a-ledger-id"))
	c := cache.New(blob.NewMemory(), RecordCodec{})
	b, err := Open(ctx, householdBatches(), householdConfig(), c, Options{Registry: reg})
	require.NoError(t, err)

	first, err := b.Assemble(ctx)
	require.NoError(t, err)
	second, err := b.Assemble(ctx)
	require.NoError(t, err)

	assertEqual(t, first.Entries, second.Entries)
	assert.Equal(t, 1, reg.Len())
}
