package books

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatches(t *testing.T) {
	ctx := context.Background()
	batches := householdBatches()

	names, err := batches.Accounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Checking", "Savings"}, names)

	fp, err := batches.Fingerprint(ctx, "Savings")
	require.NoError(t, err)
	assert.Regexp(t, hexID, fp)

	b, err := batches.Load(ctx, "Savings")
	require.NoError(t, err)
	assert.Equal(t, fp, b.Fingerprint)
	acc, err := b.Account()
	require.NoError(t, err)
	assert.True(t, acc.EndValue.Equal(D("200.42")))

	// Any change of content changes the fingerprint.
	batches[1].Raw[1].Delta = D("0.43")
	changed, err := batches.Fingerprint(ctx, "Savings")
	require.NoError(t, err)
	assert.NotEqual(t, fp, changed)

	batches[1].StartValue = D("1")
	again, err := batches.Fingerprint(ctx, "Savings")
	require.NoError(t, err)
	assert.NotEqual(t, changed, again)

	_, err = batches.Load(ctx, "Nope")
	assert.Error(t, err)
}

func TestFingerprint_LengthPrefixed(t *testing.T) {
	assert.NotEqual(t, fingerprint([]byte("ab"), []byte("c")), fingerprint([]byte("a"), []byte("bc")))
	assert.Equal(t, fingerprint([]byte("a")), fingerprint([]byte("a")))
}
